package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StorageKind 存储类型
type StorageKind string

const (
	StorageSSD StorageKind = "SSD"
	StorageHDD StorageKind = "HDD"
)

// Valid 是否为受支持的存储类型
func (k StorageKind) Valid() bool {
	return k == StorageSSD || k == StorageHDD
}

// Computer 计算机资产记录
// DisplayName 在数据库中始终为混淆后的密文，仅在内存中解码为明文
type Computer struct {
	ID                string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID           string      `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	AssetTag          string      `gorm:"type:varchar(100);not null" json:"asset_tag"`
	DisplayName       string      `gorm:"type:text;not null;default:''" json:"display_name"` // 混淆存储
	Processor         string      `gorm:"type:varchar(200);not null" json:"processor"`
	RAMGiB            int         `gorm:"column:ram_gib;not null" json:"ram_gib"`
	StorageKind       StorageKind `gorm:"type:varchar(10);not null;default:'HDD'" json:"storage_kind"`
	StorageGiB        int         `gorm:"column:storage_gib;not null" json:"storage_gib"`
	TPMVersion        string      `gorm:"column:tpm_version;type:varchar(20);not null;default:''" json:"tpm_version"`
	UEFISupport       bool        `gorm:"column:uefi_support;not null" json:"uefi_support"`
	SecureBootEnabled bool        `gorm:"not null" json:"secure_boot_enabled"`
	VerifiedOverride  bool        `gorm:"not null" json:"verified_override"` // 人工确认兼容，跳过所有检查项
	IsCompatible      bool        `gorm:"not null;index" json:"is_compatible"` // 派生字段，每次写入时重新计算
	Notes             string      `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// TableName 指定表名
func (Computer) TableName() string {
	return "computers"
}

// BeforeCreate 首次持久化前分配 ID
func (c *Computer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
