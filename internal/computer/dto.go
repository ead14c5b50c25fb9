package computer

import (
	"time"

	"github.com/OnellHernandez/studio/internal/compat"
	"github.com/OnellHernandez/studio/internal/models"
)

// CreateComputerRequest 创建计算机记录请求
type CreateComputerRequest struct {
	AssetTag          string             `json:"asset_tag" binding:"required,max=100"`
	DisplayName       string             `json:"display_name" binding:"max=200"`
	Processor         string             `json:"processor" binding:"required,max=200"`
	RAMGiB            int                `json:"ram_gib" binding:"required,min=1"`
	StorageKind       models.StorageKind `json:"storage_kind" binding:"required,oneof=SSD HDD"`
	StorageGiB        int                `json:"storage_gib" binding:"required,min=1"`
	TPMVersion        string             `json:"tpm_version" binding:"max=20"`
	UEFISupport       bool               `json:"uefi_support"`
	SecureBootEnabled bool               `json:"secure_boot_enabled"`
	VerifiedOverride  bool               `json:"verified_override"`
	Notes             string             `json:"notes" binding:"max=2000"`
}

// UpdateComputerRequest 更新计算机记录请求，nil 字段保持不变
type UpdateComputerRequest struct {
	AssetTag          *string             `json:"asset_tag" binding:"omitempty,max=100"`
	DisplayName       *string             `json:"display_name" binding:"omitempty,max=200"`
	Processor         *string             `json:"processor" binding:"omitempty,max=200"`
	RAMGiB            *int                `json:"ram_gib" binding:"omitempty,min=1"`
	StorageKind       *models.StorageKind `json:"storage_kind" binding:"omitempty,oneof=SSD HDD"`
	StorageGiB        *int                `json:"storage_gib" binding:"omitempty,min=1"`
	TPMVersion        *string             `json:"tpm_version" binding:"omitempty,max=20"`
	UEFISupport       *bool               `json:"uefi_support"`
	SecureBootEnabled *bool               `json:"secure_boot_enabled"`
	VerifiedOverride  *bool               `json:"verified_override"`
	Notes             *string             `json:"notes" binding:"omitempty,max=2000"`
}

// ListComputersRequest 列表查询参数
type ListComputersRequest struct {
	Search   string       `form:"search"`
	Status   StatusFilter `form:"status" binding:"omitempty,oneof=all compatible incompatible"`
	Page     int          `form:"page" binding:"omitempty,min=1"`
	PageSize int          `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ComputerResponse 计算机记录响应，显示名称为明文
type ComputerResponse struct {
	ID                string                 `json:"id"`
	AssetTag          string                 `json:"asset_tag"`
	DisplayName       string                 `json:"display_name"`
	Processor         string                 `json:"processor"`
	RAMGiB            int                    `json:"ram_gib"`
	StorageKind       models.StorageKind     `json:"storage_kind"`
	StorageGiB        int                    `json:"storage_gib"`
	TPMVersion        string                 `json:"tpm_version"`
	UEFISupport       bool                   `json:"uefi_support"`
	SecureBootEnabled bool                   `json:"secure_boot_enabled"`
	VerifiedOverride  bool                   `json:"verified_override"`
	IsCompatible      bool                   `json:"is_compatible"`
	Notes             string                 `json:"notes"`
	Report            compat.Report          `json:"report"`
	FailedCriteria    []string               `json:"failed_criteria"`
	Checklist         []compat.ChecklistItem `json:"checklist"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// ComputerListResponse 列表响应（带分页）
type ComputerListResponse struct {
	Data       []ComputerResponse `json:"data"`
	Pagination PaginationMeta     `json:"pagination"`
}

// PaginationMeta 分页元数据
type PaginationMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// SummaryResponse 仪表盘统计
type SummaryResponse struct {
	Total        int64 `json:"total"`
	Compatible   int64 `json:"compatible"`
	Incompatible int64 `json:"incompatible"`
}

// EvaluateResponse 未保存表单的实时评估结果
type EvaluateResponse struct {
	Report         compat.Report          `json:"report"`
	FailedCriteria []string               `json:"failed_criteria"`
	Checklist      []compat.ChecklistItem `json:"checklist"`
}

// ToComputerResponse 转换为响应，附带重新计算的评估结果
// 调用方需保证 DisplayName 已解码
func ToComputerResponse(c *models.Computer) *ComputerResponse {
	in := compat.InputFromComputer(c)
	report := compat.Evaluate(in)

	return &ComputerResponse{
		ID:                c.ID,
		AssetTag:          c.AssetTag,
		DisplayName:       c.DisplayName,
		Processor:         c.Processor,
		RAMGiB:            c.RAMGiB,
		StorageKind:       c.StorageKind,
		StorageGiB:        c.StorageGiB,
		TPMVersion:        c.TPMVersion,
		UEFISupport:       c.UEFISupport,
		SecureBootEnabled: c.SecureBootEnabled,
		VerifiedOverride:  c.VerifiedOverride,
		IsCompatible:      c.IsCompatible,
		Notes:             c.Notes,
		Report:            report,
		FailedCriteria:    report.Failed(),
		Checklist:         compat.Checklist(in),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// ToEvaluateResponse 转换评估结果
func ToEvaluateResponse(in compat.Input) *EvaluateResponse {
	report := compat.Evaluate(in)
	return &EvaluateResponse{
		Report:         report,
		FailedCriteria: report.Failed(),
		Checklist:      compat.Checklist(in),
	}
}

// ToListResponse 转换列表结果
func ToListResponse(result *ListResult) *ComputerListResponse {
	data := make([]ComputerResponse, 0, len(result.Items))
	for _, c := range result.Items {
		data = append(data, *ToComputerResponse(c))
	}

	totalPages := int((result.Total + int64(result.PageSize) - 1) / int64(result.PageSize))

	return &ComputerListResponse{
		Data: data,
		Pagination: PaginationMeta{
			Total:      result.Total,
			Page:       result.Page,
			PageSize:   result.PageSize,
			TotalPages: totalPages,
		},
	}
}

// ToSummaryResponse 转换统计结果
func ToSummaryResponse(s *Summary) *SummaryResponse {
	return &SummaryResponse{
		Total:        s.Total,
		Compatible:   s.Compatible,
		Incompatible: s.Total - s.Compatible,
	}
}
