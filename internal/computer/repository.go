package computer

import (
	"errors"

	"github.com/OnellHernandez/studio/internal/models"
	"gorm.io/gorm"
)

// ErrComputerNotFound 记录不存在或不属于当前用户
var ErrComputerNotFound = errors.New("computer not found")

// StatusFilter 列表兼容性过滤条件
type StatusFilter string

const (
	StatusAll          StatusFilter = "all"
	StatusCompatible   StatusFilter = "compatible"
	StatusIncompatible StatusFilter = "incompatible"
)

// Repository 计算机记录数据访问层
// 所有按用户的查询都带 owner_id 条件
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 创建记录
func (r *Repository) Create(c *models.Computer) error {
	return r.db.Create(c).Error
}

// FindByID 查找属于 owner 的记录
func (r *Repository) FindByID(owner, id string) (*models.Computer, error) {
	return findOwned(r.db, owner, id)
}

func findOwned(db *gorm.DB, owner, id string) (*models.Computer, error) {
	var c models.Computer
	err := db.Where("id = ? AND owner_id = ?", id, owner).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrComputerNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindAll 查找 owner 的全部记录，按创建时间倒序
func (r *Repository) FindAll(owner string, status StatusFilter) ([]*models.Computer, error) {
	var computers []*models.Computer

	query := r.db.Where("owner_id = ?", owner)
	switch status {
	case StatusCompatible:
		query = query.Where("is_compatible = ?", true)
	case StatusIncompatible:
		query = query.Where("is_compatible = ?", false)
	}

	err := query.Order("created_at DESC").Find(&computers).Error
	if err != nil {
		return nil, err
	}
	return computers, nil
}

// UpdateInTx 在同一事务内加载、修改并保存记录
// fn 返回错误时事务回滚；fn 内不得访问数据库
func (r *Repository) UpdateInTx(owner, id string, fn func(c *models.Computer) error) (*models.Computer, error) {
	var updated *models.Computer

	err := r.db.Transaction(func(tx *gorm.DB) error {
		c, err := findOwned(tx, owner, id)
		if err != nil {
			return err
		}

		if err := fn(c); err != nil {
			return err
		}

		// OwnerID 不可修改
		c.OwnerID = owner
		if err := tx.Save(c).Error; err != nil {
			return err
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete 删除记录（硬删除）
func (r *Repository) Delete(owner, id string) error {
	result := r.db.Where("id = ? AND owner_id = ?", id, owner).Delete(&models.Computer{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrComputerNotFound
	}
	return nil
}

// Count 统计 owner 的记录数
func (r *Repository) Count(owner string) (total, compatible int64, err error) {
	if err = r.db.Model(&models.Computer{}).
		Where("owner_id = ?", owner).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}

	if err = r.db.Model(&models.Computer{}).
		Where("owner_id = ? AND is_compatible = ?", owner, true).
		Count(&compatible).Error; err != nil {
		return 0, 0, err
	}

	return total, compatible, nil
}

// FindAllForMigration 跨用户按 ID 顺序分批读取，afterID 为上一批最后一条
func (r *Repository) FindAllForMigration(afterID string, batchSize int) ([]*models.Computer, error) {
	var computers []*models.Computer
	err := r.db.Where("id > ?", afterID).
		Order("id ASC").
		Limit(batchSize).
		Find(&computers).Error
	if err != nil {
		return nil, err
	}
	return computers, nil
}

// SaveDisplayName 仅更新存储的显示名称，不修改 updated_at
func (r *Repository) SaveDisplayName(id, stored string) error {
	return r.db.Model(&models.Computer{}).
		Where("id = ?", id).
		UpdateColumn("display_name", stored).Error
}
