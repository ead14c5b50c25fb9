package computer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OnellHernandez/studio/internal/compat"
	"github.com/OnellHernandez/studio/internal/crypto"
	"github.com/OnellHernandez/studio/internal/events"
	"github.com/OnellHernandez/studio/internal/logs"
	"github.com/OnellHernandez/studio/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrInvalidInput 无效输入
var ErrInvalidInput = errors.New("invalid input")

const (
	// DefaultPageSize 默认每页条数
	DefaultPageSize = 20
	// MaxPageSize 每页最大条数
	MaxPageSize = 100
	// DefaultMigrationBatch 名称迁移默认批大小
	DefaultMigrationBatch = 200
)

// ListResult 分页后的列表结果，Items 的显示名称已解码
type ListResult struct {
	Items    []*models.Computer
	Total    int64
	Page     int
	PageSize int
}

// Summary 用户记录统计
type Summary struct {
	Total      int64
	Compatible int64
}

// MigrationResult 名称迁移结果
type MigrationResult struct {
	Scanned  int `json:"scanned"`
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"` // 无法用任何口令解码的密文
}

// Service 计算机记录业务逻辑层
type Service struct {
	repo       *Repository
	obfuscator *crypto.Obfuscator
	broker     *events.Broker
}

// NewService 创建 Service 实例，broker 可为 nil
func NewService(repo *Repository, obfuscator *crypto.Obfuscator, broker *events.Broker) *Service {
	return &Service{
		repo:       repo,
		obfuscator: obfuscator,
		broker:     broker,
	}
}

// CreateComputer 创建记录
func (s *Service) CreateComputer(owner string, req CreateComputerRequest) (*models.Computer, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	c := &models.Computer{
		OwnerID:           owner,
		AssetTag:          strings.TrimSpace(req.AssetTag),
		Processor:         strings.TrimSpace(req.Processor),
		RAMGiB:            req.RAMGiB,
		StorageKind:       req.StorageKind,
		StorageGiB:        req.StorageGiB,
		TPMVersion:        strings.TrimSpace(req.TPMVersion),
		UEFISupport:       req.UEFISupport,
		SecureBootEnabled: req.SecureBootEnabled,
		VerifiedOverride:  req.VerifiedOverride,
		Notes:             req.Notes,
	}
	c.IsCompatible = compat.EvaluateComputer(c).Compatible

	plaintextName := strings.TrimSpace(req.DisplayName)
	stored, err := s.encodeName(plaintextName)
	if err != nil {
		return nil, err
	}
	c.DisplayName = stored

	if err := s.repo.Create(c); err != nil {
		return nil, err
	}

	// 返回前恢复明文
	c.DisplayName = plaintextName

	logs.Logger.WithFields(logrus.Fields{
		"computer_id":   c.ID,
		"owner_id":      owner,
		"is_compatible": c.IsCompatible,
	}).Info("计算机记录已创建")

	s.publish(owner, events.KindCreated, c.ID)
	return c, nil
}

// GetComputer 获取单条记录，显示名称尽力解码
func (s *Service) GetComputer(owner, id string) (*models.Computer, error) {
	c, err := s.repo.FindByID(owner, id)
	if err != nil {
		return nil, err
	}

	s.revealName(c)
	return c, nil
}

// ListComputers 获取记录列表
// 状态过滤在数据库中完成；搜索在解码后进行，分页在搜索之后
func (s *Service) ListComputers(owner string, req ListComputersRequest) (*ListResult, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)

	status := req.Status
	if status == "" {
		status = StatusAll
	}

	computers, err := s.repo.FindAll(owner, status)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(req.Search))
	matched := make([]*models.Computer, 0, len(computers))
	for _, c := range computers {
		s.revealName(c)
		if needle == "" || matchesSearch(c, needle) {
			matched = append(matched, c)
		}
	}

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	return &ListResult{
		Items:    matched[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// UpdateComputer 部分更新记录
// 兼容性重新计算与保存在同一事务内完成
func (s *Service) UpdateComputer(owner, id string, req UpdateComputerRequest) (*models.Computer, error) {
	if err := validateUpdateRequest(req); err != nil {
		return nil, err
	}

	var plaintextName *string
	var storedName string
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		encoded, err := s.encodeName(name)
		if err != nil {
			return nil, err
		}
		plaintextName = &name
		storedName = encoded
	}

	c, err := s.repo.UpdateInTx(owner, id, func(c *models.Computer) error {
		applyUpdate(c, req)
		if plaintextName != nil {
			c.DisplayName = storedName
		}
		c.IsCompatible = compat.EvaluateComputer(c).Compatible
		return nil
	})
	if err != nil {
		return nil, err
	}

	if plaintextName != nil {
		c.DisplayName = *plaintextName
	} else {
		s.revealName(c)
	}

	logs.Logger.WithFields(logrus.Fields{
		"computer_id":   c.ID,
		"owner_id":      owner,
		"is_compatible": c.IsCompatible,
	}).Info("计算机记录已更新")

	s.publish(owner, events.KindUpdated, c.ID)
	return c, nil
}

// DeleteComputer 删除记录（硬删除）
func (s *Service) DeleteComputer(owner, id string) error {
	if err := s.repo.Delete(owner, id); err != nil {
		return err
	}

	logs.Logger.WithFields(logrus.Fields{
		"computer_id": id,
		"owner_id":    owner,
	}).Info("计算机记录已删除")

	s.publish(owner, events.KindDeleted, id)
	return nil
}

// Summary 获取用户记录统计
func (s *Service) Summary(owner string) (*Summary, error) {
	total, compatible, err := s.repo.Count(owner)
	if err != nil {
		return nil, err
	}
	return &Summary{Total: total, Compatible: compatible}, nil
}

// MigrateLegacyNames 批量重新编码无法用当前口令解码的显示名称
// 包括未混淆的旧明文和旧口令加密的密文，可重复执行
func (s *Service) MigrateLegacyNames(ctx context.Context, batchSize int) (*MigrationResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultMigrationBatch
	}

	result := &MigrationResult{}
	afterID := ""

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := s.repo.FindAllForMigration(afterID, batchSize)
		if err != nil {
			return result, fmt.Errorf("读取迁移批次失败: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, c := range batch {
			result.Scanned++

			plaintext, state := s.obfuscator.Inspect(c.DisplayName)
			switch state {
			case crypto.NameCurrent:
				continue
			case crypto.NameUndecodable:
				logs.Logger.WithField("computer_id", c.ID).Warn("显示名称是无法解码的密文，已跳过")
				result.Skipped++
				continue
			}

			encoded, err := s.obfuscator.ObfuscateName(plaintext)
			if err != nil {
				return result, fmt.Errorf("编码显示名称失败: %w", err)
			}
			if err := s.repo.SaveDisplayName(c.ID, encoded); err != nil {
				return result, fmt.Errorf("保存显示名称失败: %w", err)
			}

			result.Migrated++
			s.publish(c.OwnerID, events.KindRenamed, c.ID)
		}

		afterID = batch[len(batch)-1].ID
		if len(batch) < batchSize {
			break
		}
	}

	logs.Logger.WithFields(logrus.Fields{
		"scanned":  result.Scanned,
		"migrated": result.Migrated,
		"skipped":  result.Skipped,
	}).Info("显示名称迁移完成")

	return result, nil
}

// encodeName 空名称按空字符串存储
func (s *Service) encodeName(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	encoded, err := s.obfuscator.ObfuscateName(plaintext)
	if err != nil {
		return "", fmt.Errorf("编码显示名称失败: %w", err)
	}
	return encoded, nil
}

// revealName 就地解码显示名称，无法解码时保留原值
func (s *Service) revealName(c *models.Computer) {
	plaintext, state := s.obfuscator.Inspect(c.DisplayName)
	switch state {
	case crypto.NameLegacy:
		logs.Logger.WithField("computer_id", c.ID).Debug("显示名称未使用当前口令编码")
	case crypto.NameUndecodable:
		logs.Logger.WithField("computer_id", c.ID).Warn("显示名称无法用已配置口令解码")
	}
	c.DisplayName = plaintext
}

func (s *Service) publish(owner string, kind events.Kind, id string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(events.Change{OwnerID: owner, Kind: kind, ComputerID: id})
}

func matchesSearch(c *models.Computer, needle string) bool {
	return strings.Contains(strings.ToLower(c.AssetTag), needle) ||
		strings.Contains(strings.ToLower(c.DisplayName), needle)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func applyUpdate(c *models.Computer, req UpdateComputerRequest) {
	if req.AssetTag != nil {
		c.AssetTag = strings.TrimSpace(*req.AssetTag)
	}
	if req.Processor != nil {
		c.Processor = strings.TrimSpace(*req.Processor)
	}
	if req.RAMGiB != nil {
		c.RAMGiB = *req.RAMGiB
	}
	if req.StorageKind != nil {
		c.StorageKind = *req.StorageKind
	}
	if req.StorageGiB != nil {
		c.StorageGiB = *req.StorageGiB
	}
	if req.TPMVersion != nil {
		c.TPMVersion = strings.TrimSpace(*req.TPMVersion)
	}
	if req.UEFISupport != nil {
		c.UEFISupport = *req.UEFISupport
	}
	if req.SecureBootEnabled != nil {
		c.SecureBootEnabled = *req.SecureBootEnabled
	}
	if req.VerifiedOverride != nil {
		c.VerifiedOverride = *req.VerifiedOverride
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}
}

// validateCreateRequest 验证创建请求
func validateCreateRequest(req CreateComputerRequest) error {
	if strings.TrimSpace(req.AssetTag) == "" {
		return fmt.Errorf("%w: asset_tag is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Processor) == "" {
		return fmt.Errorf("%w: processor is required", ErrInvalidInput)
	}
	if req.RAMGiB < 1 {
		return fmt.Errorf("%w: ram_gib must be at least 1", ErrInvalidInput)
	}
	if req.StorageGiB < 1 {
		return fmt.Errorf("%w: storage_gib must be at least 1", ErrInvalidInput)
	}
	if !req.StorageKind.Valid() {
		return fmt.Errorf("%w: storage_kind must be SSD or HDD", ErrInvalidInput)
	}
	return nil
}

// validateUpdateRequest 验证更新请求
func validateUpdateRequest(req UpdateComputerRequest) error {
	if req.AssetTag != nil && strings.TrimSpace(*req.AssetTag) == "" {
		return fmt.Errorf("%w: asset_tag cannot be empty", ErrInvalidInput)
	}
	if req.Processor != nil && strings.TrimSpace(*req.Processor) == "" {
		return fmt.Errorf("%w: processor cannot be empty", ErrInvalidInput)
	}
	if req.RAMGiB != nil && *req.RAMGiB < 1 {
		return fmt.Errorf("%w: ram_gib must be at least 1", ErrInvalidInput)
	}
	if req.StorageGiB != nil && *req.StorageGiB < 1 {
		return fmt.Errorf("%w: storage_gib must be at least 1", ErrInvalidInput)
	}
	if req.StorageKind != nil && !req.StorageKind.Valid() {
		return fmt.Errorf("%w: storage_kind must be SSD or HDD", ErrInvalidInput)
	}
	return nil
}
