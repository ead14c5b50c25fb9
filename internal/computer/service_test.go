package computer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/OnellHernandez/studio/internal/crypto"
	"github.com/OnellHernandez/studio/internal/events"
	"github.com/OnellHernandez/studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testPassphrase = "test-passphrase-0123456789"

// setupTestService 创建测试服务
func setupTestService(t *testing.T) (*Service, *gorm.DB, *events.Broker) {
	db := setupTestDB(t)

	obf, err := crypto.NewObfuscator(testPassphrase, crypto.LegacyPassphrase)
	require.NoError(t, err)

	broker := events.NewBroker()
	t.Cleanup(broker.Close)

	return NewService(NewRepository(db), obf, broker), db, broker
}

func compatibleRequest() CreateComputerRequest {
	return CreateComputerRequest{
		AssetTag:          "COMP001",
		DisplayName:       "LAB-PC-01",
		Processor:         "Intel i5",
		RAMGiB:            8,
		StorageKind:       models.StorageSSD,
		StorageGiB:        256,
		TPMVersion:        "2.0",
		UEFISupport:       true,
		SecureBootEnabled: true,
	}
}

func storedName(t *testing.T, db *gorm.DB, id string) string {
	var c models.Computer
	require.NoError(t, db.First(&c, "id = ?", id).Error)
	return c.DisplayName
}

func TestService_CreateComputer(t *testing.T) {
	svc, db, _ := setupTestService(t)

	c, err := svc.CreateComputer("ana", compatibleRequest())
	require.NoError(t, err)
	assert.True(t, c.IsCompatible)
	assert.Equal(t, "LAB-PC-01", c.DisplayName)
	assert.Equal(t, "ana", c.OwnerID)

	// 数据库中为密文
	stored := storedName(t, db, c.ID)
	assert.NotEqual(t, "LAB-PC-01", stored)
	plain, err := crypto.Decode(stored, testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, "LAB-PC-01", plain)
}

func TestService_CreateComputer_Incompatible(t *testing.T) {
	svc, _, _ := setupTestService(t)

	req := compatibleRequest()
	req.TPMVersion = "1.2"

	c, err := svc.CreateComputer("ana", req)
	require.NoError(t, err)
	assert.False(t, c.IsCompatible)
}

func TestService_CreateComputer_VerifiedOverride(t *testing.T) {
	svc, _, _ := setupTestService(t)

	req := compatibleRequest()
	req.TPMVersion = ""
	req.RAMGiB = 2
	req.VerifiedOverride = true

	c, err := svc.CreateComputer("ana", req)
	require.NoError(t, err)
	assert.True(t, c.IsCompatible)
}

func TestService_CreateComputer_EmptyName(t *testing.T) {
	svc, db, _ := setupTestService(t)

	req := compatibleRequest()
	req.DisplayName = "  "

	c, err := svc.CreateComputer("ana", req)
	require.NoError(t, err)
	assert.Equal(t, "", c.DisplayName)
	assert.Equal(t, "", storedName(t, db, c.ID))
}

func TestService_CreateComputer_Validation(t *testing.T) {
	svc, _, _ := setupTestService(t)

	tests := []struct {
		name   string
		mutate func(*CreateComputerRequest)
	}{
		{"缺少资产标签", func(r *CreateComputerRequest) { r.AssetTag = " " }},
		{"缺少处理器", func(r *CreateComputerRequest) { r.Processor = "" }},
		{"内存为 0", func(r *CreateComputerRequest) { r.RAMGiB = 0 }},
		{"存储为 0", func(r *CreateComputerRequest) { r.StorageGiB = 0 }},
		{"未知存储类型", func(r *CreateComputerRequest) { r.StorageKind = "NVMe" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := compatibleRequest()
			tt.mutate(&req)
			_, err := svc.CreateComputer("ana", req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestService_GetComputer(t *testing.T) {
	svc, _, _ := setupTestService(t)

	created, err := svc.CreateComputer("ana", compatibleRequest())
	require.NoError(t, err)

	got, err := svc.GetComputer("ana", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "LAB-PC-01", got.DisplayName)

	_, err = svc.GetComputer("bob", created.ID)
	assert.ErrorIs(t, err, ErrComputerNotFound)
}

// TestService_GetComputer_LegacyNames 旧明文和旧口令密文都能读出
func TestService_GetComputer_LegacyNames(t *testing.T) {
	svc, db, _ := setupTestService(t)

	legacyCipher, err := crypto.Encode("Equipo-Contabilidad", crypto.LegacyPassphrase)
	require.NoError(t, err)

	plain := newComputer("ana", "OLD1", true)
	plain.DisplayName = "Recepcion"
	require.NoError(t, db.Create(plain).Error)

	old := newComputer("ana", "OLD2", true)
	old.DisplayName = legacyCipher
	require.NoError(t, db.Create(old).Error)

	got, err := svc.GetComputer("ana", plain.ID)
	require.NoError(t, err)
	assert.Equal(t, "Recepcion", got.DisplayName)

	got, err = svc.GetComputer("ana", old.ID)
	require.NoError(t, err)
	assert.Equal(t, "Equipo-Contabilidad", got.DisplayName)
}

func TestService_ListComputers(t *testing.T) {
	svc, _, _ := setupTestService(t)

	for i := 1; i <= 5; i++ {
		req := compatibleRequest()
		req.AssetTag = fmt.Sprintf("COMP%03d", i)
		req.DisplayName = fmt.Sprintf("Lab-%d", i)
		if i%2 == 0 {
			req.RAMGiB = 2
		}
		_, err := svc.CreateComputer("ana", req)
		require.NoError(t, err)
	}
	_, err := svc.CreateComputer("bob", compatibleRequest())
	require.NoError(t, err)

	t.Run("默认", func(t *testing.T) {
		res, err := svc.ListComputers("ana", ListComputersRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Total)
		assert.Equal(t, 1, res.Page)
		assert.Equal(t, DefaultPageSize, res.PageSize)
		assert.Len(t, res.Items, 5)
	})

	t.Run("状态过滤", func(t *testing.T) {
		res, err := svc.ListComputers("ana", ListComputersRequest{Status: StatusIncompatible})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total)
		for _, c := range res.Items {
			assert.False(t, c.IsCompatible)
		}
	})

	t.Run("按解码后的名称搜索", func(t *testing.T) {
		res, err := svc.ListComputers("ana", ListComputersRequest{Search: "lab-3"})
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, "COMP003", res.Items[0].AssetTag)
		assert.Equal(t, "Lab-3", res.Items[0].DisplayName)
	})

	t.Run("按资产标签搜索", func(t *testing.T) {
		res, err := svc.ListComputers("ana", ListComputersRequest{Search: "comp00"})
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Total)
	})

	t.Run("分页", func(t *testing.T) {
		res, err := svc.ListComputers("ana", ListComputersRequest{Page: 3, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Total)
		assert.Len(t, res.Items, 1)

		res, err = svc.ListComputers("ana", ListComputersRequest{Page: 9, PageSize: 2})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
	})

	t.Run("每页上限", func(t *testing.T) {
		res, err := svc.ListComputers("ana", ListComputersRequest{PageSize: 1000})
		require.NoError(t, err)
		assert.Equal(t, MaxPageSize, res.PageSize)
	})
}

func TestService_UpdateComputer(t *testing.T) {
	svc, db, _ := setupTestService(t)

	created, err := svc.CreateComputer("ana", compatibleRequest())
	require.NoError(t, err)
	require.True(t, created.IsCompatible)

	tpm := "1.2"
	name := "LAB-PC-02"
	updated, err := svc.UpdateComputer("ana", created.ID, UpdateComputerRequest{
		TPMVersion:  &tpm,
		DisplayName: &name,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsCompatible)
	assert.Equal(t, "LAB-PC-02", updated.DisplayName)
	assert.Equal(t, "COMP001", updated.AssetTag)

	// 新名称同样以密文存储
	stored := storedName(t, db, created.ID)
	plain, err := crypto.Decode(stored, testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, "LAB-PC-02", plain)

	got, err := svc.GetComputer("ana", created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsCompatible)
}

func TestService_UpdateComputer_KeepsName(t *testing.T) {
	svc, _, _ := setupTestService(t)

	created, err := svc.CreateComputer("ana", compatibleRequest())
	require.NoError(t, err)

	override := true
	updated, err := svc.UpdateComputer("ana", created.ID, UpdateComputerRequest{VerifiedOverride: &override})
	require.NoError(t, err)
	assert.Equal(t, "LAB-PC-01", updated.DisplayName)
	assert.True(t, updated.VerifiedOverride)
}

func TestService_UpdateComputer_Errors(t *testing.T) {
	svc, _, _ := setupTestService(t)

	created, err := svc.CreateComputer("ana", compatibleRequest())
	require.NoError(t, err)

	zero := 0
	_, err = svc.UpdateComputer("ana", created.ID, UpdateComputerRequest{RAMGiB: &zero})
	assert.ErrorIs(t, err, ErrInvalidInput)

	empty := " "
	_, err = svc.UpdateComputer("ana", created.ID, UpdateComputerRequest{Processor: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)

	ram := 16
	_, err = svc.UpdateComputer("bob", created.ID, UpdateComputerRequest{RAMGiB: &ram})
	assert.ErrorIs(t, err, ErrComputerNotFound)
}

func TestService_DeleteComputer(t *testing.T) {
	svc, _, _ := setupTestService(t)

	created, err := svc.CreateComputer("ana", compatibleRequest())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteComputer("bob", created.ID), ErrComputerNotFound)
	require.NoError(t, svc.DeleteComputer("ana", created.ID))

	_, err = svc.GetComputer("ana", created.ID)
	assert.ErrorIs(t, err, ErrComputerNotFound)
}

func TestService_Summary(t *testing.T) {
	svc, _, _ := setupTestService(t)

	_, err := svc.CreateComputer("ana", compatibleRequest())
	require.NoError(t, err)
	req := compatibleRequest()
	req.StorageGiB = 63
	_, err = svc.CreateComputer("ana", req)
	require.NoError(t, err)

	summary, err := svc.Summary("ana")
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(1), summary.Compatible)

	resp := ToSummaryResponse(summary)
	assert.Equal(t, int64(1), resp.Incompatible)
}

// TestService_PublishesChanges 每次写入都通知订阅者
func TestService_PublishesChanges(t *testing.T) {
	svc, _, broker := setupTestService(t)

	ch, cancel := broker.Subscribe("ana")
	defer cancel()

	next := func() events.Change {
		select {
		case c := <-ch:
			return c
		case <-time.After(time.Second):
			t.Fatal("等待变更超时")
			return events.Change{}
		}
	}

	created, err := svc.CreateComputer("ana", compatibleRequest())
	require.NoError(t, err)
	assert.Equal(t, events.KindCreated, next().Kind)

	ram := 16
	_, err = svc.UpdateComputer("ana", created.ID, UpdateComputerRequest{RAMGiB: &ram})
	require.NoError(t, err)
	assert.Equal(t, events.KindUpdated, next().Kind)

	require.NoError(t, svc.DeleteComputer("ana", created.ID))
	change := next()
	assert.Equal(t, events.KindDeleted, change.Kind)
	assert.Equal(t, created.ID, change.ComputerID)
}

func TestService_MigrateLegacyNames(t *testing.T) {
	svc, db, _ := setupTestService(t)

	current, err := svc.CreateComputer("ana", compatibleRequest())
	require.NoError(t, err)
	currentStored := storedName(t, db, current.ID)

	legacyCipher, err := crypto.Encode("Equipo-Contabilidad", crypto.LegacyPassphrase)
	require.NoError(t, err)

	var legacyIDs []string
	for i, name := range []string{"Recepcion", legacyCipher, "Bodega"} {
		c := newComputer("bob", fmt.Sprintf("OLD%d", i), true)
		c.DisplayName = name
		require.NoError(t, db.Create(c).Error)
		legacyIDs = append(legacyIDs, c.ID)
	}
	unnamed := newComputer("bob", "EMPTY", true)
	require.NoError(t, db.Create(unnamed).Error)

	result, err := svc.MigrateLegacyNames(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Scanned)
	assert.Equal(t, 3, result.Migrated)
	assert.Equal(t, 0, result.Skipped)

	// 现有密文不变
	assert.Equal(t, currentStored, storedName(t, db, current.ID))
	assert.Equal(t, "", storedName(t, db, unnamed.ID))

	want := []string{"Recepcion", "Equipo-Contabilidad", "Bodega"}
	for i, id := range legacyIDs {
		plain, err := crypto.Decode(storedName(t, db, id), testPassphrase)
		require.NoError(t, err)
		assert.Equal(t, want[i], plain)
	}

	// 再次执行无变化
	again, err := svc.MigrateLegacyNames(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Migrated)
}

// TestService_MigrateLegacyNames_UnknownKey 未配置旧口令时旧密文保持原样
func TestService_MigrateLegacyNames_UnknownKey(t *testing.T) {
	db := setupTestDB(t)
	obf, err := crypto.NewObfuscator(testPassphrase)
	require.NoError(t, err)
	svc := NewService(NewRepository(db), obf, nil)

	legacyCipher, err := crypto.Encode("Equipo-Contabilidad", crypto.LegacyPassphrase)
	require.NoError(t, err)
	c := newComputer("bob", "OLD0", true)
	c.DisplayName = legacyCipher
	require.NoError(t, db.Create(c).Error)

	result, err := svc.MigrateLegacyNames(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 0, result.Migrated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, legacyCipher, storedName(t, db, c.ID))

	// 配置旧口令后可以正常迁移
	withLegacy, err := crypto.NewObfuscator(testPassphrase, crypto.LegacyPassphrase)
	require.NoError(t, err)
	svc = NewService(NewRepository(db), withLegacy, nil)

	result, err = svc.MigrateLegacyNames(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Migrated)

	got, err := svc.GetComputer("bob", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Equipo-Contabilidad", got.DisplayName)
}

func TestService_MigrateLegacyNames_Canceled(t *testing.T) {
	svc, _, _ := setupTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.MigrateLegacyNames(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToComputerResponse(t *testing.T) {
	c := newComputer("ana", "COMP001", false)
	c.TPMVersion = "1.2"
	c.UEFISupport = true
	c.SecureBootEnabled = true

	resp := ToComputerResponse(c)
	assert.False(t, resp.Report.Compatible)
	assert.Equal(t, []string{"tpm"}, resp.FailedCriteria)
	assert.Len(t, resp.Checklist, 6)
}
