package compat

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/OnellHernandez/studio/internal/models"
)

// 硬件要求阈值
const (
	MinTPMVersion = 2.0
	MinRAMGiB     = 4
	MinStorageGiB = 64
)

// 检查项名称
const (
	CriterionTPM        = "tpm"
	CriterionSecureBoot = "secure_boot"
	CriterionProcessor  = "processor"
	CriterionRAM        = "ram"
	CriterionStorage    = "storage"
)

// leadingDecimal 匹配字符串开头的十进制数字，例如 "2.0 (fw 7.2)" 中的 "2.0"
var leadingDecimal = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Input 参与兼容性评估的字段
type Input struct {
	Processor         string `json:"processor"`
	RAMGiB            int    `json:"ram_gib"`
	StorageGiB        int    `json:"storage_gib"`
	TPMVersion        string `json:"tpm_version"`
	UEFISupport       bool   `json:"uefi_support"`
	SecureBootEnabled bool   `json:"secure_boot_enabled"`
	VerifiedOverride  bool   `json:"verified_override"`
}

// Criteria 各检查项结果
type Criteria struct {
	TPMOk        bool `json:"tpm_ok"`
	SecureBootOk bool `json:"secure_boot_ok"`
	ProcessorOk  bool `json:"processor_ok"`
	RAMOk        bool `json:"ram_ok"`
	StorageOk    bool `json:"storage_ok"`
}

// All 所有检查项是否全部通过
func (c Criteria) All() bool {
	return c.TPMOk && c.SecureBootOk && c.ProcessorOk && c.RAMOk && c.StorageOk
}

// Report 评估结果
type Report struct {
	Compatible bool     `json:"compatible"`
	Criteria   Criteria `json:"criteria"`
}

// Failed 返回未通过的检查项名称（按固定顺序）
func (r Report) Failed() []string {
	failed := make([]string, 0, 5)
	if !r.Criteria.TPMOk {
		failed = append(failed, CriterionTPM)
	}
	if !r.Criteria.SecureBootOk {
		failed = append(failed, CriterionSecureBoot)
	}
	if !r.Criteria.ProcessorOk {
		failed = append(failed, CriterionProcessor)
	}
	if !r.Criteria.RAMOk {
		failed = append(failed, CriterionRAM)
	}
	if !r.Criteria.StorageOk {
		failed = append(failed, CriterionStorage)
	}
	return failed
}

// Evaluate 计算兼容性
// 纯函数，无副作用；VerifiedOverride 为 true 时直接判定兼容，但各检查项仍照常计算
func Evaluate(in Input) Report {
	criteria := Criteria{
		TPMOk:        ParseTPMVersion(in.TPMVersion) >= MinTPMVersion,
		SecureBootOk: in.UEFISupport && in.SecureBootEnabled,
		ProcessorOk:  strings.TrimSpace(in.Processor) != "",
		RAMOk:        in.RAMGiB >= MinRAMGiB,
		StorageOk:    in.StorageGiB >= MinStorageGiB,
	}

	return Report{
		Compatible: in.VerifiedOverride || criteria.All(),
		Criteria:   criteria,
	}
}

// EvaluateComputer 对一条计算机记录进行评估
func EvaluateComputer(c *models.Computer) Report {
	return Evaluate(InputFromComputer(c))
}

// InputFromComputer 从记录中提取评估字段
func InputFromComputer(c *models.Computer) Input {
	return Input{
		Processor:         c.Processor,
		RAMGiB:            c.RAMGiB,
		StorageGiB:        c.StorageGiB,
		TPMVersion:        c.TPMVersion,
		UEFISupport:       c.UEFISupport,
		SecureBootEnabled: c.SecureBootEnabled,
		VerifiedOverride:  c.VerifiedOverride,
	}
}

// ParseTPMVersion 解析 TPM 版本号
// 空值或无法解析时返回 0，不会报错
func ParseTPMVersion(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil && isFinite(v) {
		return v
	}

	prefix := leadingDecimal.FindString(s)
	if prefix == "" {
		return 0
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil || !isFinite(v) {
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
