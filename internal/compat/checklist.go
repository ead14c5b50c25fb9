package compat

import "strings"

// Status 检查项展示状态
type Status string

const (
	StatusMet           Status = "met"
	StatusUnmet         Status = "unmet"
	StatusIndeterminate Status = "indeterminate" // 字段尚未填写，无法判断
)

// ChecklistItem 清单中的一项
type ChecklistItem struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Status Status `json:"status"`
}

// CriterionVerified 人工确认项（不参与检查项计算，仅用于展示）
const CriterionVerified = "verified"

// Checklist 生成前端展示用的三态检查清单
// 评估器本身只返回布尔值，Indeterminate 仅用于处理器字段留空的展示
func Checklist(in Input) []ChecklistItem {
	report := Evaluate(in)
	c := report.Criteria

	processor := statusOf(c.ProcessorOk)
	if strings.TrimSpace(in.Processor) == "" {
		processor = StatusIndeterminate
	}

	return []ChecklistItem{
		{Key: CriterionTPM, Label: "TPM 2.0", Status: statusOf(c.TPMOk)},
		{Key: CriterionSecureBoot, Label: "UEFI + Secure Boot", Status: statusOf(c.SecureBootOk)},
		{Key: CriterionProcessor, Label: "Compatible processor", Status: processor},
		{Key: CriterionRAM, Label: "4 GB RAM or more", Status: statusOf(c.RAMOk)},
		{Key: CriterionStorage, Label: "64 GB storage or more", Status: statusOf(c.StorageOk)},
		{Key: CriterionVerified, Label: "Verified by tool", Status: statusOf(in.VerifiedOverride)},
	}
}

func statusOf(ok bool) Status {
	if ok {
		return StatusMet
	}
	return StatusUnmet
}
