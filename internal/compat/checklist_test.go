package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusByKey(items []ChecklistItem) map[string]Status {
	out := make(map[string]Status, len(items))
	for _, item := range items {
		out[item.Key] = item.Status
	}
	return out
}

func TestChecklist_Order(t *testing.T) {
	items := Checklist(baseInput())
	require.Len(t, items, 6)

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Key
	}
	assert.Equal(t, []string{
		CriterionTPM, CriterionSecureBoot, CriterionProcessor,
		CriterionRAM, CriterionStorage, CriterionVerified,
	}, keys)
}

func TestChecklist_BlankProcessorIsIndeterminate(t *testing.T) {
	in := baseInput()
	in.Processor = ""

	statuses := statusByKey(Checklist(in))

	assert.Equal(t, StatusIndeterminate, statuses[CriterionProcessor])
	assert.Equal(t, StatusMet, statuses[CriterionTPM])
	assert.Equal(t, StatusUnmet, statuses[CriterionVerified])
}

func TestChecklist_UnmetCriteria(t *testing.T) {
	in := Input{Processor: "Intel Core 2 Duo", RAMGiB: 2, StorageGiB: 32, TPMVersion: "1.2"}

	statuses := statusByKey(Checklist(in))

	assert.Equal(t, StatusMet, statuses[CriterionProcessor])
	assert.Equal(t, StatusUnmet, statuses[CriterionTPM])
	assert.Equal(t, StatusUnmet, statuses[CriterionSecureBoot])
	assert.Equal(t, StatusUnmet, statuses[CriterionRAM])
	assert.Equal(t, StatusUnmet, statuses[CriterionStorage])
}

func TestChecklist_VerifiedShown(t *testing.T) {
	in := Input{VerifiedOverride: true}

	statuses := statusByKey(Checklist(in))

	assert.Equal(t, StatusMet, statuses[CriterionVerified])
	assert.Equal(t, StatusUnmet, statuses[CriterionTPM])
}
