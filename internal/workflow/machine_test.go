package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/contract-esign-portal/internal/models"
)

const now = "2026-09-01T12:00:00Z"

func newContract(status models.WorkflowStatus, fields ...models.SignatureField) *models.Contract {
	return &models.Contract{
		ContractID:      "01CONTRACT",
		EventID:         "ev-1",
		VendorID:        "vendor-1",
		FileName:        "catering.pdf",
		Status:          models.ContractActive,
		WorkflowStatus:  status,
		SignatureFields: fields,
	}
}

func clientField(id, label string, required bool, ft models.FieldType) models.SignatureField {
	return models.SignatureField{
		ID: id, Type: ft, Label: label, Required: required,
		SignerRole: models.RoleClient, SignerEmail: "client@example.com",
	}
}

func TestApplyFields_FirstDefinitionOpensDraft(t *testing.T) {
	c := newContract(models.WorkflowCompleted) // non-electronic upload state
	require.False(t, c.IsElectronic())

	err := ApplyFields(c, []models.SignatureField{clientField("f1", "Signature", true, models.FieldSignature)}, now)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowDraft, c.WorkflowStatus)
	assert.Equal(t, now, c.LastEdited)
}

func TestApplyFields_RejectedOnceElectronicContractCompleted(t *testing.T) {
	c := newContract(models.WorkflowCompleted, clientField("f1", "Signature", true, models.FieldSignature))

	err := ApplyFields(c, []models.SignatureField{clientField("f2", "Initials", true, models.FieldInitial)}, now)
	var we *WorkflowError
	require.ErrorAs(t, err, &we)
}

func TestApplyFields_SignedFieldIsLocked(t *testing.T) {
	signed := clientField("f1", "Name", true, models.FieldText)
	signed.Signed = true
	signed.Value = &models.FieldValue{Type: models.FieldText, Text: "John Doe"}
	c := newContract(models.WorkflowSent, signed)

	// Dropping the signed field is rejected.
	err := ApplyFields(c, []models.SignatureField{clientField("f2", "Date", true, models.FieldDate)}, now)
	var we *WorkflowError
	require.ErrorAs(t, err, &we)
}

func TestMarkSent_RequiresVendorSignature(t *testing.T) {
	c := newContract(models.WorkflowDraft, clientField("f1", "Signature", true, models.FieldSignature))

	err := MarkSent(c, now)
	var we *WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "vendor has not signed", we.Reason)
	assert.Equal(t, models.WorkflowDraft, c.WorkflowStatus)
}

func TestMarkSent_HappyPath(t *testing.T) {
	c := newContract(models.WorkflowDraft, clientField("f1", "Signature", true, models.FieldSignature))
	require.NoError(t, RecordVendorSignature(c, models.SignatureAsset{
		URL: "https://assets/vendor.png", SignerName: "Acme Catering", SignedAt: now, SignerRole: models.RoleVendor,
	}))

	require.NoError(t, MarkSent(c, now))
	assert.Equal(t, models.WorkflowSent, c.WorkflowStatus)
	assert.Equal(t, now, c.SentAt)

	// Sending twice is an illegal transition.
	var we *WorkflowError
	require.ErrorAs(t, MarkSent(c, now), &we)
}

func TestRecordVendorSignature_OnlyInDraft(t *testing.T) {
	c := newContract(models.WorkflowSent, clientField("f1", "Signature", true, models.FieldSignature))
	var we *WorkflowError
	require.ErrorAs(t, RecordVendorSignature(c, models.SignatureAsset{URL: "u"}), &we)
}

func TestDerivedStatus_PartiallySignedIsDerived(t *testing.T) {
	f1 := clientField("f1", "Signature", true, models.FieldSignature)
	f2 := clientField("f2", "Full name", true, models.FieldText)
	c := newContract(models.WorkflowSent, f1, f2)

	assert.Equal(t, models.WorkflowSent, DerivedStatus(c))
	assert.Equal(t, 0, CompletionPercent(c))

	// A draft on one of two required fields surfaces partial progress.
	c.SignatureFields[0].DraftValue = &models.FieldValue{Type: models.FieldSignature, AssetURL: "https://assets/a.png"}
	assert.Equal(t, models.WorkflowPartiallySigned, DerivedStatus(c))
	assert.Equal(t, 50, CompletionPercent(c))

	// Signing everything completes via MarkCompleted, not via derivation.
	require.NoError(t, SetFieldValue(c, "f1", models.FieldValue{Type: models.FieldSignature, AssetURL: "https://assets/a.png"}, now))
	require.NoError(t, SetFieldValue(c, "f2", models.FieldValue{Type: models.FieldText, Text: "John Doe"}, now))
	assert.Equal(t, models.WorkflowSent, DerivedStatus(c))
	require.NoError(t, MarkCompleted(c, now))
	assert.Equal(t, models.WorkflowCompleted, DerivedStatus(c))
	assert.Equal(t, 100, CompletionPercent(c))
}

func TestValidateForFinalize_NamesMissingLabels(t *testing.T) {
	f1 := clientField("f1", "Signature", true, models.FieldSignature)
	f1.Signed = true
	f1.Value = &models.FieldValue{Type: models.FieldSignature, AssetURL: "https://assets/a.png"}
	f2 := clientField("f2", "Initials here", true, models.FieldInitial)
	c := newContract(models.WorkflowSent, f1, f2)

	err := ValidateForFinalize(c, map[string]models.FieldValue{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"Initials here"}, ve.MissingLabels)
	assert.Equal(t, models.WorkflowSent, c.WorkflowStatus)
}

func TestValidateForFinalize_TypeMismatchCountsAsMissing(t *testing.T) {
	f := clientField("f1", "Full name", true, models.FieldText)
	c := newContract(models.WorkflowSent, f)

	err := ValidateForFinalize(c, map[string]models.FieldValue{
		"f1": {Type: models.FieldDate, Date: "2026-09-01"},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"Full name"}, ve.MissingLabels)
}

func TestValidateForFinalize_WrongState(t *testing.T) {
	c := newContract(models.WorkflowDraft, clientField("f1", "Signature", true, models.FieldSignature))
	var we *WorkflowError
	require.ErrorAs(t, ValidateForFinalize(c, nil), &we)
}

func TestSetFieldValue_SignedFieldIsImmutable(t *testing.T) {
	f := clientField("f1", "Full name", true, models.FieldText)
	c := newContract(models.WorkflowSent, f)
	require.NoError(t, SetFieldValue(c, "f1", models.FieldValue{Type: models.FieldText, Text: "John Doe"}, now))

	err := SetFieldValue(c, "f1", models.FieldValue{Type: models.FieldText, Text: "Jane Roe"}, now)
	var fe *FieldLockedError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "f1", fe.FieldID)
	assert.Equal(t, "John Doe", c.FieldByID("f1").Value.Text)

	// Draft writes against a signed field are rejected too.
	require.ErrorAs(t, SetDraftValue(c, "f1", models.FieldValue{Type: models.FieldText, Text: "x"}), &fe)
}

func TestSetFieldValue_ClearsDraftAndStamps(t *testing.T) {
	f := clientField("f1", "Full name", true, models.FieldText)
	f.DraftValue = &models.FieldValue{Type: models.FieldText, Text: "Jo"}
	c := newContract(models.WorkflowSent, f)

	require.NoError(t, SetFieldValue(c, "f1", models.FieldValue{Type: models.FieldText, Text: "John Doe"}, now))
	got := c.FieldByID("f1")
	assert.True(t, got.Signed)
	assert.Nil(t, got.DraftValue)
	assert.Equal(t, now, got.SignedAt)
}

func TestMarkCompleted_RequiresAllRequiredClientFieldsSigned(t *testing.T) {
	f1 := clientField("f1", "Signature", true, models.FieldSignature)
	f2 := clientField("f2", "Full name", true, models.FieldText)
	c := newContract(models.WorkflowSent, f1, f2)
	require.NoError(t, SetFieldValue(c, "f1", models.FieldValue{Type: models.FieldSignature, AssetURL: "https://assets/a.png"}, now))

	var we *WorkflowError
	require.ErrorAs(t, MarkCompleted(c, now), &we)
	assert.Contains(t, we.Reason, "Full name")
	assert.Equal(t, models.WorkflowSent, c.WorkflowStatus)

	require.NoError(t, SetFieldValue(c, "f2", models.FieldValue{Type: models.FieldText, Text: "John Doe"}, now))
	require.NoError(t, MarkCompleted(c, now))
	assert.Equal(t, models.WorkflowCompleted, c.WorkflowStatus)
	assert.Equal(t, now, c.CompletedAt)

	// Terminal: nothing leaves completed.
	require.ErrorAs(t, MarkCompleted(c, now), &we)
}

func TestStripDrafts_OnlySignedFields(t *testing.T) {
	f1 := clientField("f1", "Signature", true, models.FieldSignature)
	f1.Signed = true
	f1.DraftValue = &models.FieldValue{Type: models.FieldSignature, AssetURL: "stale"}
	f2 := clientField("f2", "Full name", true, models.FieldText)
	f2.DraftValue = &models.FieldValue{Type: models.FieldText, Text: "Jo"}
	c := newContract(models.WorkflowSent, f1, f2)

	StripDrafts(c)
	assert.Nil(t, c.FieldByID("f1").DraftValue)
	assert.NotNil(t, c.FieldByID("f2").DraftValue)
}

func TestFieldValueIsZero(t *testing.T) {
	tests := []struct {
		name string
		v    models.FieldValue
		zero bool
	}{
		{"empty signature", models.FieldValue{Type: models.FieldSignature}, true},
		{"signature with url", models.FieldValue{Type: models.FieldSignature, AssetURL: "u"}, false},
		{"empty text", models.FieldValue{Type: models.FieldText}, true},
		{"text", models.FieldValue{Type: models.FieldText, Text: "x"}, false},
		{"empty date", models.FieldValue{Type: models.FieldDate}, true},
		{"date", models.FieldValue{Type: models.FieldDate, Date: "2026-09-01"}, false},
		{"unchecked box", models.FieldValue{Type: models.FieldCheckbox}, true},
		{"checked box", models.FieldValue{Type: models.FieldCheckbox, Checked: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.zero, tt.v.IsZero())
		})
	}
}
