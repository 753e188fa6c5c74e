// Package workflow owns the contract signing state machine. All transition
// guards live here so callers cannot skip preconditions; the handlers only
// decide which transition to attempt.
package workflow

import (
	"fmt"

	"github.com/gatherly/contract-esign-portal/internal/models"
)

// DerivedStatus recomputes the observable workflow status from field state.
// partially_signed is never stored: a sent contract where at least one, but
// not all, required client fields are completed (signed or carrying a
// draft) reports partially_signed.
func DerivedStatus(c *models.Contract) models.WorkflowStatus {
	if c.WorkflowStatus != models.WorkflowSent {
		return c.WorkflowStatus
	}
	required := c.RequiredClientFields()
	progressed, signed := 0, 0
	for _, f := range required {
		if f.Signed {
			signed++
		}
		if f.Signed || f.DraftValue != nil {
			progressed++
		}
	}
	if progressed > 0 && signed < len(required) {
		return models.WorkflowPartiallySigned
	}
	return c.WorkflowStatus
}

// CompletionPercent reports how much of the required client work is done,
// 0-100, counting drafted fields as progress. A contract with no required
// client fields is 100.
func CompletionPercent(c *models.Contract) int {
	required := c.RequiredClientFields()
	if len(required) == 0 {
		return 100
	}
	done := 0
	for _, f := range required {
		if f.Signed || f.DraftValue != nil {
			done++
		}
	}
	return done * 100 / len(required)
}

// ApplyFields replaces the contract's signature field set, entering the
// draft state on the first non-empty definition. Fields that are already
// signed are locked: they must be carried over unchanged, and no definition
// is accepted at all once the contract has completed.
func ApplyFields(c *models.Contract, fields []models.SignatureField, now string) error {
	if c.WorkflowStatus == models.WorkflowCompleted && c.IsElectronic() {
		return &WorkflowError{Reason: "contract is completed; upload a new version to change fields"}
	}
	if c.WorkflowStatus == models.WorkflowSent {
		// Redefining fields mid-signing would race the client's session.
		for _, f := range c.SignatureFields {
			if f.Signed {
				return &WorkflowError{Reason: "contract has signed fields; upload a new version to change fields"}
			}
		}
	}
	byID := make(map[string]models.SignatureField, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}
	for _, old := range c.SignatureFields {
		if !old.Signed {
			continue
		}
		repl, ok := byID[old.ID]
		if !ok {
			return &FieldLockedError{FieldID: old.ID}
		}
		if repl.Type != old.Type || repl.SignerRole != old.SignerRole || repl.SignerEmail != old.SignerEmail {
			return &FieldLockedError{FieldID: old.ID}
		}
	}
	wasElectronic := c.IsElectronic()
	c.SignatureFields = fields
	c.LastEdited = now
	if !wasElectronic && len(fields) > 0 {
		// First field definition opens the signing path.
		c.WorkflowStatus = models.WorkflowDraft
	}
	return nil
}

// RecordVendorSignature attaches the vendor's signed asset. The vendor must
// sign before the contract can be sent.
func RecordVendorSignature(c *models.Contract, asset models.SignatureAsset) error {
	if c.WorkflowStatus != models.WorkflowDraft {
		return &WorkflowError{Reason: fmt.Sprintf("cannot sign a %s contract", c.WorkflowStatus)}
	}
	if asset.URL == "" {
		return &WorkflowError{Reason: "vendor signature asset is empty"}
	}
	c.VendorSignature = &asset
	return nil
}

// MarkSent commits the draft → sent transition. Sending without a vendor
// signature is rejected.
func MarkSent(c *models.Contract, now string) error {
	if c.WorkflowStatus != models.WorkflowDraft {
		return &WorkflowError{Reason: fmt.Sprintf("cannot send a %s contract", c.WorkflowStatus)}
	}
	if c.VendorSignature == nil || c.VendorSignature.URL == "" {
		return &WorkflowError{Reason: "vendor has not signed"}
	}
	c.WorkflowStatus = models.WorkflowSent
	c.SentAt = now
	return nil
}

// ValueMatches checks that a submitted value has the right variant for its
// field and carries content.
func ValueMatches(f models.SignatureField, v models.FieldValue) error {
	if v.Type != f.Type {
		return fmt.Errorf("field %s expects a %s value, got %s", f.ID, f.Type, v.Type)
	}
	if v.IsZero() {
		return fmt.Errorf("field %s value is empty", f.ID)
	}
	return nil
}

// ValidateForFinalize checks that every required client field either is
// already signed or has a usable submitted value. On failure it returns a
// ValidationError naming each missing field's label.
func ValidateForFinalize(c *models.Contract, submitted map[string]models.FieldValue) error {
	if c.WorkflowStatus == models.WorkflowCompleted {
		return &WorkflowError{Reason: "contract is already completed"}
	}
	if c.WorkflowStatus != models.WorkflowSent {
		return &WorkflowError{Reason: fmt.Sprintf("cannot finalize a %s contract", c.WorkflowStatus)}
	}
	var missing []string
	for _, f := range c.RequiredClientFields() {
		if f.Signed {
			continue
		}
		v, ok := submitted[f.ID]
		if !ok || v.IsZero() || ValueMatches(f, v) != nil {
			missing = append(missing, f.Label)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{MissingLabels: missing}
	}
	return nil
}

// SetFieldValue writes a committed value onto an unsigned field and locks
// it. Signed fields are write-once.
func SetFieldValue(c *models.Contract, fieldID string, v models.FieldValue, now string) error {
	f := c.FieldByID(fieldID)
	if f == nil {
		return fmt.Errorf("unknown field %s", fieldID)
	}
	if f.Signed {
		return &FieldLockedError{FieldID: fieldID}
	}
	if err := ValueMatches(*f, v); err != nil {
		return err
	}
	f.Value = &v
	f.Signed = true
	f.SignedAt = now
	f.DraftValue = nil
	return nil
}

// SetDraftValue writes a non-committing value onto an unsigned field.
// signed stays false and the committed value is untouched.
func SetDraftValue(c *models.Contract, fieldID string, v models.FieldValue) error {
	f := c.FieldByID(fieldID)
	if f == nil {
		return fmt.Errorf("unknown field %s", fieldID)
	}
	if f.Signed {
		return &FieldLockedError{FieldID: fieldID}
	}
	if err := ValueMatches(*f, v); err != nil {
		return err
	}
	f.DraftValue = &v
	return nil
}

// MarkCompleted commits the terminal transition. Every required client
// field must already be signed; nothing leaves completed.
func MarkCompleted(c *models.Contract, now string) error {
	if c.WorkflowStatus == models.WorkflowCompleted {
		return &WorkflowError{Reason: "contract is already completed"}
	}
	if c.WorkflowStatus != models.WorkflowSent {
		return &WorkflowError{Reason: fmt.Sprintf("cannot complete a %s contract", c.WorkflowStatus)}
	}
	for _, f := range c.RequiredClientFields() {
		if !f.Signed {
			return &WorkflowError{Reason: fmt.Sprintf("required field %q is not signed", f.Label)}
		}
	}
	c.WorkflowStatus = models.WorkflowCompleted
	c.CompletedAt = now
	return nil
}

// StripDrafts removes draft values from signed fields before the contract
// is handed back to an editing session. A signed field's draft is dead and
// must never be loaded back into a form.
func StripDrafts(c *models.Contract) {
	for i := range c.SignatureFields {
		if c.SignatureFields[i].Signed {
			c.SignatureFields[i].DraftValue = nil
		}
	}
}
