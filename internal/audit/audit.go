// Package audit builds the append-only trail of workflow actions.
package audit

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gatherly/contract-esign-portal/internal/models"
)

// Workflow actions recorded on the trail.
const (
	ActionFieldsDefined     = "fields_defined"
	ActionVendorSigned      = "vendor_signed"
	ActionSentForSignature  = "sent_for_signature"
	ActionContractViewed    = "contract_viewed"
	ActionDraftSaved        = "draft_saved"
	ActionClientSigned      = "client_signed"
	ActionContractCompleted = "contract_completed"
	ActionSigningDeclined   = "signing_declined"
	ActionSuperseded        = "contract_superseded"
)

// NewEntry creates an immutable audit entry. IDs are ULIDs so the trail
// sorts by creation time.
func NewEntry(action, actor string, role models.SignerRole, details, ip string) models.AuditEntry {
	return models.AuditEntry{
		ID:        ulid.Make().String(),
		Timestamp: NowISO(),
		Action:    action,
		Actor:     actor,
		ActorRole: role,
		Details:   details,
		IPAddress: ip,
	}
}

// Append adds entries to the contract's trail. Existing entries are never
// touched.
func Append(c *models.Contract, entries ...models.AuditEntry) {
	c.AuditTrail = append(c.AuditTrail, entries...)
}

// NowISO returns the current time in ISO8601 format.
func NowISO() string { return time.Now().UTC().Format(time.RFC3339) }
