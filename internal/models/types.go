// Package models defines the data models used in the application.
package models

// ContractStatus tracks whether a contract is the live agreement for its
// vendor/event pair or has been replaced by a newer upload.
type ContractStatus string

// Possible values for ContractStatus
const (
	ContractActive     ContractStatus = "active"
	ContractSuperseded ContractStatus = "superseded"
)

// WorkflowStatus represents where a contract is in the signing workflow.
type WorkflowStatus string

// Possible values for WorkflowStatus. PartiallySigned is derived from field
// state on read and is never stored.
const (
	WorkflowDraft           WorkflowStatus = "draft"
	WorkflowSent            WorkflowStatus = "sent"
	WorkflowPartiallySigned WorkflowStatus = "partially_signed"
	WorkflowCompleted       WorkflowStatus = "completed"
)

// FieldType identifies the kind of placeholder a signature field is.
type FieldType string

// Possible values for FieldType
const (
	FieldSignature FieldType = "signature"
	FieldInitial   FieldType = "initial"
	FieldDate      FieldType = "date"
	FieldText      FieldType = "text"
	FieldCheckbox  FieldType = "checkbox"
)

// IsImage reports whether the field type carries a rendered raster asset.
func (t FieldType) IsImage() bool {
	return t == FieldSignature || t == FieldInitial
}

// SignerRole identifies which party a field or signer belongs to.
type SignerRole string

// Possible values for SignerRole
const (
	RoleVendor SignerRole = "vendor"
	RoleClient SignerRole = "client"
)

// SignerStatus represents the state of one signing party.
type SignerStatus string

// Possible values for SignerStatus
const (
	SignerPending  SignerStatus = "pending"
	SignerSigned   SignerStatus = "signed"
	SignerDeclined SignerStatus = "declined"
)

// FieldPosition holds render dimensions for raster fields.
type FieldPosition struct {
	Width  int `dynamodbav:"width" json:"width"`
	Height int `dynamodbav:"height" json:"height"`
}

// FieldValue is the tagged union of the shapes a field value can take,
// keyed by Type. Exactly one variant is meaningful per type: AssetURL for
// signature/initial, Date for date, Text for text, Checked for checkbox.
type FieldValue struct {
	Type     FieldType `dynamodbav:"type" json:"type"`
	AssetURL string    `dynamodbav:"asset_url,omitempty" json:"asset_url,omitempty"`
	Date     string    `dynamodbav:"date,omitempty" json:"date,omitempty"`
	Text     string    `dynamodbav:"text,omitempty" json:"text,omitempty"`
	Checked  bool      `dynamodbav:"checked" json:"checked"`
}

// IsZero reports whether the value carries no content for its type.
func (v FieldValue) IsZero() bool {
	switch v.Type {
	case FieldSignature, FieldInitial:
		return v.AssetURL == ""
	case FieldDate:
		return v.Date == ""
	case FieldText:
		return v.Text == ""
	case FieldCheckbox:
		return !v.Checked
	}
	return true
}

// SignatureField is one fillable placeholder on a contract document.
// Once Signed flips to true, Value is immutable and DraftValue is dead.
type SignatureField struct {
	ID          string         `dynamodbav:"id" json:"id"`
	Type        FieldType      `dynamodbav:"type" json:"type"`
	Label       string         `dynamodbav:"label" json:"label"`
	Required    bool           `dynamodbav:"required" json:"required"`
	SignerRole  SignerRole     `dynamodbav:"signer_role" json:"signer_role"`
	SignerEmail string         `dynamodbav:"signer_email" json:"signer_email"`
	Signed      bool           `dynamodbav:"signed" json:"signed"`
	Value       *FieldValue    `dynamodbav:"value,omitempty" json:"value,omitempty"`
	DraftValue  *FieldValue    `dynamodbav:"draft_value,omitempty" json:"draft_value,omitempty"`
	Position    *FieldPosition `dynamodbav:"position,omitempty" json:"position,omitempty"`
	SignedAt    string         `dynamodbav:"signed_at,omitempty" json:"signed_at,omitempty"` // ISO8601
}

// Signer is a derived party obligated to complete one or more fields.
type Signer struct {
	ID            string       `dynamodbav:"id" json:"id"`
	Role          SignerRole   `dynamodbav:"role" json:"role"`
	Name          string       `dynamodbav:"name" json:"name"`
	Email         string       `dynamodbav:"email" json:"email"`
	Status        SignerStatus `dynamodbav:"status" json:"status"`
	AccessToken   string       `dynamodbav:"access_token" json:"-"`
	AccessCode    string       `dynamodbav:"access_code,omitempty" json:"-"`
	InvitedAt     string       `dynamodbav:"invited_at,omitempty" json:"invited_at,omitempty"`
	AccessedAt    string       `dynamodbav:"accessed_at,omitempty" json:"accessed_at,omitempty"`
	SignedAt      string       `dynamodbav:"signed_at,omitempty" json:"signed_at,omitempty"`
	DeclinedAt    string       `dynamodbav:"declined_at,omitempty" json:"declined_at,omitempty"`
	DeclineReason string       `dynamodbav:"decline_reason,omitempty" json:"decline_reason,omitempty"`
	IPAddress     string       `dynamodbav:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent     string       `dynamodbav:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// AuditEntry is an immutable record of one workflow action. Entries are
// append-only; nothing in the codebase edits or removes one after write.
type AuditEntry struct {
	ID        string     `dynamodbav:"id" json:"id"` // ULID, sortable by creation time
	Timestamp string     `dynamodbav:"timestamp" json:"timestamp"`
	Action    string     `dynamodbav:"action" json:"action"`
	Actor     string     `dynamodbav:"actor" json:"actor"`
	ActorRole SignerRole `dynamodbav:"actor_role" json:"actor_role"`
	Details   string     `dynamodbav:"details,omitempty" json:"details,omitempty"`
	IPAddress string     `dynamodbav:"ip_address,omitempty" json:"ip_address,omitempty"`
}

// SignatureAsset is a persisted signature image plus its signing metadata.
// Immutable after creation.
type SignatureAsset struct {
	URL        string     `dynamodbav:"url" json:"url"`
	RawCapture string     `dynamodbav:"raw_capture,omitempty" json:"raw_capture,omitempty"`
	SignerName string     `dynamodbav:"signer_name" json:"signer_name"`
	SignedAt   string     `dynamodbav:"signed_at" json:"signed_at"`
	FieldID    string     `dynamodbav:"field_id,omitempty" json:"field_id,omitempty"`
	SignerRole SignerRole `dynamodbav:"signer_role" json:"signer_role"`
}

// Contract is the aggregate root: one vendor-client agreement for one event.
type Contract struct {
	// DynamoDB keys
	PK string `dynamodbav:"PK" json:"-"` // EVENT#<eventID>
	SK string `dynamodbav:"SK" json:"-"` // CONTRACT#<contractID> (ULID)

	ContractID  string         `dynamodbav:"contract_id" json:"contract_id"`
	EventID     string         `dynamodbav:"event_id" json:"event_id"`
	VendorID    string         `dynamodbav:"vendor_id" json:"vendor_id"`
	FileName    string         `dynamodbav:"file_name" json:"file_name"`
	ContractURL string         `dynamodbav:"contract_url" json:"contract_url"`
	Status      ContractStatus `dynamodbav:"status" json:"status"`

	FinalPrices map[string]float64 `dynamodbav:"final_prices,omitempty" json:"final_prices,omitempty"`

	WorkflowStatus  WorkflowStatus   `dynamodbav:"workflow_status" json:"workflow_status"`
	SignatureFields []SignatureField `dynamodbav:"signature_fields,omitempty" json:"signature_fields,omitempty"`
	Signers         []Signer         `dynamodbav:"signers,omitempty" json:"signers,omitempty"`
	AuditTrail      []AuditEntry     `dynamodbav:"audit_trail,omitempty" json:"audit_trail,omitempty"`
	VendorSignature *SignatureAsset  `dynamodbav:"vendor_signature,omitempty" json:"vendor_signature,omitempty"`

	CertificateKey string `dynamodbav:"certificate_key,omitempty" json:"-"`

	SentAt        string `dynamodbav:"sent_at,omitempty" json:"sent_at,omitempty"`
	CompletedAt   string `dynamodbav:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt     string `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt     string `dynamodbav:"updated_at" json:"updated_at"`
	FirstUploaded string `dynamodbav:"first_uploaded" json:"first_uploaded"`
	LastEdited    string `dynamodbav:"last_edited,omitempty" json:"last_edited,omitempty"`

	// Version is the optimistic-concurrency counter; every write must carry
	// the version it read, and the store rejects stale writes.
	Version int64 `dynamodbav:"version" json:"version"`
}

// IsElectronic reports whether the contract has a signing path at all.
// A contract with no signature fields is complete at upload time.
func (c *Contract) IsElectronic() bool {
	return len(c.SignatureFields) > 0
}

// FieldByID returns a pointer to the field with the given id, or nil.
func (c *Contract) FieldByID(id string) *SignatureField {
	for i := range c.SignatureFields {
		if c.SignatureFields[i].ID == id {
			return &c.SignatureFields[i]
		}
	}
	return nil
}

// SignerByID returns a pointer to the signer with the given id, or nil.
func (c *Contract) SignerByID(id string) *Signer {
	for i := range c.Signers {
		if c.Signers[i].ID == id {
			return &c.Signers[i]
		}
	}
	return nil
}

// RequiredClientFields returns the fields the client must complete before
// the contract can finalize.
func (c *Contract) RequiredClientFields() []SignatureField {
	var out []SignatureField
	for _, f := range c.SignatureFields {
		if f.Required && f.SignerRole == RoleClient {
			out = append(out, f)
		}
	}
	return out
}
