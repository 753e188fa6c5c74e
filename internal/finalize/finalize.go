// Package finalize implements the terminal commit of the signing workflow:
// validate completeness, upload remaining captures, commit every value plus
// signer context and audit entries in one version-checked write, then run
// the best-effort post-commit steps (booking confirmation, certificate).
package finalize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gatherly/contract-esign-portal/internal/assets"
	"github.com/gatherly/contract-esign-portal/internal/audit"
	"github.com/gatherly/contract-esign-portal/internal/booking"
	"github.com/gatherly/contract-esign-portal/internal/certificate"
	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/s3io"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
)

// ContractSaver commits the aggregate; the write must be version-checked.
type ContractSaver interface {
	SaveContract(ctx context.Context, c *models.Contract) error
}

// CertificatePutter stores a rendered certificate document.
type CertificatePutter interface {
	Put(ctx context.Context, eventID, contractID string, doc []byte) (string, error)
}

// Deps wires the collaborators finalization orchestrates.
type Deps struct {
	Store   ContractSaver
	Assets  assets.Uploader
	Booking booking.Confirmer
	Certs   CertificatePutter
	Log     *zap.Logger
}

// FieldInput carries one field's final value. Image fields send a capture
// payload; every other type sends the typed value.
type FieldInput struct {
	Value   *models.FieldValue `json:"value,omitempty"`
	Capture string             `json:"capture,omitempty"`
}

// Input is one finalize attempt by a client signer.
type Input struct {
	SignerName string
	Fields     map[string]FieldInput
	IPAddress  string
	UserAgent  string
}

// Outcome reports what finalization produced. BookingConfirmed and
// CertificateStored are post-commit and may be false on a still-successful
// finalize.
type Outcome struct {
	Contract          *models.Contract
	CertificateKey    string
	BookingConfirmed  bool
	CertificateStored bool
}

// Run executes one finalize attempt against a loaded contract. Before the
// single SaveContract call nothing is committed, so any failure up to and
// including that call leaves the stored contract untouched and the attempt
// safely re-runnable. Failures after the commit are logged, never rolled
// back.
func (d *Deps) Run(ctx context.Context, c *models.Contract, signer *models.Signer, in Input) (*Outcome, error) {
	if signer.Role != models.RoleClient {
		return nil, &workflow.WorkflowError{Reason: "only the client signer can finalize"}
	}
	if signer.Status == models.SignerDeclined {
		return nil, &workflow.WorkflowError{Reason: "signer has declined to sign"}
	}

	// Decode captures up front so a malformed image fails before any upload.
	decoded := make(map[string]*assets.Capture)
	submitted := make(map[string]models.FieldValue)
	for id, fi := range in.Fields {
		f := c.FieldByID(id)
		if f == nil {
			return nil, fmt.Errorf("unknown field %s", id)
		}
		if f.Type.IsImage() {
			if fi.Capture == "" {
				continue
			}
			capture, err := assets.DecodeCapture(fi.Capture)
			if err != nil {
				return nil, err
			}
			decoded[id] = capture
			submitted[id] = models.FieldValue{Type: f.Type, AssetURL: "pending"}
			continue
		}
		if fi.Value != nil {
			submitted[id] = *fi.Value
		}
	}

	if err := workflow.ValidateForFinalize(c, submitted); err != nil {
		return nil, err
	}

	// Upload remaining image assets. Nothing is committed yet, so an upload
	// failure aborts the attempt and the caller may retry.
	for id, capture := range decoded {
		url, err := d.Assets.Upload(ctx, capture, c.EventID, c.ContractID, id)
		if err != nil {
			return nil, err
		}
		v := submitted[id]
		v.AssetURL = url
		submitted[id] = v
	}

	now := audit.NowISO()
	for id, v := range submitted {
		f := c.FieldByID(id)
		if f == nil || f.Signed {
			continue // already-signed fields are immutable, skip silently on retry
		}
		if err := workflow.SetFieldValue(c, id, v, now); err != nil {
			return nil, err
		}
	}

	if err := workflow.MarkCompleted(c, now); err != nil {
		return nil, err
	}

	signer.Status = models.SignerSigned
	signer.SignedAt = now
	signer.IPAddress = in.IPAddress
	signer.UserAgent = in.UserAgent
	if in.SignerName != "" {
		signer.Name = in.SignerName
	}

	actor := signer.Name
	if actor == "" {
		actor = signer.Email
	}
	audit.Append(c,
		audit.NewEntry(audit.ActionClientSigned, actor, models.RoleClient,
			fmt.Sprintf("%d field(s) signed", len(submitted)), in.IPAddress),
		audit.NewEntry(audit.ActionContractCompleted, actor, models.RoleClient, "", in.IPAddress),
	)

	// The certificate key is deterministic, so it can be recorded as part
	// of the same commit even though the document is written afterwards.
	c.CertificateKey = s3io.BuildCertificateKey(c.EventID, c.ContractID)
	c.UpdatedAt = now

	if err := d.Store.SaveContract(ctx, c); err != nil {
		return nil, err
	}

	out := &Outcome{Contract: c, CertificateKey: c.CertificateKey}

	if err := d.Booking.Confirm(ctx, c.EventID, c.VendorID); err != nil {
		d.Log.Warn("booking confirmation failed after finalize",
			zap.String("contract_id", c.ContractID),
			zap.String("event_id", c.EventID),
			zap.Error(err))
	} else {
		out.BookingConfirmed = true
	}

	doc, err := certificate.Render(c)
	if err == nil {
		_, err = d.Certs.Put(ctx, c.EventID, c.ContractID, doc)
	}
	if err != nil {
		d.Log.Warn("certificate generation failed after finalize",
			zap.String("contract_id", c.ContractID),
			zap.Error(err))
	} else {
		out.CertificateStored = true
	}

	return out, nil
}
