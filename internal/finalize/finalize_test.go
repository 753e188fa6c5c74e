package finalize

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatherly/contract-esign-portal/internal/assets"
	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
)

type stubSaver struct {
	saved *models.Contract
	err   error
	calls int
}

func (s *stubSaver) SaveContract(_ context.Context, c *models.Contract) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.saved = c
	return nil
}

type stubUploader struct{ calls int }

func (u *stubUploader) Upload(_ context.Context, _ *assets.Capture, _, _, fieldID string) (string, error) {
	u.calls++
	return "https://assets.example.com/" + fieldID + ".png", nil
}

type stubConfirmer struct {
	err   error
	calls int
}

func (c *stubConfirmer) Confirm(context.Context, string, string) error {
	c.calls++
	return c.err
}

type stubCerts struct {
	doc   []byte
	err   error
	calls int
}

func (s *stubCerts) Put(_ context.Context, eventID, contractID string, doc []byte) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	s.doc = doc
	return "events/" + eventID + "/contracts/" + contractID + "/certificate.html", nil
}

func captureDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func sentContract(fields ...models.SignatureField) (*models.Contract, *models.Signer) {
	c := &models.Contract{
		ContractID:      "c-1",
		EventID:         "ev-1",
		VendorID:        "vendor-1",
		FileName:        "venue.pdf",
		Status:          models.ContractActive,
		WorkflowStatus:  models.WorkflowSent,
		SignatureFields: fields,
		Signers: []models.Signer{
			{ID: "s-vendor", Role: models.RoleVendor, Email: "vendor@example.com", Status: models.SignerSigned},
			{ID: "s-client", Role: models.RoleClient, Email: "client@example.com", Status: models.SignerPending, AccessToken: "tok"},
		},
	}
	return c, &c.Signers[1]
}

func newDeps(saver *stubSaver, up *stubUploader, conf *stubConfirmer, certs *stubCerts) *Deps {
	return &Deps{Store: saver, Assets: up, Booking: conf, Certs: certs, Log: zap.NewNop()}
}

func TestRun_TextFieldHappyPath(t *testing.T) {
	c, signer := sentContract(models.SignatureField{
		ID: "f1", Type: models.FieldText, Label: "Full name", Required: true,
		SignerRole: models.RoleClient, SignerEmail: "client@example.com",
	})
	saver := &stubSaver{}
	conf := &stubConfirmer{}
	certs := &stubCerts{}
	deps := newDeps(saver, &stubUploader{}, conf, certs)

	trailBefore := len(c.AuditTrail)
	out, err := deps.Run(context.Background(), c, signer, Input{
		SignerName: "John Doe",
		Fields:     map[string]FieldInput{"f1": {Value: &models.FieldValue{Type: models.FieldText, Text: "John Doe"}}},
		IPAddress:  "203.0.113.7",
		UserAgent:  "test-agent",
	})
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowCompleted, c.WorkflowStatus)
	f := c.FieldByID("f1")
	assert.True(t, f.Signed)
	assert.Equal(t, "John Doe", f.Value.Text)

	// Exactly two new entries: client_signed and contract_completed.
	assert.Len(t, c.AuditTrail, trailBefore+2)
	assert.Equal(t, "client_signed", c.AuditTrail[trailBefore].Action)
	assert.Equal(t, "contract_completed", c.AuditTrail[trailBefore+1].Action)

	assert.Equal(t, models.SignerSigned, signer.Status)
	assert.Equal(t, "203.0.113.7", signer.IPAddress)
	assert.Equal(t, "test-agent", signer.UserAgent)
	assert.Equal(t, "John Doe", signer.Name)

	assert.Equal(t, 1, saver.calls)
	assert.Equal(t, 1, conf.calls)
	assert.True(t, out.BookingConfirmed)
	assert.True(t, out.CertificateStored)
	assert.Equal(t, "events/ev-1/contracts/c-1/certificate.html", out.CertificateKey)
	assert.Contains(t, string(certs.doc), "John Doe")
}

func TestRun_MissingRequiredFieldNamesLabel(t *testing.T) {
	c, signer := sentContract(
		models.SignatureField{ID: "f1", Type: models.FieldText, Label: "Full name", Required: true, SignerRole: models.RoleClient, SignerEmail: "client@example.com"},
		models.SignatureField{ID: "f2", Type: models.FieldSignature, Label: "Signature here", Required: true, SignerRole: models.RoleClient, SignerEmail: "client@example.com"},
	)
	saver := &stubSaver{}
	conf := &stubConfirmer{}
	deps := newDeps(saver, &stubUploader{}, conf, &stubCerts{})

	_, err := deps.Run(context.Background(), c, signer, Input{
		Fields: map[string]FieldInput{"f1": {Value: &models.FieldValue{Type: models.FieldText, Text: "John Doe"}}},
	})
	var ve *workflow.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"Signature here"}, ve.MissingLabels)

	// No partial commit of any kind.
	assert.Equal(t, 0, saver.calls)
	assert.Equal(t, 0, conf.calls)
	assert.Equal(t, models.WorkflowSent, c.WorkflowStatus)
	assert.False(t, c.FieldByID("f1").Signed)
	assert.Empty(t, c.AuditTrail)
}

func TestRun_UploadsCapturesBeforeCommit(t *testing.T) {
	c, signer := sentContract(models.SignatureField{
		ID: "f1", Type: models.FieldSignature, Label: "Signature", Required: true,
		SignerRole: models.RoleClient, SignerEmail: "client@example.com",
	})
	up := &stubUploader{}
	deps := newDeps(&stubSaver{}, up, &stubConfirmer{}, &stubCerts{})

	_, err := deps.Run(context.Background(), c, signer, Input{
		Fields: map[string]FieldInput{"f1": {Capture: captureDataURL(t)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, "https://assets.example.com/f1.png", c.FieldByID("f1").Value.AssetURL)
}

func TestRun_SaveConflictAbortsBeforeSideEffects(t *testing.T) {
	c, signer := sentContract(models.SignatureField{
		ID: "f1", Type: models.FieldText, Label: "Full name", Required: true,
		SignerRole: models.RoleClient, SignerEmail: "client@example.com",
	})
	saver := &stubSaver{err: workflow.ErrConflict}
	conf := &stubConfirmer{}
	certs := &stubCerts{}
	deps := newDeps(saver, &stubUploader{}, conf, certs)

	_, err := deps.Run(context.Background(), c, signer, Input{
		Fields: map[string]FieldInput{"f1": {Value: &models.FieldValue{Type: models.FieldText, Text: "John Doe"}}},
	})
	require.ErrorIs(t, err, workflow.ErrConflict)
	assert.Equal(t, 0, conf.calls)
	assert.Equal(t, 0, certs.calls)
}

func TestRun_BookingFailureDoesNotRollBack(t *testing.T) {
	c, signer := sentContract(models.SignatureField{
		ID: "f1", Type: models.FieldText, Label: "Full name", Required: true,
		SignerRole: models.RoleClient, SignerEmail: "client@example.com",
	})
	deps := newDeps(&stubSaver{}, &stubUploader{}, &stubConfirmer{err: errors.New("booking down")}, &stubCerts{})

	out, err := deps.Run(context.Background(), c, signer, Input{
		Fields: map[string]FieldInput{"f1": {Value: &models.FieldValue{Type: models.FieldText, Text: "John Doe"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCompleted, c.WorkflowStatus)
	assert.False(t, out.BookingConfirmed)
	assert.True(t, out.CertificateStored)
}

func TestRun_OnlyClientSignerCanFinalize(t *testing.T) {
	c, _ := sentContract(models.SignatureField{
		ID: "f1", Type: models.FieldText, Label: "Full name", Required: true,
		SignerRole: models.RoleClient, SignerEmail: "client@example.com",
	})
	deps := newDeps(&stubSaver{}, &stubUploader{}, &stubConfirmer{}, &stubCerts{})

	vendor := c.SignerByID("s-vendor")
	_, err := deps.Run(context.Background(), c, vendor, Input{})
	var we *workflow.WorkflowError
	require.ErrorAs(t, err, &we)
}

func TestRun_AlreadyCompletedIsRejected(t *testing.T) {
	c, signer := sentContract(models.SignatureField{
		ID: "f1", Type: models.FieldText, Label: "Full name", Required: true,
		SignerRole: models.RoleClient, SignerEmail: "client@example.com",
	})
	c.WorkflowStatus = models.WorkflowCompleted

	deps := newDeps(&stubSaver{}, &stubUploader{}, &stubConfirmer{}, &stubCerts{})
	_, err := deps.Run(context.Background(), c, signer, Input{
		Fields: map[string]FieldInput{"f1": {Value: &models.FieldValue{Type: models.FieldText, Text: "John Doe"}}},
	})
	var we *workflow.WorkflowError
	require.ErrorAs(t, err, &we)
}
