package draft

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/contract-esign-portal/internal/assets"
	"github.com/gatherly/contract-esign-portal/internal/models"
)

// stubUploader serves per-field canned results.
type stubUploader struct {
	mu      sync.Mutex
	failFor map[string]error
	calls   []string
}

func (u *stubUploader) Upload(_ context.Context, _ *assets.Capture, _, _, fieldID string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, fieldID)
	if err := u.failFor[fieldID]; err != nil {
		return "", err
	}
	return "https://assets.example.com/" + fieldID + ".png", nil
}

func captureDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func testContract() *models.Contract {
	return &models.Contract{
		ContractID:     "c-1",
		EventID:        "ev-1",
		WorkflowStatus: models.WorkflowSent,
		SignatureFields: []models.SignatureField{
			{ID: "sig", Type: models.FieldSignature, Label: "Signature", Required: true, SignerRole: models.RoleClient, SignerEmail: "client@example.com"},
			{ID: "name", Type: models.FieldText, Label: "Full name", Required: true, SignerRole: models.RoleClient, SignerEmail: "client@example.com"},
			{ID: "agree", Type: models.FieldCheckbox, Label: "I agree", Required: false, SignerRole: models.RoleClient, SignerEmail: "client@example.com"},
		},
	}
}

func TestSave_PersistsDraftValuesNotValues(t *testing.T) {
	c := testContract()
	up := &stubUploader{}

	res, err := Save(context.Background(), c, map[string]Input{
		"sig":  {Capture: captureDataURL(t)},
		"name": {Value: &models.FieldValue{Type: models.FieldText, Text: "Jo"}},
	}, up)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "sig"}, res.Saved)
	assert.Empty(t, res.Failed)

	sig := c.FieldByID("sig")
	require.NotNil(t, sig.DraftValue)
	assert.Equal(t, "https://assets.example.com/sig.png", sig.DraftValue.AssetURL)
	assert.False(t, sig.Signed)
	assert.Nil(t, sig.Value)

	name := c.FieldByID("name")
	require.NotNil(t, name.DraftValue)
	assert.Equal(t, "Jo", name.DraftValue.Text)
}

func TestSave_OneFailureDoesNotBlockOthers(t *testing.T) {
	c := testContract()
	up := &stubUploader{failFor: map[string]error{"sig": errors.New("bucket unavailable")}}

	res, err := Save(context.Background(), c, map[string]Input{
		"sig":  {Capture: captureDataURL(t)},
		"name": {Value: &models.FieldValue{Type: models.FieldText, Text: "Jo"}},
	}, up)
	require.Error(t, err) // aggregate error for logging
	assert.Equal(t, []string{"name"}, res.Saved)
	require.Contains(t, res.Failed, "sig")
	assert.Contains(t, res.Failed["sig"], "bucket unavailable")

	assert.NotNil(t, c.FieldByID("name").DraftValue)
	assert.Nil(t, c.FieldByID("sig").DraftValue)
}

func TestSave_SignedFieldIsRejectedPerField(t *testing.T) {
	c := testContract()
	f := c.FieldByID("name")
	f.Signed = true
	f.Value = &models.FieldValue{Type: models.FieldText, Text: "John Doe"}

	up := &stubUploader{}
	res, err := Save(context.Background(), c, map[string]Input{
		"name":  {Value: &models.FieldValue{Type: models.FieldText, Text: "Jane"}},
		"agree": {Value: &models.FieldValue{Type: models.FieldCheckbox, Checked: true}},
	}, up)
	require.Error(t, err)
	assert.Equal(t, []string{"agree"}, res.Saved)
	assert.Contains(t, res.Failed, "name")

	// Committed value untouched, no stray draft.
	assert.Equal(t, "John Doe", c.FieldByID("name").Value.Text)
	assert.Nil(t, c.FieldByID("name").DraftValue)
}

func TestSave_UnknownFieldAndBadCapture(t *testing.T) {
	c := testContract()
	up := &stubUploader{}

	res, err := Save(context.Background(), c, map[string]Input{
		"ghost": {Value: &models.FieldValue{Type: models.FieldText, Text: "x"}},
		"sig":   {Capture: "data:image/png;base64,!!!"},
	}, up)
	require.Error(t, err)
	assert.Empty(t, res.Saved)
	assert.Contains(t, res.Failed, "ghost")
	assert.Contains(t, res.Failed, "sig")
	assert.Empty(t, up.calls) // invalid capture never reaches the uploader
}
