// Package certificate renders the human-readable signing record produced
// when a contract completes. The document is a static HTML artifact meant
// to be downloaded, printed or archived outside the system.
package certificate

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/s3io"
)

const tmplSrc = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Signing Certificate — {{.Contract.FileName}}</title>
<style>
body { font-family: Georgia, serif; max-width: 720px; margin: 40px auto; color: #222; }
h1 { border-bottom: 2px solid #222; padding-bottom: 8px; }
table { width: 100%; border-collapse: collapse; margin: 16px 0; }
th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #ccc; vertical-align: top; }
img.thumb { max-height: 48px; border: 1px solid #ddd; }
.meta { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Certificate of Completion</h1>
<p class="meta">Contract {{.Contract.ContractID}} &middot; Event {{.Contract.EventID}} &middot; Generated {{.GeneratedAt}}</p>
<p><strong>{{.Contract.FileName}}</strong> was electronically signed by all parties.</p>

<h2>Signers</h2>
<table>
<tr><th>Name</th><th>Email</th><th>Role</th><th>Signed at</th><th>IP address</th></tr>
{{range .Contract.Signers}}
<tr><td>{{.Name}}</td><td>{{.Email}}</td><td>{{.Role}}</td><td>{{.SignedAt}}</td><td>{{.IPAddress}}</td></tr>
{{end}}
</table>

<h2>Signatures</h2>
<table>
<tr><th>Field</th><th>Type</th><th>Signed at</th><th>Value</th></tr>
{{range .Contract.SignatureFields}}{{if .Signed}}
<tr>
<td>{{.Label}}</td>
<td>{{.Type}}</td>
<td>{{.SignedAt}}</td>
<td>{{with .Value}}{{if .AssetURL}}<img class="thumb" src="{{.AssetURL}}" alt="signature">{{else if .Text}}{{.Text}}{{else if .Date}}{{.Date}}{{else}}{{if .Checked}}checked{{else}}unchecked{{end}}{{end}}{{end}}</td>
</tr>
{{end}}{{end}}
</table>

{{with .Contract.VendorSignature}}
<h2>Vendor signature</h2>
<p>{{.SignerName}} signed at {{.SignedAt}}</p>
<img class="thumb" src="{{.URL}}" alt="vendor signature">
{{end}}

<p class="meta">Full audit trail retained on file ({{len .Contract.AuditTrail}} entries).</p>
</body>
</html>
`

var tmpl = template.Must(template.New("certificate").Parse(tmplSrc))

type renderData struct {
	Contract    *models.Contract
	GeneratedAt string
}

// Render produces the certificate document for a completed contract.
func Render(c *models.Contract) ([]byte, error) {
	var buf bytes.Buffer
	data := renderData{
		Contract:    c,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Store persists rendered certificates to S3.
type Store struct {
	S3     s3io.Putter
	Bucket string
}

// Put stores the certificate under the contract's certificate key and
// returns that key.
func (s *Store) Put(ctx context.Context, eventID, contractID string, doc []byte) (string, error) {
	key := s3io.BuildCertificateKey(eventID, contractID)
	if err := s3io.Put(ctx, s.S3, s.Bucket, key, s3io.ContentTypeHTML, doc, nil); err != nil {
		return "", err
	}
	return key, nil
}
