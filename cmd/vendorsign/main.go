// Package main captures the vendor's signature and sends the contract to
// the client. The vendor signs before sending; a send without a vendor
// signature is rejected by the workflow guard.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/gatherly/contract-esign-portal/internal/assets"
	"github.com/gatherly/contract-esign-portal/internal/audit"
	"github.com/gatherly/contract-esign-portal/internal/authz"
	"github.com/gatherly/contract-esign-portal/internal/awsutil"
	"github.com/gatherly/contract-esign-portal/internal/config"
	"github.com/gatherly/contract-esign-portal/internal/ddb"
	"github.com/gatherly/contract-esign-portal/internal/httpx"
	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
	"github.com/gatherly/contract-esign-portal/pkg/logger"
)

// vendorSignRequest represents the expected JSON body: the captured
// signature image and the signing vendor's display name.
type vendorSignRequest struct {
	Capture string `json:"capture"`
	Name    string `json:"name"`
}

// signerInvite carries the credentials the vendor shares with a client
// signer: the opaque link token and the short access code fallback.
type signerInvite struct {
	Email       string            `json:"email"`
	Role        models.SignerRole `json:"role"`
	AccessToken string            `json:"access_token"`
	AccessCode  string            `json:"access_code,omitempty"`
}

// vendorSignResponse is the sent contract plus the client invites.
type vendorSignResponse struct {
	Contract workflow.ContractView `json:"contract"`
	Invites  []signerInvite        `json:"invites"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env    config.Env
	repo   *ddb.Repo
	assets *assets.Store
	log    *zap.Logger
}

func main() {
	env := config.MustLoad()
	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		panic(err)
	}
	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.UsePathStyle = true
		}
	})
	app := &App{
		env:    env,
		repo:   &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table},
		assets: &assets.Store{S3: s3c, Bucket: env.AssetsBucket, Region: env.Region},
		log:    logger.New(env.LogLevel),
	}
	lambda.Start(app.handler)
}

func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sub, err := authz.VendorSub(req, a.env.DevBypassAuth)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}
	eventID := req.PathParameters["eventID"]
	contractID := req.PathParameters["contractID"]

	var body vendorSignRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}

	c, err := a.repo.GetContract(ctx, eventID, contractID)
	if err != nil {
		return httpx.FromError(err)
	}
	if c.VendorID != sub {
		return httpx.Error(http.StatusForbidden, "contract belongs to another vendor")
	}

	capture, err := assets.DecodeCapture(body.Capture)
	if err != nil {
		return httpx.FromError(err)
	}
	url, err := a.assets.Upload(ctx, capture, eventID, contractID, "vendor-signature")
	if err != nil {
		a.log.Error("vendor signature upload failed", zap.String("contract_id", contractID), zap.Error(err))
		return httpx.FromError(err)
	}

	now := audit.NowISO()
	asset := models.SignatureAsset{
		URL:        url,
		RawCapture: body.Capture,
		SignerName: body.Name,
		SignedAt:   now,
		SignerRole: models.RoleVendor,
	}
	if err := workflow.RecordVendorSignature(c, asset); err != nil {
		return httpx.FromError(err)
	}

	// The vendor's own image fields are satisfied by the same asset.
	for _, f := range c.SignatureFields {
		if f.SignerRole == models.RoleVendor && f.Type.IsImage() && !f.Signed {
			v := models.FieldValue{Type: f.Type, AssetURL: url}
			if err := workflow.SetFieldValue(c, f.ID, v, now); err != nil {
				return httpx.FromError(err)
			}
		}
	}
	for i := range c.Signers {
		if c.Signers[i].Role == models.RoleVendor {
			c.Signers[i].Status = models.SignerSigned
			c.Signers[i].SignedAt = now
			if body.Name != "" {
				c.Signers[i].Name = body.Name
			}
		}
	}

	if err := workflow.MarkSent(c, now); err != nil {
		return httpx.FromError(err)
	}

	ip := httpx.ClientIP(req)
	audit.Append(c,
		audit.NewEntry(audit.ActionVendorSigned, displayName(body.Name, sub), models.RoleVendor, "", ip),
		audit.NewEntry(audit.ActionSentForSignature, displayName(body.Name, sub), models.RoleVendor, "", ip),
	)
	c.UpdatedAt = now

	if err := a.repo.SaveContract(ctx, c); err != nil {
		if errors.Is(err, workflow.ErrConflict) {
			return httpx.FromError(err)
		}
		a.log.Error("save failed after vendor sign", zap.String("contract_id", contractID), zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	invites := make([]signerInvite, 0, len(c.Signers))
	for _, s := range c.Signers {
		if s.Role != models.RoleClient {
			continue
		}
		invites = append(invites, signerInvite{
			Email:       s.Email,
			Role:        s.Role,
			AccessToken: s.AccessToken,
			AccessCode:  s.AccessCode,
		})
	}
	return httpx.JSON(http.StatusOK, vendorSignResponse{Contract: workflow.View(c), Invites: invites})
}

func displayName(name, sub string) string {
	if name != "" {
		return name
	}
	return sub
}
