// Package main creates a contract record for a vendor-uploaded source
// document and returns a presigned S3 PUT URL for the document itself.
// Uploading a replacement supersedes the old contract under a fresh id.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/gatherly/contract-esign-portal/internal/audit"
	"github.com/gatherly/contract-esign-portal/internal/authz"
	"github.com/gatherly/contract-esign-portal/internal/awsutil"
	"github.com/gatherly/contract-esign-portal/internal/config"
	"github.com/gatherly/contract-esign-portal/internal/ddb"
	"github.com/gatherly/contract-esign-portal/internal/httpx"
	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/s3io"
	"github.com/gatherly/contract-esign-portal/pkg/logger"
)

// uploadRequest represents the expected JSON body for a contract upload.
type uploadRequest struct {
	EventID     string             `json:"event_id"`
	FileName    string             `json:"file_name"`
	ContentType string             `json:"content_type"`
	FinalPrices map[string]float64 `json:"final_prices"`
	Replaces    string             `json:"replaces_contract_id"`
}

// uploadResponse carries the new contract id and the presigned upload URL.
type uploadResponse struct {
	ContractID  string `json:"contract_id"`
	ContractURL string `json:"contract_url"`
	UploadURL   string `json:"upload_url"`
	ExpiresIn   int    `json:"expires_in"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env  config.Env
	s3p  *s3.PresignClient
	repo *ddb.Repo
	log  *zap.Logger
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
		env:  env,
		s3p:  s3.NewPresignClient(s3c),
		repo: &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table},
		log:  logger.New(env.LogLevel),
	}
	lambda.Start(app.handler)
}

func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sub, err := authz.VendorSub(req, a.env.DevBypassAuth)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	var body uploadRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	if err := validateUpload(body); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	now := audit.NowISO()
	cid := ulid.Make().String()
	key := s3io.BuildContractKey(body.EventID, cid, sanitizeName(body.FileName))

	contract := &models.Contract{
		ContractID:  cid,
		EventID:     body.EventID,
		VendorID:    sub,
		FileName:    sanitizeName(body.FileName),
		ContractURL: s3io.ObjectURL(a.env.ContractsBucket, a.env.Region, key),
		Status:      models.ContractActive,
		FinalPrices: body.FinalPrices,
		// No signature fields yet, so there is no signing path to run.
		WorkflowStatus: models.WorkflowCompleted,
		CreatedAt:      now,
		UpdatedAt:      now,
		FirstUploaded:  now,
	}
	if err := a.repo.CreateContract(ctx, contract); err != nil {
		a.log.Error("create contract failed", zap.String("event_id", body.EventID), zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	if body.Replaces != "" {
		if err := a.supersede(ctx, body.EventID, body.Replaces, sub, cid); err != nil {
			a.log.Warn("supersede failed",
				zap.String("old_contract_id", body.Replaces), zap.Error(err))
		}
	}

	meta := map[string]string{
		"contract_id": cid,
		"event_id":    body.EventID,
		"vendor_id":   sub,
	}
	url, ttl, err := s3io.PresignPut(ctx, a.s3p, a.env.ContractsBucket, key, body.ContentType, meta, a.env.PresignTTL)
	if err != nil {
		a.log.Error("presign failed", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "presign error")
	}

	return httpx.JSON(http.StatusOK, uploadResponse{
		ContractID:  cid,
		ContractURL: contract.ContractURL,
		UploadURL:   url,
		ExpiresIn:   int(ttl.Seconds()),
	})
}

// supersede retires the replaced contract. History is never mutated in
// place: the replacement lives under its own id.
func (a *App) supersede(ctx context.Context, eventID, oldID, vendorSub, newID string) error {
	old, err := a.repo.GetContract(ctx, eventID, oldID)
	if err != nil {
		return err
	}
	if old.VendorID != vendorSub {
		return errors.New("contract belongs to another vendor")
	}
	old.Status = models.ContractSuperseded
	old.UpdatedAt = audit.NowISO()
	audit.Append(old, audit.NewEntry(audit.ActionSuperseded, vendorSub, models.RoleVendor,
		"replaced by contract "+newID, ""))
	return a.repo.SaveContract(ctx, old)
}

func validateUpload(r uploadRequest) error {
	if strings.TrimSpace(r.EventID) == "" {
		return errors.New("event_id required")
	}
	if strings.TrimSpace(r.FileName) == "" {
		return errors.New("file_name required")
	}
	switch strings.ToLower(r.ContentType) {
	case "application/pdf", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return nil
	}
	return errors.New("content_type must be a PDF or Word document")
}

// sanitizeName strips path separators and defaults to "contract.pdf".
func sanitizeName(s string) string {
	s = filepath.Base(strings.TrimSpace(s))
	if s == "" || s == "." {
		return "contract.pdf"
	}
	return s
}
