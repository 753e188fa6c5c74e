// Package main saves a contract's signature field set and derives its
// signers. The first non-empty field definition opens the signing path.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/gatherly/contract-esign-portal/internal/audit"
	"github.com/gatherly/contract-esign-portal/internal/authz"
	"github.com/gatherly/contract-esign-portal/internal/awsutil"
	"github.com/gatherly/contract-esign-portal/internal/config"
	"github.com/gatherly/contract-esign-portal/internal/ddb"
	"github.com/gatherly/contract-esign-portal/internal/httpx"
	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/signers"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
	"github.com/gatherly/contract-esign-portal/pkg/logger"
)

// fieldsRequest represents the expected JSON body for a field definition.
type fieldsRequest struct {
	Fields []models.SignatureField `json:"fields"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env  config.Env
	repo *ddb.Repo
	log  *zap.Logger
}

func main() {
	env := config.MustLoad()
	cfg, _, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		panic(err)
	}
	app := &App{
		env:  env,
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
	eventID := req.PathParameters["eventID"]
	contractID := req.PathParameters["contractID"]

	var body fieldsRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	if err := validateFields(body.Fields); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	c, err := a.repo.GetContract(ctx, eventID, contractID)
	if err != nil {
		return httpx.FromError(err)
	}
	if c.VendorID != sub {
		return httpx.Error(http.StatusForbidden, "contract belongs to another vendor")
	}

	// New fields get server-issued ids; ids the UI already holds survive.
	for i := range body.Fields {
		if body.Fields[i].ID == "" {
			body.Fields[i].ID = ulid.Make().String()
		}
	}

	now := audit.NowISO()
	if err := workflow.ApplyFields(c, body.Fields, now); err != nil {
		return httpx.FromError(err)
	}
	c.Signers = signers.Derive(c.SignatureFields, c.Signers, now)
	audit.Append(c, audit.NewEntry(audit.ActionFieldsDefined, sub, models.RoleVendor,
		"", httpx.ClientIP(req)))
	c.UpdatedAt = now

	if err := a.repo.SaveContract(ctx, c); err != nil {
		if errors.Is(err, workflow.ErrConflict) {
			return httpx.FromError(err)
		}
		a.log.Error("save fields failed", zap.String("contract_id", contractID), zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	return httpx.JSON(http.StatusOK, workflow.View(c))
}

func validateFields(fields []models.SignatureField) error {
	for _, f := range fields {
		switch f.Type {
		case models.FieldSignature, models.FieldInitial, models.FieldDate, models.FieldText, models.FieldCheckbox:
		default:
			return errors.New("unknown field type: " + string(f.Type))
		}
		switch f.SignerRole {
		case models.RoleVendor, models.RoleClient:
		default:
			return errors.New("unknown signer role: " + string(f.SignerRole))
		}
		if strings.TrimSpace(f.SignerEmail) == "" {
			return errors.New("signer_email required on every field")
		}
		if strings.TrimSpace(f.Label) == "" {
			return errors.New("label required on every field")
		}
	}
	return nil
}
