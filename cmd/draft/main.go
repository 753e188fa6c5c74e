// Package main saves a client's partial signing progress. Each field is
// saved independently: one field's upload failure never blocks the others,
// and nothing a draft save does commits a workflow transition.
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
	"github.com/gatherly/contract-esign-portal/internal/draft"
	"github.com/gatherly/contract-esign-portal/internal/httpx"
	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
	"github.com/gatherly/contract-esign-portal/pkg/logger"
)

// draftRequest represents the expected JSON body for a draft save.
type draftRequest struct {
	Fields map[string]draft.Input `json:"fields"`
}

// draftResponse reports the per-field outcome plus the derived workflow
// state after the save.
type draftResponse struct {
	Result            draft.Result          `json:"result"`
	WorkflowStatus    models.WorkflowStatus `json:"workflow_status"`
	CompletionPercent int                   `json:"completion_percent"`
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
	eventID := req.PathParameters["eventID"]
	contractID := req.PathParameters["contractID"]

	c, err := a.repo.GetContract(ctx, eventID, contractID)
	if err != nil {
		return httpx.FromError(err)
	}
	signer, err := authz.Signer(c, req)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "unauthorized")
	}
	if signer.Role != models.RoleClient {
		return httpx.Error(http.StatusForbidden, "only the client signer saves drafts")
	}

	var body draftRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	if len(body.Fields) == 0 {
		return httpx.Error(http.StatusBadRequest, "no fields to save")
	}

	result, saveErr := draft.Save(ctx, c, body.Fields, a.assets)
	if saveErr != nil {
		a.log.Warn("draft save had per-field failures",
			zap.String("contract_id", contractID), zap.Error(saveErr))
	}

	if len(result.Saved) > 0 {
		now := audit.NowISO()
		audit.Append(c, audit.NewEntry(audit.ActionDraftSaved, signer.Email, models.RoleClient,
			"", httpx.ClientIP(req)))
		c.UpdatedAt = now
		if err := a.repo.SaveContract(ctx, c); err != nil {
			if errors.Is(err, workflow.ErrConflict) {
				return httpx.FromError(err)
			}
			a.log.Error("draft persist failed", zap.String("contract_id", contractID), zap.Error(err))
			return httpx.Error(http.StatusInternalServerError, "db error")
		}
	}

	return httpx.JSON(http.StatusOK, draftResponse{
		Result:            result,
		WorkflowStatus:    workflow.DerivedStatus(c),
		CompletionPercent: workflow.CompletionPercent(c),
	})
}
