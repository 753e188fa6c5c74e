// Package main records a client signer's refusal to sign. The contract
// stays in its current workflow state so the vendor can follow up or
// upload a revised version.
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
	"go.uber.org/zap"

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

// declineRequest represents the expected JSON body for a decline.
type declineRequest struct {
	Reason string `json:"reason"`
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
		return httpx.Error(http.StatusForbidden, "only the client signer can decline")
	}
	if c.WorkflowStatus == models.WorkflowCompleted {
		return httpx.Error(http.StatusConflict, "contract is already completed")
	}
	if signer.Status == models.SignerSigned {
		return httpx.Error(http.StatusConflict, "signer has already signed")
	}

	var body declineRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}

	now := audit.NowISO()
	signer.Status = models.SignerDeclined
	signer.DeclinedAt = now
	signer.DeclineReason = strings.TrimSpace(body.Reason)
	signer.IPAddress = httpx.ClientIP(req)
	signer.UserAgent = httpx.UserAgent(req)

	audit.Append(c, audit.NewEntry(audit.ActionSigningDeclined, signer.Email, models.RoleClient,
		signer.DeclineReason, httpx.ClientIP(req)))
	c.UpdatedAt = now

	if err := a.repo.SaveContract(ctx, c); err != nil {
		if errors.Is(err, workflow.ErrConflict) {
			return httpx.FromError(err)
		}
		a.log.Error("decline persist failed", zap.String("contract_id", contractID), zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	return httpx.JSON(http.StatusOK, workflow.View(c))
}
