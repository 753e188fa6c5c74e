// Package main loads a contract for a signing session. Client signers
// authenticate with their access token or email + access code; vendors use
// their session identity.
package main

import (
	"context"
	"errors"
	"net/http"

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
	"github.com/gatherly/contract-esign-portal/internal/workflow"
	"github.com/gatherly/contract-esign-portal/pkg/logger"
)

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

	// Vendor session first, then external signer credentials.
	if sub, err := authz.VendorSub(req, a.env.DevBypassAuth); err == nil && c.VendorID == sub {
		workflow.StripDrafts(c)
		return httpx.JSON(http.StatusOK, workflow.View(c))
	}

	signer, err := authz.Signer(c, req)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "unauthorized")
	}

	if signer.AccessedAt == "" {
		signer.AccessedAt = audit.NowISO()
		// First-access stamp only; losing it to a concurrent write is fine.
		if err := a.repo.SaveContract(ctx, c); err != nil && !errors.Is(err, workflow.ErrConflict) {
			a.log.Warn("recording signer access failed",
				zap.String("contract_id", contractID), zap.Error(err))
		}
	}

	workflow.StripDrafts(c)
	return httpx.JSON(http.StatusOK, workflow.View(c))
}
