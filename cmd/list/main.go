// Package main powers the vendor dashboard by listing the vendor's
// contracts for an event with their derived workflow state.
package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/gatherly/contract-esign-portal/internal/authz"
	"github.com/gatherly/contract-esign-portal/internal/awsutil"
	"github.com/gatherly/contract-esign-portal/internal/config"
	"github.com/gatherly/contract-esign-portal/internal/ddb"
	"github.com/gatherly/contract-esign-portal/internal/httpx"
	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
	"github.com/gatherly/contract-esign-portal/pkg/logger"
)

// contractSummary is one dashboard row.
type contractSummary struct {
	ContractID        string                `json:"contract_id"`
	FileName          string                `json:"file_name"`
	Status            models.ContractStatus `json:"status"`
	WorkflowStatus    models.WorkflowStatus `json:"workflow_status"`
	CompletionPercent int                   `json:"completion_percent"`
	SentAt            string                `json:"sent_at,omitempty"`
	UpdatedAt         string                `json:"updated_at"`
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
	if eventID == "" {
		return httpx.Error(http.StatusBadRequest, "eventID required")
	}

	contracts, err := a.repo.ListByEvent(ctx, eventID, sub, 100)
	if err != nil {
		a.log.Error("list contracts failed", zap.String("event_id", eventID), zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}

	rows := make([]contractSummary, 0, len(contracts))
	for i := range contracts {
		c := &contracts[i]
		rows = append(rows, contractSummary{
			ContractID:        c.ContractID,
			FileName:          c.FileName,
			Status:            c.Status,
			WorkflowStatus:    workflow.DerivedStatus(c),
			CompletionPercent: workflow.CompletionPercent(c),
			SentAt:            c.SentAt,
			UpdatedAt:         c.UpdatedAt,
		})
	}
	return httpx.JSON(http.StatusOK, rows)
}
