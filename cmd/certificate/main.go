// Package main returns a presigned download URL for the signing
// certificate of a completed contract.
package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/gatherly/contract-esign-portal/internal/authz"
	"github.com/gatherly/contract-esign-portal/internal/awsutil"
	"github.com/gatherly/contract-esign-portal/internal/config"
	"github.com/gatherly/contract-esign-portal/internal/ddb"
	"github.com/gatherly/contract-esign-portal/internal/httpx"
	"github.com/gatherly/contract-esign-portal/internal/models"
	"github.com/gatherly/contract-esign-portal/internal/s3io"
	"github.com/gatherly/contract-esign-portal/pkg/logger"
)

// certificateResponse carries the presigned certificate download URL.
type certificateResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env  config.Env
	repo *ddb.Repo
	s3p  *s3.PresignClient
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
		repo: &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table},
		s3p:  s3.NewPresignClient(s3c),
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

	authorized := false
	if sub, err := authz.VendorSub(req, a.env.DevBypassAuth); err == nil && c.VendorID == sub {
		authorized = true
	} else if _, err := authz.Signer(c, req); err == nil {
		authorized = true
	}
	if !authorized {
		return httpx.Error(http.StatusUnauthorized, "unauthorized")
	}

	if c.WorkflowStatus != models.WorkflowCompleted || c.CertificateKey == "" {
		return httpx.Error(http.StatusNotFound, "no certificate for this contract")
	}

	url, ttl, err := s3io.PresignGet(ctx, a.s3p, a.env.AssetsBucket, c.CertificateKey, a.env.CertificateTTL)
	if err != nil {
		a.log.Error("certificate presign failed", zap.String("contract_id", contractID), zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "presign error")
	}
	return httpx.JSON(http.StatusOK, certificateResponse{URL: url, ExpiresIn: int(ttl.Seconds())})
}
