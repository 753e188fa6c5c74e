// Package main finalizes a contract: the client submits every remaining
// required field, the workflow commits its terminal transition in one
// version-checked write, and a signing certificate is produced.
package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/gatherly/contract-esign-portal/internal/assets"
	"github.com/gatherly/contract-esign-portal/internal/authz"
	"github.com/gatherly/contract-esign-portal/internal/awsutil"
	"github.com/gatherly/contract-esign-portal/internal/booking"
	"github.com/gatherly/contract-esign-portal/internal/certificate"
	"github.com/gatherly/contract-esign-portal/internal/config"
	"github.com/gatherly/contract-esign-portal/internal/ddb"
	"github.com/gatherly/contract-esign-portal/internal/finalize"
	"github.com/gatherly/contract-esign-portal/internal/httpx"
	"github.com/gatherly/contract-esign-portal/internal/s3io"
	"github.com/gatherly/contract-esign-portal/internal/workflow"
	"github.com/gatherly/contract-esign-portal/pkg/logger"
)

// finalizeRequest represents the expected JSON body for a finalize attempt.
type finalizeRequest struct {
	Name   string                         `json:"name"`
	Fields map[string]finalize.FieldInput `json:"fields"`
}

// finalizeResponse carries the completed contract and, when certificate
// generation succeeded, a presigned download URL for the signing record.
type finalizeResponse struct {
	Contract       workflow.ContractView `json:"contract"`
	CertificateURL string                `json:"certificate_url,omitempty"`
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env  config.Env
	repo *ddb.Repo
	s3p  *s3.PresignClient
	fin  *finalize.Deps
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
	log := logger.New(env.LogLevel)
	repo := &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table}

	var confirmer booking.Confirmer = booking.Noop{}
	if env.BookingURL != "" {
		confirmer = booking.NewClient(env.BookingURL)
	}

	app := &App{
		env:  env,
		repo: repo,
		s3p:  s3.NewPresignClient(s3c),
		log:  log,
		fin: &finalize.Deps{
			Store:   repo,
			Assets:  &assets.Store{S3: s3c, Bucket: env.AssetsBucket, Region: env.Region},
			Booking: confirmer,
			Certs:   &certificate.Store{S3: s3c, Bucket: env.AssetsBucket},
			Log:     log,
		},
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

	var body finalizeRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}

	out, err := a.fin.Run(ctx, c, signer, finalize.Input{
		SignerName: body.Name,
		Fields:     body.Fields,
		IPAddress:  httpx.ClientIP(req),
		UserAgent:  httpx.UserAgent(req),
	})
	if err != nil {
		a.log.Info("finalize rejected",
			zap.String("contract_id", contractID), zap.Error(err))
		return httpx.FromError(err)
	}

	resp := finalizeResponse{Contract: workflow.View(out.Contract)}
	if out.CertificateStored {
		url, _, err := s3io.PresignGet(ctx, a.s3p, a.env.AssetsBucket, out.CertificateKey, a.env.CertificateTTL)
		if err != nil {
			a.log.Warn("certificate presign failed", zap.String("contract_id", contractID), zap.Error(err))
		} else {
			resp.CertificateURL = url
		}
	}

	a.log.Info("contract finalized",
		zap.String("contract_id", contractID),
		zap.String("event_id", eventID),
		zap.String("signer", signer.Email),
		zap.Bool("booking_confirmed", out.BookingConfirmed))

	return httpx.JSON(http.StatusOK, resp)
}
