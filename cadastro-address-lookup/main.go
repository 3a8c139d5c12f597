package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"cadastro/lib/api"
	"cadastro/lib/auth"
	"cadastro/lib/clients"
	"cadastro/lib/util"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Global variables for Lambda cold start optimization
var (
	logger           *logrus.Logger
	isLocal          bool
	enrichmentClient clients.EnrichmentClient
)

// Handler serves GET /consulta/cep/{cep} and GET /consulta/cnpj/{cnpj}.
// Results come straight from the public registries and are never persisted;
// the frontend uses them to pre-fill company forms.
func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := uuid.New().String()
	logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     request.HTTPMethod,
		"path":       request.Path,
	}).Info("Address lookup request received")

	if _, err := auth.ExtractClaimsFromRequest(request); err != nil {
		logger.WithError(err).Error("Authentication failed")
		return api.ErrorResponse(http.StatusUnauthorized, "Authentication failed", logger), nil
	}

	if request.HTTPMethod != http.MethodGet {
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", logger), nil
	}

	pathSegments := strings.Split(strings.Trim(request.Path, "/"), "/")
	if len(pathSegments) < 3 || pathSegments[2] == "" {
		return api.ErrorResponse(http.StatusBadRequest, "Lookup key required", logger), nil
	}

	switch pathSegments[1] {
	case "cep":
		return handleLookupCEP(ctx, pathSegments[2]), nil
	case "cnpj":
		return handleLookupCNPJ(ctx, pathSegments[2]), nil
	default:
		return api.ErrorResponse(http.StatusNotFound, "Unknown lookup type", logger), nil
	}
}

// handleLookupCEP handles GET /consulta/cep/{cep}
func handleLookupCEP(ctx context.Context, cep string) events.APIGatewayProxyResponse {
	address, err := enrichmentClient.LookupCEP(ctx, cep)
	if err != nil {
		if errors.Is(err, clients.ErrLookupNotFound) {
			return api.ErrorResponse(http.StatusNotFound, "CEP not found", logger)
		}
		logger.WithError(err).Error("CEP lookup failed")
		return api.ErrorResponse(http.StatusBadGateway, "Address service unavailable", logger)
	}
	return api.SuccessResponse(http.StatusOK, address, logger)
}

// handleLookupCNPJ handles GET /consulta/cnpj/{cnpj}
func handleLookupCNPJ(ctx context.Context, cnpj string) events.APIGatewayProxyResponse {
	registry, err := enrichmentClient.LookupCNPJ(ctx, cnpj)
	if err != nil {
		if errors.Is(err, clients.ErrLookupNotFound) {
			return api.ErrorResponse(http.StatusNotFound, "CNPJ not found", logger)
		}
		logger.WithError(err).Error("CNPJ lookup failed")
		return api.ErrorResponse(http.StatusBadGateway, "Registry service unavailable", logger)
	}
	return api.SuccessResponse(http.StatusOK, registry, logger)
}

// main is the Lambda function entry point
func main() {
	lambda.Start(Handler)
}

func init() {
	isLocal = parseIsLocal()

	// Logger Setup
	logger = setupLogger(isLocal)

	// No database here; the Lambda only proxies the public registries
	enrichmentClient = clients.NewEnrichmentClient()

	logger.WithField("operation", "init").Info("Address Lookup Lambda initialization completed successfully")
}

func parseIsLocal() bool {
	isLocal, _ := strconv.ParseBool(os.Getenv("IS_LOCAL"))
	return isLocal
}

func setupLogger(isLocal bool) *logrus.Logger {
	logger := logrus.New()
	util.SetLogLevel(logger, os.Getenv("LOG_LEVEL"))
	logger.SetFormatter(&logrus.JSONFormatter{PrettyPrint: isLocal})
	return logger
}
