package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"cadastro/lib/api"
	"cadastro/lib/auth"
	"cadastro/lib/clients"
	"cadastro/lib/constants"
	"cadastro/lib/data"
	"cadastro/lib/models"
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
	ssmRepository    data.SSMRepository
	ssmParams        map[string]string
	sqlDB            *sql.DB
	regionRepository data.RegionRepository
)

func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := uuid.New().String()
	logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     request.HTTPMethod,
		"path":       request.Path,
	}).Info("Region management request received")

	claims, err := auth.ExtractClaimsFromRequest(request)
	if err != nil {
		logger.WithError(err).Error("Authentication failed")
		return api.ErrorResponse(http.StatusUnauthorized, "Authentication failed", logger), nil
	}

	pathSegments := strings.Split(strings.Trim(request.Path, "/"), "/")

	switch request.HTTPMethod {
	case http.MethodGet:
		if len(pathSegments) >= 2 && pathSegments[1] == "contagens" {
			// GET /regioes/contagens - dashboard counts per status
			return handleCountRegions(ctx), nil
		}
		if regionID, ok := parseID(pathSegments); ok {
			// GET /regioes/{id}
			return handleGetRegion(ctx, regionID), nil
		}
		if len(pathSegments) >= 2 && pathSegments[1] != "" {
			return api.ErrorResponse(http.StatusBadRequest, "Invalid region ID", logger), nil
		}
		// GET /regioes - list, with optional filters
		return handleListRegions(ctx, request.QueryStringParameters), nil

	case http.MethodPost:
		if !claims.CanWrite() {
			return api.ErrorResponse(http.StatusForbidden, "Forbidden: read-only role", logger), nil
		}
		// POST /regioes - create new region
		return handleCreateRegion(ctx, claims.UserID, request.Body), nil

	case http.MethodPut:
		if !claims.CanWrite() {
			return api.ErrorResponse(http.StatusForbidden, "Forbidden: read-only role", logger), nil
		}
		regionID, ok := parseID(pathSegments)
		if !ok {
			return api.ErrorResponse(http.StatusBadRequest, "Invalid region ID", logger), nil
		}
		// PUT /regioes/{id} - partial update
		return handleUpdateRegion(ctx, regionID, claims.UserID, request.Body), nil

	case http.MethodDelete:
		if !claims.CanWrite() {
			return api.ErrorResponse(http.StatusForbidden, "Forbidden: read-only role", logger), nil
		}
		regionID, ok := parseID(pathSegments)
		if !ok {
			return api.ErrorResponse(http.StatusBadRequest, "Invalid region ID", logger), nil
		}
		// DELETE /regioes/{id}?permanente=true - hard delete, admin only
		if request.QueryStringParameters["permanente"] == "true" {
			if !claims.IsAdmin() {
				return api.ErrorResponse(http.StatusForbidden, "Forbidden: only admins can permanently delete", logger), nil
			}
			return handleHardDeleteRegion(ctx, regionID), nil
		}
		// DELETE /regioes/{id} - soft delete, blocked while companies reference it
		return handleDeactivateRegion(ctx, regionID, claims.UserID), nil

	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", logger), nil
	}
}

func parseID(pathSegments []string) (int64, bool) {
	if len(pathSegments) < 2 || pathSegments[1] == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(pathSegments[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleCreateRegion handles POST /regioes
func handleCreateRegion(ctx context.Context, userID int64, body string) events.APIGatewayProxyResponse {
	var createReq models.CreateRegionRequest
	if err := json.Unmarshal([]byte(body), &createReq); err != nil {
		logger.WithError(err).Error("Failed to parse create region request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	region, err := regionRepository.CreateRegion(ctx, &createReq, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusCreated, region, logger)
}

// handleListRegions handles GET /regioes with optional query filters
func handleListRegions(ctx context.Context, query map[string]string) events.APIGatewayProxyResponse {
	var regions []models.Region
	var err error

	switch {
	case query["ativas"] == "true":
		regions, err = regionRepository.GetActiveRegions(ctx)
	case query["nome"] != "" || query["codigo"] != "" || query["estado"] != "" ||
		query["cidade"] != "" || query["status"] != "" || query["grupo_id"] != "":
		filter := &models.RegionFilter{
			Nome:   query["nome"],
			Codigo: query["codigo"],
			Estado: query["estado"],
			Cidade: query["cidade"],
			Status: query["status"],
		}
		if raw := query["grupo_id"]; raw != "" {
			grupoID, parseErr := strconv.ParseInt(raw, 10, 64)
			if parseErr != nil {
				return api.ErrorResponse(http.StatusBadRequest, "Invalid grupo_id filter", logger)
			}
			filter.GrupoID = &grupoID
		}
		regions, err = regionRepository.FindRegionsWithFilters(ctx, filter)
	default:
		regions, err = regionRepository.GetAllRegions(ctx)
	}
	if err != nil {
		return api.MapDomainError(err, logger)
	}

	return api.SuccessResponse(http.StatusOK, models.RegionListResponse{Regioes: regions, Total: len(regions)}, logger)
}

// handleGetRegion handles GET /regioes/{id}
func handleGetRegion(ctx context.Context, regionID int64) events.APIGatewayProxyResponse {
	region, err := regionRepository.GetRegionByID(ctx, regionID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, region, logger)
}

// handleCountRegions handles GET /regioes/contagens
func handleCountRegions(ctx context.Context) events.APIGatewayProxyResponse {
	counts, err := regionRepository.CountRegionsByStatus(ctx)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, counts, logger)
}

// handleUpdateRegion handles PUT /regioes/{id}
func handleUpdateRegion(ctx context.Context, regionID, userID int64, body string) events.APIGatewayProxyResponse {
	var updateReq models.UpdateRegionRequest
	if err := json.Unmarshal([]byte(body), &updateReq); err != nil {
		logger.WithError(err).Error("Failed to parse update region request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	region, err := regionRepository.UpdateRegion(ctx, regionID, &updateReq, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, region, logger)
}

// handleDeactivateRegion handles DELETE /regioes/{id}
func handleDeactivateRegion(ctx context.Context, regionID, userID int64) events.APIGatewayProxyResponse {
	region, err := regionRepository.DeactivateRegion(ctx, regionID, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, region, logger)
}

// handleHardDeleteRegion handles DELETE /regioes/{id}?permanente=true
func handleHardDeleteRegion(ctx context.Context, regionID int64) events.APIGatewayProxyResponse {
	if err := regionRepository.HardDeleteRegion(ctx, regionID); err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusNoContent, nil, logger)
}

// main is the Lambda function entry point
func main() {
	lambda.Start(Handler)
}

func init() {
	var err error

	isLocal = parseIsLocal()

	// Logger Setup
	logger = setupLogger(isLocal)

	// Initialize AWS SSM Parameter Store client
	ssmClient := clients.NewSSMClient(isLocal)
	ssmRepository = &data.SSMDao{
		SSM:    ssmClient,
		Logger: logger,
	}

	// Retrieve all required configuration parameters from SSM
	ssmParams, err = ssmRepository.GetParameters()
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Fatal("Error while getting SSM params from parameter store")
	}

	// Initialize PostgreSQL database connection
	err = setupPostgresSQLClient(ssmParams)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Fatal("Error setting up PostgreSQL client")
	}

	logger.WithField("operation", "init").Info("Region Management Lambda initialization completed successfully")
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

func setupPostgresSQLClient(ssmParams map[string]string) error {
	var err error

	// Create PostgreSQL client using RDS connection parameters from SSM
	sqlDB, err = clients.NewPostgresSQLClient(
		ssmParams[constants.DATABASE_RDS_ENDPOINT],
		ssmParams[constants.DATABASE_PORT],
		ssmParams[constants.DATABASE_NAME],
		ssmParams[constants.DATABASE_USERNAME],
		ssmParams[constants.DATABASE_PASSWORD],
		ssmParams[constants.SSL_MODE],
	)
	if err != nil {
		return fmt.Errorf("error creating PostgreSQL client: %w", err)
	}

	regionRepository = &data.RegionDao{
		DB:     sqlDB,
		Logger: logger,
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.WithField("operation", "setupPostgresSQLClient").Debug("PostgreSQL client initialized successfully")
	}
	return nil
}
