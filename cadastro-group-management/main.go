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
	logger               *logrus.Logger
	isLocal              bool
	ssmRepository        data.SSMRepository
	ssmParams            map[string]string
	sqlDB                *sql.DB
	groupRepository      data.GroupRepository
	focalPointRepository data.FocalPointRepository
)

func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := uuid.New().String()
	log := logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     request.HTTPMethod,
		"path":       request.Path,
	})
	log.Info("Group management request received")

	// Extract claims from JWT token via API Gateway authorizer
	claims, err := auth.ExtractClaimsFromRequest(request)
	if err != nil {
		log.WithError(err).Error("Authentication failed")
		return api.ErrorResponse(http.StatusUnauthorized, "Authentication failed", logger), nil
	}

	pathSegments := strings.Split(strings.Trim(request.Path, "/"), "/")

	switch request.HTTPMethod {
	case http.MethodGet:
		return routeGet(ctx, pathSegments, request), nil

	case http.MethodPost:
		if !claims.CanWrite() {
			return api.ErrorResponse(http.StatusForbidden, "Forbidden: read-only role", logger), nil
		}
		// POST /grupos/migracao-pontos-focais - promote legacy focal point columns
		if len(pathSegments) >= 2 && pathSegments[1] == "migracao-pontos-focais" {
			if !claims.IsAdmin() {
				return api.ErrorResponse(http.StatusForbidden, "Forbidden: only admins can run migrations", logger), nil
			}
			return handleMigrateFocalPoints(ctx, claims.UserID), nil
		}
		// POST /grupos - create new group
		return handleCreateGroup(ctx, claims.UserID, request.Body), nil

	case http.MethodPut:
		if !claims.CanWrite() {
			return api.ErrorResponse(http.StatusForbidden, "Forbidden: read-only role", logger), nil
		}
		groupID, ok := parseID(pathSegments)
		if !ok {
			return api.ErrorResponse(http.StatusBadRequest, "Invalid group ID", logger), nil
		}
		if len(pathSegments) >= 3 && pathSegments[2] == "pontos-focais" {
			// PUT /grupos/{id}/pontos-focais/principal - elect the principal
			if len(pathSegments) >= 4 && pathSegments[3] == "principal" {
				return handleSetPrincipal(ctx, groupID, claims.UserID, request.Body), nil
			}
			// PUT /grupos/{id}/pontos-focais - replace the whole list
			return handleReplaceFocalPoints(ctx, groupID, claims.UserID, request.Body), nil
		}
		// PUT /grupos/{id} - partial update
		return handleUpdateGroup(ctx, groupID, claims.UserID, request.Body), nil

	case http.MethodDelete:
		if !claims.CanWrite() {
			return api.ErrorResponse(http.StatusForbidden, "Forbidden: read-only role", logger), nil
		}
		groupID, ok := parseID(pathSegments)
		if !ok {
			return api.ErrorResponse(http.StatusBadRequest, "Invalid group ID", logger), nil
		}
		// DELETE /grupos/{id}?permanente=true - hard delete, admin only
		if request.QueryStringParameters["permanente"] == "true" {
			if !claims.IsAdmin() {
				return api.ErrorResponse(http.StatusForbidden, "Forbidden: only admins can permanently delete", logger), nil
			}
			return handleHardDeleteGroup(ctx, groupID), nil
		}
		// DELETE /grupos/{id} - soft delete
		return handleDeactivateGroup(ctx, groupID, claims.UserID), nil

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

func routeGet(ctx context.Context, pathSegments []string, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	// GET /grupos - list, with optional filters
	if len(pathSegments) < 2 || pathSegments[1] == "" {
		return handleListGroups(ctx, request.QueryStringParameters)
	}

	switch pathSegments[1] {
	case "raiz":
		// GET /grupos/raiz - root groups only
		return handleGetRootGroups(ctx)
	case "contagens":
		// GET /grupos/contagens - dashboard counts per status
		return handleCountGroups(ctx)
	}

	groupID, ok := parseID(pathSegments)
	if !ok {
		return api.ErrorResponse(http.StatusBadRequest, "Invalid group ID", logger)
	}

	if len(pathSegments) >= 3 {
		switch pathSegments[2] {
		case "subgrupos":
			// GET /grupos/{id}/subgrupos - direct children
			return handleGetSubgroups(ctx, groupID)
		case "caminho":
			// GET /grupos/{id}/caminho - ancestry path root..group
			return handleGetAncestryPath(ctx, groupID)
		case "pontos-focais":
			// GET /grupos/{id}/pontos-focais
			return handleListFocalPoints(ctx, groupID)
		}
		return api.ErrorResponse(http.StatusNotFound, "Unknown resource", logger)
	}

	// GET /grupos/{id}
	return handleGetGroup(ctx, groupID)
}

// handleCreateGroup handles POST /grupos
func handleCreateGroup(ctx context.Context, userID int64, body string) events.APIGatewayProxyResponse {
	var createReq models.CreateGroupRequest
	if err := json.Unmarshal([]byte(body), &createReq); err != nil {
		logger.WithError(err).Error("Failed to parse create group request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	group, err := groupRepository.CreateGroup(ctx, &createReq, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusCreated, group, logger)
}

// handleListGroups handles GET /grupos with optional query filters
func handleListGroups(ctx context.Context, query map[string]string) events.APIGatewayProxyResponse {
	var groups []models.Group
	var err error

	switch {
	case query["ativos"] == "true":
		groups, err = groupRepository.GetActiveGroups(ctx)
	case query["nome"] != "" || query["codigo"] != "" || query["status"] != "" || query["grupo_pai_id"] != "":
		filter := &models.GroupFilter{
			Nome:   query["nome"],
			Codigo: query["codigo"],
			Status: query["status"],
		}
		if raw := query["grupo_pai_id"]; raw != "" {
			parentID, parseErr := strconv.ParseInt(raw, 10, 64)
			if parseErr != nil {
				return api.ErrorResponse(http.StatusBadRequest, "Invalid grupo_pai_id filter", logger)
			}
			filter.GrupoPaiID = &parentID
		}
		groups, err = groupRepository.FindGroupsWithFilters(ctx, filter)
	default:
		groups, err = groupRepository.GetAllGroups(ctx)
	}
	if err != nil {
		return api.MapDomainError(err, logger)
	}

	return api.SuccessResponse(http.StatusOK, models.GroupListResponse{Grupos: groups, Total: len(groups)}, logger)
}

// handleGetGroup handles GET /grupos/{id}
func handleGetGroup(ctx context.Context, groupID int64) events.APIGatewayProxyResponse {
	group, err := groupRepository.GetGroupByID(ctx, groupID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, group, logger)
}

// handleGetRootGroups handles GET /grupos/raiz
func handleGetRootGroups(ctx context.Context) events.APIGatewayProxyResponse {
	groups, err := groupRepository.GetRootGroups(ctx)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.GroupListResponse{Grupos: groups, Total: len(groups)}, logger)
}

// handleGetSubgroups handles GET /grupos/{id}/subgrupos
func handleGetSubgroups(ctx context.Context, groupID int64) events.APIGatewayProxyResponse {
	groups, err := groupRepository.GetSubgroups(ctx, groupID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.GroupListResponse{Grupos: groups, Total: len(groups)}, logger)
}

// handleGetAncestryPath handles GET /grupos/{id}/caminho
func handleGetAncestryPath(ctx context.Context, groupID int64) events.APIGatewayProxyResponse {
	path, err := groupRepository.GetAncestryPath(ctx, groupID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.GroupListResponse{Grupos: path, Total: len(path)}, logger)
}

// handleCountGroups handles GET /grupos/contagens
func handleCountGroups(ctx context.Context) events.APIGatewayProxyResponse {
	counts, err := groupRepository.CountGroupsByStatus(ctx)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, counts, logger)
}

// handleUpdateGroup handles PUT /grupos/{id}
func handleUpdateGroup(ctx context.Context, groupID, userID int64, body string) events.APIGatewayProxyResponse {
	var updateReq models.UpdateGroupRequest
	if err := json.Unmarshal([]byte(body), &updateReq); err != nil {
		logger.WithError(err).Error("Failed to parse update group request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	group, err := groupRepository.UpdateGroup(ctx, groupID, &updateReq, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, group, logger)
}

// handleDeactivateGroup handles DELETE /grupos/{id}
func handleDeactivateGroup(ctx context.Context, groupID, userID int64) events.APIGatewayProxyResponse {
	group, err := groupRepository.DeactivateGroup(ctx, groupID, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, group, logger)
}

// handleHardDeleteGroup handles DELETE /grupos/{id}?permanente=true
func handleHardDeleteGroup(ctx context.Context, groupID int64) events.APIGatewayProxyResponse {
	if err := groupRepository.HardDeleteGroup(ctx, groupID); err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusNoContent, nil, logger)
}

// handleListFocalPoints handles GET /grupos/{id}/pontos-focais
func handleListFocalPoints(ctx context.Context, groupID int64) events.APIGatewayProxyResponse {
	points, err := focalPointRepository.ListForOwner(ctx, constants.OWNER_GRUPO, groupID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.FocalPointListResponse{PontosFocais: points, Total: len(points)}, logger)
}

// handleReplaceFocalPoints handles PUT /grupos/{id}/pontos-focais
func handleReplaceFocalPoints(ctx context.Context, groupID, userID int64, body string) events.APIGatewayProxyResponse {
	var replaceReq models.ReplaceFocalPointsRequest
	if err := json.Unmarshal([]byte(body), &replaceReq); err != nil {
		logger.WithError(err).Error("Failed to parse replace focal points request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	points, err := focalPointRepository.ReplaceAll(ctx, constants.OWNER_GRUPO, groupID, replaceReq.PontosFocais, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.FocalPointListResponse{PontosFocais: points, Total: len(points)}, logger)
}

// handleSetPrincipal handles PUT /grupos/{id}/pontos-focais/principal
func handleSetPrincipal(ctx context.Context, groupID, userID int64, body string) events.APIGatewayProxyResponse {
	var principalReq models.SetPrincipalRequest
	if err := json.Unmarshal([]byte(body), &principalReq); err != nil {
		logger.WithError(err).Error("Failed to parse set principal request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	if err := focalPointRepository.EnsureSinglePrincipal(ctx, constants.OWNER_GRUPO, groupID, principalReq.ID, userID); err != nil {
		return api.MapDomainError(err, logger)
	}

	points, err := focalPointRepository.ListForOwner(ctx, constants.OWNER_GRUPO, groupID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.FocalPointListResponse{PontosFocais: points, Total: len(points)}, logger)
}

// handleMigrateFocalPoints handles POST /grupos/migracao-pontos-focais
func handleMigrateFocalPoints(ctx context.Context, userID int64) events.APIGatewayProxyResponse {
	migrated, err := focalPointRepository.PromoteLegacyFocalPoints(ctx, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, map[string]int64{"migrados": migrated}, logger)
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

	logger.WithField("operation", "init").Info("Group Management Lambda initialization completed successfully")
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

	groupRepository = &data.GroupDao{
		DB:     sqlDB,
		Logger: logger,
	}
	focalPointRepository = &data.FocalPointDao{
		DB:     sqlDB,
		Logger: logger,
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.WithField("operation", "setupPostgresSQLClient").Debug("PostgreSQL client initialized successfully")
	}
	return nil
}
