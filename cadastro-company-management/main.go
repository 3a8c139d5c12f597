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
	companyRepository    data.CompanyRepository
	focalPointRepository data.FocalPointRepository
)

func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := uuid.New().String()
	logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     request.HTTPMethod,
		"path":       request.Path,
	}).Info("Company management request received")

	claims, err := auth.ExtractClaimsFromRequest(request)
	if err != nil {
		logger.WithError(err).Error("Authentication failed")
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
		// POST /empresas - create new company
		return handleCreateCompany(ctx, claims.UserID, request.Body), nil

	case http.MethodPut:
		if !claims.CanWrite() {
			return api.ErrorResponse(http.StatusForbidden, "Forbidden: read-only role", logger), nil
		}
		companyID, ok := parseID(pathSegments)
		if !ok {
			return api.ErrorResponse(http.StatusBadRequest, "Invalid company ID", logger), nil
		}
		if len(pathSegments) >= 3 && pathSegments[2] == "pontos-focais" {
			// PUT /empresas/{id}/pontos-focais/principal - elect the principal
			if len(pathSegments) >= 4 && pathSegments[3] == "principal" {
				return handleSetPrincipal(ctx, companyID, claims.UserID, request.Body), nil
			}
			// PUT /empresas/{id}/pontos-focais - replace the whole list
			return handleReplaceFocalPoints(ctx, companyID, claims.UserID, request.Body), nil
		}
		// PUT /empresas/{id} - partial update
		return handleUpdateCompany(ctx, companyID, claims.UserID, request.Body), nil

	case http.MethodDelete:
		if !claims.CanWrite() {
			return api.ErrorResponse(http.StatusForbidden, "Forbidden: read-only role", logger), nil
		}
		companyID, ok := parseID(pathSegments)
		if !ok {
			return api.ErrorResponse(http.StatusBadRequest, "Invalid company ID", logger), nil
		}
		// DELETE /empresas/{id} - soft delete only; companies have no dependents
		return handleDeactivateCompany(ctx, companyID, claims.UserID), nil

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
	// GET /empresas - list, with optional filters
	if len(pathSegments) < 2 || pathSegments[1] == "" {
		return handleListCompanies(ctx, request.QueryStringParameters)
	}

	if pathSegments[1] == "contagens" {
		// GET /empresas/contagens?por=status|grupo|regiao
		return handleCountCompanies(ctx, request.QueryStringParameters["por"])
	}

	companyID, ok := parseID(pathSegments)
	if !ok {
		return api.ErrorResponse(http.StatusBadRequest, "Invalid company ID", logger)
	}

	if len(pathSegments) >= 3 {
		if pathSegments[2] == "pontos-focais" {
			// GET /empresas/{id}/pontos-focais
			return handleListFocalPoints(ctx, companyID)
		}
		return api.ErrorResponse(http.StatusNotFound, "Unknown resource", logger)
	}

	// GET /empresas/{id}
	return handleGetCompany(ctx, companyID)
}

// handleCreateCompany handles POST /empresas
func handleCreateCompany(ctx context.Context, userID int64, body string) events.APIGatewayProxyResponse {
	var createReq models.CreateCompanyRequest
	if err := json.Unmarshal([]byte(body), &createReq); err != nil {
		logger.WithError(err).Error("Failed to parse create company request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	company, err := companyRepository.CreateCompany(ctx, &createReq, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusCreated, company, logger)
}

// handleListCompanies handles GET /empresas with optional query filters
func handleListCompanies(ctx context.Context, query map[string]string) events.APIGatewayProxyResponse {
	var companies []models.Company
	var err error

	hasFilter := query["razao_social"] != "" || query["nome_fantasia"] != "" ||
		query["codigo"] != "" || query["numero_inscricao"] != "" ||
		query["tipo_estabelecimento"] != "" || query["cidade"] != "" ||
		query["estado"] != "" || query["status"] != "" ||
		query["grupo_id"] != "" || query["regiao_id"] != ""

	switch {
	case query["ativas"] == "true":
		companies, err = companyRepository.GetActiveCompanies(ctx)
	case hasFilter:
		filter := &models.CompanyFilter{
			RazaoSocial:         query["razao_social"],
			NomeFantasia:        query["nome_fantasia"],
			Codigo:              query["codigo"],
			NumeroInscricao:     query["numero_inscricao"],
			TipoEstabelecimento: query["tipo_estabelecimento"],
			Cidade:              query["cidade"],
			Estado:              query["estado"],
			Status:              query["status"],
		}
		if raw := query["grupo_id"]; raw != "" {
			grupoID, parseErr := strconv.ParseInt(raw, 10, 64)
			if parseErr != nil {
				return api.ErrorResponse(http.StatusBadRequest, "Invalid grupo_id filter", logger)
			}
			filter.GrupoID = &grupoID
		}
		if raw := query["regiao_id"]; raw != "" {
			regiaoID, parseErr := strconv.ParseInt(raw, 10, 64)
			if parseErr != nil {
				return api.ErrorResponse(http.StatusBadRequest, "Invalid regiao_id filter", logger)
			}
			filter.RegiaoID = &regiaoID
		}
		companies, err = companyRepository.FindCompaniesWithFilters(ctx, filter)
	default:
		companies, err = companyRepository.GetAllCompanies(ctx)
	}
	if err != nil {
		return api.MapDomainError(err, logger)
	}

	return api.SuccessResponse(http.StatusOK, models.CompanyListResponse{Empresas: companies, Total: len(companies)}, logger)
}

// handleGetCompany handles GET /empresas/{id}
func handleGetCompany(ctx context.Context, companyID int64) events.APIGatewayProxyResponse {
	company, err := companyRepository.GetCompanyByID(ctx, companyID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, company, logger)
}

// handleCountCompanies handles GET /empresas/contagens
func handleCountCompanies(ctx context.Context, por string) events.APIGatewayProxyResponse {
	switch por {
	case "grupo":
		counts, err := companyRepository.CountCompaniesByGroup(ctx)
		if err != nil {
			return api.MapDomainError(err, logger)
		}
		return api.SuccessResponse(http.StatusOK, counts, logger)
	case "regiao":
		counts, err := companyRepository.CountCompaniesByRegion(ctx)
		if err != nil {
			return api.MapDomainError(err, logger)
		}
		return api.SuccessResponse(http.StatusOK, counts, logger)
	default:
		counts, err := companyRepository.CountCompaniesByStatus(ctx)
		if err != nil {
			return api.MapDomainError(err, logger)
		}
		return api.SuccessResponse(http.StatusOK, counts, logger)
	}
}

// handleUpdateCompany handles PUT /empresas/{id}
func handleUpdateCompany(ctx context.Context, companyID, userID int64, body string) events.APIGatewayProxyResponse {
	var updateReq models.UpdateCompanyRequest
	if err := json.Unmarshal([]byte(body), &updateReq); err != nil {
		logger.WithError(err).Error("Failed to parse update company request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	company, err := companyRepository.UpdateCompany(ctx, companyID, &updateReq, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, company, logger)
}

// handleDeactivateCompany handles DELETE /empresas/{id}
func handleDeactivateCompany(ctx context.Context, companyID, userID int64) events.APIGatewayProxyResponse {
	company, err := companyRepository.DeactivateCompany(ctx, companyID, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, company, logger)
}

// handleListFocalPoints handles GET /empresas/{id}/pontos-focais
func handleListFocalPoints(ctx context.Context, companyID int64) events.APIGatewayProxyResponse {
	points, err := focalPointRepository.ListForOwner(ctx, constants.OWNER_EMPRESA, companyID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.FocalPointListResponse{PontosFocais: points, Total: len(points)}, logger)
}

// handleReplaceFocalPoints handles PUT /empresas/{id}/pontos-focais
func handleReplaceFocalPoints(ctx context.Context, companyID, userID int64, body string) events.APIGatewayProxyResponse {
	var replaceReq models.ReplaceFocalPointsRequest
	if err := json.Unmarshal([]byte(body), &replaceReq); err != nil {
		logger.WithError(err).Error("Failed to parse replace focal points request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	points, err := focalPointRepository.ReplaceAll(ctx, constants.OWNER_EMPRESA, companyID, replaceReq.PontosFocais, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.FocalPointListResponse{PontosFocais: points, Total: len(points)}, logger)
}

// handleSetPrincipal handles PUT /empresas/{id}/pontos-focais/principal
func handleSetPrincipal(ctx context.Context, companyID, userID int64, body string) events.APIGatewayProxyResponse {
	var principalReq models.SetPrincipalRequest
	if err := json.Unmarshal([]byte(body), &principalReq); err != nil {
		logger.WithError(err).Error("Failed to parse set principal request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	if err := focalPointRepository.EnsureSinglePrincipal(ctx, constants.OWNER_EMPRESA, companyID, principalReq.ID, userID); err != nil {
		return api.MapDomainError(err, logger)
	}

	points, err := focalPointRepository.ListForOwner(ctx, constants.OWNER_EMPRESA, companyID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.FocalPointListResponse{PontosFocais: points, Total: len(points)}, logger)
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

	logger.WithField("operation", "init").Info("Company Management Lambda initialization completed successfully")
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

	companyRepository = &data.CompanyDao{
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
