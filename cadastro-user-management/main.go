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
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Global variables for Lambda cold start optimization
var (
	logger         *logrus.Logger
	isLocal        bool
	ssmRepository  data.SSMRepository
	ssmParams      map[string]string
	sqlDB          *sql.DB
	userRepository data.UserRepository
	cognitoClient  *cognitoidentityprovider.Client
	userPoolID     string
)

func Handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	requestID := uuid.New().String()
	logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     request.HTTPMethod,
		"path":       request.Path,
	}).Info("User management request received")

	claims, err := auth.ExtractClaimsFromRequest(request)
	if err != nil {
		logger.WithError(err).Error("Authentication failed")
		return api.ErrorResponse(http.StatusUnauthorized, "Authentication failed", logger), nil
	}

	// Every user management operation is admin only
	if !claims.IsAdmin() {
		logger.WithField("user_id", claims.UserID).Warn("User is not an admin")
		return api.ErrorResponse(http.StatusForbidden, "Forbidden: only admins can manage users", logger), nil
	}

	pathSegments := strings.Split(strings.Trim(request.Path, "/"), "/")

	switch request.HTTPMethod {
	case http.MethodPost:
		// POST /usuarios - provision a new account
		return handleCreateUser(ctx, request.Body), nil

	case http.MethodGet:
		// GET /usuarios - list accounts
		return handleListUsers(ctx), nil

	case http.MethodDelete:
		// DELETE /usuarios/{id} - deactivate account
		if len(pathSegments) < 2 || pathSegments[1] == "" {
			return api.ErrorResponse(http.StatusBadRequest, "User ID required for deletion", logger), nil
		}
		userID, err := strconv.ParseInt(pathSegments[1], 10, 64)
		if err != nil {
			return api.ErrorResponse(http.StatusBadRequest, "Invalid user ID", logger), nil
		}
		return handleDeactivateUser(ctx, userID), nil

	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", logger), nil
	}
}

// handleCreateUser handles POST /usuarios: the account is created in Cognito
// first, then mirrored into the database so the token customizer can resolve it.
func handleCreateUser(ctx context.Context, body string) events.APIGatewayProxyResponse {
	var createReq models.CreateUserRequest
	if err := json.Unmarshal([]byte(body), &createReq); err != nil {
		logger.WithError(err).Error("Failed to parse create user request")
		return api.ErrorResponse(http.StatusBadRequest, "Invalid request body", logger)
	}

	if strings.TrimSpace(createReq.Email) == "" {
		return api.ValidationErrorResponse("email is required", []string{"email: email is required"}, logger)
	}

	cognitoID, err := createCognitoUser(ctx, createReq.Email, createReq.Nome)
	if err != nil {
		logger.WithError(err).Error("Failed to create user in Cognito")
		return api.ErrorResponse(http.StatusInternalServerError, "Failed to provision user", logger)
	}

	user, err := userRepository.CreateUser(ctx, cognitoID, &createReq)
	if err != nil {
		// Roll the Cognito account back so a retry does not hit UsernameExists
		if delErr := deleteCognitoUser(ctx, createReq.Email); delErr != nil {
			logger.WithError(delErr).Warn("Failed to remove Cognito user after database failure")
		}
		return api.MapDomainError(err, logger)
	}

	return api.SuccessResponse(http.StatusCreated, user, logger)
}

// handleListUsers handles GET /usuarios
func handleListUsers(ctx context.Context) events.APIGatewayProxyResponse {
	users, err := userRepository.GetAllUsers(ctx)
	if err != nil {
		return api.MapDomainError(err, logger)
	}
	return api.SuccessResponse(http.StatusOK, models.UserListResponse{Usuarios: users, Total: len(users)}, logger)
}

// handleDeactivateUser handles DELETE /usuarios/{id}
func handleDeactivateUser(ctx context.Context, userID int64) events.APIGatewayProxyResponse {
	user, err := userRepository.DeactivateUser(ctx, userID)
	if err != nil {
		return api.MapDomainError(err, logger)
	}

	// The database row is the source of truth; a Cognito failure only degrades
	// to a user who cannot sign in anyway once the customizer sees the status.
	if err := disableCognitoUser(ctx, user.CognitoID); err != nil {
		logger.WithError(err).Warn("Failed to disable user in Cognito, database deactivation succeeded")
	}

	return api.SuccessResponse(http.StatusOK, user, logger)
}

// createCognitoUser provisions the account and returns its sub.
func createCognitoUser(ctx context.Context, email, nome string) (string, error) {
	input := &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId:    aws.String(userPoolID),
		Username:      aws.String(email),
		MessageAction: types.MessageActionType("SEND"), // Send welcome email
		UserAttributes: []types.AttributeType{
			{
				Name:  aws.String("email"),
				Value: aws.String(email),
			},
			{
				Name:  aws.String("name"),
				Value: aws.String(nome),
			},
			{
				Name:  aws.String("email_verified"),
				Value: aws.String("true"),
			},
		},
	}

	result, err := cognitoClient.AdminCreateUser(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to create user in Cognito: %w", err)
	}

	var cognitoID string
	for _, attr := range result.User.Attributes {
		if *attr.Name == "sub" {
			cognitoID = *attr.Value
			break
		}
	}
	if cognitoID == "" {
		return "", fmt.Errorf("failed to get Cognito user ID from response")
	}
	return cognitoID, nil
}

func deleteCognitoUser(ctx context.Context, username string) error {
	_, err := cognitoClient.AdminDeleteUser(ctx, &cognitoidentityprovider.AdminDeleteUserInput{
		UserPoolId: aws.String(userPoolID),
		Username:   aws.String(username),
	})
	return err
}

func disableCognitoUser(ctx context.Context, username string) error {
	_, err := cognitoClient.AdminDisableUser(ctx, &cognitoidentityprovider.AdminDisableUserInput{
		UserPoolId: aws.String(userPoolID),
		Username:   aws.String(username),
	})
	return err
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

	userPoolID = ssmParams[constants.COGNITO_USER_POOL_ID]
	if userPoolID == "" {
		logger.WithField("operation", "init").Fatal("Cognito user pool id missing from parameter store")
	}

	// Initialize Cognito client
	cognitoClient = clients.NewCognitoIdentityProviderClient(isLocal)

	// Initialize PostgreSQL database connection
	err = setupPostgresSQLClient(ssmParams)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "init",
			"error":     err.Error(),
		}).Fatal("Error setting up PostgreSQL client")
	}

	logger.WithField("operation", "init").Info("User Management Lambda initialization completed successfully")
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

	userRepository = &data.UserDao{
		DB:     sqlDB,
		Logger: logger,
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.WithField("operation", "setupPostgresSQLClient").Debug("PostgreSQL client initialized successfully")
	}
	return nil
}
