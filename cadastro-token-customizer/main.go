// Package main implements the Cognito Pre-Token Generation V2.0 trigger.
//
// On every token issuance it resolves the account in the cadastro database by
// the Cognito sub and injects user_id and role claims into both the ID and the
// Access token. The authorizer and every management Lambda read those claims
// instead of querying the database per request.
//
// Database failures never block authentication: the event is returned
// unchanged and the user signs in with plain Cognito claims (which the
// management Lambdas then reject as read-only).
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"cadastro/lib/clients"
	"cadastro/lib/constants"
	"cadastro/lib/data"
	"cadastro/lib/util"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
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
)

func Handler(ctx context.Context, event events.CognitoEventUserPoolsPreTokenGenV2_0) (events.CognitoEventUserPoolsPreTokenGenV2_0, error) {
	logger.WithFields(logrus.Fields{
		"trigger_source": event.TriggerSource,
		"user_pool_id":   event.UserPoolID,
		"operation":      "Handler",
	}).Debug("Processing Cognito Pre Token Generation V2.0 event")

	if !isValidTriggerSourceV2(event.TriggerSource) {
		logger.WithFields(logrus.Fields{
			"trigger_source": event.TriggerSource,
			"operation":      "Handler",
		}).Warn("Invalid trigger source for V2.0, returning event unchanged")
		return event, nil
	}

	// event.UserName carries the Cognito sub in pre-token-gen triggers
	cognitoID := event.UserName
	if cognitoID == "" {
		logger.WithField("operation", "Handler").Error("Username (cognito_id) is empty in event")
		return event, errors.New("username cannot be empty")
	}

	user, err := userRepository.GetUserByCognitoID(ctx, cognitoID)
	if err != nil {
		// Never fail authentication over a database problem; the token just
		// goes out without the custom claims.
		logger.WithFields(logrus.Fields{
			"cognito_id": cognitoID,
			"operation":  "Handler",
			"error":      err.Error(),
		}).Error("Failed to fetch user from database, proceeding without custom claims")
		return event, nil
	}

	if user.Status != constants.STATUS_ATIVO {
		logger.WithFields(logrus.Fields{
			"cognito_id": cognitoID,
			"user_id":    user.ID,
			"operation":  "Handler",
		}).Warn("Deactivated user authenticated, issuing token without role claim")
		return event, nil
	}

	claimsToAdd := map[string]interface{}{
		"user_id": strconv.FormatInt(user.ID, 10),
		"email":   user.Email,
		"nome":    user.Nome,
		"role":    user.Role,
	}

	event.Response.ClaimsAndScopeOverrideDetails = events.ClaimsAndScopeOverrideDetailsV2_0{
		IDTokenGeneration: events.IDTokenGenerationV2_0{
			ClaimsToAddOrOverride: claimsToAdd,
			ClaimsToSuppress:      []string{},
		},
		AccessTokenGeneration: events.AccessTokenGenerationV2_0{
			ClaimsToAddOrOverride: claimsToAdd,
			ClaimsToSuppress:      []string{},
			ScopesToAdd:           []string{},
			ScopesToSuppress:      []string{},
		},
		GroupOverrideDetails: events.GroupConfigurationV2_0{
			GroupsToOverride:   []string{user.Role},
			IAMRolesToOverride: []string{},
			PreferredRole:      nil,
		},
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.WithFields(logrus.Fields{
			"user_id":   user.ID,
			"role":      user.Role,
			"operation": "Handler",
		}).Debug("Successfully added custom claims to token")
	}

	return event, nil
}

// isValidTriggerSourceV2 rejects legacy V1.0 trigger formats; answering a V1.0
// trigger with the V2.0 response shape breaks authentication.
func isValidTriggerSourceV2(triggerSource string) bool {
	validSources := []string{
		"TokenGeneration_HostedAuth",
		"TokenGeneration_Authentication",
		"TokenGeneration_NewPasswordChallenge",
		"TokenGeneration_AuthenticateDevice",
		"TokenGeneration_RefreshTokens",
	}
	for _, valid := range validSources {
		if triggerSource == valid {
			return true
		}
	}
	return false
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

	logger.WithField("operation", "init").Info("Token Customizer Lambda initialization completed successfully")
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
