package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cadastro/lib/data"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// SuccessResponse creates a successful API Gateway response
func SuccessResponse(statusCode int, data interface{}, logger *logrus.Logger) events.APIGatewayProxyResponse {
	body, err := json.Marshal(data)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal response data")
		return ErrorResponse(http.StatusInternalServerError, "Internal server error", logger)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
			"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
		},
	}
}

// ErrorResponse creates an error API Gateway response
func ErrorResponse(statusCode int, message string, logger *logrus.Logger) events.APIGatewayProxyResponse {
	errorData := map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  statusCode,
	}

	body, err := json.Marshal(errorData)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal error response")
		body = []byte(`{"error":true,"message":"Internal server error","status":500}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
			"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
		},
	}
}

// domainErrorResponse carries a machine-readable code next to the human message.
func domainErrorResponse(statusCode int, code, message string, logger *logrus.Logger) events.APIGatewayProxyResponse {
	errorData := map[string]interface{}{
		"error":   true,
		"code":    code,
		"message": message,
		"status":  statusCode,
	}

	body, err := json.Marshal(errorData)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal error response")
		body = []byte(`{"error":true,"message":"Internal server error","status":500}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
			"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
		},
	}
}

// MapDomainError translates repository errors into HTTP responses. Each
// sentinel gets a distinct machine code so the frontend can branch without
// parsing messages.
func MapDomainError(err error, logger *logrus.Logger) events.APIGatewayProxyResponse {
	var validationErr *data.ValidationError
	if errors.As(err, &validationErr) {
		return ValidationErrorResponse(validationErr.Message, []string{validationErr.Field + ": " + validationErr.Message}, logger)
	}

	switch {
	case errors.Is(err, data.ErrNotFound):
		return domainErrorResponse(http.StatusNotFound, "NOT_FOUND", "Record not found", logger)
	case errors.Is(err, data.ErrCodeConflict):
		return domainErrorResponse(http.StatusConflict, "CODE_CONFLICT", "Business code already in use", logger)
	case errors.Is(err, data.ErrHasChildren):
		return domainErrorResponse(http.StatusConflict, "HAS_CHILDREN", "Group has subgroups and cannot be removed", logger)
	case errors.Is(err, data.ErrHasAssociatedCompanies):
		return domainErrorResponse(http.StatusConflict, "HAS_ASSOCIATED_COMPANIES", "Group has associated companies and cannot be removed", logger)
	case errors.Is(err, data.ErrHasAssociatedRegions):
		return domainErrorResponse(http.StatusConflict, "HAS_ASSOCIATED_REGIONS", "Group has associated regions and cannot be removed", logger)
	case errors.Is(err, data.ErrRegionInUse):
		return domainErrorResponse(http.StatusConflict, "REGION_IN_USE", "Region is referenced by companies and cannot be removed", logger)
	case errors.Is(err, data.ErrSelfParent):
		return domainErrorResponse(http.StatusUnprocessableEntity, "SELF_PARENT", "A group cannot be its own parent", logger)
	case errors.Is(err, data.ErrParentNotFound):
		return domainErrorResponse(http.StatusUnprocessableEntity, "PARENT_NOT_FOUND", "Parent group does not exist", logger)
	case errors.Is(err, data.ErrCycleDetected):
		return domainErrorResponse(http.StatusUnprocessableEntity, "CYCLE_DETECTED", "Parent assignment would create a hierarchy cycle", logger)
	}

	logger.WithError(err).Error("Unhandled repository error")
	return ErrorResponse(http.StatusInternalServerError, "Internal server error", logger)
}

// ValidationErrorResponse creates a validation error response
func ValidationErrorResponse(message string, errors []string, logger *logrus.Logger) events.APIGatewayProxyResponse {
	errorData := map[string]interface{}{
		"error":      true,
		"message":    message,
		"status":     http.StatusBadRequest,
		"validation": errors,
	}

	body, err := json.Marshal(errorData)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal validation error response")
		return ErrorResponse(http.StatusInternalServerError, "Internal server error", logger)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusBadRequest,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
			"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
		},
	}
}