package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cadastro/lib/constants"
	"cadastro/lib/models"

	"github.com/sirupsen/logrus"
)

// UserRepository defines the interface for user account operations. Users are
// provisioned in Cognito first; this repository mirrors them into tabela
// usuarios so audit columns and role checks have a numeric id to reference.
type UserRepository interface {
	// GetUserByCognitoID looks a user up by the Cognito subject; used by the
	// token customizer on every token issuance
	GetUserByCognitoID(ctx context.Context, cognitoID string) (*models.User, error)

	// CreateUser records a provisioned Cognito account
	CreateUser(ctx context.Context, cognitoID string, createReq *models.CreateUserRequest) (*models.User, error)

	// GetAllUsers lists every account ordered by name
	GetAllUsers(ctx context.Context) ([]models.User, error)

	// DeactivateUser soft-deletes an account; the Cognito side is disabled
	// separately by the caller
	DeactivateUser(ctx context.Context, userID int64) (*models.User, error)
}

// UserDao implements UserRepository using PostgreSQL
type UserDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const userColumns = `id, cognito_id, email, nome, role, status, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }, u *models.User) error {
	return row.Scan(&u.ID, &u.CognitoID, &u.Email, &u.Nome, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
}

// GetUserByCognitoID looks a user up by Cognito subject
func (dao *UserDao) GetUserByCognitoID(ctx context.Context, cognitoID string) (*models.User, error) {
	var user models.User
	err := scanUser(dao.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM cadastro.usuarios WHERE cognito_id = $1
	`, cognitoID), &user)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":  "GetUserByCognitoID",
			"cognito_id": cognitoID,
			"error":      err.Error(),
		}).Error("Failed to get user by cognito id")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateUser records a provisioned account with an active status
func (dao *UserDao) CreateUser(ctx context.Context, cognitoID string, createReq *models.CreateUserRequest) (*models.User, error) {
	if strings.TrimSpace(createReq.Email) == "" {
		return nil, newValidationError("email", "email is required")
	}
	if strings.TrimSpace(createReq.Nome) == "" {
		return nil, newValidationError("nome", "name is required")
	}
	role := createReq.Role
	if role == "" {
		role = constants.ROLE_CONSULTA
	}
	if role != constants.ROLE_ADMIN && role != constants.ROLE_GESTOR && role != constants.ROLE_CONSULTA {
		return nil, newValidationError("role", "must be 'admin', 'gestor' or 'consulta'")
	}

	var user models.User
	err := scanUser(dao.DB.QueryRowContext(ctx, `
		INSERT INTO cadastro.usuarios (cognito_id, email, nome, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns+`
	`, cognitoID, createReq.Email, createReq.Nome, role, constants.STATUS_ATIVO), &user)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "CreateUser",
			"email":     createReq.Email,
			"error":     err.Error(),
		}).Error("Failed to create user")
		return nil, translateDBError(err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "CreateUser",
		"user_id":   user.ID,
		"role":      user.Role,
	}).Info("Successfully created user")

	return &user, nil
}

// GetAllUsers lists every account ordered by name
func (dao *UserDao) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT `+userColumns+` FROM cadastro.usuarios ORDER BY nome ASC
	`)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "GetAllUsers",
			"error":     err.Error(),
		}).Error("Failed to query users")
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeactivateUser soft-deletes an account
func (dao *UserDao) DeactivateUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := scanUser(dao.DB.QueryRowContext(ctx, `
		UPDATE cadastro.usuarios
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING `+userColumns+`
	`, constants.STATUS_INATIVO, userID), &user)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "DeactivateUser",
			"user_id":   userID,
			"error":     err.Error(),
		}).Error("Failed to deactivate user")
		return nil, fmt.Errorf("failed to deactivate user: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "DeactivateUser",
		"user_id":   userID,
	}).Info("Successfully deactivated user")

	return &user, nil
}
