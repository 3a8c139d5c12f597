package data

import (
	"context"
	"testing"
	"time"

	"cadastro/lib/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newUserDao(t *testing.T) (*UserDao, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &UserDao{DB: db, Logger: logger}, mock
}

func userRow(id int64, cognitoID, email, nome, role, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "cognito_id", "email", "nome", "role", "status", "created_at", "updated_at"}).
		AddRow(id, cognitoID, email, nome, role, status, now, now)
}

func Test_CreateUser_RequiresEmail(t *testing.T) {
	//Arrange
	dao, _ := newUserDao(t)

	//Act
	user, err := dao.CreateUser(context.Background(), "sub-1", &models.CreateUserRequest{Nome: "Ana"})

	//Assert
	assert.Nil(t, user)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Field)
}

func Test_CreateUser_RejectsUnknownRole(t *testing.T) {
	//Arrange
	dao, _ := newUserDao(t)
	createReq := &models.CreateUserRequest{Email: "ana@example.com", Nome: "Ana", Role: "root"}

	//Act
	user, err := dao.CreateUser(context.Background(), "sub-1", createReq)

	//Assert
	assert.Nil(t, user)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, "role", vErr.Field)
}

func Test_CreateUser_DefaultsRoleToConsulta(t *testing.T) {
	//Arrange
	dao, mock := newUserDao(t)
	mock.ExpectQuery("INSERT INTO cadastro.usuarios").
		WithArgs("sub-1", "ana@example.com", "Ana", "consulta", "ativo").
		WillReturnRows(userRow(7, "sub-1", "ana@example.com", "Ana", "consulta", "ativo"))

	//Act
	user, err := dao.CreateUser(context.Background(), "sub-1", &models.CreateUserRequest{
		Email: "ana@example.com",
		Nome:  "Ana",
	})

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "consulta", user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_GetUserByCognitoID_NotFound(t *testing.T) {
	//Arrange
	dao, mock := newUserDao(t)
	mock.ExpectQuery("SELECT").
		WithArgs("missing-sub").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	//Act
	user, err := dao.GetUserByCognitoID(context.Background(), "missing-sub")

	//Assert
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_DeactivateUser_NotFound(t *testing.T) {
	//Arrange
	dao, mock := newUserDao(t)
	mock.ExpectQuery("UPDATE cadastro.usuarios").
		WithArgs("inativo", int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	//Act
	user, err := dao.DeactivateUser(context.Background(), 99)

	//Assert
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_DeactivateUser_Success(t *testing.T) {
	//Arrange
	dao, mock := newUserDao(t)
	mock.ExpectQuery("UPDATE cadastro.usuarios").
		WithArgs("inativo", int64(7)).
		WillReturnRows(userRow(7, "sub-1", "ana@example.com", "Ana", "gestor", "inativo"))

	//Act
	user, err := dao.DeactivateUser(context.Background(), 7)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, "inativo", user.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
