package data

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newCodeValidator(t *testing.T) (*CodeValidatorDao, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &CodeValidatorDao{DB: db, Logger: logger}, mock
}

func Test_EnsureUnique_EmptyCode_IsAlwaysFree(t *testing.T) {
	//Arrange
	dao, mock := newCodeValidator(t)

	//Act
	err := dao.EnsureUnique(context.Background(), "grupo", "   ", 0)

	//Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureUnique_UnknownEntityType(t *testing.T) {
	//Arrange
	dao, mock := newCodeValidator(t)

	//Act
	err := dao.EnsureUnique(context.Background(), "projeto", "ABC", 0)

	//Assert
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureUnique_CodeFree(t *testing.T) {
	//Arrange
	dao, mock := newCodeValidator(t)
	mock.ExpectQuery("SELECT id FROM cadastro.grupos").
		WithArgs("GRP-01", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	//Act
	err := dao.EnsureUnique(context.Background(), "grupo", "GRP-01", 0)

	//Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureUnique_CodeTaken(t *testing.T) {
	//Arrange
	dao, mock := newCodeValidator(t)
	mock.ExpectQuery("SELECT id FROM cadastro.grupos").
		WithArgs("GRP-01", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))

	//Act
	err := dao.EnsureUnique(context.Background(), "grupo", "GRP-01", 0)

	//Assert
	assert.ErrorIs(t, err, ErrCodeConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureUnique_NormalizesBeforeComparing(t *testing.T) {
	//Arrange
	// " grp-01 " and "GRP-01" are the same business code
	dao, mock := newCodeValidator(t)
	mock.ExpectQuery("SELECT id FROM cadastro.grupos").
		WithArgs("GRP-01", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))

	//Act
	err := dao.EnsureUnique(context.Background(), "grupo", " grp-01 ", 0)

	//Assert
	assert.ErrorIs(t, err, ErrCodeConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureUnique_ExcludesOwnRow(t *testing.T) {
	//Arrange
	dao, mock := newCodeValidator(t)
	mock.ExpectQuery("SELECT id FROM cadastro.empresas").
		WithArgs("EMP0001", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	//Act
	err := dao.EnsureUnique(context.Background(), "empresa", "EMP0001", 5)

	//Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureUnique_InscricaoUsesOwnColumn(t *testing.T) {
	//Arrange
	dao, mock := newCodeValidator(t)
	mock.ExpectQuery("SELECT id FROM cadastro.empresas WHERE numero_inscricao").
		WithArgs("12345678000190", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	//Act
	err := dao.EnsureUnique(context.Background(), "empresa_inscricao", "12345678000190", 0)

	//Assert
	assert.ErrorIs(t, err, ErrCodeConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
