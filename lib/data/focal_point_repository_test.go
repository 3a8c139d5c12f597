package data

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"cadastro/lib/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newFocalPointDao(t *testing.T) (*FocalPointDao, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &FocalPointDao{DB: db, Logger: logger}, mock
}

func focalPointRow(id, ownerID int64, nome string, principal bool, ordem int) []driver.Value {
	now := time.Now()
	return []driver.Value{id, "grupo", ownerID, nome, nil, nil, nil, nil, nil, principal, ordem, now, int64(1), now, int64(1)}
}

var focalPointCols = []string{
	"id", "owner_type", "owner_id", "nome", "funcao", "descricao", "observacoes",
	"telefone", "email", "principal", "ordem", "created_at", "created_by", "updated_at", "updated_by",
}

func Test_ReplaceAll_UnknownOwnerType(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)

	//Act
	points, err := dao.ReplaceAll(context.Background(), "projeto", 1, nil, 1)

	//Assert
	assert.Nil(t, points)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ReplaceAll_EmptyName_Fails(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	items := []models.FocalPointInput{{Nome: "  "}}

	//Act
	points, err := dao.ReplaceAll(context.Background(), "grupo", 1, items, 1)

	//Assert
	assert.Nil(t, points)
	assert.True(t, IsValidationError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ReplaceAll_TwoPrincipals_Fails(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	items := []models.FocalPointInput{
		{Nome: "Ana", Principal: true},
		{Nome: "Bruno", Principal: true},
	}

	//Act
	points, err := dao.ReplaceAll(context.Background(), "grupo", 1, items, 1)

	//Assert
	assert.Nil(t, points)
	assert.True(t, IsValidationError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ReplaceAll_OwnerMissing(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	//Act
	points, err := dao.ReplaceAll(context.Background(), "grupo", 42, nil, 1)

	//Assert
	assert.Nil(t, points)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ReplaceAll_EmptyListClearsOwner(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("DELETE FROM cadastro.pontos_focais").
		WithArgs("grupo", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	//Act
	points, err := dao.ReplaceAll(context.Background(), "grupo", 5, []models.FocalPointInput{}, 1)

	//Assert
	assert.NoError(t, err)
	assert.Empty(t, points)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ReplaceAll_AssignsListPositionAsOrdem(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("DELETE FROM cadastro.pontos_focais").
		WithArgs("grupo", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO cadastro.pontos_focais").
		WithArgs("grupo", int64(5), "Ana", nil, nil, nil, nil, nil, true, 0, int64(1)).
		WillReturnRows(sqlmock.NewRows(focalPointCols).AddRow(focalPointRow(1, 5, "Ana", true, 0)...))
	mock.ExpectQuery("INSERT INTO cadastro.pontos_focais").
		WithArgs("grupo", int64(5), "Bruno", nil, nil, nil, nil, nil, false, 1, int64(1)).
		WillReturnRows(sqlmock.NewRows(focalPointCols).AddRow(focalPointRow(2, 5, "Bruno", false, 1)...))
	mock.ExpectCommit()
	items := []models.FocalPointInput{
		{Nome: "Ana", Principal: true},
		{Nome: "Bruno"},
	}

	//Act
	points, err := dao.ReplaceAll(context.Background(), "grupo", 5, items, 1)

	//Assert
	assert.NoError(t, err)
	assert.Len(t, points, 2)
	assert.Equal(t, 0, points[0].Ordem)
	assert.Equal(t, 1, points[1].Ordem)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureSinglePrincipal_ClearAll(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	mock.ExpectExec("UPDATE cadastro.pontos_focais").
		WithArgs("grupo", int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	//Act
	err := dao.EnsureSinglePrincipal(context.Background(), "grupo", 5, nil, 1)

	//Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureSinglePrincipal_ForeignRow_Fails(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(30), "grupo", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()
	principalID := int64(30)

	//Act
	err := dao.EnsureSinglePrincipal(context.Background(), "grupo", 5, &principalID, 1)

	//Assert
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureSinglePrincipal_DemotesBeforePromoting(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(30), "grupo", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("SET principal = FALSE").
		WithArgs(int64(30), "grupo", int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET principal = TRUE").
		WithArgs(int64(30), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	principalID := int64(30)

	//Act
	err := dao.EnsureSinglePrincipal(context.Background(), "grupo", 5, &principalID, 1)

	//Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureSinglePrincipal_AlreadyPrincipal_NoInsertConflict(t *testing.T) {
	//Arrange
	// Electing the row that already holds the flag must not touch it: the
	// promote is guarded by principal = FALSE, so the partial unique index
	// never sees a second principal.
	dao, mock := newFocalPointDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(30), "grupo", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("SET principal = FALSE").
		WithArgs(int64(30), "grupo", int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET principal = TRUE").
		WithArgs(int64(30), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	principalID := int64(30)

	//Act
	err := dao.EnsureSinglePrincipal(context.Background(), "grupo", 5, &principalID, 1)

	//Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_EnsureSinglePrincipal_UniqueViolation_Translated(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(30), "grupo", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("SET principal = FALSE").
		WithArgs(int64(30), "grupo", int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET principal = TRUE").
		WithArgs(int64(30), int64(1)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "pontos_focais_principal_unico"})
	mock.ExpectRollback()
	principalID := int64(30)

	//Act
	err := dao.EnsureSinglePrincipal(context.Background(), "grupo", 5, &principalID, 1)

	//Assert
	assert.True(t, IsValidationError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_PromoteLegacyFocalPoints_ReturnsPromotedCount(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	mock.ExpectExec("INSERT INTO cadastro.pontos_focais").
		WithArgs("grupo", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	//Act
	promoted, err := dao.PromoteLegacyFocalPoints(context.Background(), 9)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(4), promoted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ListForOwner_StableOrder(t *testing.T) {
	//Arrange
	dao, mock := newFocalPointDao(t)
	mock.ExpectQuery("SELECT id, owner_type, owner_id").
		WithArgs("grupo", int64(5)).
		WillReturnRows(sqlmock.NewRows(focalPointCols).
			AddRow(focalPointRow(1, 5, "Ana", true, 0)...).
			AddRow(focalPointRow(2, 5, "Bruno", false, 1)...))

	//Act
	points, err := dao.ListForOwner(context.Background(), "grupo", 5)

	//Assert
	assert.NoError(t, err)
	assert.Len(t, points, 2)
	assert.Equal(t, "Ana", points[0].Nome)
	assert.NoError(t, mock.ExpectationsWereMet())
}
