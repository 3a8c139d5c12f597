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

func newGroupDao(t *testing.T) (*GroupDao, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &GroupDao{DB: db, Logger: logger}, mock
}

func groupRows(ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "nome", "descricao", "codigo", "status", "grupo_pai_id",
		"created_at", "created_by", "updated_at", "updated_by",
	})
	now := time.Now()
	for _, id := range ids {
		rows.AddRow(id, "Grupo Teste", nil, nil, "ativo", nil, now, int64(1), now, int64(1))
	}
	return rows
}

func Test_CreateGroup_EmptyName_Fails(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)

	//Act
	group, err := dao.CreateGroup(context.Background(), &models.CreateGroupRequest{Nome: "   "}, 1)

	//Assert
	assert.Nil(t, group)
	assert.True(t, IsValidationError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CreateGroup_DefaultsStatusToAtivo(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cadastro.grupos").
		WithArgs("Grupo Norte", nil, nil, "ativo", nil, int64(7)).
		WillReturnRows(groupRows(10))
	mock.ExpectCommit()

	//Act
	group, err := dao.CreateGroup(context.Background(), &models.CreateGroupRequest{Nome: "Grupo Norte"}, 7)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(10), group.ID)
	assert.Equal(t, "ativo", group.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CreateGroup_NormalizesCodeBeforeStorage(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM cadastro.grupos").
		WithArgs("GRP-01", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO cadastro.grupos").
		WithArgs("Grupo Norte", nil, "GRP-01", "ativo", nil, int64(7)).
		WillReturnRows(groupRows(10))
	mock.ExpectCommit()
	codigo := " grp-01 "

	//Act
	group, err := dao.CreateGroup(context.Background(), &models.CreateGroupRequest{
		Nome:   "Grupo Norte",
		Codigo: &codigo,
	}, 7)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(10), group.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_UpdateGroup_SelfParent_Fails(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	parentID := int64(5)

	//Act
	group, err := dao.UpdateGroup(context.Background(), 5, &models.UpdateGroupRequest{GrupoPaiID: &parentID}, 1)

	//Assert
	assert.Nil(t, group)
	assert.ErrorIs(t, err, ErrSelfParent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_UpdateGroup_ParentNotFound_Fails(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()
	parentID := int64(99)

	//Act
	group, err := dao.UpdateGroup(context.Background(), 5, &models.UpdateGroupRequest{GrupoPaiID: &parentID}, 1)

	//Assert
	assert.Nil(t, group)
	assert.ErrorIs(t, err, ErrParentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_UpdateGroup_CycleDetected_Fails(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	// The proposed parent is a descendant of the group itself
	mock.ExpectQuery("WITH RECURSIVE ancestrais").
		WithArgs(int64(3), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()
	parentID := int64(3)

	//Act
	group, err := dao.UpdateGroup(context.Background(), 1, &models.UpdateGroupRequest{GrupoPaiID: &parentID}, 1)

	//Assert
	assert.Nil(t, group)
	assert.ErrorIs(t, err, ErrCycleDetected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_UpdateGroup_NoFields_ReturnsCurrentRow(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, nome, descricao, codigo, status, grupo_pai_id").
		WithArgs(int64(4)).
		WillReturnRows(groupRows(4))
	mock.ExpectRollback()

	//Act
	group, err := dao.UpdateGroup(context.Background(), 4, &models.UpdateGroupRequest{}, 1)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(4), group.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_HasChildren(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	//Act
	hasChildren, err := dao.HasChildren(context.Background(), 3)

	//Assert
	assert.NoError(t, err)
	assert.True(t, hasChildren)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ValidateParentAssignment_SelfParent(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)

	//Act
	err := dao.ValidateParentAssignment(context.Background(), 8, 8)

	//Assert
	assert.ErrorIs(t, err, ErrSelfParent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ValidateParentAssignment_NoCycle(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("WITH RECURSIVE ancestrais").
		WithArgs(int64(2), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	//Act
	err := dao.ValidateParentAssignment(context.Background(), 9, 2)

	//Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_GetGroupByID_NotFound(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectQuery("SELECT id, nome").
		WithArgs(int64(42)).
		WillReturnRows(groupRows())

	//Act
	group, err := dao.GetGroupByID(context.Background(), 42)

	//Assert
	assert.Nil(t, group)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_HardDeleteGroup_BlockedByChildren(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"c1", "c2", "c3"}).AddRow(true, false, false))
	mock.ExpectRollback()

	//Act
	err := dao.HardDeleteGroup(context.Background(), 3)

	//Assert
	assert.ErrorIs(t, err, ErrHasChildren)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_HardDeleteGroup_BlockedByCompanies(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"c1", "c2", "c3"}).AddRow(false, true, false))
	mock.ExpectRollback()

	//Act
	err := dao.HardDeleteGroup(context.Background(), 3)

	//Assert
	assert.ErrorIs(t, err, ErrHasAssociatedCompanies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_HardDeleteGroup_BlockedByRegions(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"c1", "c2", "c3"}).AddRow(false, false, true))
	mock.ExpectRollback()

	//Act
	err := dao.HardDeleteGroup(context.Background(), 3)

	//Assert
	assert.ErrorIs(t, err, ErrHasAssociatedRegions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_HardDeleteGroup_Success(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"c1", "c2", "c3"}).AddRow(false, false, false))
	mock.ExpectExec("DELETE FROM cadastro.pontos_focais").
		WithArgs("grupo", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM cadastro.grupos").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	//Act
	err := dao.HardDeleteGroup(context.Background(), 3)

	//Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_HardDeleteGroup_NotFound(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"c1", "c2", "c3"}).AddRow(false, false, false))
	mock.ExpectExec("DELETE FROM cadastro.pontos_focais").
		WithArgs("grupo", int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM cadastro.grupos").
		WithArgs(int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	//Act
	err := dao.HardDeleteGroup(context.Background(), 77)

	//Assert
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_GetAncestryPath_NotFound(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectQuery("WITH RECURSIVE caminho").
		WithArgs(int64(12)).
		WillReturnRows(groupRows())

	//Act
	path, err := dao.GetAncestryPath(context.Background(), 12)

	//Assert
	assert.Nil(t, path)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CountGroupsByStatus(t *testing.T) {
	//Arrange
	dao, mock := newGroupDao(t)
	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("ativo", int64(12)).
			AddRow("inativo", int64(3)))

	//Act
	counts, err := dao.CountGroupsByStatus(context.Background())

	//Assert
	assert.NoError(t, err)
	assert.Len(t, counts, 2)
	assert.Equal(t, "ativo", counts[0].Status)
	assert.Equal(t, int64(12), counts[0].Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
