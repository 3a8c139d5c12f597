package data

import (
	"context"
	"testing"
	"time"

	"cadastro/lib/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newCompanyDao(t *testing.T) (*CompanyDao, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return &CompanyDao{DB: db, Logger: logger}, mock
}

func companyRows(id int64, codigo string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "codigo", "razao_social", "nome_fantasia", "tipo_estabelecimento", "tipo_inscricao",
		"numero_inscricao", "cep", "logradouro", "numero", "complemento", "bairro", "cidade", "estado",
		"telefone", "email", "representante_nome", "representante_cpf", "representante_email",
		"status", "grupo_id", "regiao_id", "created_at", "created_by", "updated_at", "updated_by",
	}).AddRow(
		id, codigo, "Empresa Exemplo LTDA", nil, "matriz", nil,
		nil, nil, nil, nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil,
		"ativo", int64(1), int64(2), now, int64(1), now, int64(1),
	)
}

func Test_CreateCompany_RequiredFields(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)

	//Act
	_, errRazao := dao.CreateCompany(context.Background(), &models.CreateCompanyRequest{GrupoID: 1, RegiaoID: 2}, 1)
	_, errGrupo := dao.CreateCompany(context.Background(), &models.CreateCompanyRequest{RazaoSocial: "Empresa", RegiaoID: 2}, 1)
	_, errRegiao := dao.CreateCompany(context.Background(), &models.CreateCompanyRequest{RazaoSocial: "Empresa", GrupoID: 1}, 1)

	//Assert
	assert.True(t, IsValidationError(errRazao))
	assert.True(t, IsValidationError(errGrupo))
	assert.True(t, IsValidationError(errRegiao))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CreateCompany_InvalidEstablishmentType(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)

	//Act
	company, err := dao.CreateCompany(context.Background(), &models.CreateCompanyRequest{
		RazaoSocial:         "Empresa Exemplo LTDA",
		GrupoID:             1,
		RegiaoID:            2,
		TipoEstabelecimento: "sede",
	}, 1)

	//Assert
	assert.Nil(t, company)
	assert.True(t, IsValidationError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CreateCompany_GeneratesCodeFromSequence(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"grupo", "regiao"}).AddRow(true, true))
	mock.ExpectQuery("SELECT nextval").
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(7)))
	mock.ExpectQuery("INSERT INTO cadastro.empresas").
		WillReturnRows(companyRows(20, "EMP0007"))
	mock.ExpectCommit()

	//Act
	company, err := dao.CreateCompany(context.Background(), &models.CreateCompanyRequest{
		RazaoSocial: "Empresa Exemplo LTDA",
		GrupoID:     1,
		RegiaoID:    2,
	}, 1)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, "EMP0007", *company.Codigo)
	assert.Empty(t, company.PontosFocais)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CreateCompany_RetriesOnGeneratedCodeCollision(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)

	// First attempt: the sequence value collides with a legacy manual code
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"grupo", "regiao"}).AddRow(true, true))
	mock.ExpectQuery("SELECT nextval").
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(8)))
	mock.ExpectQuery("INSERT INTO cadastro.empresas").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "empresas_codigo_key"})
	mock.ExpectRollback()

	// Second attempt succeeds with the next sequence value
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"grupo", "regiao"}).AddRow(true, true))
	mock.ExpectQuery("SELECT nextval").
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(9)))
	mock.ExpectQuery("INSERT INTO cadastro.empresas").
		WillReturnRows(companyRows(21, "EMP0009"))
	mock.ExpectCommit()

	//Act
	company, err := dao.CreateCompany(context.Background(), &models.CreateCompanyRequest{
		RazaoSocial: "Empresa Exemplo LTDA",
		GrupoID:     1,
		RegiaoID:    2,
	}, 1)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, "EMP0009", *company.Codigo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CreateCompany_RetryExhaustion_ReturnsCodeConflict(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)
	for seq := int64(8); seq < 11; seq++ {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT").
			WithArgs(int64(1), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"grupo", "regiao"}).AddRow(true, true))
		mock.ExpectQuery("SELECT nextval").
			WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(seq))
		mock.ExpectQuery("INSERT INTO cadastro.empresas").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "empresas_codigo_key"})
		mock.ExpectRollback()
	}

	//Act
	company, err := dao.CreateCompany(context.Background(), &models.CreateCompanyRequest{
		RazaoSocial: "Empresa Exemplo LTDA",
		GrupoID:     1,
		RegiaoID:    2,
	}, 1)

	//Assert
	assert.Nil(t, company)
	assert.ErrorIs(t, err, ErrCodeConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CreateCompany_SuppliedCodeConflict_NoRetry(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)
	codigo := "EMP0001"
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"grupo", "regiao"}).AddRow(true, true))
	// Uniqueness probe finds another company holding the code
	mock.ExpectQuery("SELECT id FROM cadastro.empresas").
		WithArgs(codigo, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(99)))
	mock.ExpectRollback()

	//Act
	company, err := dao.CreateCompany(context.Background(), &models.CreateCompanyRequest{
		RazaoSocial: "Empresa Exemplo LTDA",
		GrupoID:     1,
		RegiaoID:    2,
		Codigo:      &codigo,
	}, 1)

	//Assert
	assert.Nil(t, company)
	assert.ErrorIs(t, err, ErrCodeConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CreateCompany_MissingGroupReference(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").
		WithArgs(int64(77), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"grupo", "regiao"}).AddRow(false, true))
	mock.ExpectRollback()

	//Act
	company, err := dao.CreateCompany(context.Background(), &models.CreateCompanyRequest{
		RazaoSocial: "Empresa Exemplo LTDA",
		GrupoID:     77,
		RegiaoID:    2,
	}, 1)

	//Assert
	assert.Nil(t, company)
	assert.True(t, IsValidationError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_DeactivateCompany_NotFound(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)
	mock.ExpectQuery("UPDATE cadastro.empresas").
		WithArgs("inativo", int64(1), int64(123)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	//Act
	company, err := dao.DeactivateCompany(context.Background(), 123, 1)

	//Assert
	assert.Nil(t, company)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_GetCompanyByID_LoadsFocalPoints(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)
	now := time.Now()
	mock.ExpectQuery("SELECT id, codigo, razao_social").
		WithArgs(int64(20)).
		WillReturnRows(companyRows(20, "EMP0007"))
	mock.ExpectQuery("SELECT id, owner_type, owner_id").
		WithArgs("empresa", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_type", "owner_id", "nome", "funcao", "descricao", "observacoes",
			"telefone", "email", "principal", "ordem", "created_at", "created_by", "updated_at", "updated_by",
		}).AddRow(int64(3), "empresa", int64(20), "Maria Souza", nil, nil, nil, nil, nil, true, 0, now, int64(1), now, int64(1)))

	//Act
	company, err := dao.GetCompanyByID(context.Background(), 20)

	//Assert
	assert.NoError(t, err)
	assert.Len(t, company.PontosFocais, 1)
	assert.True(t, company.PontosFocais[0].Principal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CountCompaniesByGroup(t *testing.T) {
	//Arrange
	dao, mock := newCompanyDao(t)
	mock.ExpectQuery("SELECT grupo_id, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"grupo_id", "count"}).
			AddRow(int64(1), int64(4)).
			AddRow(int64(2), int64(9)))

	//Act
	counts, err := dao.CountCompaniesByGroup(context.Background())

	//Assert
	assert.NoError(t, err)
	assert.Len(t, counts, 2)
	assert.Equal(t, int64(9), counts[1].Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
