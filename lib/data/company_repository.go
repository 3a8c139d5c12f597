package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cadastro/lib/constants"
	"cadastro/lib/models"
	"cadastro/lib/util"

	"github.com/sirupsen/logrus"
)

// CompanyRepository defines the interface for company data operations.
// Companies are always soft-deleted (status flip) and carry no downstream
// dependents, so deactivation is unconditional.
type CompanyRepository interface {
	// CreateCompany validates required fields and references, auto-assigns the
	// EMP code when omitted and persists the new company
	CreateCompany(ctx context.Context, createReq *models.CreateCompanyRequest, actorID int64) (*models.Company, error)

	// UpdateCompany applies a partial update; only non-nil fields are written
	UpdateCompany(ctx context.Context, companyID int64, updateReq *models.UpdateCompanyRequest, actorID int64) (*models.Company, error)

	// GetCompanyByID retrieves a single company with its focal point list
	GetCompanyByID(ctx context.Context, companyID int64) (*models.Company, error)

	// GetAllCompanies retrieves every company (with focal points) ordered by name
	GetAllCompanies(ctx context.Context) ([]models.Company, error)

	// GetActiveCompanies retrieves companies with status 'ativo'
	GetActiveCompanies(ctx context.Context) ([]models.Company, error)

	// FindCompaniesWithFilters applies the optional criteria conjunctively
	FindCompaniesWithFilters(ctx context.Context, filter *models.CompanyFilter) ([]models.Company, error)

	// DeactivateCompany soft-deletes a company; companies have no dependents
	// so the flip is unconditional
	DeactivateCompany(ctx context.Context, companyID, actorID int64) (*models.Company, error)

	// CountCompaniesByStatus / ByGroup / ByRegion are the dashboard aggregates
	CountCompaniesByStatus(ctx context.Context) ([]models.StatusCount, error)
	CountCompaniesByGroup(ctx context.Context) ([]models.GroupCount, error)
	CountCompaniesByRegion(ctx context.Context) ([]models.RegionCount, error)
}

// CompanyDao implements CompanyRepository using PostgreSQL
type CompanyDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const companyColumns = `id, codigo, razao_social, nome_fantasia, tipo_estabelecimento, tipo_inscricao,
	numero_inscricao, cep, logradouro, numero, complemento, bairro, cidade, estado,
	telefone, email, representante_nome, representante_cpf, representante_email,
	status, grupo_id, regiao_id, created_at, created_by, updated_at, updated_by`

// maxCodeAttempts bounds the retry loop when a generated EMP code collides
// with a manually assigned legacy code.
const maxCodeAttempts = 3

func scanCompany(row interface{ Scan(...interface{}) error }, c *models.Company) error {
	return row.Scan(
		&c.ID, &c.Codigo, &c.RazaoSocial, &c.NomeFantasia, &c.TipoEstabelecimento,
		&c.TipoInscricao, &c.NumeroInscricao, &c.CEP, &c.Logradouro, &c.Numero,
		&c.Complemento, &c.Bairro, &c.Cidade, &c.Estado, &c.Telefone, &c.Email,
		&c.RepresentanteNome, &c.RepresentanteCPF, &c.RepresentanteEmail,
		&c.Status, &c.GrupoID, &c.RegiaoID,
		&c.CreatedAt, &c.CreatedBy, &c.UpdatedAt, &c.UpdatedBy,
	)
}

// CreateCompany validates required fields and references before anything is
// persisted, then inserts inside one transaction. Omitted codes come from the
// empresas_codigo_seq sequence; the unique index is the backstop and a
// collision with a legacy manual code retries with the next sequence value,
// at most maxCodeAttempts times.
func (dao *CompanyDao) CreateCompany(ctx context.Context, createReq *models.CreateCompanyRequest, actorID int64) (*models.Company, error) {
	if strings.TrimSpace(createReq.RazaoSocial) == "" {
		return nil, newValidationError("razao_social", "legal name is required")
	}
	if createReq.GrupoID == 0 {
		return nil, newValidationError("grupo_id", "group is required")
	}
	if createReq.RegiaoID == 0 {
		return nil, newValidationError("regiao_id", "region is required")
	}

	tipo := createReq.TipoEstabelecimento
	if tipo == "" {
		tipo = constants.ESTABELECIMENTO_MATRIZ
	}
	if tipo != constants.ESTABELECIMENTO_MATRIZ && tipo != constants.ESTABELECIMENTO_FILIAL {
		return nil, newValidationError("tipo_estabelecimento", "must be 'matriz' or 'filial'")
	}

	status := createReq.Status
	if status == "" {
		status = constants.STATUS_ATIVO
	}

	var company *models.Company
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		created, generated, err := dao.tryCreateCompany(ctx, createReq, tipo, status, actorID)
		if err == nil {
			company = created
			break
		}
		// Only a generated-code collision is retried; a caller-supplied
		// duplicate surfaces as ErrCodeConflict immediately.
		if generated && isUniqueViolation(err, "empresas_codigo_key") {
			dao.Logger.WithFields(logrus.Fields{
				"operation": "CreateCompany",
				"attempt":   attempt + 1,
			}).Warn("Generated company code collided, retrying with next sequence value")
			continue
		}
		return nil, translateDBError(err)
	}
	if company == nil {
		return nil, fmt.Errorf("failed to assign a unique company code after %d attempts: %w", maxCodeAttempts, ErrCodeConflict)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation":  "CreateCompany",
		"company_id": company.ID,
		"codigo":     company.Codigo,
		"actor_id":   actorID,
	}).Info("Successfully created company")

	company.PontosFocais = []models.FocalPoint{}
	return company, nil
}

func (dao *CompanyDao) tryCreateCompany(ctx context.Context, createReq *models.CreateCompanyRequest, tipo, status string, actorID int64) (*models.Company, bool, error) {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	// Reference checks run before any row is written so a bad grupo_id or
	// regiao_id never persists anything.
	var grupoExists, regiaoExists bool
	err = tx.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM cadastro.grupos  WHERE id = $1),
			EXISTS (SELECT 1 FROM cadastro.regioes WHERE id = $2)
	`, createReq.GrupoID, createReq.RegiaoID).Scan(&grupoExists, &regiaoExists)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check company references: %w", err)
	}
	if !grupoExists {
		return nil, false, newValidationError("grupo_id", "referenced group does not exist")
	}
	if !regiaoExists {
		return nil, false, newValidationError("regiao_id", "referenced region does not exist")
	}

	generated := false
	var codigo string
	if createReq.Codigo != nil && strings.TrimSpace(*createReq.Codigo) != "" {
		codigo = util.NormalizeCode(*createReq.Codigo)
		if err := ensureUniqueCode(ctx, tx, constants.ENTITY_EMPRESA, codigo, 0); err != nil {
			return nil, false, err
		}
	} else {
		var next int64
		if err := tx.QueryRowContext(ctx, `SELECT nextval('cadastro.empresas_codigo_seq')`).Scan(&next); err != nil {
			return nil, false, fmt.Errorf("failed to fetch next company code: %w", err)
		}
		codigo = fmt.Sprintf("EMP%04d", next)
		generated = true
	}

	if createReq.NumeroInscricao != nil {
		if err := ensureUniqueCode(ctx, tx, constants.ENTITY_EMPRESA_INSCRICAO, *createReq.NumeroInscricao, 0); err != nil {
			return nil, generated, err
		}
	}

	var company models.Company
	err = scanCompany(tx.QueryRowContext(ctx, `
		INSERT INTO cadastro.empresas
			(codigo, razao_social, nome_fantasia, tipo_estabelecimento, tipo_inscricao, numero_inscricao,
			 cep, logradouro, numero, complemento, bairro, cidade, estado,
			 telefone, email, representante_nome, representante_cpf, representante_email,
			 status, grupo_id, regiao_id, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $22)
		RETURNING `+companyColumns+`
	`, codigo, createReq.RazaoSocial, createReq.NomeFantasia, tipo, createReq.TipoInscricao,
		createReq.NumeroInscricao, createReq.CEP, createReq.Logradouro, createReq.Numero,
		createReq.Complemento, createReq.Bairro, createReq.Cidade, createReq.Estado,
		createReq.Telefone, createReq.Email, createReq.RepresentanteNome,
		createReq.RepresentanteCPF, createReq.RepresentanteEmail,
		status, createReq.GrupoID, createReq.RegiaoID, actorID), &company)
	if err != nil {
		return nil, generated, err
	}

	if err = tx.Commit(); err != nil {
		return nil, generated, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &company, generated, nil
}

// UpdateCompany applies a partial update; reference and uniqueness checks run
// inside the update transaction.
func (dao *CompanyDao) UpdateCompany(ctx context.Context, companyID int64, updateReq *models.UpdateCompanyRequest, actorID int64) (*models.Company, error) {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if updateReq.Codigo != nil {
		normalized := util.NormalizeCode(*updateReq.Codigo)
		updateReq.Codigo = &normalized
		if err := ensureUniqueCode(ctx, tx, constants.ENTITY_EMPRESA, normalized, companyID); err != nil {
			return nil, err
		}
	}
	if updateReq.NumeroInscricao != nil {
		if err := ensureUniqueCode(ctx, tx, constants.ENTITY_EMPRESA_INSCRICAO, *updateReq.NumeroInscricao, companyID); err != nil {
			return nil, err
		}
	}
	if updateReq.TipoEstabelecimento != nil &&
		*updateReq.TipoEstabelecimento != constants.ESTABELECIMENTO_MATRIZ &&
		*updateReq.TipoEstabelecimento != constants.ESTABELECIMENTO_FILIAL {
		return nil, newValidationError("tipo_estabelecimento", "must be 'matriz' or 'filial'")
	}

	setParts := []string{"updated_by = $1", "updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{actorID}
	argIndex := 2

	addString := func(column string, value *string) error {
		if value == nil {
			return nil
		}
		if column == "razao_social" && strings.TrimSpace(*value) == "" {
			return newValidationError("razao_social", "legal name cannot be empty")
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, *value)
		argIndex++
		return nil
	}

	stringFields := []struct {
		column string
		value  *string
	}{
		{"codigo", updateReq.Codigo},
		{"razao_social", updateReq.RazaoSocial},
		{"nome_fantasia", updateReq.NomeFantasia},
		{"tipo_estabelecimento", updateReq.TipoEstabelecimento},
		{"tipo_inscricao", updateReq.TipoInscricao},
		{"numero_inscricao", updateReq.NumeroInscricao},
		{"cep", updateReq.CEP},
		{"logradouro", updateReq.Logradouro},
		{"numero", updateReq.Numero},
		{"complemento", updateReq.Complemento},
		{"bairro", updateReq.Bairro},
		{"cidade", updateReq.Cidade},
		{"estado", updateReq.Estado},
		{"telefone", updateReq.Telefone},
		{"email", updateReq.Email},
		{"representante_nome", updateReq.RepresentanteNome},
		{"representante_cpf", updateReq.RepresentanteCPF},
		{"representante_email", updateReq.RepresentanteEmail},
		{"status", updateReq.Status},
	}
	for _, f := range stringFields {
		if err := addString(f.column, f.value); err != nil {
			return nil, err
		}
	}

	if updateReq.GrupoID != nil {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cadastro.grupos WHERE id = $1)`, *updateReq.GrupoID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check group reference: %w", err)
		}
		if !exists {
			return nil, newValidationError("grupo_id", "referenced group does not exist")
		}
		setParts = append(setParts, fmt.Sprintf("grupo_id = $%d", argIndex))
		args = append(args, *updateReq.GrupoID)
		argIndex++
	}
	if updateReq.RegiaoID != nil {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cadastro.regioes WHERE id = $1)`, *updateReq.RegiaoID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check region reference: %w", err)
		}
		if !exists {
			return nil, newValidationError("regiao_id", "referenced region does not exist")
		}
		setParts = append(setParts, fmt.Sprintf("regiao_id = $%d", argIndex))
		args = append(args, *updateReq.RegiaoID)
		argIndex++
	}

	var company models.Company
	if len(setParts) == 2 {
		err = scanCompany(tx.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM cadastro.empresas WHERE id = $1`, companyID), &company)
	} else {
		args = append(args, companyID)
		query := fmt.Sprintf(`
			UPDATE cadastro.empresas
			SET %s
			WHERE id = $%d
			RETURNING `+companyColumns+`
		`, strings.Join(setParts, ", "), argIndex)
		err = scanCompany(tx.QueryRowContext(ctx, query, args...), &company)
	}

	if err == sql.ErrNoRows {
		dao.Logger.WithFields(logrus.Fields{
			"operation":  "UpdateCompany",
			"company_id": companyID,
		}).Warn("Company not found for update")
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":  "UpdateCompany",
			"company_id": companyID,
			"error":      err.Error(),
		}).Error("Failed to update company")
		return nil, translateDBError(err)
	}

	points, err := loadFocalPointsForOwners(ctx, tx, constants.OWNER_EMPRESA, []int64{company.ID})
	if err != nil {
		return nil, err
	}
	company.PontosFocais = points[company.ID]
	if company.PontosFocais == nil {
		company.PontosFocais = []models.FocalPoint{}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation":  "UpdateCompany",
		"company_id": company.ID,
		"actor_id":   actorID,
	}).Info("Successfully updated company")

	return &company, nil
}

// GetCompanyByID retrieves a specific company with its focal point list
func (dao *CompanyDao) GetCompanyByID(ctx context.Context, companyID int64) (*models.Company, error) {
	var company models.Company
	err := scanCompany(dao.DB.QueryRowContext(ctx, `
		SELECT `+companyColumns+` FROM cadastro.empresas WHERE id = $1
	`, companyID), &company)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":  "GetCompanyByID",
			"company_id": companyID,
			"error":      err.Error(),
		}).Error("Failed to get company")
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	points, err := loadFocalPointsForOwners(ctx, dao.DB, constants.OWNER_EMPRESA, []int64{company.ID})
	if err != nil {
		return nil, err
	}
	company.PontosFocais = points[company.ID]
	if company.PontosFocais == nil {
		company.PontosFocais = []models.FocalPoint{}
	}
	return &company, nil
}

func (dao *CompanyDao) queryCompanies(ctx context.Context, operation, query string, args ...interface{}) ([]models.Company, error) {
	rows, err := dao.DB.QueryContext(ctx, query, args...)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err.Error(),
		}).Error("Failed to query companies")
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := scanCompany(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}

	// One focal point query for the whole page instead of one per company.
	ids := make([]int64, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}
	points, err := loadFocalPointsForOwners(ctx, dao.DB, constants.OWNER_EMPRESA, ids)
	if err != nil {
		return nil, err
	}
	for i := range companies {
		companies[i].PontosFocais = points[companies[i].ID]
		if companies[i].PontosFocais == nil {
			companies[i].PontosFocais = []models.FocalPoint{}
		}
	}
	return companies, nil
}

// GetAllCompanies retrieves every company ordered by legal name
func (dao *CompanyDao) GetAllCompanies(ctx context.Context) ([]models.Company, error) {
	return dao.queryCompanies(ctx, "GetAllCompanies", `
		SELECT `+companyColumns+` FROM cadastro.empresas ORDER BY razao_social ASC
	`)
}

// GetActiveCompanies retrieves companies with status 'ativo'
func (dao *CompanyDao) GetActiveCompanies(ctx context.Context) ([]models.Company, error) {
	return dao.queryCompanies(ctx, "GetActiveCompanies", `
		SELECT `+companyColumns+` FROM cadastro.empresas WHERE status = $1 ORDER BY razao_social ASC
	`, constants.STATUS_ATIVO)
}

// FindCompaniesWithFilters applies each provided criterion conjunctively
func (dao *CompanyDao) FindCompaniesWithFilters(ctx context.Context, filter *models.CompanyFilter) ([]models.Company, error) {
	whereParts := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	like := func(column, value string) {
		if value == "" {
			return
		}
		whereParts = append(whereParts, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	exact := func(column, value string) {
		if value == "" {
			return
		}
		whereParts = append(whereParts, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	like("razao_social", filter.RazaoSocial)
	like("nome_fantasia", filter.NomeFantasia)
	exact("codigo", filter.Codigo)
	exact("numero_inscricao", filter.NumeroInscricao)
	exact("tipo_estabelecimento", filter.TipoEstabelecimento)
	like("cidade", filter.Cidade)
	exact("estado", filter.Estado)
	exact("status", filter.Status)

	if filter.GrupoID != nil {
		whereParts = append(whereParts, fmt.Sprintf("grupo_id = $%d", argIndex))
		args = append(args, *filter.GrupoID)
		argIndex++
	}
	if filter.RegiaoID != nil {
		whereParts = append(whereParts, fmt.Sprintf("regiao_id = $%d", argIndex))
		args = append(args, *filter.RegiaoID)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT `+companyColumns+` FROM cadastro.empresas WHERE %s ORDER BY razao_social ASC
	`, strings.Join(whereParts, " AND "))

	return dao.queryCompanies(ctx, "FindCompaniesWithFilters", query, args...)
}

// DeactivateCompany soft-deletes a company; companies have no downstream
// dependents so no guard applies.
func (dao *CompanyDao) DeactivateCompany(ctx context.Context, companyID, actorID int64) (*models.Company, error) {
	var company models.Company
	err := scanCompany(dao.DB.QueryRowContext(ctx, `
		UPDATE cadastro.empresas
		SET status = $1, updated_by = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING `+companyColumns+`
	`, constants.STATUS_INATIVO, actorID, companyID), &company)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":  "DeactivateCompany",
			"company_id": companyID,
			"error":      err.Error(),
		}).Error("Failed to deactivate company")
		return nil, fmt.Errorf("failed to deactivate company: %w", err)
	}

	points, err := loadFocalPointsForOwners(ctx, dao.DB, constants.OWNER_EMPRESA, []int64{company.ID})
	if err != nil {
		return nil, err
	}
	company.PontosFocais = points[company.ID]
	if company.PontosFocais == nil {
		company.PontosFocais = []models.FocalPoint{}
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation":  "DeactivateCompany",
		"company_id": companyID,
		"actor_id":   actorID,
	}).Info("Successfully deactivated company")

	return &company, nil
}

// CountCompaniesByStatus returns the dashboard aggregate per status
func (dao *CompanyDao) CountCompaniesByStatus(ctx context.Context) ([]models.StatusCount, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM cadastro.empresas GROUP BY status ORDER BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count companies by status: %w", err)
	}
	defer rows.Close()

	counts := []models.StatusCount{}
	for rows.Next() {
		var c models.StatusCount
		if err := rows.Scan(&c.Status, &c.Total); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountCompaniesByGroup returns the dashboard aggregate per group
func (dao *CompanyDao) CountCompaniesByGroup(ctx context.Context) ([]models.GroupCount, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT grupo_id, COUNT(*) FROM cadastro.empresas GROUP BY grupo_id ORDER BY grupo_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count companies by group: %w", err)
	}
	defer rows.Close()

	counts := []models.GroupCount{}
	for rows.Next() {
		var c models.GroupCount
		if err := rows.Scan(&c.GrupoID, &c.Total); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountCompaniesByRegion returns the dashboard aggregate per region
func (dao *CompanyDao) CountCompaniesByRegion(ctx context.Context) ([]models.RegionCount, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT regiao_id, COUNT(*) FROM cadastro.empresas GROUP BY regiao_id ORDER BY regiao_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count companies by region: %w", err)
	}
	defer rows.Close()

	counts := []models.RegionCount{}
	for rows.Next() {
		var c models.RegionCount
		if err := rows.Scan(&c.RegiaoID, &c.Total); err != nil {
			return nil, fmt.Errorf("failed to scan region count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
