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

// RegionRepository defines the interface for region data operations. Unlike
// groups, even the soft delete is guarded: a region referenced by companies
// cannot be removed in any form.
type RegionRepository interface {
	// CreateRegion validates required fields, applies defaults and persists a new region
	CreateRegion(ctx context.Context, createReq *models.CreateRegionRequest, actorID int64) (*models.Region, error)

	// UpdateRegion applies a partial update; only non-nil fields are written
	UpdateRegion(ctx context.Context, regionID int64, updateReq *models.UpdateRegionRequest, actorID int64) (*models.Region, error)

	// GetRegionByID retrieves a single region
	GetRegionByID(ctx context.Context, regionID int64) (*models.Region, error)

	// GetAllRegions retrieves every region ordered by name
	GetAllRegions(ctx context.Context) ([]models.Region, error)

	// GetActiveRegions retrieves regions with status 'ativo'
	GetActiveRegions(ctx context.Context) ([]models.Region, error)

	// FindRegionsWithFilters applies the optional criteria conjunctively
	FindRegionsWithFilters(ctx context.Context, filter *models.RegionFilter) ([]models.Region, error)

	// CanDeleteRegion reports whether any company still references the region
	CanDeleteRegion(ctx context.Context, regionID int64) error

	// DeactivateRegion soft-deletes a region after the usage guard passes
	DeactivateRegion(ctx context.Context, regionID, actorID int64) (*models.Region, error)

	// HardDeleteRegion permanently removes a region after the usage guard passes
	HardDeleteRegion(ctx context.Context, regionID int64) error

	// CountRegionsByStatus returns the dashboard aggregate per status
	CountRegionsByStatus(ctx context.Context) ([]models.StatusCount, error)
}

// RegionDao implements RegionRepository using PostgreSQL
type RegionDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const regionColumns = `id, nome, descricao, codigo, estado, cidade, grupo_id, status, created_at, created_by, updated_at, updated_by`

func scanRegion(row interface{ Scan(...interface{}) error }, r *models.Region) error {
	return row.Scan(
		&r.ID, &r.Nome, &r.Descricao, &r.Codigo, &r.Estado, &r.Cidade, &r.GrupoID,
		&r.Status, &r.CreatedAt, &r.CreatedBy, &r.UpdatedAt, &r.UpdatedBy,
	)
}

// CreateRegion validates required fields, applies defaults and persists a new region
func (dao *RegionDao) CreateRegion(ctx context.Context, createReq *models.CreateRegionRequest, actorID int64) (*models.Region, error) {
	if strings.TrimSpace(createReq.Nome) == "" {
		return nil, newValidationError("nome", "name is required")
	}

	status := createReq.Status
	if status == "" {
		status = constants.STATUS_ATIVO
	}

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if createReq.Codigo != nil {
		normalized := util.NormalizeCode(*createReq.Codigo)
		createReq.Codigo = &normalized
		if err := ensureUniqueCode(ctx, tx, constants.ENTITY_REGIAO, normalized, 0); err != nil {
			return nil, err
		}
	}

	if createReq.GrupoID != nil {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM cadastro.grupos WHERE id = $1)
		`, *createReq.GrupoID).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check group reference: %w", err)
		}
		if !exists {
			return nil, newValidationError("grupo_id", "referenced group does not exist")
		}
	}

	var region models.Region
	err = scanRegion(tx.QueryRowContext(ctx, `
		INSERT INTO cadastro.regioes (nome, descricao, codigo, estado, cidade, grupo_id, status, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+regionColumns+`
	`, createReq.Nome, createReq.Descricao, createReq.Codigo, createReq.Estado,
		createReq.Cidade, createReq.GrupoID, status, actorID), &region)

	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "CreateRegion",
			"nome":      createReq.Nome,
			"error":     err.Error(),
		}).Error("Failed to create region")
		return nil, translateDBError(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "CreateRegion",
		"region_id": region.ID,
		"nome":      region.Nome,
		"actor_id":  actorID,
	}).Info("Successfully created region")

	return &region, nil
}

// UpdateRegion applies a partial update; only non-nil fields are written
func (dao *RegionDao) UpdateRegion(ctx context.Context, regionID int64, updateReq *models.UpdateRegionRequest, actorID int64) (*models.Region, error) {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if updateReq.Codigo != nil {
		normalized := util.NormalizeCode(*updateReq.Codigo)
		updateReq.Codigo = &normalized
		if err := ensureUniqueCode(ctx, tx, constants.ENTITY_REGIAO, normalized, regionID); err != nil {
			return nil, err
		}
	}

	setParts := []string{"updated_by = $1", "updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{actorID}
	argIndex := 2

	if updateReq.Nome != nil {
		if strings.TrimSpace(*updateReq.Nome) == "" {
			return nil, newValidationError("nome", "name cannot be empty")
		}
		setParts = append(setParts, fmt.Sprintf("nome = $%d", argIndex))
		args = append(args, *updateReq.Nome)
		argIndex++
	}
	if updateReq.Descricao != nil {
		setParts = append(setParts, fmt.Sprintf("descricao = $%d", argIndex))
		args = append(args, *updateReq.Descricao)
		argIndex++
	}
	if updateReq.Codigo != nil {
		setParts = append(setParts, fmt.Sprintf("codigo = $%d", argIndex))
		args = append(args, *updateReq.Codigo)
		argIndex++
	}
	if updateReq.Estado != nil {
		setParts = append(setParts, fmt.Sprintf("estado = $%d", argIndex))
		args = append(args, *updateReq.Estado)
		argIndex++
	}
	if updateReq.Cidade != nil {
		setParts = append(setParts, fmt.Sprintf("cidade = $%d", argIndex))
		args = append(args, *updateReq.Cidade)
		argIndex++
	}
	if updateReq.RemoverGrupo {
		setParts = append(setParts, "grupo_id = NULL")
	} else if updateReq.GrupoID != nil {
		setParts = append(setParts, fmt.Sprintf("grupo_id = $%d", argIndex))
		args = append(args, *updateReq.GrupoID)
		argIndex++
	}
	if updateReq.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *updateReq.Status)
		argIndex++
	}

	if len(setParts) == 2 {
		var current models.Region
		err = scanRegion(tx.QueryRowContext(ctx, `SELECT `+regionColumns+` FROM cadastro.regioes WHERE id = $1`, regionID), &current)
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get region: %w", err)
		}
		return &current, nil
	}

	args = append(args, regionID)
	query := fmt.Sprintf(`
		UPDATE cadastro.regioes
		SET %s
		WHERE id = $%d
		RETURNING `+regionColumns+`
	`, strings.Join(setParts, ", "), argIndex)

	var updated models.Region
	err = scanRegion(tx.QueryRowContext(ctx, query, args...), &updated)
	if err == sql.ErrNoRows {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "UpdateRegion",
			"region_id": regionID,
		}).Warn("Region not found for update")
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "UpdateRegion",
			"region_id": regionID,
			"error":     err.Error(),
		}).Error("Failed to update region")
		return nil, translateDBError(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "UpdateRegion",
		"region_id": updated.ID,
		"actor_id":  actorID,
	}).Info("Successfully updated region")

	return &updated, nil
}

// GetRegionByID retrieves a specific region by ID
func (dao *RegionDao) GetRegionByID(ctx context.Context, regionID int64) (*models.Region, error) {
	var region models.Region
	err := scanRegion(dao.DB.QueryRowContext(ctx, `
		SELECT `+regionColumns+` FROM cadastro.regioes WHERE id = $1
	`, regionID), &region)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "GetRegionByID",
			"region_id": regionID,
			"error":     err.Error(),
		}).Error("Failed to get region")
		return nil, fmt.Errorf("failed to get region: %w", err)
	}
	return &region, nil
}

func (dao *RegionDao) queryRegions(ctx context.Context, operation, query string, args ...interface{}) ([]models.Region, error) {
	rows, err := dao.DB.QueryContext(ctx, query, args...)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err.Error(),
		}).Error("Failed to query regions")
		return nil, fmt.Errorf("failed to query regions: %w", err)
	}
	defer rows.Close()

	regions := []models.Region{}
	for rows.Next() {
		var r models.Region
		if err := scanRegion(rows, &r); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating regions: %w", err)
	}
	return regions, nil
}

// GetAllRegions retrieves every region ordered by display name
func (dao *RegionDao) GetAllRegions(ctx context.Context) ([]models.Region, error) {
	return dao.queryRegions(ctx, "GetAllRegions", `
		SELECT `+regionColumns+` FROM cadastro.regioes ORDER BY nome ASC
	`)
}

// GetActiveRegions retrieves regions with status 'ativo'
func (dao *RegionDao) GetActiveRegions(ctx context.Context) ([]models.Region, error) {
	return dao.queryRegions(ctx, "GetActiveRegions", `
		SELECT `+regionColumns+` FROM cadastro.regioes WHERE status = $1 ORDER BY nome ASC
	`, constants.STATUS_ATIVO)
}

// FindRegionsWithFilters applies each provided criterion conjunctively
func (dao *RegionDao) FindRegionsWithFilters(ctx context.Context, filter *models.RegionFilter) ([]models.Region, error) {
	whereParts := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filter.Nome != "" {
		whereParts = append(whereParts, fmt.Sprintf("nome ILIKE '%%' || $%d || '%%'", argIndex))
		args = append(args, filter.Nome)
		argIndex++
	}
	if filter.Codigo != "" {
		whereParts = append(whereParts, fmt.Sprintf("codigo = $%d", argIndex))
		args = append(args, filter.Codigo)
		argIndex++
	}
	if filter.Estado != "" {
		whereParts = append(whereParts, fmt.Sprintf("estado = $%d", argIndex))
		args = append(args, filter.Estado)
		argIndex++
	}
	if filter.Cidade != "" {
		whereParts = append(whereParts, fmt.Sprintf("cidade ILIKE '%%' || $%d || '%%'", argIndex))
		args = append(args, filter.Cidade)
		argIndex++
	}
	if filter.Status != "" {
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.GrupoID != nil {
		whereParts = append(whereParts, fmt.Sprintf("grupo_id = $%d", argIndex))
		args = append(args, *filter.GrupoID)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT `+regionColumns+` FROM cadastro.regioes WHERE %s ORDER BY nome ASC
	`, strings.Join(whereParts, " AND "))

	return dao.queryRegions(ctx, "FindRegionsWithFilters", query, args...)
}

// CanDeleteRegion returns ErrRegionInUse when any company references the region.
func (dao *RegionDao) CanDeleteRegion(ctx context.Context, regionID int64) error {
	return checkRegionUsage(ctx, dao.DB, regionID)
}

func checkRegionUsage(ctx context.Context, q dbtx, regionID int64) error {
	var inUse bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM cadastro.empresas WHERE regiao_id = $1)
	`, regionID).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("failed to check region usage: %w", err)
	}
	if inUse {
		return ErrRegionInUse
	}
	return nil
}

// DeactivateRegion soft-deletes a region. The usage guard and the status flip
// share one transaction so a concurrent company create cannot slip between them.
func (dao *RegionDao) DeactivateRegion(ctx context.Context, regionID, actorID int64) (*models.Region, error) {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkRegionUsage(ctx, tx, regionID); err != nil {
		return nil, err
	}

	var region models.Region
	err = scanRegion(tx.QueryRowContext(ctx, `
		UPDATE cadastro.regioes
		SET status = $1, updated_by = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING `+regionColumns+`
	`, constants.STATUS_INATIVO, actorID, regionID), &region)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "DeactivateRegion",
			"region_id": regionID,
			"error":     err.Error(),
		}).Error("Failed to deactivate region")
		return nil, fmt.Errorf("failed to deactivate region: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "DeactivateRegion",
		"region_id": regionID,
		"actor_id":  actorID,
	}).Info("Successfully deactivated region")

	return &region, nil
}

// HardDeleteRegion permanently removes a region after the usage guard passes.
func (dao *RegionDao) HardDeleteRegion(ctx context.Context, regionID int64) error {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkRegionUsage(ctx, tx, regionID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM cadastro.regioes WHERE id = $1`, regionID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "HardDeleteRegion",
			"region_id": regionID,
			"error":     err.Error(),
		}).Error("Failed to delete region")
		return fmt.Errorf("failed to delete region: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "HardDeleteRegion",
		"region_id": regionID,
	}).Info("Successfully hard deleted region")

	return nil
}

// CountRegionsByStatus returns the dashboard aggregate per status
func (dao *RegionDao) CountRegionsByStatus(ctx context.Context) ([]models.StatusCount, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM cadastro.regioes GROUP BY status ORDER BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count regions by status: %w", err)
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
