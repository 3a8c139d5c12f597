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

// GroupRepository defines the interface for group data operations, including
// the hierarchy guard (parent validation, ancestry queries) and the deletion
// safety guard for hard deletes.
type GroupRepository interface {
	// CreateGroup validates required fields, applies defaults and persists a new group
	CreateGroup(ctx context.Context, createReq *models.CreateGroupRequest, actorID int64) (*models.Group, error)

	// UpdateGroup applies a partial update; only non-nil fields are written.
	// With no fields provided it is a no-op that returns the current row.
	UpdateGroup(ctx context.Context, groupID int64, updateReq *models.UpdateGroupRequest, actorID int64) (*models.Group, error)

	// GetGroupByID retrieves a single group
	GetGroupByID(ctx context.Context, groupID int64) (*models.Group, error)

	// GetAllGroups retrieves every group ordered by name
	GetAllGroups(ctx context.Context) ([]models.Group, error)

	// GetActiveGroups retrieves groups with status 'ativo' ordered by name
	GetActiveGroups(ctx context.Context) ([]models.Group, error)

	// FindGroupsWithFilters applies the optional criteria conjunctively
	FindGroupsWithFilters(ctx context.Context, filter *models.GroupFilter) ([]models.Group, error)

	// GetRootGroups retrieves groups without a parent
	GetRootGroups(ctx context.Context) ([]models.Group, error)

	// GetSubgroups retrieves the direct children of a group (not recursive)
	GetSubgroups(ctx context.Context, groupID int64) ([]models.Group, error)

	// GetAncestryPath returns the chain from the root down to the group itself
	GetAncestryPath(ctx context.Context, groupID int64) ([]models.Group, error)

	// HasChildren reports whether the group has at least one direct subgroup
	HasChildren(ctx context.Context, groupID int64) (bool, error)

	// ValidateParentAssignment rejects self-parenting, missing parents and
	// assignments that would close a cycle in the hierarchy
	ValidateParentAssignment(ctx context.Context, groupID, parentID int64) error

	// DeactivateGroup soft-deletes a group (status flip to 'inativo')
	DeactivateGroup(ctx context.Context, groupID, actorID int64) (*models.Group, error)

	// HardDeleteGroup permanently removes a group. Blocked while the group has
	// subgroups, associated companies or associated regions.
	HardDeleteGroup(ctx context.Context, groupID int64) error

	// CountGroupsByStatus returns the dashboard aggregate per status
	CountGroupsByStatus(ctx context.Context) ([]models.StatusCount, error)
}

// GroupDao implements GroupRepository using PostgreSQL
type GroupDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const groupColumns = `id, nome, descricao, codigo, status, grupo_pai_id, created_at, created_by, updated_at, updated_by`

func scanGroup(row interface{ Scan(...interface{}) error }, g *models.Group) error {
	return row.Scan(
		&g.ID, &g.Nome, &g.Descricao, &g.Codigo, &g.Status, &g.GrupoPaiID,
		&g.CreatedAt, &g.CreatedBy, &g.UpdatedAt, &g.UpdatedBy,
	)
}

// CreateGroup validates required fields, applies defaults and persists a new
// group. The uniqueness check and the optional parent validation run inside
// the insert transaction.
func (dao *GroupDao) CreateGroup(ctx context.Context, createReq *models.CreateGroupRequest, actorID int64) (*models.Group, error) {
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
		if err := ensureUniqueCode(ctx, tx, constants.ENTITY_GRUPO, normalized, 0); err != nil {
			return nil, err
		}
	}

	if createReq.GrupoPaiID != nil {
		// A new group cannot self-parent or close a cycle yet; only the
		// parent's existence matters here.
		if err := validateParent(ctx, tx, 0, *createReq.GrupoPaiID); err != nil {
			return nil, err
		}
	}

	var group models.Group
	err = scanGroup(tx.QueryRowContext(ctx, `
		INSERT INTO cadastro.grupos (nome, descricao, codigo, status, grupo_pai_id, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+groupColumns+`
	`, createReq.Nome, createReq.Descricao, createReq.Codigo, status, createReq.GrupoPaiID, actorID), &group)

	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "CreateGroup",
			"nome":      createReq.Nome,
			"error":     err.Error(),
		}).Error("Failed to create group")
		return nil, translateDBError(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "CreateGroup",
		"group_id":  group.ID,
		"nome":      group.Nome,
		"actor_id":  actorID,
	}).Info("Successfully created group")

	return &group, nil
}

// UpdateGroup applies a partial update. Code uniqueness and parent assignment
// are re-validated inside the update transaction.
func (dao *GroupDao) UpdateGroup(ctx context.Context, groupID int64, updateReq *models.UpdateGroupRequest, actorID int64) (*models.Group, error) {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if updateReq.Codigo != nil {
		normalized := util.NormalizeCode(*updateReq.Codigo)
		updateReq.Codigo = &normalized
		if err := ensureUniqueCode(ctx, tx, constants.ENTITY_GRUPO, normalized, groupID); err != nil {
			return nil, err
		}
	}
	if updateReq.GrupoPaiID != nil {
		if err := validateParent(ctx, tx, groupID, *updateReq.GrupoPaiID); err != nil {
			return nil, err
		}
	}

	// Build dynamic update query based on provided fields
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
	if updateReq.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *updateReq.Status)
		argIndex++
	}
	if updateReq.RemoverGrupoPai {
		setParts = append(setParts, "grupo_pai_id = NULL")
	} else if updateReq.GrupoPaiID != nil {
		setParts = append(setParts, fmt.Sprintf("grupo_pai_id = $%d", argIndex))
		args = append(args, *updateReq.GrupoPaiID)
		argIndex++
	}

	// No provided fields: no-op that still returns the current row.
	if len(setParts) == 2 {
		var current models.Group
		err = scanGroup(tx.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM cadastro.grupos WHERE id = $1`, groupID), &current)
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get group: %w", err)
		}
		return &current, nil
	}

	args = append(args, groupID)
	query := fmt.Sprintf(`
		UPDATE cadastro.grupos
		SET %s
		WHERE id = $%d
		RETURNING `+groupColumns+`
	`, strings.Join(setParts, ", "), argIndex)

	var updated models.Group
	err = scanGroup(tx.QueryRowContext(ctx, query, args...), &updated)
	if err == sql.ErrNoRows {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "UpdateGroup",
			"group_id":  groupID,
		}).Warn("Group not found for update")
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "UpdateGroup",
			"group_id":  groupID,
			"error":     err.Error(),
		}).Error("Failed to update group")
		return nil, translateDBError(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "UpdateGroup",
		"group_id":  updated.ID,
		"actor_id":  actorID,
	}).Info("Successfully updated group")

	return &updated, nil
}

// GetGroupByID retrieves a specific group by ID
func (dao *GroupDao) GetGroupByID(ctx context.Context, groupID int64) (*models.Group, error) {
	var group models.Group
	err := scanGroup(dao.DB.QueryRowContext(ctx, `
		SELECT `+groupColumns+` FROM cadastro.grupos WHERE id = $1
	`, groupID), &group)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "GetGroupByID",
			"group_id":  groupID,
			"error":     err.Error(),
		}).Error("Failed to get group")
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}

func (dao *GroupDao) queryGroups(ctx context.Context, operation, query string, args ...interface{}) ([]models.Group, error) {
	rows, err := dao.DB.QueryContext(ctx, query, args...)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err.Error(),
		}).Error("Failed to query groups")
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := scanGroup(rows, &g); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}
	return groups, nil
}

// GetAllGroups retrieves every group ordered by display name
func (dao *GroupDao) GetAllGroups(ctx context.Context) ([]models.Group, error) {
	return dao.queryGroups(ctx, "GetAllGroups", `
		SELECT `+groupColumns+` FROM cadastro.grupos ORDER BY nome ASC
	`)
}

// GetActiveGroups retrieves groups with status 'ativo'
func (dao *GroupDao) GetActiveGroups(ctx context.Context) ([]models.Group, error) {
	return dao.queryGroups(ctx, "GetActiveGroups", `
		SELECT `+groupColumns+` FROM cadastro.grupos WHERE status = $1 ORDER BY nome ASC
	`, constants.STATUS_ATIVO)
}

// FindGroupsWithFilters applies each provided criterion conjunctively;
// name matching is case-insensitive substring, the rest exact.
func (dao *GroupDao) FindGroupsWithFilters(ctx context.Context, filter *models.GroupFilter) ([]models.Group, error) {
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
	if filter.Status != "" {
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.GrupoPaiID != nil {
		whereParts = append(whereParts, fmt.Sprintf("grupo_pai_id = $%d", argIndex))
		args = append(args, *filter.GrupoPaiID)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT `+groupColumns+` FROM cadastro.grupos WHERE %s ORDER BY nome ASC
	`, strings.Join(whereParts, " AND "))

	return dao.queryGroups(ctx, "FindGroupsWithFilters", query, args...)
}

// GetRootGroups retrieves groups without a parent
func (dao *GroupDao) GetRootGroups(ctx context.Context) ([]models.Group, error) {
	return dao.queryGroups(ctx, "GetRootGroups", `
		SELECT `+groupColumns+` FROM cadastro.grupos WHERE grupo_pai_id IS NULL ORDER BY nome ASC
	`)
}

// GetSubgroups retrieves the direct children of a group
func (dao *GroupDao) GetSubgroups(ctx context.Context, groupID int64) ([]models.Group, error) {
	return dao.queryGroups(ctx, "GetSubgroups", `
		SELECT `+groupColumns+` FROM cadastro.grupos WHERE grupo_pai_id = $1 ORDER BY nome ASC
	`, groupID)
}

// GetAncestryPath returns the chain from the root group down to the group
// itself, for hierarchy display.
func (dao *GroupDao) GetAncestryPath(ctx context.Context, groupID int64) ([]models.Group, error) {
	path, err := dao.queryGroups(ctx, "GetAncestryPath", `
		WITH RECURSIVE caminho AS (
			SELECT g.id, g.nome, g.descricao, g.codigo, g.status, g.grupo_pai_id,
			       g.created_at, g.created_by, g.updated_at, g.updated_by, 0 AS profundidade
			FROM cadastro.grupos g
			WHERE g.id = $1
			UNION ALL
			SELECT g.id, g.nome, g.descricao, g.codigo, g.status, g.grupo_pai_id,
			       g.created_at, g.created_by, g.updated_at, g.updated_by, c.profundidade + 1
			FROM cadastro.grupos g
			JOIN caminho c ON g.id = c.grupo_pai_id
		)
		SELECT id, nome, descricao, codigo, status, grupo_pai_id,
		       created_at, created_by, updated_at, updated_by
		FROM caminho
		ORDER BY profundidade DESC
	`, groupID)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, ErrNotFound
	}
	return path, nil
}

// HasChildren reports whether the group has at least one direct subgroup
func (dao *GroupDao) HasChildren(ctx context.Context, groupID int64) (bool, error) {
	var exists bool
	err := dao.DB.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM cadastro.grupos WHERE grupo_pai_id = $1)
	`, groupID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for subgroups: %w", err)
	}
	return exists, nil
}

// ValidateParentAssignment validates a proposed parent for a group without
// writing anything. The same check runs again inside the update transaction.
func (dao *GroupDao) ValidateParentAssignment(ctx context.Context, groupID, parentID int64) error {
	return validateParent(ctx, dao.DB, groupID, parentID)
}

// validateParent is the transaction-aware hierarchy guard. groupID 0 means
// "new group, not yet persisted": only the parent's existence is checked.
// Otherwise the full ancestor chain of the parent is walked; finding groupID
// there means the assignment would close a loop.
func validateParent(ctx context.Context, q dbtx, groupID, parentID int64) error {
	if groupID != 0 && parentID == groupID {
		return ErrSelfParent
	}

	var parentExists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM cadastro.grupos WHERE id = $1)
	`, parentID).Scan(&parentExists)
	if err != nil {
		return fmt.Errorf("failed to check parent group: %w", err)
	}
	if !parentExists {
		return ErrParentNotFound
	}

	if groupID == 0 {
		return nil
	}

	var cycle bool
	err = q.QueryRowContext(ctx, `
		WITH RECURSIVE ancestrais AS (
			SELECT id, grupo_pai_id FROM cadastro.grupos WHERE id = $1
			UNION ALL
			SELECT g.id, g.grupo_pai_id
			FROM cadastro.grupos g
			JOIN ancestrais a ON g.id = a.grupo_pai_id
		)
		SELECT EXISTS (SELECT 1 FROM ancestrais WHERE id = $2)
	`, parentID, groupID).Scan(&cycle)
	if err != nil {
		return fmt.Errorf("failed to walk ancestor chain: %w", err)
	}
	if cycle {
		return ErrCycleDetected
	}
	return nil
}

// DeactivateGroup soft-deletes a group by flipping its status to 'inativo'.
// Soft deletion is reversible and needs no dependent checks.
func (dao *GroupDao) DeactivateGroup(ctx context.Context, groupID, actorID int64) (*models.Group, error) {
	var group models.Group
	err := scanGroup(dao.DB.QueryRowContext(ctx, `
		UPDATE cadastro.grupos
		SET status = $1, updated_by = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING `+groupColumns+`
	`, constants.STATUS_INATIVO, actorID, groupID), &group)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "DeactivateGroup",
			"group_id":  groupID,
			"error":     err.Error(),
		}).Error("Failed to deactivate group")
		return nil, fmt.Errorf("failed to deactivate group: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "DeactivateGroup",
		"group_id":  groupID,
		"actor_id":  actorID,
	}).Info("Successfully deactivated group")

	return &group, nil
}

// HardDeleteGroup permanently removes a group. The dependent-existence checks
// and the delete share one transaction; the guard never removes dependents
// itself, so the caller must re-parent or remove them first.
func (dao *GroupDao) HardDeleteGroup(ctx context.Context, groupID int64) error {
	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var hasChildren, hasCompanies, hasRegions bool
	err = tx.QueryRowContext(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM cadastro.grupos   WHERE grupo_pai_id = $1),
			EXISTS (SELECT 1 FROM cadastro.empresas WHERE grupo_id = $1),
			EXISTS (SELECT 1 FROM cadastro.regioes  WHERE grupo_id = $1)
	`, groupID).Scan(&hasChildren, &hasCompanies, &hasRegions)
	if err != nil {
		return fmt.Errorf("failed to check group dependents: %w", err)
	}

	switch {
	case hasChildren:
		return ErrHasChildren
	case hasCompanies:
		return ErrHasAssociatedCompanies
	case hasRegions:
		return ErrHasAssociatedRegions
	}

	// The group's own focal points go with it; they are owned, not dependents.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM cadastro.pontos_focais WHERE owner_type = $1 AND owner_id = $2
	`, constants.OWNER_GRUPO, groupID)
	if err != nil {
		return fmt.Errorf("failed to remove group focal points: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM cadastro.grupos WHERE id = $1`, groupID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "HardDeleteGroup",
			"group_id":  groupID,
			"error":     err.Error(),
		}).Error("Failed to delete group")
		return fmt.Errorf("failed to delete group: %w", err)
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
		"operation": "HardDeleteGroup",
		"group_id":  groupID,
	}).Info("Successfully hard deleted group")

	return nil
}

// CountGroupsByStatus returns the dashboard aggregate per status
func (dao *GroupDao) CountGroupsByStatus(ctx context.Context) ([]models.StatusCount, error) {
	rows, err := dao.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM cadastro.grupos GROUP BY status ORDER BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count groups by status: %w", err)
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
