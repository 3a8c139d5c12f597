package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cadastro/lib/constants"
	"cadastro/lib/models"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// FocalPointRepository owns the ordered contact sub-list attached to a group
// or company. Replacing a list is delete-all-then-insert, never per-row
// diffing, and the whole replacement is one transaction.
type FocalPointRepository interface {
	// ReplaceAll deletes every focal point of the owner and inserts the given
	// list in order. An empty list leaves the owner with no focal points.
	ReplaceAll(ctx context.Context, ownerType string, ownerID int64, items []models.FocalPointInput, actorID int64) ([]models.FocalPoint, error)

	// ListForOwner returns the owner's focal points ordered by
	// (ordem ASC, principal DESC, id ASC); the tie-break matters because
	// legacy rows can share an ordem value.
	ListForOwner(ctx context.Context, ownerType string, ownerID int64) ([]models.FocalPoint, error)

	// EnsureSinglePrincipal elects principalID as the only principal of the
	// owner, demoting every other row. A nil principalID clears the flag for
	// all rows.
	EnsureSinglePrincipal(ctx context.Context, ownerType string, ownerID int64, principalID *int64, actorID int64) error

	// PromoteLegacyFocalPoints promotes each group's legacy scalar
	// ponto_focal_* columns into one focal point row. Idempotent: groups that
	// already have rows are skipped. Returns the number of promoted groups.
	PromoteLegacyFocalPoints(ctx context.Context, actorID int64) (int64, error)
}

// FocalPointDao implements FocalPointRepository using PostgreSQL
type FocalPointDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const focalPointColumns = `id, owner_type, owner_id, nome, funcao, descricao, observacoes, telefone, email, principal, ordem, created_at, created_by, updated_at, updated_by`

func scanFocalPoint(row interface{ Scan(...interface{}) error }, fp *models.FocalPoint) error {
	return row.Scan(
		&fp.ID, &fp.OwnerType, &fp.OwnerID, &fp.Nome, &fp.Funcao, &fp.Descricao,
		&fp.Observacoes, &fp.Telefone, &fp.Email, &fp.Principal, &fp.Ordem,
		&fp.CreatedAt, &fp.CreatedBy, &fp.UpdatedAt, &fp.UpdatedBy,
	)
}

func ownerTable(ownerType string) (string, error) {
	switch ownerType {
	case constants.OWNER_GRUPO:
		return "cadastro.grupos", nil
	case constants.OWNER_EMPRESA:
		return "cadastro.empresas", nil
	}
	return "", fmt.Errorf("unknown focal point owner type %q", ownerType)
}

// ReplaceAll deletes every focal point of the owner and inserts the submitted
// list in order, in one transaction: a crash can never leave the owner with a
// half-replaced list.
func (dao *FocalPointDao) ReplaceAll(ctx context.Context, ownerType string, ownerID int64, items []models.FocalPointInput, actorID int64) ([]models.FocalPoint, error) {
	table, err := ownerTable(ownerType)
	if err != nil {
		return nil, err
	}

	principals := 0
	for i, item := range items {
		if strings.TrimSpace(item.Nome) == "" {
			return nil, newValidationError(fmt.Sprintf("pontos_focais[%d].nome", i), "name is required")
		}
		if item.Principal {
			principals++
		}
	}
	if principals > 1 {
		return nil, newValidationError("pontos_focais", "at most one focal point can be principal")
	}

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var ownerExists bool
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), ownerID).Scan(&ownerExists)
	if err != nil {
		return nil, fmt.Errorf("failed to check focal point owner: %w", err)
	}
	if !ownerExists {
		return nil, ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM cadastro.pontos_focais WHERE owner_type = $1 AND owner_id = $2
	`, ownerType, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear focal points: %w", err)
	}

	result := []models.FocalPoint{}
	for i, item := range items {
		ordem := i
		if item.Ordem != nil {
			ordem = *item.Ordem
		}

		var fp models.FocalPoint
		err = scanFocalPoint(tx.QueryRowContext(ctx, `
			INSERT INTO cadastro.pontos_focais
				(owner_type, owner_id, nome, funcao, descricao, observacoes, telefone, email, principal, ordem, created_by, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
			RETURNING `+focalPointColumns+`
		`, ownerType, ownerID, item.Nome, item.Funcao, item.Descricao, item.Observacoes,
			item.Telefone, item.Email, item.Principal, ordem, actorID), &fp)
		if err != nil {
			dao.Logger.WithFields(logrus.Fields{
				"operation":  "ReplaceAll",
				"owner_type": ownerType,
				"owner_id":   ownerID,
				"error":      err.Error(),
			}).Error("Failed to insert focal point")
			return nil, translateDBError(err)
		}
		result = append(result, fp)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation":  "ReplaceAll",
		"owner_type": ownerType,
		"owner_id":   ownerID,
		"total":      len(result),
		"actor_id":   actorID,
	}).Info("Successfully replaced focal point list")

	return result, nil
}

// ListForOwner returns the owner's focal points in stable display order.
func (dao *FocalPointDao) ListForOwner(ctx context.Context, ownerType string, ownerID int64) ([]models.FocalPoint, error) {
	if _, err := ownerTable(ownerType); err != nil {
		return nil, err
	}

	rows, err := dao.DB.QueryContext(ctx, `
		SELECT `+focalPointColumns+`
		FROM cadastro.pontos_focais
		WHERE owner_type = $1 AND owner_id = $2
		ORDER BY ordem ASC, principal DESC, id ASC
	`, ownerType, ownerID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":  "ListForOwner",
			"owner_type": ownerType,
			"owner_id":   ownerID,
			"error":      err.Error(),
		}).Error("Failed to query focal points")
		return nil, fmt.Errorf("failed to query focal points: %w", err)
	}
	defer rows.Close()

	points := []models.FocalPoint{}
	for rows.Next() {
		var fp models.FocalPoint
		if err := scanFocalPoint(rows, &fp); err != nil {
			return nil, fmt.Errorf("failed to scan focal point: %w", err)
		}
		points = append(points, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating focal points: %w", err)
	}
	return points, nil
}

// loadFocalPointsForOwners fetches the lists of many owners in one query,
// keyed by owner id. Used by the company bulk fetches to avoid one query per
// row.
func loadFocalPointsForOwners(ctx context.Context, q dbtx, ownerType string, ownerIDs []int64) (map[int64][]models.FocalPoint, error) {
	byOwner := map[int64][]models.FocalPoint{}
	if len(ownerIDs) == 0 {
		return byOwner, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+focalPointColumns+`
		FROM cadastro.pontos_focais
		WHERE owner_type = $1 AND owner_id = ANY($2)
		ORDER BY ordem ASC, principal DESC, id ASC
	`, ownerType, pq.Array(ownerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query focal points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fp models.FocalPoint
		if err := scanFocalPoint(rows, &fp); err != nil {
			return nil, fmt.Errorf("failed to scan focal point: %w", err)
		}
		byOwner[fp.OwnerID] = append(byOwner[fp.OwnerID], fp)
	}
	return byOwner, rows.Err()
}

// EnsureSinglePrincipal demotes every other focal point of the owner before
// promoting the elected one, inside one transaction. The demote must run
// first: the partial unique index on (owner_type, owner_id) checks each row
// as it is written, so promoting while another row still holds the flag
// would trip it mid-statement.
func (dao *FocalPointDao) EnsureSinglePrincipal(ctx context.Context, ownerType string, ownerID int64, principalID *int64, actorID int64) error {
	if _, err := ownerTable(ownerType); err != nil {
		return err
	}

	if principalID == nil {
		_, err := dao.DB.ExecContext(ctx, `
			UPDATE cadastro.pontos_focais
			SET principal = FALSE, updated_by = $3, updated_at = CURRENT_TIMESTAMP
			WHERE owner_type = $1 AND owner_id = $2 AND principal = TRUE
		`, ownerType, ownerID, actorID)
		if err != nil {
			return fmt.Errorf("failed to clear principal flag: %w", err)
		}
		return nil
	}

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var belongs bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM cadastro.pontos_focais
			WHERE id = $1 AND owner_type = $2 AND owner_id = $3
		)
	`, *principalID, ownerType, ownerID).Scan(&belongs)
	if err != nil {
		return fmt.Errorf("failed to check focal point ownership: %w", err)
	}
	if !belongs {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE cadastro.pontos_focais
		SET principal = FALSE, updated_by = $4, updated_at = CURRENT_TIMESTAMP
		WHERE owner_type = $2 AND owner_id = $3 AND principal = TRUE AND id <> $1
	`, *principalID, ownerType, ownerID, actorID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":  "EnsureSinglePrincipal",
			"owner_type": ownerType,
			"owner_id":   ownerID,
			"error":      err.Error(),
		}).Error("Failed to demote focal points")
		return translateDBError(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE cadastro.pontos_focais
		SET principal = TRUE, updated_by = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND principal = FALSE
	`, *principalID, actorID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":  "EnsureSinglePrincipal",
			"owner_type": ownerType,
			"owner_id":   ownerID,
			"error":      err.Error(),
		}).Error("Failed to elect principal focal point")
		return translateDBError(err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation":  "EnsureSinglePrincipal",
		"owner_type": ownerType,
		"owner_id":   ownerID,
		"id":         *principalID,
		"actor_id":   actorID,
	}).Info("Successfully elected principal focal point")

	return nil
}

// PromoteLegacyFocalPoints migrates the pre-list schema: each group that still
// carries a non-empty legacy ponto_focal_nome and has no focal point rows gets
// exactly one row. Re-running never duplicates already-migrated groups.
func (dao *FocalPointDao) PromoteLegacyFocalPoints(ctx context.Context, actorID int64) (int64, error) {
	result, err := dao.DB.ExecContext(ctx, `
		INSERT INTO cadastro.pontos_focais
			(owner_type, owner_id, nome, descricao, observacoes, principal, ordem, created_by, updated_by)
		SELECT $1, g.id, g.ponto_focal_nome, g.ponto_focal_descricao, g.ponto_focal_observacoes,
		       COALESCE(g.ponto_focal_principal, FALSE), 0, $2, $2
		FROM cadastro.grupos g
		WHERE g.ponto_focal_nome IS NOT NULL
		  AND btrim(g.ponto_focal_nome) <> ''
		  AND NOT EXISTS (
			SELECT 1 FROM cadastro.pontos_focais pf
			WHERE pf.owner_type = $1 AND pf.owner_id = g.id
		  )
	`, constants.OWNER_GRUPO, actorID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "PromoteLegacyFocalPoints",
			"error":     err.Error(),
		}).Error("Failed to promote legacy focal points")
		return 0, fmt.Errorf("failed to promote legacy focal points: %w", err)
	}

	promoted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	dao.Logger.WithFields(logrus.Fields{
		"operation": "PromoteLegacyFocalPoints",
		"promoted":  promoted,
		"actor_id":  actorID,
	}).Info("Legacy focal point promotion completed")

	return promoted, nil
}
