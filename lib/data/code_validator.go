package data

import (
	"context"
	"database/sql"
	"fmt"

	"cadastro/lib/constants"
	"cadastro/lib/util"

	"github.com/sirupsen/logrus"
)

// CodeValidator checks business-code uniqueness before a write. It is a pure
// read; the unique indexes in the database remain the final backstop under
// concurrent writers (a duplicate-key failure is translated to the same
// ErrCodeConflict by translateDBError).
type CodeValidator interface {
	// EnsureUnique returns nil when no other row of entityType holds code.
	// excludeID lets an update re-save its own unchanged code; pass 0 on create.
	EnsureUnique(ctx context.Context, entityType, code string, excludeID int64) error
}

// CodeValidatorDao implements CodeValidator using PostgreSQL
type CodeValidatorDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

func (dao *CodeValidatorDao) EnsureUnique(ctx context.Context, entityType, code string, excludeID int64) error {
	err := ensureUniqueCode(ctx, dao.DB, entityType, code, excludeID)
	if err != nil && err != ErrCodeConflict {
		dao.Logger.WithFields(logrus.Fields{
			"operation":   "EnsureUnique",
			"entity_type": entityType,
			"error":       err.Error(),
		}).Error("Failed to check code uniqueness")
	}
	return err
}

// ensureUniqueCode is the transaction-aware core of the validator; the entity
// repositories call it on their own *sql.Tx.
func ensureUniqueCode(ctx context.Context, q dbtx, entityType, code string, excludeID int64) error {
	code = util.NormalizeCode(code)
	if code == "" {
		return nil
	}

	var table, column string
	switch entityType {
	case constants.ENTITY_GRUPO:
		table, column = "cadastro.grupos", "codigo"
	case constants.ENTITY_REGIAO:
		table, column = "cadastro.regioes", "codigo"
	case constants.ENTITY_EMPRESA:
		table, column = "cadastro.empresas", "codigo"
	case constants.ENTITY_EMPRESA_INSCRICAO:
		table, column = "cadastro.empresas", "numero_inscricao"
	default:
		return fmt.Errorf("unknown entity type %q", entityType)
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1 AND id <> $2 LIMIT 1`, table, column)

	var id int64
	err := q.QueryRowContext(ctx, query, code, excludeID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check %s uniqueness: %w", column, err)
	}
	return ErrCodeConflict
}
