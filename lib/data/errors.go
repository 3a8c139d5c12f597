package data

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Domain failure kinds returned by the repositories. Handlers distinguish them
// with errors.Is so every blocking condition renders an actionable message
// instead of a generic "operation failed".
var (
	// ErrNotFound means the referenced id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrCodeConflict means the business code (codigo / numero_inscricao) is
	// already taken by another row of the same entity type.
	ErrCodeConflict = errors.New("code already in use")

	// ErrSelfParent means a group was assigned itself as parent.
	ErrSelfParent = errors.New("group cannot be its own parent")

	// ErrParentNotFound means the proposed parent group does not exist.
	ErrParentNotFound = errors.New("parent group not found")

	// ErrCycleDetected means the proposed parent is a descendant of the group,
	// so the assignment would close a loop in the hierarchy.
	ErrCycleDetected = errors.New("parent assignment would create a cycle")

	// ErrHasChildren blocks hard-deleting a group with direct subgroups.
	ErrHasChildren = errors.New("group has subgroups")

	// ErrHasAssociatedCompanies blocks hard-deleting a group referenced by companies.
	ErrHasAssociatedCompanies = errors.New("group has associated companies")

	// ErrHasAssociatedRegions blocks hard-deleting a group referenced by regions.
	ErrHasAssociatedRegions = errors.New("group has associated regions")

	// ErrRegionInUse blocks deleting a region referenced by companies.
	ErrRegionInUse = errors.New("region is referenced by companies")
)

// ValidationError reports a required or malformed field. It is returned as a
// value so callers can compose several checks before deciding.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PostgreSQL error codes the repositories care about.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// checkConstraintFields maps each CHECK constraint to the field it guards, so
// a rejected enum value reports the offending field instead of a raw driver
// error.
var checkConstraintFields = map[string]string{
	"grupos_status_check":                 "status",
	"regioes_status_check":                "status",
	"empresas_status_check":               "status",
	"empresas_tipo_estabelecimento_check": "tipo_estabelecimento",
	"usuarios_role_check":                 "role",
	"usuarios_status_check":               "status",
	"pontos_focais_owner_type_check":      "owner_type",
}

// translateDBError converts storage-level constraint failures into domain
// failure kinds so a duplicate-key race surfaces as ErrCodeConflict exactly
// once, never as an opaque driver error. Unknown errors pass through and are
// treated as storage failures by the caller.
func translateDBError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pgUniqueViolation:
		if pqErr.Constraint == "pontos_focais_principal_unico" {
			return newValidationError("principal", "owner already has a principal focal point")
		}
		return ErrCodeConflict

	case pgForeignKeyViolation:
		switch pqErr.Constraint {
		case "grupos_grupo_pai_id_fkey":
			return ErrParentNotFound
		case "regioes_grupo_id_fkey":
			return newValidationError("grupo_id", "referenced group does not exist")
		case "empresas_grupo_id_fkey":
			return newValidationError("grupo_id", "referenced group does not exist")
		case "empresas_regiao_id_fkey":
			return newValidationError("regiao_id", "referenced region does not exist")
		}

	case pgCheckViolation:
		field := checkConstraintFields[pqErr.Constraint]
		if field == "" {
			field = pqErr.Constraint
		}
		return newValidationError(field, "value not allowed")
	}
	return err
}

// isUniqueViolation reports whether err is a duplicate-key failure on the
// given constraint; used by the bounded retry loop of the company code
// generator.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pgUniqueViolation && pqErr.Constraint == constraint
}
