package models

import (
	"time"
)

// Group represents a node in the organizational hierarchy (tabela grupos).
// The grupo_pai_id relation over all groups must form a forest; the repository
// rejects any parent assignment that would introduce a cycle.
type Group struct {
	ID         int64     `json:"id"`
	Nome       string    `json:"nome"`
	Descricao  *string   `json:"descricao,omitempty"`
	Codigo     *string   `json:"codigo,omitempty"`
	Status     string    `json:"status"`
	GrupoPaiID *int64    `json:"grupo_pai_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  int64     `json:"created_by"`
	UpdatedAt  time.Time `json:"updated_at"`
	UpdatedBy  int64     `json:"updated_by"`
}

// CreateGroupRequest represents the request payload for creating a new group
type CreateGroupRequest struct {
	Nome       string  `json:"nome"`
	Descricao  *string `json:"descricao,omitempty"`
	Codigo     *string `json:"codigo,omitempty"`
	Status     string  `json:"status,omitempty"`
	GrupoPaiID *int64  `json:"grupo_pai_id,omitempty"`
}

// UpdateGroupRequest represents a partial update: only non-nil fields are
// written. RemoverGrupoPai clears the parent (a nil GrupoPaiID alone means
// "leave the parent unchanged").
type UpdateGroupRequest struct {
	Nome            *string `json:"nome,omitempty"`
	Descricao       *string `json:"descricao,omitempty"`
	Codigo          *string `json:"codigo,omitempty"`
	Status          *string `json:"status,omitempty"`
	GrupoPaiID      *int64  `json:"grupo_pai_id,omitempty"`
	RemoverGrupoPai bool    `json:"remover_grupo_pai,omitempty"`
}

// GroupFilter holds the optional search criteria for groups. Provided fields
// are AND-combined; name matching is substring, the rest exact.
type GroupFilter struct {
	Nome       string
	Codigo     string
	Status     string
	GrupoPaiID *int64
}

// GroupListResponse represents the response for listing groups
type GroupListResponse struct {
	Grupos []Group `json:"grupos"`
	Total  int     `json:"total"`
}
