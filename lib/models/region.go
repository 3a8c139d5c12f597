package models

import (
	"time"
)

// Region represents a geographic/administrative grouping (tabela regioes),
// optionally scoped to a group. A region with a grupo_id is not part of that
// group's child tree; the link is informational.
type Region struct {
	ID        int64     `json:"id"`
	Nome      string    `json:"nome"`
	Descricao *string   `json:"descricao,omitempty"`
	Codigo    *string   `json:"codigo,omitempty"`
	Estado    *string   `json:"estado,omitempty"`
	Cidade    *string   `json:"cidade,omitempty"`
	GrupoID   *int64    `json:"grupo_id,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy int64     `json:"created_by"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy int64     `json:"updated_by"`
}

// CreateRegionRequest represents the request payload for creating a new region
type CreateRegionRequest struct {
	Nome      string  `json:"nome"`
	Descricao *string `json:"descricao,omitempty"`
	Codigo    *string `json:"codigo,omitempty"`
	Estado    *string `json:"estado,omitempty"`
	Cidade    *string `json:"cidade,omitempty"`
	GrupoID   *int64  `json:"grupo_id,omitempty"`
	Status    string  `json:"status,omitempty"`
}

// UpdateRegionRequest represents a partial update: only non-nil fields are
// written. RemoverGrupo clears the grupo_id link.
type UpdateRegionRequest struct {
	Nome         *string `json:"nome,omitempty"`
	Descricao    *string `json:"descricao,omitempty"`
	Codigo       *string `json:"codigo,omitempty"`
	Estado       *string `json:"estado,omitempty"`
	Cidade       *string `json:"cidade,omitempty"`
	GrupoID      *int64  `json:"grupo_id,omitempty"`
	RemoverGrupo bool    `json:"remover_grupo,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// RegionFilter holds the optional search criteria for regions.
type RegionFilter struct {
	Nome    string
	Codigo  string
	Estado  string
	Cidade  string
	Status  string
	GrupoID *int64
}

// RegionListResponse represents the response for listing regions
type RegionListResponse struct {
	Regioes []Region `json:"regioes"`
	Total   int      `json:"total"`
}
