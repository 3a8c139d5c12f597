package models

import (
	"time"
)

// FocalPoint represents a named contact attached to a group or a company
// (tabela pontos_focais). The same shape serves both owners; owner_type is
// 'grupo' or 'empresa'. For a given owner at most one row has principal=true.
type FocalPoint struct {
	ID          int64     `json:"id"`
	OwnerType   string    `json:"owner_type"`
	OwnerID     int64     `json:"owner_id"`
	Nome        string    `json:"nome"`
	Funcao      *string   `json:"funcao,omitempty"`
	Descricao   *string   `json:"descricao,omitempty"`
	Observacoes *string   `json:"observacoes,omitempty"`
	Telefone    *string   `json:"telefone,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Principal   bool      `json:"principal"`
	Ordem       int       `json:"ordem"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   int64     `json:"created_by"`
	UpdatedAt   time.Time `json:"updated_at"`
	UpdatedBy   int64     `json:"updated_by"`
}

// FocalPointInput is one entry of a replace-all payload. A nil Ordem means
// "use the position in the submitted list".
type FocalPointInput struct {
	Nome        string  `json:"nome"`
	Funcao      *string `json:"funcao,omitempty"`
	Descricao   *string `json:"descricao,omitempty"`
	Observacoes *string `json:"observacoes,omitempty"`
	Telefone    *string `json:"telefone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Principal   bool    `json:"principal"`
	Ordem       *int    `json:"ordem,omitempty"`
}

// ReplaceFocalPointsRequest replaces the owner's whole list. An empty list
// removes every focal point of the owner.
type ReplaceFocalPointsRequest struct {
	PontosFocais []FocalPointInput `json:"pontos_focais"`
}

// SetPrincipalRequest elects one focal point as principal. A nil ID clears the
// principal flag for every focal point of the owner.
type SetPrincipalRequest struct {
	ID *int64 `json:"id"`
}

// FocalPointListResponse represents the response for listing focal points
type FocalPointListResponse struct {
	PontosFocais []FocalPoint `json:"pontos_focais"`
	Total        int          `json:"total"`
}
