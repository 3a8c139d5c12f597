package models

import (
	"time"
)

// Company represents the leaf business entity (tabela empresas). Every company
// belongs to exactly one group and one region; both references are
// restrict-on-delete. Codigo is auto-assigned from the EMP sequence when the
// caller omits it.
type Company struct {
	ID                  int64     `json:"id"`
	Codigo              *string   `json:"codigo,omitempty"`
	RazaoSocial         string    `json:"razao_social"`
	NomeFantasia        *string   `json:"nome_fantasia,omitempty"`
	TipoEstabelecimento string    `json:"tipo_estabelecimento"`
	TipoInscricao       *string   `json:"tipo_inscricao,omitempty"`
	NumeroInscricao     *string   `json:"numero_inscricao,omitempty"`
	CEP                 *string   `json:"cep,omitempty"`
	Logradouro          *string   `json:"logradouro,omitempty"`
	Numero              *string   `json:"numero,omitempty"`
	Complemento         *string   `json:"complemento,omitempty"`
	Bairro              *string   `json:"bairro,omitempty"`
	Cidade              *string   `json:"cidade,omitempty"`
	Estado              *string   `json:"estado,omitempty"`
	Telefone            *string   `json:"telefone,omitempty"`
	Email               *string   `json:"email,omitempty"`
	RepresentanteNome   *string   `json:"representante_nome,omitempty"`
	RepresentanteCPF    *string   `json:"representante_cpf,omitempty"`
	RepresentanteEmail  *string   `json:"representante_email,omitempty"`
	Status              string    `json:"status"`
	GrupoID             int64     `json:"grupo_id"`
	RegiaoID            int64     `json:"regiao_id"`
	CreatedAt           time.Time `json:"created_at"`
	CreatedBy           int64     `json:"created_by"`
	UpdatedAt           time.Time `json:"updated_at"`
	UpdatedBy           int64     `json:"updated_by"`

	// PontosFocais is loaded on every fetch; it is not a column.
	PontosFocais []FocalPoint `json:"pontos_focais"`
}

// CreateCompanyRequest represents the request payload for creating a new company
type CreateCompanyRequest struct {
	Codigo              *string `json:"codigo,omitempty"`
	RazaoSocial         string  `json:"razao_social"`
	NomeFantasia        *string `json:"nome_fantasia,omitempty"`
	TipoEstabelecimento string  `json:"tipo_estabelecimento,omitempty"`
	TipoInscricao       *string `json:"tipo_inscricao,omitempty"`
	NumeroInscricao     *string `json:"numero_inscricao,omitempty"`
	CEP                 *string `json:"cep,omitempty"`
	Logradouro          *string `json:"logradouro,omitempty"`
	Numero              *string `json:"numero,omitempty"`
	Complemento         *string `json:"complemento,omitempty"`
	Bairro              *string `json:"bairro,omitempty"`
	Cidade              *string `json:"cidade,omitempty"`
	Estado              *string `json:"estado,omitempty"`
	Telefone            *string `json:"telefone,omitempty"`
	Email               *string `json:"email,omitempty"`
	RepresentanteNome   *string `json:"representante_nome,omitempty"`
	RepresentanteCPF    *string `json:"representante_cpf,omitempty"`
	RepresentanteEmail  *string `json:"representante_email,omitempty"`
	Status              string  `json:"status,omitempty"`
	GrupoID             int64   `json:"grupo_id"`
	RegiaoID            int64   `json:"regiao_id"`
}

// UpdateCompanyRequest represents a partial update: only non-nil fields are written.
type UpdateCompanyRequest struct {
	Codigo              *string `json:"codigo,omitempty"`
	RazaoSocial         *string `json:"razao_social,omitempty"`
	NomeFantasia        *string `json:"nome_fantasia,omitempty"`
	TipoEstabelecimento *string `json:"tipo_estabelecimento,omitempty"`
	TipoInscricao       *string `json:"tipo_inscricao,omitempty"`
	NumeroInscricao     *string `json:"numero_inscricao,omitempty"`
	CEP                 *string `json:"cep,omitempty"`
	Logradouro          *string `json:"logradouro,omitempty"`
	Numero              *string `json:"numero,omitempty"`
	Complemento         *string `json:"complemento,omitempty"`
	Bairro              *string `json:"bairro,omitempty"`
	Cidade              *string `json:"cidade,omitempty"`
	Estado              *string `json:"estado,omitempty"`
	Telefone            *string `json:"telefone,omitempty"`
	Email               *string `json:"email,omitempty"`
	RepresentanteNome   *string `json:"representante_nome,omitempty"`
	RepresentanteCPF    *string `json:"representante_cpf,omitempty"`
	RepresentanteEmail  *string `json:"representante_email,omitempty"`
	Status              *string `json:"status,omitempty"`
	GrupoID             *int64  `json:"grupo_id,omitempty"`
	RegiaoID            *int64  `json:"regiao_id,omitempty"`
}

// CompanyFilter holds the optional search criteria for companies.
type CompanyFilter struct {
	RazaoSocial         string
	NomeFantasia        string
	Codigo              string
	NumeroInscricao     string
	TipoEstabelecimento string
	Cidade              string
	Estado              string
	Status              string
	GrupoID             *int64
	RegiaoID            *int64
}

// CompanyListResponse represents the response for listing companies
type CompanyListResponse struct {
	Empresas []Company `json:"empresas"`
	Total    int       `json:"total"`
}

// StatusCount is a dashboard aggregate row (count of entities per status).
type StatusCount struct {
	Status string `json:"status"`
	Total  int64  `json:"total"`
}

// GroupCount is a dashboard aggregate row (count of companies per group).
type GroupCount struct {
	GrupoID int64 `json:"grupo_id"`
	Total   int64 `json:"total"`
}

// RegionCount is a dashboard aggregate row (count of companies per region).
type RegionCount struct {
	RegiaoID int64 `json:"regiao_id"`
	Total    int64 `json:"total"`
}
