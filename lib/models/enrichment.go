package models

// AddressInfo is the structured result of a CEP (postal code) lookup against
// the third-party address service. The core never validates against it; it is
// opaque enrichment data for form filling.
type AddressInfo struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento,omitempty"`
	Bairro      string `json:"bairro"`
	Cidade      string `json:"cidade"`
	Estado      string `json:"estado"`
}

// RegistryInfo is the structured result of a CNPJ lookup against the national
// company registry.
type RegistryInfo struct {
	CNPJ         string `json:"cnpj"`
	RazaoSocial  string `json:"razao_social"`
	NomeFantasia string `json:"nome_fantasia,omitempty"`
	Situacao     string `json:"situacao,omitempty"`
	CEP          string `json:"cep,omitempty"`
	Logradouro   string `json:"logradouro,omitempty"`
	Numero       string `json:"numero,omitempty"`
	Bairro       string `json:"bairro,omitempty"`
	Cidade       string `json:"cidade,omitempty"`
	Estado       string `json:"estado,omitempty"`
	Telefone     string `json:"telefone,omitempty"`
	Email        string `json:"email,omitempty"`
}
