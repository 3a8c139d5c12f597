package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cadastro/lib/models"
	"cadastro/lib/util"
)

// ErrLookupNotFound means the external registry has no record for the given
// key. Callers return 404 rather than 502 on it.
var ErrLookupNotFound = errors.New("lookup returned no record")

// EnrichmentClient resolves external reference data used to pre-fill company
// forms. Results are advisory; nothing in the repositories validates against
// them.
type EnrichmentClient interface {
	// LookupCEP resolves a Brazilian postal code to a street address
	LookupCEP(ctx context.Context, cep string) (*models.AddressInfo, error)

	// LookupCNPJ resolves a company registration number to its registry record
	LookupCNPJ(ctx context.Context, cnpj string) (*models.RegistryInfo, error)
}

// HTTPEnrichmentClient implements EnrichmentClient against the public ViaCEP
// and BrasilAPI endpoints.
type HTTPEnrichmentClient struct {
	HTTP       *http.Client
	ViaCEPBase string
	CNPJBase   string
}

func NewEnrichmentClient() *HTTPEnrichmentClient {
	return &HTTPEnrichmentClient{
		HTTP:       &http.Client{Timeout: 5 * time.Second},
		ViaCEPBase: "https://viacep.com.br/ws",
		CNPJBase:   "https://brasilapi.com.br/api/cnpj/v1",
	}
}

type viaCEPResponse struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        bool   `json:"erro"`
}

// LookupCEP resolves a postal code via ViaCEP. The input may carry the usual
// 00000-000 mask; only the digits are sent.
func (c *HTTPEnrichmentClient) LookupCEP(ctx context.Context, cep string) (*models.AddressInfo, error) {
	digits := util.OnlyDigits(cep)
	if len(digits) != 8 {
		return nil, fmt.Errorf("cep must have 8 digits, got %d", len(digits))
	}

	url := fmt.Sprintf("%s/%s/json/", c.ViaCEPBase, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cep request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cep lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cep lookup returned status %d", resp.StatusCode)
	}

	var payload viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode cep response: %w", err)
	}
	// ViaCEP answers 200 with {"erro": true} for unknown codes
	if payload.Erro {
		return nil, ErrLookupNotFound
	}

	return &models.AddressInfo{
		CEP:         payload.CEP,
		Logradouro:  payload.Logradouro,
		Complemento: payload.Complemento,
		Bairro:      payload.Bairro,
		Cidade:      payload.Localidade,
		Estado:      payload.UF,
	}, nil
}

type cnpjResponse struct {
	CNPJ         string `json:"cnpj"`
	RazaoSocial  string `json:"razao_social"`
	NomeFantasia string `json:"nome_fantasia"`
	Situacao     string `json:"descricao_situacao_cadastral"`
	CEP          string `json:"cep"`
	Logradouro   string `json:"logradouro"`
	Numero       string `json:"numero"`
	Bairro       string `json:"bairro"`
	Municipio    string `json:"municipio"`
	UF           string `json:"uf"`
	Telefone     string `json:"ddd_telefone_1"`
	Email        string `json:"email"`
}

// LookupCNPJ resolves a registration number via BrasilAPI.
func (c *HTTPEnrichmentClient) LookupCNPJ(ctx context.Context, cnpj string) (*models.RegistryInfo, error) {
	digits := util.OnlyDigits(cnpj)
	if len(digits) != 14 {
		return nil, fmt.Errorf("cnpj must have 14 digits, got %d", len(digits))
	}

	url := fmt.Sprintf("%s/%s", c.CNPJBase, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cnpj request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cnpj lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrLookupNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cnpj lookup returned status %d", resp.StatusCode)
	}

	var payload cnpjResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode cnpj response: %w", err)
	}

	return &models.RegistryInfo{
		CNPJ:         payload.CNPJ,
		RazaoSocial:  payload.RazaoSocial,
		NomeFantasia: payload.NomeFantasia,
		Situacao:     payload.Situacao,
		CEP:          payload.CEP,
		Logradouro:   payload.Logradouro,
		Numero:       payload.Numero,
		Bairro:       payload.Bairro,
		Cidade:       payload.Municipio,
		Estado:       payload.UF,
		Telefone:     payload.Telefone,
		Email:        payload.Email,
	}, nil
}
