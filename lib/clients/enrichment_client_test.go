package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestClient(viaCEP, cnpj string) *HTTPEnrichmentClient {
	return &HTTPEnrichmentClient{
		HTTP:       &http.Client{Timeout: time.Second},
		ViaCEPBase: viaCEP,
		CNPJBase:   cnpj,
	}
}

func Test_LookupCEP_Success(t *testing.T) {
	//Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/01310100/json/", r.URL.Path)
		w.Write([]byte(`{"cep":"01310-100","logradouro":"Avenida Paulista","bairro":"Bela Vista","localidade":"Sao Paulo","uf":"SP"}`))
	}))
	defer server.Close()
	client := newTestClient(server.URL, "")

	//Act
	address, err := client.LookupCEP(context.Background(), "01310-100")

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, "Avenida Paulista", address.Logradouro)
	assert.Equal(t, "Sao Paulo", address.Cidade)
	assert.Equal(t, "SP", address.Estado)
}

func Test_LookupCEP_UnknownCode(t *testing.T) {
	//Arrange
	// ViaCEP answers 200 with an erro flag for unknown codes
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"erro": true}`))
	}))
	defer server.Close()
	client := newTestClient(server.URL, "")

	//Act
	address, err := client.LookupCEP(context.Background(), "99999999")

	//Assert
	assert.Nil(t, address)
	assert.ErrorIs(t, err, ErrLookupNotFound)
}

func Test_LookupCEP_InvalidLength(t *testing.T) {
	//Arrange
	client := newTestClient("http://unused", "")

	//Act
	address, err := client.LookupCEP(context.Background(), "123")

	//Assert
	assert.Nil(t, address)
	assert.Error(t, err)
}

func Test_LookupCNPJ_Success(t *testing.T) {
	//Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345678000190", r.URL.Path)
		w.Write([]byte(`{"cnpj":"12345678000190","razao_social":"Empresa Exemplo LTDA","municipio":"Curitiba","uf":"PR"}`))
	}))
	defer server.Close()
	client := newTestClient("", server.URL)

	//Act
	registry, err := client.LookupCNPJ(context.Background(), "12.345.678/0001-90")

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, "Empresa Exemplo LTDA", registry.RazaoSocial)
	assert.Equal(t, "Curitiba", registry.Cidade)
}

func Test_LookupCNPJ_NotFound(t *testing.T) {
	//Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	client := newTestClient("", server.URL)

	//Act
	registry, err := client.LookupCNPJ(context.Background(), "12345678000190")

	//Assert
	assert.Nil(t, registry)
	assert.ErrorIs(t, err, ErrLookupNotFound)
}
