package constants

const (
	ALLOWED_ORIGINS        = "/cadastro/ALLOWED_ORIGINS"
	DATABASE_RDS_PROXY_URL = "/cadastro/DATABASE_RDS_PROXY_URL"
	DATABASE_RDS_ENDPOINT  = "/cadastro/DATABASE_RDS_ENDPOINT"
	DATABASE_PORT          = "/cadastro/DATABASE_PORT"
	DATABASE_NAME          = "/cadastro/DATABASE_NAME"
	DATABASE_USERNAME      = "/cadastro/DATABASE_USERNAME"
	DATABASE_PASSWORD      = "/cadastro/DATABASE_PASSWORD"
	SSL_MODE               = "/cadastro/SSL_MODE"
	COGNITO_USER_POOL_ID   = "/cadastro/COGNITO_USER_POOL_ID"
	DRIVER_NAME            = "postgres"
)

// Entity status values stored in the legacy database (Portuguese).
const (
	STATUS_ATIVO   = "ativo"
	STATUS_INATIVO = "inativo"
)

// User roles. ROLE_ADMIN is the only role allowed to hard-delete.
const (
	ROLE_ADMIN    = "admin"
	ROLE_GESTOR   = "gestor"
	ROLE_CONSULTA = "consulta"
)

// Focal point owner kinds (pontos_focais.owner_type).
const (
	OWNER_GRUPO   = "grupo"
	OWNER_EMPRESA = "empresa"
)

// Establishment types (empresas.tipo_estabelecimento).
const (
	ESTABELECIMENTO_MATRIZ = "matriz"
	ESTABELECIMENTO_FILIAL = "filial"
)

// Entity types accepted by the code uniqueness validator.
const (
	ENTITY_GRUPO             = "grupo"
	ENTITY_REGIAO            = "regiao"
	ENTITY_EMPRESA           = "empresa"
	ENTITY_EMPRESA_INSCRICAO = "empresa_inscricao"
)
