package config

// EnvPrefix is the envconfig prefix applied to every variable.
const EnvPrefix = "PROFFMUSIC"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv  = "PROFFMUSIC_APP_ENV"
	EnvAppPort = "PROFFMUSIC_APP_PORT"
	EnvDBDSN   = "PROFFMUSIC_DB_DSN"
	EnvDBHost  = "PROFFMUSIC_DB_HOST"
	EnvDBUser  = "PROFFMUSIC_DB_USER"
	EnvDBName  = "PROFFMUSIC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
