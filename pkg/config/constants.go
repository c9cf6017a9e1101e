package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv = "THIEPCUOI_APP_ENV"
	EnvDBDSN  = "THIEPCUOI_DB_DSN"
	EnvDBHost = "THIEPCUOI_DB_HOST"
	EnvDBUser = "THIEPCUOI_DB_USER"
	EnvDBName = "THIEPCUOI_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
