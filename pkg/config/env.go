package config

const EnvPrefix = "BILLING"

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

// Variable names quoted in validation errors.
const (
	EnvDBDriver = "DB_DRIVER"
	EnvDBPath   = "DB_PATH"
	EnvDBDSN    = "DB_DSN"
)
