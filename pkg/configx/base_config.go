package configx

// Config - config interface.
type Config interface {
	GetServiceName() string
	GetVersion() string
	GetEnvironment() string
	GetLoggingConfig() *LoggingConfig
	GetDatabaseConfig() *DatabaseConfig
	IsLocalEnvironment() bool
}

// BaseConfig - app config struct.
// This struct represents the base configuration for the library and is expected to be in the following YAML format:
/*
name: "TestApp"
environment: "development"
version: "1.0"
logging:
  level: "debug"
database:
  host: "localhost"
  port: 5432
  name: "main-db"
  user: "postgres"
  password: "password"
  maxConn: 4
*/
type BaseConfig struct {
	Name        string          `mapstructure:"name"`
	Environment string          `mapstructure:"environment"`
	Version     string          `mapstructure:"version"`
	Logging     *LoggingConfig  `mapstructure:"logging"`
	Database    *DatabaseConfig `mapstructure:"database"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig - connection properties for the database the executor talks to.
// The password is carried here and nowhere else; error messages must never include it.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int32  `mapstructure:"port" validate:"gte=0"`
	Name     string `mapstructure:"name" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	MaxConn  int32  `mapstructure:"maxConn" validate:"gte=1"`
}

func (cfg BaseConfig) GetServiceName() string {
	return cfg.Name
}

func (cfg BaseConfig) GetVersion() string {
	return cfg.Version
}

func (cfg BaseConfig) GetEnvironment() string {
	return cfg.Environment
}

func (cfg BaseConfig) IsLocalEnvironment() bool {
	return checkIfLocalEnv(cfg.Environment)
}

func (cfg BaseConfig) GetLoggingConfig() *LoggingConfig {
	return cfg.Logging
}

func (cfg BaseConfig) GetDatabaseConfig() *DatabaseConfig {
	return cfg.Database
}
