package config

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	PasswordParam string `yaml:"password_param"` // SSM parameter name, prod only
	DBName        string `yaml:"dbname"`
	SSLMode       string `yaml:"sslmode"`
	TimeZone      string `yaml:"timezone"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	CreateDatabase  bool          `yaml:"create_database"`
}

// DSN builds a key/value connection string for the configured database.
func (cfg PostgresConfig) DSN() string {
	return cfg.dsn(cfg.DBName)
}

// AdminDSN connects to the maintenance database, used before the target exists.
func (cfg PostgresConfig) AdminDSN() string {
	return cfg.dsn("postgres")
}

func (cfg PostgresConfig) dsn(dbName string) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, dbName, sslMode,
	)
	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}
	return dsn
}

// ResolveSecrets replaces the Postgres password with the SSM parameter value
// when running in prod and a parameter name is configured.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	if !c.IsProd() || c.Postgres.PasswordParam == "" {
		return nil
	}
	v, err := ParameterValue(ctx, c.Postgres.PasswordParam, true)
	if err != nil {
		return fmt.Errorf("postgres password: %w", err)
	}
	c.Postgres.Password = v
	return nil
}

// ParameterValue reads a single value from AWS SSM Parameter Store.
func ParameterValue(ctx context.Context, name string, decrypt bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(awsCfg)
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return *out.Parameter.Value, nil
}
