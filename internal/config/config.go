package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Ledger   LedgerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// LedgerConfig holds token ledger and escrow settings. The owner acts as the
// workflow admin; the custody address holds every escrowed amount.
type LedgerConfig struct {
	TokenSymbol    string
	OwnerAddress   string
	CustodyAddress string
	FaucetAddress  string
	FaucetAmount   int64
	InitialSupply  int64
	Decimals       int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "favor_market"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ledger: LedgerConfig{
			TokenSymbol:    getEnv("LEDGER_TOKEN_SYMBOL", "FVR"),
			OwnerAddress:   getEnv("LEDGER_OWNER_ADDRESS", ""),
			CustodyAddress: getEnv("LEDGER_CUSTODY_ADDRESS", ""),
			FaucetAddress:  getEnv("LEDGER_FAUCET_ADDRESS", ""),
			FaucetAmount:   getEnvInt64("LEDGER_FAUCET_AMOUNT", 100),
			InitialSupply:  getEnvInt64("LEDGER_INITIAL_SUPPLY", 1000000),
			Decimals:       int(getEnvInt64("LEDGER_DECIMALS", 8)),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Ledger.OwnerAddress == "" {
		return nil, fmt.Errorf("LEDGER_OWNER_ADDRESS is required")
	}

	if config.Ledger.CustodyAddress == "" {
		return nil, fmt.Errorf("LEDGER_CUSTODY_ADDRESS is required")
	}

	if config.Ledger.FaucetAddress == "" {
		config.Ledger.FaucetAddress = config.Ledger.OwnerAddress
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt64 gets a numeric environment variable with a fallback default
func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
