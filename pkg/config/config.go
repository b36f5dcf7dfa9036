package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Business BusinessConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type BusinessConfig struct {
	// TaxRate is applied to each order subtotal at submission time.
	TaxRate float64
	// OrderNumberPrefix prefixes generated daily order numbers.
	OrderNumberPrefix string
}

// Load reads configuration from the environment, consulting a .env file
// first when one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		return nil, err
	}

	rmqPort, err := strconv.Atoi(getEnv("RABBITMQ_PORT", "5672"))
	if err != nil {
		return nil, err
	}

	taxRate, err := strconv.ParseFloat(getEnv("TAX_RATE", "0.10"), 64)
	if err != nil {
		return nil, err
	}

	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DBNAME", "mesa"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     rmqPort,
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
		},
		Business: BusinessConfig{
			TaxRate:           taxRate,
			OrderNumberPrefix: getEnv("ORDER_NUMBER_PREFIX", "ORD"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
