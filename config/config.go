package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	APP_URL      string
	CORS_ORIGINS string
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL      string
	REDIS_PASSWORD string
	REDIS_DB       string
	// Object storage (DigitalOcean Spaces or any S3 endpoint)
	DO_SPACES_ACCESS_KEY string
	DO_SPACES_SECRET_KEY string
	DO_SPACES_BUCKET     string
	DO_SPACES_REGION     string
	DO_SPACES_ENDPOINT   string
	DO_SPACES_CDN_URL    string
	// Local upload fallback
	UPLOAD_DIR      string
	PUBLIC_BASE_URL string
	// RabbitMQ
	RABBITMQ_URL      string
	RABBITMQ_EXCHANGE string
	RABBITMQ_QUEUE    string
	// Notification fan-out
	FANOUT_BATCH_SIZE int
}

// SpacesConfigured reports whether S3 credentials are present
func (e *EnviornmentVariable) SpacesConfigured() bool {
	return e.DO_SPACES_ACCESS_KEY != "" && e.DO_SPACES_SECRET_KEY != "" && e.DO_SPACES_BUCKET != ""
}

// IsProduction reports whether GO_ENV is production
func (e *EnviornmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	batchSize, err := strconv.Atoi(os.Getenv("FANOUT_BATCH_SIZE"))
	if err != nil || batchSize <= 0 {
		batchSize = 500
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getOrDefault("DB_HOST", "localhost"),
		DB_PORT:      getOrDefault("DB_PORT", "5432"),
		DB_SSL_MODE:  getOrDefault("DB_SSL_MODE", "disable"),
		PORT:         port,
		APP_URL:      getOrDefault("APP_URL", "http://localhost:3000"),
		CORS_ORIGINS: getOrDefault("CORS_ORIGINS", "http://localhost:3000"),
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getOrDefault("JWT_ISSUER", "course-market"),
		// Redis
		REDIS_URL:      os.Getenv("REDIS_URL"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       os.Getenv("REDIS_DB"),
		// Spaces
		DO_SPACES_ACCESS_KEY: os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY: os.Getenv("DO_SPACES_SECRET_KEY"),
		DO_SPACES_BUCKET:     os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:     getOrDefault("DO_SPACES_REGION", "sgp1"),
		DO_SPACES_ENDPOINT:   getOrDefault("DO_SPACES_ENDPOINT", "sgp1.digitaloceanspaces.com"),
		DO_SPACES_CDN_URL:    os.Getenv("DO_SPACES_CDN_URL"),
		// Local uploads
		UPLOAD_DIR:      getOrDefault("UPLOAD_DIR", "./uploads"),
		PUBLIC_BASE_URL: os.Getenv("PUBLIC_BASE_URL"),
		// RabbitMQ
		RABBITMQ_URL:      os.Getenv("RABBITMQ_URL"),
		RABBITMQ_EXCHANGE: getOrDefault("RABBITMQ_EXCHANGE", "course_market.events"),
		RABBITMQ_QUEUE:    getOrDefault("RABBITMQ_QUEUE", "course_market.mailer"),
		FANOUT_BATCH_SIZE: batchSize,
	}

	if envVariables.PUBLIC_BASE_URL == "" {
		envVariables.PUBLIC_BASE_URL = "http://localhost:" + strconv.Itoa(port)
	}

	return envVariables, nil
}

func getOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
