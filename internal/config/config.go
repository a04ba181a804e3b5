package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/models"
)

type Config struct {
	HTTP_ADDR            string
	LOG_LEVEL            string
	DB_HOST              string
	DB_PORT              string
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	ES_URL               string
	ES_USER              string
	ES_PASSWORD          string
	ACCESS_TOKEN_SECRET  string
	REFRESH_TOKEN_SECRET string
	KAFKA_ADDRESS        string
	S3_REGION            string
	S3_ACCESS_KEY        string
	S3_SECRET_KEY        string
	S3_ENDPOINT          string
	S3_BUCKET            string
	S3_PUBLIC_URL        string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		HTTP_ADDR:            getenvDefault("HTTP_ADDR", ":8080"),
		LOG_LEVEL:            getenvDefault("LOG_LEVEL", "info"),
		DB_HOST:              os.Getenv("DB_HOST"),
		DB_PORT:              os.Getenv("DB_PORT"),
		DB_USER:              os.Getenv("DB_USER"),
		DB_PASSWORD:          os.Getenv("DB_PASSWORD"),
		DB_NAME:              os.Getenv("DB_NAME"),
		ES_URL:               os.Getenv("ES_URL"),
		ES_USER:              os.Getenv("ES_USER"),
		ES_PASSWORD:          os.Getenv("ES_PASSWORD"),
		ACCESS_TOKEN_SECRET:  os.Getenv("ACCESS_TOKEN_SECRET"),
		REFRESH_TOKEN_SECRET: os.Getenv("REFRESH_TOKEN_SECRET"),
		KAFKA_ADDRESS:        os.Getenv("KAFKA_ADDRESS"),
		S3_REGION:            getenvDefault("S3_REGION", "us-east-1"),
		S3_ACCESS_KEY:        os.Getenv("S3_ACCESS_KEY"),
		S3_SECRET_KEY:        os.Getenv("S3_SECRET_KEY"),
		S3_ENDPOINT:          os.Getenv("S3_ENDPOINT"),
		S3_BUCKET:            os.Getenv("S3_BUCKET"),
		S3_PUBLIC_URL:        os.Getenv("S3_PUBLIC_URL"),
	}

	if config.ACCESS_TOKEN_SECRET == "" || config.REFRESH_TOKEN_SECRET == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}

	return config, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	// TranslateError is load-bearing: the toggle engine keys off
	// gorm.ErrDuplicatedKey from the triple's unique index.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.RelationEdge{},
		&models.Video{},
		&models.Comment{},
		&models.WatchEntry{},
		&models.Playlist{},
		&models.PlaylistVideo{},
	); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	return db, nil
}
