package config

import (
	"flag"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	DefaultRunAddress  = "localhost:8080"
	DefaultDatabaseURI = ""
	DefaultStorePath   = "adsduit.db"
	DefaultJWTSecret   = "supersecretkey"
	DefaultAdminHandle = "083832175672"
	DefaultAdminSecret = "admin123"
)

type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	StorePath   string `env:"STORE_PATH"`
	JWTSecret   string `env:"JWT_SECRET"`
	AdminHandle string `env:"ADMIN_HANDLE"`
	AdminSecret string `env:"ADMIN_SECRET"`
}

func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", DefaultRunAddress, "server address")
	flag.StringVar(&cfg.DatabaseURI, "d", DefaultDatabaseURI, "postgres URI (overrides the embedded store)")
	flag.StringVar(&cfg.StorePath, "f", DefaultStorePath, "embedded store file path")
	flag.StringVar(&cfg.JWTSecret, "j", DefaultJWTSecret, "jwt secret key")
	flag.StringVar(&cfg.AdminHandle, "admin-handle", DefaultAdminHandle, "administrator dana number")
	flag.StringVar(&cfg.AdminSecret, "admin-secret", DefaultAdminSecret, "administrator password")
	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
