package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Env holds secrets and deployment settings read from the environment.
type Env struct {
	GroqAPIKey string `env:"GROQ_API_KEY" env-description:"API key for the chat completion endpoint"`
	AppEnv     string `env:"KOPRA_ENV" env-default:"development" env-description:"development or production"`
	LogLevel   string `env:"KOPRA_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	DBPath     string `env:"KOPRA_DB_PATH" env-description:"SQLite database path"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Env{}, fmt.Errorf("read env: %w", err)
	}
	env.AppEnv = strings.ToLower(strings.TrimSpace(env.AppEnv))
	if env.AppEnv != EnvProduction {
		env.AppEnv = EnvDevelopment
	}
	if env.DBPath == "" {
		env.DBPath = DefaultDBPath()
	}
	return env, nil
}

// Production reports whether the production environment is selected.
func (e Env) Production() bool {
	return e.AppEnv == EnvProduction
}

// DefaultAddr returns the listen address for the environment.
func (e Env) DefaultAddr() string {
	if e.Production() {
		return ":5000"
	}
	return ":5001"
}

// EnvUsage describes the environment variables.
func EnvUsage() string {
	var env Env
	usage, err := cleanenv.GetDescription(&env, nil)
	if err != nil {
		return ""
	}
	return usage
}
