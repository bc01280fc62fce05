// FILE: env.go
// Package main – Environment helpers and .env loading.
//
// loadBotEnv wraps github.com/joho/godotenv the way ChoSanghyuk-blackholedex's
// cmd/main.go and yohannesjx-sniperterminal's config/loader.go do: a
// best-effort Load() (a missing .env is not fatal) followed by plain
// os.Getenv reads with defaults. Only infra knobs are read this way —
// BotConfig itself comes from the StateStore (see config.go, store.go).
package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// loadBotEnv best-effort loads ./.env and ../.env into the process
// environment. Existing environment variables are never overridden.
func loadBotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
