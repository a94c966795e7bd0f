// Package config loads typed configuration structs from the environment,
// with an optional .env file for local development.
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var loadEnvOnce sync.Once

// Load fills a config struct of type T from environment variables with the
// given prefix. A .env file in the working directory is read once per process
// if present; a missing file is not an error.
func Load[T any](prefix string) (*T, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// MustLoad is Load, panicking on error. Meant for main.
func MustLoad[T any](prefix string) *T {
	conf, err := Load[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}
