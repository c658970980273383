// Package config provides type-safe environment variable loading with
// per-type caching using Go generics.
//
// The package loads a .env file on first use and parses environment
// variables into struct fields through the caarlos0/env library.
//
// Basic usage:
//
//	type AppConfig struct {
//		Addr    string        `env:"SERVER_ADDR" envDefault:":8080"`
//		MaxAge  time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`
//		Secrets string        `env:"COOKIE_SECRETS,required"`
//	}
//
//	var cfg AppConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Each configuration type is loaded once per process; subsequent Load
// calls for the same type return the cached value.
package config
