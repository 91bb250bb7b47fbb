package main

import (
	"net/http"

	configsqlite "orgassist-backend/lib/configutil/sqlite"
	"orgassist-backend/services/keychain"
)

type KeychainConfig struct {
	Database configsqlite.Struct `json:"database"`
}

func InitKeychain(mux *http.ServeMux, cfg KeychainConfig) (*keychain.Service, error) {
	if cfg.Database.File == "" {
		cfg.Database.File = "keychain.db"
	}
	service, err := keychain.NewService(cfg.Database)
	if err != nil {
		return nil, err
	}
	service.RegisterHandlers(mux)
	return service, nil
}
