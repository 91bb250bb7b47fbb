package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"orgassist-backend/services/keychain"
	"orgassist-backend/services/organizer"
)

type OrganizerConfig struct {
	BaseUrl              string `json:"base_url"`
	IntervalSeconds      int    `json:"interval_seconds"`
	ApprovalPauseSeconds int    `json:"approval_pause_seconds"`
	// which keychain entry holds the organizer credentials
	CredentialId string `json:"credential_id"`
	// start watching immediately instead of waiting for a start request
	Autostart bool `json:"autostart"`
}

const credentialNamespace = "showroom"

// keychainSource adapts the keychain into the organizer's credential
// source. A stored cookie wins over a stored password.
type keychainSource struct {
	keychain *keychain.Service
	id       string
}

func (s keychainSource) Credentials(ctx context.Context) (organizer.Credentials, error) {
	cookie, err := s.keychain.GetCookie(ctx, credentialNamespace, s.id)
	if err == nil {
		return organizer.Credentials{Cookie: cookie}, nil
	}
	if !errors.Is(err, keychain.ErrNotFound) {
		return organizer.Credentials{}, err
	}

	creds, err := s.keychain.GetLoginPassword(ctx, credentialNamespace, s.id)
	if err != nil {
		return organizer.Credentials{}, err
	}
	return organizer.Credentials{
		AccountId: creds.AccountId,
		Password:  creds.Password,
	}, nil
}

func InitOrganizer(ctx context.Context, mux *http.ServeMux, cfg OrganizerConfig, kc *keychain.Service) error {
	if cfg.CredentialId == "" {
		cfg.CredentialId = "default"
	}

	service := organizer.NewService(ctx, organizer.Options{
		BaseUrl:       cfg.BaseUrl,
		Interval:      time.Duration(cfg.IntervalSeconds) * time.Second,
		ApprovalPause: time.Duration(cfg.ApprovalPauseSeconds) * time.Second,
	})
	source := keychainSource{keychain: kc, id: cfg.CredentialId}
	service.RegisterHandlers(mux, source)

	if cfg.Autostart {
		err := service.StartFromSource(ctx, source)
		if err != nil {
			// stay up so the operator can fix credentials and start
			// over the control surface
			slog.Error("autostart failed", "err", err)
		}
	}
	return nil
}
