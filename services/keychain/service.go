// Package keychain persists scraper credentials in sqlite so the daemon
// can re-establish sessions across restarts without operator input.
package keychain

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	configsqlite "orgassist-backend/lib/configutil/sqlite"
)

//go:embed schema.sql
var schema string

var ErrNotFound = errors.New("no credentials stored under that key")

type LoginPassword struct {
	AccountId string
	Password  string
}

type Service struct {
	db *sql.DB
}

func NewService(config configsqlite.Struct) (*Service, error) {
	db, err := config.OpenDB(schema)
	if err != nil {
		return nil, fmt.Errorf("open keychain database: %w", err)
	}
	return &Service{db: db}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

func (s *Service) SetLoginPassword(ctx context.Context, namespace, id string, creds LoginPassword) error {
	_, err := s.db.ExecContext(
		ctx,
		`insert into login_password (namespace, id, account_id, password)
		values (?, ?, ?, ?)
		on conflict (namespace, id) do update set
			account_id = excluded.account_id,
			password = excluded.password`,
		namespace, id, creds.AccountId, creds.Password,
	)
	return err
}

func (s *Service) GetLoginPassword(ctx context.Context, namespace, id string) (LoginPassword, error) {
	var creds LoginPassword
	err := s.db.QueryRowContext(
		ctx,
		`select account_id, password from login_password
		where namespace = ? and id = ?`,
		namespace, id,
	).Scan(&creds.AccountId, &creds.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return LoginPassword{}, ErrNotFound
	}
	if err != nil {
		return LoginPassword{}, err
	}
	return creds, nil
}

func (s *Service) SetCookie(ctx context.Context, namespace, id, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`insert into cookie (namespace, id, value)
		values (?, ?, ?)
		on conflict (namespace, id) do update set value = excluded.value`,
		namespace, id, value,
	)
	return err
}

func (s *Service) GetCookie(ctx context.Context, namespace, id string) (string, error) {
	var value string
	err := s.db.QueryRowContext(
		ctx,
		`select value from cookie where namespace = ? and id = ?`,
		namespace, id,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
