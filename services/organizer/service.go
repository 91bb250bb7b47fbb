// Package organizer runs the unattended approval watcher: one session,
// one polling loop, per-cycle reports for whoever is watching.
package organizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"orgassist-backend/lib/scrapers/showroom"
	"orgassist-backend/lib/timezone"
)

// Credentials is either an account_id/password pair or a pre-captured
// browser cookie string. When both are present the cookie wins, it's
// cheaper to validate.
type Credentials struct {
	AccountId string `json:"account_id"`
	Password  string `json:"password"`
	Cookie    string `json:"cookie"`
}

// CredentialSource is whatever supplies credentials from outside the
// core, typically the keychain service.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

type Failure struct {
	RoomId  string `json:"room_id,omitempty"`
	EventId string `json:"event_id,omitempty"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
}

// CycleReport sums up one scan-and-approve pass. Reports are ephemeral,
// they live in a short ring for the status endpoint and are gone on
// restart.
type CycleReport struct {
	Time     time.Time `json:"time"`
	Found    int       `json:"found"`
	Approved int       `json:"approved"`
	Failures []Failure `json:"failures,omitempty"`
}

const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateStopped = "stopped"
)

type Status struct {
	State     string        `json:"state"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	Recent    []CycleReport `json:"recent,omitempty"`
}

type Options struct {
	// defaults to the live showroom url, tests point this at a fake
	BaseUrl string
	// wall-clock spacing between cycle starts
	Interval time.Duration
	// pause after every approval attempt
	ApprovalPause time.Duration
}

const (
	DefaultInterval      = time.Second * 300
	DefaultApprovalPause = time.Second * 3

	recentReportLimit = 20
)

var (
	ErrAlreadyRunning = errors.New("the watcher is already running")
	ErrNoCredentials  = errors.New("no usable credentials: need a cookie string or account_id and password")
)

type Service struct {
	opts Options
	// watcher goroutines live under this context, not under whatever
	// request context Start happened to be called with
	baseCtx context.Context

	mu sync.Mutex
	// guards the establishment window so two concurrent Start calls
	// can't both pass the idle check and spawn two watchers
	starting  bool
	state     string
	cancel    context.CancelFunc
	lastErr   string
	startedAt time.Time
	recent    []CycleReport
	// bumped on every Start so a stale watcher winding down can't
	// clobber the state of the run that replaced it
	run int

	reports chan CycleReport
}

func NewService(ctx context.Context, opts Options) *Service {
	if opts.BaseUrl == "" {
		opts.BaseUrl = showroom.DefaultBaseUrl
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ApprovalPause == 0 {
		opts.ApprovalPause = DefaultApprovalPause
	}
	return &Service{
		opts:    opts,
		baseCtx: ctx,
		state:   StateIdle,
		reports: make(chan CycleReport, 16),
	}
}

// Reports streams one CycleReport per completed cycle. A slow consumer
// loses reports rather than stalling the watcher.
func (s *Service) Reports() <-chan CycleReport {
	return s.reports
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		State:     s.state,
		LastError: s.lastErr,
		Recent:    slices.Clone(s.recent),
	}
	if !s.startedAt.IsZero() {
		startedAt := s.startedAt
		status.StartedAt = &startedAt
	}
	return status
}

func (s *Service) establish(ctx context.Context, creds Credentials) (*showroom.Client, error) {
	client, err := showroom.NewClient(showroom.ClientOptions{BaseUrl: s.opts.BaseUrl})
	if err != nil {
		return nil, err
	}

	if creds.Cookie != "" {
		client.SeedCookies(creds.Cookie)
		slog.InfoContext(ctx, "seeded session from cookie string, probing admin page")
		err = client.CheckSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("cookie session: %w", err)
		}
		return client, nil
	}

	if creds.AccountId == "" || creds.Password == "" {
		return nil, ErrNoCredentials
	}
	slog.InfoContext(ctx, "logging in", "account_id", creds.AccountId)
	err = client.LoginPassword(ctx, creds.AccountId, creds.Password)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Start establishes the session once and launches the watcher. An
// establishment failure is fatal: the error is surfaced, the state moves
// straight to stopped and no scan ever runs.
func (s *Service) Start(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	if s.state == StateRunning || s.starting {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.starting = true
	s.mu.Unlock()

	client, err := s.establish(ctx, creds)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.state = StateStopped
		s.lastErr = err.Error()
		s.mu.Unlock()
		slog.ErrorContext(ctx, "session establishment failed, watcher stopped", "err", err)
		return err
	}

	runCtx, cancel := context.WithCancel(s.baseCtx)
	s.state = StateRunning
	s.cancel = cancel
	s.startedAt = timezone.Now()
	s.lastErr = ""
	s.recent = nil
	s.run++
	run := s.run
	s.mu.Unlock()

	go s.watch(runCtx, run, client)
	return nil
}

// StartFromSource pulls credentials from the configured source first.
func (s *Service) StartFromSource(ctx context.Context, source CredentialSource) error {
	creds, err := source.Credentials(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	return s.Start(ctx, creds)
}

// Stop signals the watcher to wind down. The signal is only honored at
// cycle boundaries, an in-flight cycle of approvals always completes.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

// RegisterHandlers exposes the start/stop toggle and the status surface.
// `source` may be nil, in which case start requests must carry their own
// credentials.
func (s *Service) RegisterHandlers(mux *http.ServeMux, source CredentialSource) {
	mux.HandleFunc("POST /organizer/start", func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		if r.ContentLength > 0 {
			err := json.NewDecoder(r.Body).Decode(&creds)
			if err != nil {
				writeJson(w, http.StatusBadRequest, errorBody{Error: err.Error()})
				return
			}
		}

		var err error
		if creds == (Credentials{}) && source != nil {
			err = s.StartFromSource(r.Context(), source)
		} else {
			err = s.Start(r.Context(), creds)
		}
		switch {
		case errors.Is(err, ErrAlreadyRunning):
			writeJson(w, http.StatusConflict, errorBody{Error: err.Error()})
			return
		case errors.Is(err, ErrNoCredentials):
			writeJson(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		case errors.Is(err, showroom.ErrLoginRejected),
			errors.Is(err, showroom.ErrSessionExpired):
			writeJson(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
			return
		case err != nil:
			// the upstream couldn't be reached at all
			writeJson(w, http.StatusBadGateway, errorBody{Error: err.Error()})
			return
		}
		writeJson(w, http.StatusOK, s.Status())
	})

	mux.HandleFunc("POST /organizer/stop", func(w http.ResponseWriter, r *http.Request) {
		s.Stop()
		writeJson(w, http.StatusOK, s.Status())
	})

	mux.HandleFunc("GET /organizer/status", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, s.Status())
	})
}
