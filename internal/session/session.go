// Package session owns the client's authentication state: the current token,
// the identity decoded from it and whether startup restoration has finished.
// It is the only writer of the token; the HTTP client reads it per request.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blognest/blognest-go/internal/apperr"
	"github.com/blognest/blognest-go/internal/crypto"
	"github.com/blognest/blognest-go/internal/model"
	"github.com/blognest/blognest-go/internal/repository"
)

var (
	ErrAlreadyInitialized = errors.New("session already initialized")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// Backend is what the manager needs from the HTTP client.
type Backend interface {
	Login(ctx context.Context, creds model.Credentials) (model.TokenResponse, error)
	CreateUser(ctx context.Context, p model.Profile) (model.User, error)
	SetBearer(token string)
	ClearBearer()
	OnUnauthorized(fn func(rejected string)) (detach func())
}

// State is an immutable snapshot of the session.
type State struct {
	Token    string
	Identity *crypto.Identity
	Loading  bool
}

// Authenticated reports whether both a token and its identity are present.
func (s State) Authenticated() bool {
	return s.Token != "" && s.Identity != nil
}

type Option func(*Manager)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager is the single source of truth for who is logged in.
type Manager struct {
	store   repository.TokenStore
	backend Backend
	now     func() time.Time
	logger  *slog.Logger
	detach  func()

	// authMu serializes login and signup. It is never held by the 401 path.
	authMu sync.Mutex

	mu          sync.Mutex
	token       string
	identity    *crypto.Identity
	loading     bool
	initialized bool
	ready       chan struct{}
	subs        map[int]func(State)
	nextSub     int
}

// New creates a Manager in the loading state and attaches it to the backend's
// 401 hook. Call Initialize once before serving protected views.
func New(store repository.TokenStore, backend Backend, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		backend: backend,
		now:     time.Now,
		logger:  slog.Default(),
		loading: true,
		ready:   make(chan struct{}),
		subs:    make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.detach = backend.OnUnauthorized(m.handleUnauthorized)
	return m
}

// Initialize restores a persisted token. A token that cannot be decoded or
// has expired is discarded exactly like a logout. Runs once; later calls
// return ErrAlreadyInitialized.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.initialized = true
	m.mu.Unlock()

	defer m.finishLoading()

	token, ok, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("stored token unreadable", "error", err)
		m.clear(ctx, "unreadable token")
		return nil
	}
	if !ok {
		return nil
	}

	id, err := crypto.DecodeIdentity(token)
	if err != nil {
		m.clear(ctx, "invalid token")
		return nil
	}
	if id.Expired(m.now()) {
		m.clear(ctx, "expired token")
		return nil
	}

	m.mu.Lock()
	m.setLocked(token, id)
	m.mu.Unlock()

	m.logger.Info("session restored", "subject", id.Subject)
	m.notify()
	return nil
}

// Login authenticates against the backend. The session changes only if every
// step succeeds: on failure it is left exactly as it was before the call.
func (m *Manager) Login(ctx context.Context, creds model.Credentials) (model.TokenResponse, error) {
	if strings.TrimSpace(creds.Email) == "" {
		return model.TokenResponse{}, apperr.Validation("Email is required")
	}
	if creds.Password == "" {
		return model.TokenResponse{}, apperr.Validation("Password is required")
	}

	m.authMu.Lock()
	defer m.authMu.Unlock()

	resp, err := m.backend.Login(ctx, creds)
	if err != nil {
		return model.TokenResponse{}, err
	}
	if resp.AccessToken == "" {
		return model.TokenResponse{}, apperr.Auth(apperr.ReasonNoToken, "", nil)
	}

	id, err := crypto.DecodeIdentity(resp.AccessToken)
	if err != nil {
		return model.TokenResponse{}, apperr.Auth(apperr.ReasonInvalidToken, "server returned an unreadable token", err)
	}
	if id.Expired(m.now()) {
		return model.TokenResponse{}, apperr.Auth(apperr.ReasonExpired, "server returned an expired token", nil)
	}

	if err := m.store.Save(ctx, resp.AccessToken); err != nil {
		return model.TokenResponse{}, err
	}

	m.mu.Lock()
	m.setLocked(resp.AccessToken, id)
	m.mu.Unlock()

	m.logger.Info("session authenticated", "subject", id.Subject)
	m.notify()
	return resp, nil
}

// Signup creates the account and logs in with the same credentials. Errors
// are *apperr.SignupError values whose Stage tells which half failed.
func (m *Manager) Signup(ctx context.Context, p model.Profile) (model.TokenResponse, error) {
	if err := validateProfile(p); err != nil {
		return model.TokenResponse{}, &apperr.SignupError{Stage: apperr.StageCreate, Err: err}
	}

	if _, err := m.backend.CreateUser(ctx, p); err != nil {
		return model.TokenResponse{}, &apperr.SignupError{Stage: apperr.StageCreate, Err: err}
	}

	resp, err := m.Login(ctx, p.Credentials())
	if err != nil {
		return model.TokenResponse{}, &apperr.SignupError{Stage: apperr.StageLogin, Err: err}
	}
	return resp, nil
}

func validateProfile(p model.Profile) error {
	switch {
	case strings.TrimSpace(p.Username) == "":
		return apperr.Validation("Username is required")
	case strings.TrimSpace(p.Email) == "":
		return apperr.Validation("Email is required")
	case strings.TrimSpace(p.Password) == "":
		return apperr.Validation("Password is required")
	}
	return nil
}

// Logout clears the persisted token and the in-memory session. Safe to call
// when already logged out.
func (m *Manager) Logout(ctx context.Context) error {
	return m.clear(ctx, "logout")
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe calls fn with a snapshot after every state change. The returned
// func removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Ready is closed once Initialize has finished.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Wait blocks until Initialize has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Require is the guard for protected views. It waits for initialization and
// returns the current identity. An identity found to be expired clears the
// session.
func (m *Manager) Require(ctx context.Context) (crypto.Identity, error) {
	if err := m.Wait(ctx); err != nil {
		return crypto.Identity{}, err
	}

	m.mu.Lock()
	id := m.identity
	m.mu.Unlock()

	if id == nil {
		return crypto.Identity{}, ErrNotAuthenticated
	}
	if id.Expired(m.now()) {
		m.clear(ctx, "expired token")
		return crypto.Identity{}, apperr.Auth(apperr.ReasonExpired, "", nil)
	}
	return *id, nil
}

// Close detaches the manager from the backend and drops all subscribers.
func (m *Manager) Close() {
	if m.detach != nil {
		m.detach()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = make(map[int]func(State))
}

// handleUnauthorized runs on every 401. A rejection of a token other than the
// current one comes from a request issued by an earlier session and is ignored.
func (m *Manager) handleUnauthorized(rejected string) {
	m.mu.Lock()
	current := m.token
	m.mu.Unlock()

	if rejected != "" && rejected != current {
		return
	}
	m.clear(context.Background(), "unauthorized")
}

func (m *Manager) clear(ctx context.Context, reason string) error {
	m.mu.Lock()
	err := m.store.Clear(ctx)
	had := m.token != ""
	m.token = ""
	m.identity = nil
	m.backend.ClearBearer()
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("clearing stored token failed", "error", err)
	}
	if had {
		m.logger.Info("session cleared", "reason", reason)
		m.notify()
	}
	return err
}

func (m *Manager) setLocked(token string, id crypto.Identity) {
	m.token = token
	m.identity = &id
	m.backend.SetBearer(token)
}

func (m *Manager) finishLoading() {
	m.mu.Lock()
	m.loading = false
	close(m.ready)
	m.mu.Unlock()

	m.notify()
}

func (m *Manager) snapshotLocked() State {
	st := State{Token: m.token, Loading: m.loading}
	if m.identity != nil {
		id := *m.identity
		st.Identity = &id
	}
	return st
}

func (m *Manager) notify() {
	m.mu.Lock()
	st := m.snapshotLocked()
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
