package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// RemoteConfig holds connection settings for the hosted auth backend.
type RemoteConfig struct {
	BaseURL string
	AnonKey string
	Timeout time.Duration
}

// Remote talks to a GoTrue-compatible auth endpoint (the auth layer of the
// hosted backend). It keeps the active session in memory; a process restart
// starts anonymous and the bootstrapper re-resolves on the next login.
type Remote struct {
	cfg    RemoteConfig
	client *http.Client
	logger *zap.SugaredLogger

	mu        sync.Mutex
	session   *Session
	listeners map[int]func(AuthEvent, *Session)
	nextID    int
}

func NewRemote(cfg RemoteConfig, logger *zap.SugaredLogger) *Remote {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		cfg:       cfg,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		listeners: make(map[int]func(AuthEvent, *Session)),
	}
}

// tokenResponse is the backend's session payload. expires_in is seconds;
// some deployments omit it, in which case the access token's exp claim is
// authoritative.
type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   int64      `json:"expires_in"`
	User        remoteUser `json:"user"`
}

type remoteUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt string         `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}

type remoteError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e remoteError) text() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	default:
		return e.Message
	}
}

func (u remoteUser) identity() Identity {
	return Identity{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != "",
		Metadata:       u.UserMetadata,
		CreatedAt:      u.CreatedAt,
	}
}

func (r *Remote) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error) {
	body := map[string]any{"email": email, "password": password, "data": metadata}
	var resp struct {
		tokenResponse
		remoteUser
	}
	if err := r.do(ctx, http.MethodPost, "/auth/v1/signup", body, "", &resp); err != nil {
		return nil, err
	}

	// A session in the response means confirmation is off and the account is
	// signed in immediately.
	if resp.AccessToken != "" {
		sess := r.storeSession(resp.tokenResponse)
		r.dispatch(EventSignedIn, sess)
		return &SignUpResult{User: sess.User, NeedsConfirmation: false}, nil
	}
	return &SignUpResult{User: resp.remoteUser.identity(), NeedsConfirmation: true}, nil
}

func (r *Remote) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]any{"email": email, "password": password}
	var resp tokenResponse
	if err := r.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, "", &resp); err != nil {
		return nil, err
	}
	sess := r.storeSession(resp)
	r.dispatch(EventSignedIn, sess)
	copied := *sess
	return &copied, nil
}

func (r *Remote) SignOut(ctx context.Context) error {
	r.mu.Lock()
	sess := r.session
	r.session = nil
	r.mu.Unlock()
	if sess == nil {
		return nil
	}

	// Best effort: the local session is gone either way.
	if err := r.do(ctx, http.MethodPost, "/auth/v1/logout", nil, sess.AccessToken, nil); err != nil {
		r.logger.Warnw("backend sign-out failed", "err", err)
	}
	r.dispatch(EventSignedOut, nil)
	return nil
}

func (r *Remote) CurrentSession(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	sess := *r.session
	return &sess, nil
}

func (r *Remote) UpdateMetadata(ctx context.Context, changes map[string]any) error {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()
	if sess == nil {
		return fmt.Errorf("update metadata: no active session")
	}

	// The backend merges metadata, so removed keys must be sent as explicit
	// nulls rather than omitted.
	merged := make(map[string]any, len(sess.User.Metadata)+len(changes))
	for k, v := range sess.User.Metadata {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}

	var updated remoteUser
	if err := r.do(ctx, http.MethodPut, "/auth/v1/user", map[string]any{"data": merged}, sess.AccessToken, &updated); err != nil {
		return err
	}

	r.mu.Lock()
	if r.session != nil && r.session.User.ID == updated.ID {
		r.session.User = updated.identity()
	}
	r.mu.Unlock()
	return nil
}

func (r *Remote) OnAuthChange(fn func(event AuthEvent, session *Session)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Remote) storeSession(tok tokenResponse) *Session {
	expiresAt := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if tok.ExpiresIn == 0 {
		expiresAt = tokenExpiry(tok.AccessToken)
	}
	sess := &Session{
		AccessToken: tok.AccessToken,
		ExpiresAt:   expiresAt,
		User:        tok.User.identity(),
	}
	r.mu.Lock()
	r.session = sess
	r.mu.Unlock()
	return sess
}

// tokenExpiry reads the exp claim without verifying the signature; the token
// was just issued by the backend over TLS and is only inspected for its
// lifetime.
func tokenExpiry(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Now().Add(time.Hour)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Now().Add(time.Hour)
	}
	return exp.Time
}

func (r *Remote) dispatch(event AuthEvent, session *Session) {
	r.mu.Lock()
	fns := make([]func(AuthEvent, *Session), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

func (r *Remote) do(ctx context.Context, method, path string, body any, bearer string, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(r.cfg.BaseURL, "/")+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", r.cfg.AnonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+r.cfg.AnonKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr remoteError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return mapRemoteError(resp.StatusCode, apiErr.text())
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// mapRemoteError folds backend error payloads onto the provider sentinels so
// callers can branch without string matching. Unknown errors pass through
// with the backend's message intact.
func mapRemoteError(status int, msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not confirmed"):
		return ErrEmailNotConfirmed
	case strings.Contains(lower, "already registered"):
		return ErrEmailTaken
	case strings.Contains(lower, "password"):
		return ErrWeakPassword
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return ErrInvalidCredentials
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return fmt.Errorf("auth backend: %s", msg)
	}
}
