// Package auth manages the authenticated session against the hosted
// identity service: email/password sign-in and sign-up, token refresh, and
// a persisted session so the CLI survives restarts. It is the token source
// for both the API client and the realtime store.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"igait-client/internal/domain"
	"igait-client/pkg/result"
)

const (
	defaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL    = "https://securetoken.googleapis.com/v1/token"

	// refreshSlack renews tokens slightly before their server-side expiry.
	refreshSlack = time.Minute
)

type session struct {
	User         domain.User `json:"user"`
	IDToken      string      `json:"id_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// Store holds the current session and notifies watchers when it changes.
// All methods are safe for concurrent use.
type Store struct {
	apiKey      string
	identityURL string
	tokenURL    string
	sessionPath string
	http        *http.Client
	logger      *zap.Logger
	now         func() time.Time

	mu          sync.RWMutex
	session     *session
	watchers    map[int]func(result.Option[domain.User])
	nextWatcher int
}

// New builds a Store, restoring any persisted session from sessionPath.
// An empty sessionPath disables persistence.
func New(apiKey, sessionPath string, logger *zap.Logger) *Store {
	s := &Store{
		apiKey:      apiKey,
		identityURL: defaultIdentityURL,
		tokenURL:    defaultTokenURL,
		sessionPath: sessionPath,
		http:        &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		now:         time.Now,
		watchers:    map[int]func(result.Option[domain.User]){},
	}

	if restored, err := loadSession(sessionPath); err != nil {
		logger.Warn("failed to restore session", zap.Error(err))
	} else if restored != nil {
		s.session = restored
	}

	return s
}

// State labels the session lifecycle. Restoring the persisted session is
// synchronous, so a constructed Store is never observed mid-load.
type State string

const (
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

// CurrentUser returns the signed-in user, if any.
func (s *Store) CurrentUser() result.Option[domain.User] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return result.None[domain.User]()
	}
	return result.Some(s.session.User)
}

// OnAuthStateChanged registers a watcher invoked with the current user on
// every sign-in, sign-out, and registration. The watcher fires immediately
// with the present state. The returned function detaches it.
func (s *Store) OnAuthStateChanged(fn func(result.Option[domain.User])) func() {
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	current := result.None[domain.User]()
	if s.session != nil {
		current = result.Some(s.session.User)
	}
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// SignInWithEmail authenticates with email and password.
func (s *Store) SignInWithEmail(ctx context.Context, email, password string) result.Result[domain.User] {
	return s.authenticate(ctx, "accounts:signInWithPassword", email, password, "Sign in failed")
}

// SignUpWithEmail registers a new account and signs it in.
func (s *Store) SignUpWithEmail(ctx context.Context, email, password string) result.Result[domain.User] {
	return s.authenticate(ctx, "accounts:signUp", email, password, "Sign up failed")
}

func (s *Store) authenticate(ctx context.Context, endpoint, email, password, contextMsg string) result.Result[domain.User] {
	payload := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var reply struct {
		LocalID      string `json:"localId"`
		Email        string `json:"email"`
		DisplayName  string `json:"displayName"`
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}
	if err := s.postIdentity(ctx, endpoint, payload, &reply); err != nil {
		return result.Err[domain.User](err.WithContext(contextMsg))
	}

	user := domain.User{
		UID:         reply.LocalID,
		Email:       reply.Email,
		DisplayName: reply.DisplayName,
	}
	s.install(&session{
		User:         user,
		IDToken:      reply.IDToken,
		RefreshToken: reply.RefreshToken,
		ExpiresAt:    s.expiry(reply.ExpiresIn),
	})

	s.logger.Info("signed in", zap.String("uid", user.UID))
	return result.Ok(user)
}

// SignOut drops the session and removes its persisted copy.
func (s *Store) SignOut() error {
	s.install(nil)
	s.logger.Info("signed out")
	return clearSession(s.sessionPath)
}

// IDToken returns a valid token for the signed-in user, refreshing it when
// it is at or near expiry. Without a session it fails with
// "No authenticated user".
func (s *Store) IDToken(ctx context.Context) result.Result[string] {
	s.mu.RLock()
	current := s.session
	s.mu.RUnlock()

	if current == nil {
		return result.Errf[string]("No authenticated user")
	}
	if s.now().Before(current.ExpiresAt.Add(-refreshSlack)) {
		return result.Ok(current.IDToken)
	}
	return s.refresh(ctx, current)
}

func (s *Store) refresh(ctx context.Context, current *session) result.Result[string] {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {current.RefreshToken},
	}

	endpoint := s.tokenURL + "?key=" + url.QueryEscape(s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		bytes.NewBufferString(form.Encode()))
	if err != nil {
		return result.Err[string](result.From(err).WithContext("Token refresh failed"))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return result.Err[string](result.From(err).WithContext("Token refresh failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result.Err[string](readAPIError(resp).WithContext("Token refresh failed"))
	}

	var reply struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return result.Err[string](result.From(err).WithContext("Token refresh failed"))
	}

	refreshed := *current
	refreshed.IDToken = reply.IDToken
	refreshed.RefreshToken = reply.RefreshToken
	refreshed.ExpiresAt = s.expiry(reply.ExpiresIn)
	s.install(&refreshed)

	return result.Ok(reply.IDToken)
}

func (s *Store) postIdentity(ctx context.Context, endpoint string, payload any, reply any) *result.AppError {
	body, err := json.Marshal(payload)
	if err != nil {
		return result.From(err)
	}

	requestURL := s.identityURL + "/" + endpoint + "?key=" + url.QueryEscape(s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return result.From(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return result.Newf("Network error - please check your connection")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(reply); err != nil {
		return result.From(err)
	}
	return nil
}

// readAPIError maps the identity service's error codes onto messages fit
// for display.
func readAPIError(resp *http.Response) *result.AppError {
	var reply struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(data, &reply)

	switch reply.Error.Message {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return result.Newf("Invalid email or password")
	case "EMAIL_EXISTS":
		return result.Newf("An account with this email already exists")
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return result.Newf("Too many attempts - please try again later")
	case "USER_DISABLED":
		return result.Newf("This account has been disabled")
	case "WEAK_PASSWORD : Password should be at least 6 characters":
		return result.Newf("Password should be at least 6 characters")
	case "":
		return result.Newf("Server error (%d)", resp.StatusCode)
	}
	return result.Newf("Server error (%d): %s", resp.StatusCode, reply.Error.Message)
}

// install swaps the current session, persists it, and notifies watchers.
func (s *Store) install(next *session) {
	s.mu.Lock()
	s.session = next
	watchers := make([]func(result.Option[domain.User]), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	if next != nil {
		if err := saveSession(s.sessionPath, next); err != nil {
			s.logger.Warn("failed to persist session", zap.Error(err))
		}
	}

	state := result.None[domain.User]()
	if next != nil {
		state = result.Some(next.User)
	}
	for _, fn := range watchers {
		fn(state)
	}
}

func (s *Store) expiry(expiresIn string) time.Time {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	return s.now().Add(time.Duration(seconds) * time.Second)
}

