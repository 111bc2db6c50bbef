package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSessionTTL is the validity window applied when none is configured.
const DefaultSessionTTL = 24 * time.Hour

var errMalformedSession = errors.New("session record is missing email or login time")

// SessionManager owns the single persisted session and its lifecycle.
type SessionManager struct {
	storage     Storage
	idGenerator func() int64
	now         func() time.Time
	ttl         time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	state   SessionState
	current *Session
}

// NewSessionManager constructs a SessionManager with the provided dependencies.
func NewSessionManager(storage Storage, idGenerator func() int64, now func() time.Time, ttl time.Duration) *SessionManager {
	return NewSessionManagerWithLogger(storage, idGenerator, now, ttl, nil)
}

// NewSessionManagerWithLogger constructs a SessionManager with a specified logger.
func NewSessionManagerWithLogger(storage Storage, idGenerator func() int64, now func() time.Time, ttl time.Duration, logger *slog.Logger) *SessionManager {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewTimeIDs(now)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		storage:     storage,
		idGenerator: idGenerator,
		now:         now,
		ttl:         ttl,
		logger:      defaultLogger(logger),
		state:       StateUninitialized,
	}
}

func (m *SessionManager) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, m.logger, "SessionManager", operation, attrs...)
}

// TTL returns the validity window applied to sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// State returns the current lifecycle state without evaluating expiry.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Restore reads the persisted session record and settles the manager into
// either the authenticated or the anonymous state. Unparsable and expired
// records are discarded. A storage read failure leaves the manager anonymous
// and is returned as a *LoadError for display purposes only.
func (m *SessionManager) Restore(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("SessionManager is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoreLocked(ctx)
}

func (m *SessionManager) restoreLocked(ctx context.Context) error {
	logger := m.loggerWith(ctx, "Restore")
	m.state = StateLoading
	m.current = nil

	if m.storage == nil {
		m.state = StateAnonymous
		return nil
	}

	raw, err := m.storage.Get(ctx, SessionKey)
	if err != nil {
		m.state = StateAnonymous
		if isAbsent(err) {
			logger.DebugContext(ctx, "no persisted session")
			return nil
		}
		lErr := &LoadError{Key: SessionKey, Err: err}
		logger.ErrorContext(ctx, "failed to read session record", "error", err, "error_kind", ErrorKind(lErr))
		return lErr
	}

	session, err := decodeSession(raw)
	if err != nil {
		logger.WarnContext(ctx, "discarding invalid session record", "error", err)
		m.discardLocked(ctx, logger)
		return nil
	}

	now := m.now()
	if !session.activeAt(now, m.ttl) {
		logger.InfoContext(ctx, "session expired", "session_id", session.ID, "login_time", session.LoginTime)
		m.discardLocked(ctx, logger)
		return nil
	}

	m.current = &session
	m.state = StateAuthenticated
	logger.With("session_id", session.ID).InfoContext(ctx, "session restored")
	return nil
}

// discardLocked drops the in-memory session and the persisted record. A
// failed removal is logged only; the manager is anonymous either way.
func (m *SessionManager) discardLocked(ctx context.Context, logger *slog.Logger) {
	m.current = nil
	m.state = StateAnonymous
	if m.storage == nil {
		return
	}
	if err := m.storage.Remove(ctx, SessionKey); err != nil {
		logger.ErrorContext(ctx, "failed to remove session record", "error", err)
	}
}

// Login validates the credentials and establishes a new session, replacing
// any previous one. A failed durable write is reported as a *PersistenceError
// alongside the session, which stays active in memory.
func (m *SessionManager) Login(ctx context.Context, email, password string) (session Session, err error) {
	if m == nil {
		err = fmt.Errorf("SessionManager is nil")
		return
	}

	logger := m.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil && !IsPersistenceError(err) {
			logger.WarnContext(ctx, "login rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if err != nil {
			logger.With("session_id", session.ID).ErrorContext(ctx, "login succeeded but session was not persisted", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "login succeeded")
	}()

	if err = validateLogin(email, password); err != nil {
		return
	}

	session, err = m.establish(ctx, email)
	return
}

func validateLogin(email, password string) error {
	if email == "" || password == "" {
		return ErrMissingCredentials
	}
	if weakPassword(password) {
		return ErrWeakPassword
	}
	if email == demoEmail && password == demoPassword {
		return nil
	}
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	return nil
}

func (m *SessionManager) establish(ctx context.Context, email string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := Session{
		Email:     email,
		ID:        m.idGenerator(),
		LoginTime: stamp(m.now()),
	}
	m.current = &session
	m.state = StateAuthenticated

	if m.storage == nil {
		return session, nil
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return session, &PersistenceError{Op: "encode", Key: SessionKey, Err: err}
	}
	if err := m.storage.Set(ctx, SessionKey, string(payload)); err != nil {
		return session, &PersistenceError{Op: "save", Key: SessionKey, Err: err}
	}
	return session, nil
}

// Signup applies the registration checks and then logs in with the same
// credentials. No identity record is created.
func (m *SessionManager) Signup(ctx context.Context, email, password, confirmPassword string) (Session, error) {
	if m == nil {
		return Session{}, fmt.Errorf("SessionManager is nil")
	}

	var err error
	switch {
	case !validEmail(email):
		err = ErrInvalidEmail
	case password != confirmPassword:
		err = ErrPasswordMismatch
	case weakPassword(password):
		err = ErrWeakPassword
	}
	if err != nil {
		m.loggerWith(ctx, "Signup", "email", email).WarnContext(ctx, "signup rejected", "error", err, "error_kind", ErrorKind(err))
		return Session{}, err
	}

	return m.Login(ctx, email, password)
}

// Logout clears the session unconditionally. Calling it while anonymous is a
// no-op apart from removing any stray record.
func (m *SessionManager) Logout(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("SessionManager is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	logger := m.loggerWith(ctx, "Logout")
	if m.current != nil {
		logger = logger.With("session_id", m.current.ID)
	}
	m.current = nil
	m.state = StateAnonymous

	if m.storage == nil {
		logger.InfoContext(ctx, "logged out")
		return nil
	}
	if err := m.storage.Remove(ctx, SessionKey); err != nil {
		pErr := &PersistenceError{Op: "remove", Key: SessionKey, Err: err}
		logger.ErrorContext(ctx, "failed to remove session record", "error", err, "error_kind", ErrorKind(pErr))
		return pErr
	}
	logger.InfoContext(ctx, "logged out")
	return nil
}

// CurrentSession returns the active session. Expiry is evaluated against the
// clock on every call and an expired session is discarded on the spot.
func (m *SessionManager) CurrentSession(ctx context.Context) (Session, bool) {
	if m == nil {
		return Session{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateUninitialized {
		_ = m.restoreLocked(ctx)
	}
	if m.current == nil {
		return Session{}, false
	}
	if !m.current.activeAt(m.now(), m.ttl) {
		logger := m.loggerWith(ctx, "CurrentSession", "session_id", m.current.ID)
		logger.InfoContext(ctx, "session expired")
		m.discardLocked(ctx, logger)
		return Session{}, false
	}
	return *m.current, true
}

// IsAuthenticated reports whether an unexpired session is active.
func (m *SessionManager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.CurrentSession(ctx)
	return ok
}

func decodeSession(raw string) (Session, error) {
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return Session{}, err
	}
	if session.Email == "" || session.LoginTime.IsZero() {
		return Session{}, errMalformedSession
	}
	return session, nil
}
