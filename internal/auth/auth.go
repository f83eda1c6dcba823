package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mediacat/internal/catalog"
	"mediacat/internal/logging"
	"mediacat/internal/services"
)

// ErrInvalidCredentials is returned for unknown users and wrong passwords
// alike so callers cannot probe for valid usernames.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned when a session token is unknown or expired.
var ErrInvalidToken = errors.New("invalid or expired token")

// Service manages user accounts and session tokens.
type Service struct {
	store  *catalog.Store
	ttl    time.Duration
	logger *slog.Logger
}

// New creates an auth Service issuing sessions with the given lifetime.
func New(store *catalog.Store, sessionTTL time.Duration, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store required")
	}
	if sessionTTL <= 0 {
		sessionTTL = 72 * time.Hour
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:  store,
		ttl:    sessionTTL,
		logger: logging.NewComponentLogger(logger, "auth"),
	}, nil
}

// CreateUser registers an account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, username, password string, role catalog.Role) (*catalog.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, services.Wrap(services.ErrValidation, "auth", "create user", "username required", nil)
	}
	if len(password) < 8 {
		return nil, services.Wrap(services.ErrValidation, "auth", "create user", "password must be at least 8 characters", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "auth", "hash password", "", err)
	}
	user, err := s.store.CreateUser(ctx, username, string(hash), role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("created user",
		logging.String("username", user.Username),
		logging.String("role", string(user.Role)))
	return user, nil
}

// Login verifies credentials and issues a session token. Only the SHA-256
// hash of the token is persisted.
func (s *Service) Login(ctx context.Context, username, password string) (string, *catalog.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		// Burn comparable time so missing users are not distinguishable.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.NewString() + uuid.NewString()
	session := catalog.Session{
		TokenHash: HashToken(token),
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	if err := s.store.InsertSession(ctx, session); err != nil {
		return "", nil, err
	}
	s.logger.Info("issued session", logging.String("username", user.Username))
	return token, user, nil
}

// Authenticate resolves a session token to its user. Expired sessions are
// pruned on the way through so the table does not accumulate dead rows.
func (s *Service) Authenticate(ctx context.Context, token string) (*catalog.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	if purged, err := s.store.PurgeExpiredSessions(ctx); err == nil && purged > 0 {
		s.logger.Debug("purged expired sessions", logging.Int64("count", purged))
	}
	session, err := s.store.GetSession(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, HashToken(token))
}

// PurgeExpired removes expired sessions and returns how many were dropped.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.PurgeExpiredSessions(ctx)
}

// HashToken produces the hex SHA-256 digest under which tokens are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
