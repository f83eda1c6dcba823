package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDuplicateUsername indicates a user with the same username already exists.
var ErrDuplicateUsername = errors.New("duplicate username")

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username required")
	}
	if passwordHash == "" {
		return nil, errors.New("password hash required")
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		username, passwordHash, role, timestampNow(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "users.username") {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		user       User
		roleStr    string
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&user.ID, &user.Username, &user.PasswordHash, &roleStr, &createdRaw); err != nil {
		return nil, err
	}
	user.Role = Role(roleStr)
	if created, err := parseTimeString(createdRaw.String); err == nil {
		user.CreatedAt = created
	}
	return &user, nil
}

// GetUserByID fetches a user by identifier.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, username, password_hash, role, created_at FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername fetches a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`,
		strings.TrimSpace(username))
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all accounts ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, username, password_hash, role, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// RemoveUser deletes a user by username; sessions cascade.
func (s *Store) RemoveUser(ctx context.Context, username string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM users WHERE username = ?`, strings.TrimSpace(username))
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// InsertSession records an issued session token hash.
func (s *Store) InsertSession(ctx context.Context, session Session) error {
	if session.TokenHash == "" {
		return errors.New("token hash required")
	}
	return s.execWithoutResultRetry(
		ctx,
		`INSERT INTO sessions (token_hash, user_id, expires_at) VALUES (?, ?, ?)`,
		session.TokenHash, session.UserID, session.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
}

// GetSession fetches a session by token hash. Expired sessions are not returned.
func (s *Store) GetSession(ctx context.Context, tokenHash string) (*Session, error) {
	var (
		session    Session
		expiresRaw string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT token_hash, user_id, expires_at FROM sessions WHERE token_hash = ?`, tokenHash).
		Scan(&session.TokenHash, &session.UserID, &expiresRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	expires, err := parseTimeString(expiresRaw)
	if err != nil {
		return nil, fmt.Errorf("parse session expiry: %w", err)
	}
	session.ExpiresAt = expires
	if time.Now().UTC().After(expires) {
		return nil, nil
	}
	return &session, nil
}

// DeleteSession removes a session by token hash.
func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	return s.execWithoutResultRetry(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, timestampNow())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
