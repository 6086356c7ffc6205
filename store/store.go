package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type (
	// S wraps the sqlite database holding users and audit events.
	S struct {
		db *sql.DB
	}

	// User is the single persisted entity. Username is empty for accounts
	// created via Google, GoogleID is empty for local-only accounts.
	User struct {
		ID        string
		Username  string
		GoogleID  string
		Secret    string
		HasSecret bool
	}

	// SharedSecret is one entry of the public secrets listing.
	SharedSecret struct {
		DisplayIdentity string
		Secret          string
	}
)

func openDatabase(ctx context.Context, dir string) (*sql.DB, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("unable to create directory %v to hold the store, cause %w", dir, err)
	}
	dbfile := filepath.Join(dir, "whisperwall.db")
	connstr := fmt.Sprintf("file:%v?_journal=wal&mode=rwc&_busy_timeout=5000", dbfile)
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %w", dbfile, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to ping store at %v, cause %w", dbfile, err)
	}
	return conn, nil
}

// Open loads (creating if needed) the store kept under dir.
func Open(ctx context.Context, dir string) (*S, error) {
	conn, err := openDatabase(ctx, dir)
	if err != nil {
		return nil, err
	}
	s := &S{db: conn}
	err = s.init(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init store at %v, cause %w", dir, err)
	}
	return s, nil
}

func (s *S) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `create table if not exists users(
		user_id text primary key,
		username text unique,
		password_hash blob,
		salt blob,
		google_id text unique,
		secret text,
		created_at timestamp not null default current_timestamp)`)
	if err != nil {
		return fmt.Errorf("unable to create users table, cause %w", err)
	}
	_, err = s.db.ExecContext(ctx, `create table if not exists audit_events(
		event_id integer primary key autoincrement,
		actor text not null,
		action text not null,
		target text not null,
		recorded_at timestamp not null default current_timestamp)`)
	if err != nil {
		return fmt.Errorf("unable to create audit_events table, cause %w", err)
	}
	return nil
}

func (s *S) Close() error {
	return s.db.Close()
}

// CreateLocal registers a username/password account. The password is
// stretched with a fresh random salt before it is persisted.
func (s *S) CreateLocal(ctx context.Context, username, password string) (User, error) {
	salt, err := newSalt()
	if err != nil {
		return User{}, err
	}
	hash := stretchPassword([]byte(password), salt)
	id := uuid.NewString()
	res, err := s.db.ExecContext(ctx, `insert into users(user_id, username, password_hash, salt)
		values (?, ?, ?, ?)
		on conflict (username) do nothing`, id, username, hash, salt)
	if err != nil {
		return User{}, fmt.Errorf("unable to create account for %v, cause %w", username, err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return User{}, fmt.Errorf("unable to create account for %v, cause %w", username, err)
	}
	if changed == 0 {
		return User{}, ErrDuplicateUsername
	}
	return User{ID: id, Username: username}, nil
}

// VerifyLocal checks a username/password pair. Unknown usernames burn the
// same amount of work as a wrong password so the two stay
// indistinguishable from the outside.
func (s *S) VerifyLocal(ctx context.Context, username, password string) (User, error) {
	var u User
	var hash, salt []byte
	var googleID, secret sql.NullString
	err := s.db.QueryRowContext(ctx, `select user_id, google_id, secret, password_hash, salt
		from users where username = ?`, username).Scan(&u.ID, &googleID, &secret, &hash, &salt)
	if errors.Is(err, sql.ErrNoRows) {
		stretchPassword([]byte(password), decoySalt[:])
		return User{}, ErrInvalidCredentials
	} else if err != nil {
		return User{}, fmt.Errorf("unable to look up %v, cause %w", username, err)
	}
	if hash == nil || !verifyPassword([]byte(password), salt, hash) {
		return User{}, ErrInvalidCredentials
	}
	u.Username = username
	u.GoogleID = googleID.String
	u.Secret = secret.String
	u.HasSecret = secret.Valid
	return u, nil
}

// FindOrCreateByGoogleID maps a google subject id to an account, creating
// one on first sight. The unique index on google_id guarantees at most one
// row per subject even when identical calls race.
func (s *S) FindOrCreateByGoogleID(ctx context.Context, googleID string) (User, error) {
	_, err := s.db.ExecContext(ctx, `insert into users(user_id, google_id)
		values (?, ?)
		on conflict (google_id) do nothing`, uuid.NewString(), googleID)
	if err != nil {
		return User{}, fmt.Errorf("unable to create account for google subject, cause %w", err)
	}
	var u User
	var username, secret sql.NullString
	err = s.db.QueryRowContext(ctx, `select user_id, username, secret
		from users where google_id = ?`, googleID).Scan(&u.ID, &username, &secret)
	if err != nil {
		return User{}, fmt.Errorf("unable to load account for google subject, cause %w", err)
	}
	u.GoogleID = googleID
	u.Username = username.String
	u.Secret = secret.String
	u.HasSecret = secret.Valid
	return u, nil
}

// FindByID loads one user.
func (s *S) FindByID(ctx context.Context, id string) (User, error) {
	var u User
	var username, googleID, secret sql.NullString
	err := s.db.QueryRowContext(ctx, `select user_id, username, google_id, secret
		from users where user_id = ?`, id).Scan(&u.ID, &username, &googleID, &secret)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, UserNotFound{ID: id}
	} else if err != nil {
		return User{}, fmt.Errorf("unable to load user %v, cause %w", id, err)
	}
	u.Username = username.String
	u.GoogleID = googleID.String
	u.Secret = secret.String
	u.HasSecret = secret.Valid
	return u, nil
}

// SetSecret overwrites (never appends to) the user's secret.
func (s *S) SetSecret(ctx context.Context, userID, secret string) error {
	res, err := s.db.ExecContext(ctx, `update users set secret = ? where user_id = ?`, secret, userID)
	if err != nil {
		return fmt.Errorf("unable to store secret for user %v, cause %w", userID, err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to store secret for user %v, cause %w", userID, err)
	}
	if changed == 0 {
		return UserNotFound{ID: userID}
	}
	return nil
}

// ListSecrets returns every shared secret in insertion order.
func (s *S) ListSecrets(ctx context.Context) ([]SharedSecret, error) {
	rows, err := s.db.QueryContext(ctx, `select username, secret from users
		where secret is not null order by rowid asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list secrets, cause %w", err)
	}
	defer rows.Close()
	var out []SharedSecret
	for rows.Next() {
		var username sql.NullString
		var entry SharedSecret
		err = rows.Scan(&username, &entry.Secret)
		if err != nil {
			return nil, fmt.Errorf("unable to scan secret entry, cause %w", err)
		}
		entry.DisplayIdentity = username.String
		if !username.Valid {
			entry.DisplayIdentity = "anonymous"
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
