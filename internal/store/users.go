package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Chat/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCredentials = errors.New("invalid email or password")
	ErrWeakPassword   = errors.New("password too short")
)

const userCols = `id, username, email, avatar, about, nickname, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	var created int64
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.Avatar, &u.About, &u.Nickname, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

// CreateUser stores u with a bcrypt hash of password. Username and email are
// unique.
func (d *DB) CreateUser(u *domain.User, password string) error {
	if len(password) < 6 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var n int
	if err := d.db.QueryRow(
		`SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`, u.Username, u.Email,
	).Scan(&n); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("create user %s: %w", u.Username, ErrConflict)
	}

	_, err = d.db.Exec(
		`INSERT INTO users (id, username, email, password, avatar, about, nickname, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, string(hash), u.Avatar, u.About, u.Nickname, u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Authenticate returns the user owning email when password matches.
func (d *DB) Authenticate(email, password string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var hash string
	row := d.db.QueryRow(`SELECT password, `+userCols+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	var u domain.User
	var created int64
	err := row.Scan(&hash, &u.ID, &u.Username, &u.Email, &u.Avatar, &u.About, &u.Nickname, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

func (d *DB) UserByID(id domain.UserID) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, err := scanUser(d.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("get user", err)
	}
	return u, nil
}

func (d *DB) UserByUsername(username string) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, err := scanUser(d.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username))
	if err != nil {
		return nil, notFound("get user", err)
	}
	return u, nil
}

// ProfileUpdate carries the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Nickname *string `json:"nickname"`
	About    *string `json:"about"`
	Avatar   *string `json:"avatar"`
}

func (d *DB) UpdateUser(id domain.UserID, p ProfileUpdate) (*domain.User, error) {
	d.mu.Lock()
	res, err := d.db.Exec(
		`UPDATE users SET
			nickname = COALESCE(?, nickname),
			about    = COALESCE(?, about),
			avatar   = COALESCE(?, avatar)
		WHERE id = ?`,
		p.Nickname, p.About, p.Avatar, id,
	)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update user %s: %w", id, ErrNotFound)
	}
	return d.UserByID(id)
}

// SearchUsers matches q against usernames, case insensitively, and returns
// public cards only. The caller is excluded.
func (d *DB) SearchUsers(q string, exclude domain.UserID, limit int) ([]domain.Friend, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.Friend{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.ToLower(q) + "%"

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(
		`SELECT id, username, avatar FROM users
		WHERE id != ? AND lower(username) LIKE ?
		ORDER BY username LIMIT ?`,
		exclude, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	out := []domain.Friend{}
	for rows.Next() {
		var f domain.Friend
		if err := rows.Scan(&f.ID, &f.Username, &f.Avatar); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
