package store

import (
	"fmt"

	"github.com/dkeye/Chat/internal/domain"
)

// SendFriendRequest records a pending request from -> to. Already being
// friends or having a request pending is a conflict.
func (d *DB) SendFriendRequest(from, to domain.UserID) error {
	if from == to {
		return fmt.Errorf("friend request to self: %w", ErrForbidden)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, to).Scan(&n); err != nil {
		return fmt.Errorf("friend request: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("friend request to %s: %w", to, ErrNotFound)
	}
	if err := d.db.QueryRow(
		`SELECT (SELECT COUNT(*) FROM friends WHERE user_id = ? AND friend_id = ?)
		      + (SELECT COUNT(*) FROM friend_requests WHERE from_id = ? AND to_id = ?)`,
		from, to, from, to,
	).Scan(&n); err != nil {
		return fmt.Errorf("friend request: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("friend request to %s: %w", to, ErrConflict)
	}

	if _, err := d.db.Exec(
		`INSERT INTO friend_requests (from_id, to_id, created_at) VALUES (?, ?, ?)`, from, to, now(),
	); err != nil {
		return fmt.Errorf("friend request: %w", err)
	}
	return nil
}

// AcceptFriendRequest turns the pending request from -> to into a mutual
// friendship.
func (d *DB) AcceptFriendRequest(to, from domain.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("accept friend: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM friend_requests WHERE from_id = ? AND to_id = ?`, from, to)
	if err != nil {
		return fmt.Errorf("accept friend: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("accept friend %s: %w", from, ErrNotFound)
	}
	// A crossed request in the other direction is settled too.
	if _, err := tx.Exec(`DELETE FROM friend_requests WHERE from_id = ? AND to_id = ?`, to, from); err != nil {
		return fmt.Errorf("accept friend: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO friends (user_id, friend_id) VALUES (?, ?), (?, ?)`, from, to, to, from,
	); err != nil {
		return fmt.Errorf("accept friend: %w", err)
	}
	return tx.Commit()
}

func (d *DB) Unfriend(a, b domain.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.Exec(
		`DELETE FROM friends WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)`, a, b, b, a,
	)
	if err != nil {
		return fmt.Errorf("unfriend: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unfriend %s: %w", b, ErrNotFound)
	}
	return nil
}

func (d *DB) Friends(id domain.UserID) ([]domain.Friend, error) {
	return d.friendCards(
		`SELECT u.id, u.username, u.avatar FROM friends f JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ? ORDER BY u.username`, id)
}

// FriendRequests lists the users waiting for id to accept them.
func (d *DB) FriendRequests(id domain.UserID) ([]domain.Friend, error) {
	return d.friendCards(
		`SELECT u.id, u.username, u.avatar FROM friend_requests r JOIN users u ON u.id = r.from_id
		WHERE r.to_id = ? ORDER BY r.created_at`, id)
}

func (d *DB) friendCards(query string, id domain.UserID) ([]domain.Friend, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
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
