package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/google/uuid"
)

const convCols = `c.id, c.is_group, c.name, c.group_admin, c.last_message, c.created_at`

// FindOrCreateDirect returns the 1:1 conversation between a and b, creating
// it on first use.
func (d *DB) FindOrCreateDirect(a, b domain.UserID) (*domain.Conversation, error) {
	if a == b {
		return nil, fmt.Errorf("conversation with self: %w", ErrForbidden)
	}

	d.mu.Lock()
	var id domain.ConversationID
	err := d.db.QueryRow(
		`SELECT c.id FROM conversations c
		JOIN conversation_members m1 ON m1.conversation_id = c.id AND m1.user_id = ?
		JOIN conversation_members m2 ON m2.conversation_id = c.id AND m2.user_id = ?
		WHERE c.is_group = 0 LIMIT 1`, a, b,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		id, err = d.insertConversation(false, "", "", []domain.UserID{a, b})
	}
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("direct conversation: %w", err)
	}
	return d.Conversation(id)
}

// CreateGroup creates a named group; admin is always a member.
func (d *DB) CreateGroup(name string, admin domain.UserID, members []domain.UserID) (*domain.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("create group: name empty: %w", ErrInvalid)
	}
	all := append([]domain.UserID{admin}, members...)
	slices.Sort(all)
	all = slices.Compact(all)
	if len(all) < 2 {
		return nil, fmt.Errorf("create group: need another member: %w", ErrInvalid)
	}

	d.mu.Lock()
	id, err := d.insertConversation(true, name, admin, all)
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return d.Conversation(id)
}

// insertConversation expects d.mu held.
func (d *DB) insertConversation(group bool, name string, admin domain.UserID, members []domain.UserID) (domain.ConversationID, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := domain.ConversationID(uuid.NewString())
	ts := now()
	if _, err := tx.Exec(
		`INSERT INTO conversations (id, is_group, name, group_admin, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, group, name, admin, ts, ts,
	); err != nil {
		return "", err
	}
	for _, m := range members {
		var known string
		if err := tx.QueryRow(`SELECT id FROM users WHERE id = ?`, m).Scan(&known); err != nil {
			return "", notFound("member "+string(m), err)
		}
		if _, err := tx.Exec(`INSERT INTO conversation_members (conversation_id, user_id) VALUES (?, ?)`, id, m); err != nil {
			return "", fmt.Errorf("add member %s: %w", m, err)
		}
	}
	return id, tx.Commit()
}

func (d *DB) Conversation(id domain.ConversationID) (*domain.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, err := scanConversation(d.db.QueryRow(`SELECT `+convCols+` FROM conversations c WHERE c.id = ?`, id))
	if err != nil {
		return nil, notFound("get conversation", err)
	}
	if c.Members, err = d.members(id); err != nil {
		return nil, err
	}
	return c, nil
}

// ConversationsOf lists the conversations uid belongs to, most recently
// active first.
func (d *DB) ConversationsOf(uid domain.UserID) ([]domain.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(
		`SELECT `+convCols+` FROM conversations c
		JOIN conversation_members m ON m.conversation_id = c.id
		WHERE m.user_id = ? ORDER BY c.updated_at DESC, c.id`, uid,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	out := []domain.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Members, err = d.members(out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanConversation(s scanner) (*domain.Conversation, error) {
	var c domain.Conversation
	var created int64
	if err := s.Scan(&c.ID, &c.IsGroup, &c.Name, &c.GroupAdmin, &c.LastMessage, &created); err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

func (d *DB) members(id domain.ConversationID) ([]domain.Friend, error) {
	rows, err := d.db.Query(
		`SELECT u.id, u.username, u.avatar FROM conversation_members m JOIN users u ON u.id = m.user_id
		WHERE m.conversation_id = ? ORDER BY u.username`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []domain.Friend
	for rows.Next() {
		var f domain.Friend
		if err := rows.Scan(&f.ID, &f.Username, &f.Avatar); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// AddMessage stores m from sender and makes it the conversation's last
// message. The sender has to be a member.
func (d *DB) AddMessage(sender domain.UserID, m *domain.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var n int
	if err := d.db.QueryRow(
		`SELECT COUNT(*) FROM conversation_members WHERE conversation_id = ? AND user_id = ?`, m.ConversationID, sender,
	).Scan(&n); err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("add message to %s: %w", m.ConversationID, ErrForbidden)
	}
	if err := d.db.QueryRow(
		`SELECT id, username, avatar FROM users WHERE id = ?`, sender,
	).Scan(&m.Sender.ID, &m.Sender.Username, &m.Sender.Avatar); err != nil {
		return notFound("add message sender", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	defer tx.Rollback()

	m.ID = domain.MessageID(uuid.NewString())
	ts := now()
	m.CreatedAt = fromMillis(ts)
	if _, err := tx.Exec(
		`INSERT INTO messages (id, conversation_id, sender_id, text, type, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, sender, m.Text, m.Type, m.ImageURL, ts,
	); err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE conversations SET last_message = ?, updated_at = ? WHERE id = ?`, m.ID, ts, m.ConversationID,
	); err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return tx.Commit()
}

// Messages returns the history of a conversation, oldest first. reader has
// to be a member.
func (d *DB) Messages(conv domain.ConversationID, reader domain.UserID) ([]domain.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var n int
	if err := d.db.QueryRow(
		`SELECT COUNT(*) FROM conversation_members WHERE conversation_id = ? AND user_id = ?`, conv, reader,
	).Scan(&n); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("list messages of %s: %w", conv, ErrForbidden)
	}

	rows, err := d.db.Query(
		`SELECT m.id, m.conversation_id, m.text, m.type, m.image_url, m.created_at, u.id, u.username, u.avatar
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ? ORDER BY m.created_at, m.rowid`, conv,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var created int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Text, &m.Type, &m.ImageURL, &created,
			&m.Sender.ID, &m.Sender.Username, &m.Sender.Avatar); err != nil {
			return nil, err
		}
		m.CreatedAt = fromMillis(created)
		out = append(out, m)
	}
	return out, rows.Err()
}
