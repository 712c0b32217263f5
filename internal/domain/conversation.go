package domain

import "time"

type ConversationID string

type Conversation struct {
	ID          ConversationID `json:"_id"`
	Members     []Friend       `json:"members"`
	IsGroup     bool           `json:"isGroup"`
	Name        string         `json:"name,omitempty"`
	GroupAdmin  UserID         `json:"groupAdmin,omitempty"`
	LastMessage MessageID      `json:"lastMessage,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// HasMember reports whether id is listed among the conversation members.
func (c *Conversation) HasMember(id UserID) bool {
	for _, m := range c.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}
