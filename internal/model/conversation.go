// Package model defines data structures for the document assistant.
package model

import (
	"time"
)

// Conversation represents a full conversation thread as returned by the
// detail endpoint.
type Conversation struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Messages          []Message  `json:"messages"`
	IsFavorite        bool       `json:"is_favorite"`
	IsPinned          bool       `json:"is_pinned"`
	Documents         []string   `json:"documents,omitempty"`
	Citations         []Citation `json:"citations,omitempty"`
	FollowUpQuestions []string   `json:"follow_up_questions,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ConversationSummary is the compact form used by the history list.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsPinned     bool      `json:"is_pinned"`
	HasDocuments bool      `json:"has_documents"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

// TogglePinResponse is the response after toggling a conversation pin.
type TogglePinResponse struct {
	IsPinned bool `json:"is_pinned"`
}

// RenameRequest carries a new conversation title.
type RenameRequest struct {
	Title string `json:"title"`
}

// RenameResponse echoes the conversation after a rename.
type RenameResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
