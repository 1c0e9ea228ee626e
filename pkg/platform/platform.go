package platform

import (
	"context"
	"strings"
	"time"
)

// Credential identifies one messaging-platform connection. Agents may carry
// their own credential; otherwise the inbox default is used.
type Credential struct {
	Token   string `json:"token,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// IsZero reports whether the credential carries no connection data.
func (c Credential) IsZero() bool {
	return strings.TrimSpace(c.Token) == "" && strings.TrimSpace(c.BaseURL) == ""
}

// Turn is one prior message of a conversation as returned by FetchHistory.
type Turn struct {
	ID       string    `json:"id"`
	Role     string    `json:"role"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at,omitempty"`
	Incoming bool      `json:"incoming"`
}

// Client is the messaging-platform collaborator consumed by the pipeline.
//
// FetchHistory may fail; callers degrade to an empty history. Send may fail;
// callers record the failure without raising.
type Client interface {
	FetchHistory(ctx context.Context, accountID string, conversationID string, cred Credential) ([]Turn, error)
	Send(ctx context.Context, accountID string, conversationID string, text string, cred Credential) error
}
