package bus

import "context"

// InboundMessage is one inbound conversation message as handed to the
// pipeline by a webhook handler or channel listener.
type InboundMessage struct {
	InboxID        string            `json:"inbox_id"`
	AccountID      string            `json:"account_id"`
	ConversationID string            `json:"conversation_id"`
	SenderID       string            `json:"sender_id"`
	SenderName     string            `json:"sender_name,omitempty"`
	MessageID      string            `json:"message_id"`
	Content        string            `json:"content"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Handler processes one inbound message end to end. Channel listeners hand
// messages here; reply delivery happens inside the pipeline, not the caller.
type Handler func(ctx context.Context, inbound InboundMessage) error
