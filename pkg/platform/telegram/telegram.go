package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/bus"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
)

const platformName = "telegram"
const messagePreviewLimit = 240
const typingRefreshInterval = 4 * time.Second
const defaultHistoryDepth = 50

// Client bridges Telegram chats into the pipeline's messaging-platform
// contract. Conversation ids are Telegram chat ids.
//
// The Bot API exposes no history endpoint, so the client keeps a bounded
// in-memory transcript per conversation, fed by the listener and by Send.
type Client struct {
	cfg          config.TelegramConfig
	bot          *telego.Bot
	allowFrom    map[string]struct{}
	historyDepth int
	log          *slog.Logger

	mu          sync.RWMutex
	transcripts map[string][]platform.Turn
}

// NewClient validates Telegram configuration and constructs a client.
func NewClient(cfg config.TelegramConfig, log *slog.Logger) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("platform.telegram.token is required")
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	historyDepth := cfg.HistoryDepth
	if historyDepth <= 0 {
		historyDepth = defaultHistoryDepth
	}

	return &Client{
		cfg:          cfg,
		bot:          bot,
		allowFrom:    allowFromSet(cfg.AllowFrom),
		historyDepth: historyDepth,
		log:          log.With("component", "platform.telegram"),
		transcripts:  make(map[string][]platform.Turn),
	}, nil
}

// Name returns the platform identifier used in logs and listener state.
func (c *Client) Name() string {
	return platformName
}

// FetchHistory returns the recorded transcript for one conversation,
// oldest first. Account id and credential are ignored; one client is one
// bot connection.
func (c *Client) FetchHistory(_ context.Context, _ string, conversationID string, _ platform.Credential) ([]platform.Turn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	transcript := c.transcripts[strings.TrimSpace(conversationID)]
	if len(transcript) == 0 {
		return nil, nil
	}

	out := make([]platform.Turn, len(transcript))
	copy(out, transcript)
	return out, nil
}

// Send delivers one message to the chat behind the conversation id.
func (c *Client) Send(ctx context.Context, _ string, conversationID string, text string, _ platform.Credential) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("message text is required")
	}

	chatID, err := strconv.ParseInt(strings.TrimSpace(conversationID), 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", conversationID, err)
	}

	sent, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	turn := platform.Turn{
		Role:    "assistant",
		Content: text,
		SentAt:  time.Now().UTC(),
	}
	if sent != nil {
		turn.ID = strconv.Itoa(sent.MessageID)
	}
	c.recordTurn(conversationID, turn)

	c.log.Debug("Message delivered", "conversation_id", conversationID, "length", len(text))
	return nil
}

// Listen starts long polling and forwards each allowed text message to the
// handler as an inbound envelope for the configured inbox. Reply delivery is
// the pipeline's job; the listener only shows a typing indicator while the
// handler runs.
func (c *Client) Listen(ctx context.Context, handler bus.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	if strings.TrimSpace(c.cfg.InboxID) == "" {
		return errors.New("platform.telegram.inbox_id is required to listen")
	}

	updates, err := c.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	c.log.Info("Telegram listener started", "inbox_id", c.cfg.InboxID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			message := update.Message
			if message == nil {
				continue
			}

			content := strings.TrimSpace(message.Text)
			if content == "" {
				// Non-text updates carry nothing the pipeline can process.
				continue
			}
			if message.From == nil {
				c.log.Debug("Ignoring message without sender")
				continue
			}

			senderID := strconv.FormatInt(message.From.ID, 10)
			if !c.senderAllowed(senderID) {
				c.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
				continue
			}

			conversationID := strconv.FormatInt(message.Chat.ID, 10)
			messageID := strconv.Itoa(message.MessageID)
			c.recordTurn(conversationID, platform.Turn{
				ID:       messageID,
				Role:     "user",
				Content:  content,
				SentAt:   time.Now().UTC(),
				Incoming: true,
			})

			inbound := bus.InboundMessage{
				InboxID:        c.cfg.InboxID,
				AccountID:      c.accountID(),
				ConversationID: conversationID,
				SenderID:       senderID,
				SenderName:     strings.TrimSpace(message.From.FirstName),
				MessageID:      messageID,
				Content:        content,
				Metadata: map[string]string{
					"update_id": strconv.Itoa(update.UpdateID),
				},
			}
			c.log.Info("Received message", "conversation_id", conversationID, "sender_id", senderID, "content", previewText(content))

			stopTyping := c.startTypingIndicator(ctx, message.Chat.ID)
			err := handler(ctx, inbound)
			stopTyping()
			if err != nil {
				c.log.Error("Failed to process inbound message", "conversation_id", conversationID, "error", err)
			}
		}
	}
}

// recordTurn appends one turn to a conversation transcript, trimming the
// oldest entries past the configured depth.
func (c *Client) recordTurn(conversationID string, turn platform.Turn) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" || strings.TrimSpace(turn.Content) == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	transcript := append(c.transcripts[conversationID], turn)
	if overflow := len(transcript) - c.historyDepth; overflow > 0 {
		transcript = transcript[overflow:]
	}
	c.transcripts[conversationID] = transcript
}

func (c *Client) accountID() string {
	if accountID := strings.TrimSpace(c.cfg.AccountID); accountID != "" {
		return accountID
	}

	return platformName
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (c *Client) senderAllowed(senderID string) bool {
	if len(c.allowFrom) == 0 {
		return true
	}

	_, ok := c.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}

// startTypingIndicator sends an initial typing action and refreshes it
// periodically until the returned cancel function is called.
func (c *Client) startTypingIndicator(ctx context.Context, chatID int64) context.CancelFunc {
	typingCtx, cancel := context.WithCancel(ctx)

	sendTyping := func() {
		if err := c.bot.SendChatAction(typingCtx, tu.ChatAction(tu.ID(chatID), telego.ChatActionTyping)); err != nil && typingCtx.Err() == nil {
			c.log.Debug("Failed to send typing indicator", "chat_id", chatID, "error", err)
		}
	}

	sendTyping()

	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				sendTyping()
			}
		}
	}()

	return cancel
}
