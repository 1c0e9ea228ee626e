package chatwoot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
)

const defaultTokenEnv = "CHATWOOT_API_TOKEN"

// Client talks to the Chatwoot conversation REST API.
type Client struct {
	http    *resty.Client
	baseURL string
	token   string
	log     *slog.Logger
}

// New validates Chatwoot configuration and constructs a REST client.
func New(cfg config.ChatwootConfig, log *slog.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("platform.chatwoot.base_url is required")
	}

	token := resolveToken(cfg)
	if token == "" {
		return nil, fmt.Errorf("platform.chatwoot.token_env is required or %s must be set", defaultTokenEnv)
	}

	if log == nil {
		log = slog.Default()
	}

	httpClient := resty.New()
	if cfg.RequestTimeoutSeconds > 0 {
		httpClient.SetTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second)
	}
	httpClient.SetRetryCount(2)
	httpClient.SetRetryWaitTime(500 * time.Millisecond)
	httpClient.SetRetryMaxWaitTime(3 * time.Second)

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		token:   token,
		log:     log.With("component", "platform.chatwoot"),
	}, nil
}

// message is the wire shape of one Chatwoot conversation message.
type message struct {
	ID          int64  `json:"id"`
	Content     string `json:"content"`
	MessageType int    `json:"message_type"`
	Private     bool   `json:"private"`
	CreatedAt   int64  `json:"created_at"`
}

type historyResponse struct {
	Payload []message `json:"payload"`
}

// FetchHistory returns the conversation's message list, oldest first.
// Private notes are not part of agent context and are skipped.
func (c *Client) FetchHistory(ctx context.Context, accountID string, conversationID string, cred platform.Credential) ([]platform.Turn, error) {
	var body historyResponse
	response, err := c.http.R().
		SetContext(ctx).
		SetHeader("api_access_token", c.credToken(cred)).
		SetResult(&body).
		Get(c.messagesURL(cred, accountID, conversationID))
	if err != nil {
		return nil, fmt.Errorf("fetch conversation history: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch conversation history: status %d", response.StatusCode())
	}

	turns := make([]platform.Turn, 0, len(body.Payload))
	for _, item := range body.Payload {
		if item.Private {
			continue
		}

		incoming := item.MessageType == 0
		role := "assistant"
		if incoming {
			role = "user"
		}

		turns = append(turns, platform.Turn{
			ID:       fmt.Sprintf("%d", item.ID),
			Role:     role,
			Content:  item.Content,
			SentAt:   time.Unix(item.CreatedAt, 0).UTC(),
			Incoming: incoming,
		})
	}

	return turns, nil
}

// Send posts one outgoing message to the conversation.
func (c *Client) Send(ctx context.Context, accountID string, conversationID string, text string, cred platform.Credential) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("message text is required")
	}

	response, err := c.http.R().
		SetContext(ctx).
		SetHeader("api_access_token", c.credToken(cred)).
		SetBody(map[string]string{
			"content":      text,
			"message_type": "outgoing",
		}).
		Post(c.messagesURL(cred, accountID, conversationID))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return fmt.Errorf("send message: status %d", response.StatusCode())
	}

	c.log.Debug("Message delivered", "account_id", accountID, "conversation_id", conversationID, "length", len(text))
	return nil
}

func (c *Client) messagesURL(cred platform.Credential, accountID string, conversationID string) string {
	baseURL := c.baseURL
	if override := strings.TrimRight(strings.TrimSpace(cred.BaseURL), "/"); override != "" {
		baseURL = override
	}

	return fmt.Sprintf("%s/api/v1/accounts/%s/conversations/%s/messages", baseURL, accountID, conversationID)
}

func (c *Client) credToken(cred platform.Credential) string {
	if token := strings.TrimSpace(cred.Token); token != "" {
		return token
	}

	return c.token
}

func resolveToken(cfg config.ChatwootConfig) string {
	if tokenEnv := strings.TrimSpace(cfg.TokenEnv); tokenEnv != "" {
		if token := strings.TrimSpace(os.Getenv(tokenEnv)); token != "" {
			return token
		}
	}

	return strings.TrimSpace(os.Getenv(defaultTokenEnv))
}
