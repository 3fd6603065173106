package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

var (
	ErrNotConfigured  = errors.New("chat is not configured")
	ErrInvalidMessage = errors.New("invalid chat messages")
	ErrEmptyReply     = errors.New("empty reply from model")
)

// APIError is a non-2xx answer from the Messages API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("messages api returned %d: %s", e.Status, e.Message)
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client sends conversations to the Messages API.
type Client struct {
	apiKey    string
	model     string
	maxTokens int64
	api       anthropic.Client
}

func NewClient(apiKey, model string) *Client {
	c := &Client{apiKey: apiKey, model: model, maxTokens: defaultMaxTokens}
	c.api = anthropic.NewClient(c.options()...)
	return c
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.api = anthropic.NewClient(append(c.options(), option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))...)
	return c
}

// A failed turn is resent from the UI, so requests are not retried.
func (c *Client) options() []option.RequestOption {
	return []option.RequestOption{
		option.WithAPIKey(c.apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(60 * time.Second),
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// ValidateMessages checks that the conversation alternates known roles and
// ends with a user turn.
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: at least one message is required", ErrInvalidMessage)
	}
	for i, m := range messages {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidMessage, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message %d is empty", ErrInvalidMessage, i)
		}
	}
	if messages[len(messages)-1].Role != "user" {
		return fmt.Errorf("%w: last message must come from the user", ErrInvalidMessage)
	}
	return nil
}

// Reply sends the conversation with the given system prompt and returns the
// first text block of the answer.
func (c *Client) Reply(ctx context.Context, system string, messages []Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if err := ValidateMessages(messages); err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  make([]anthropic.MessageParam, 0, len(messages)),
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &APIError{Status: apiErr.StatusCode, Message: errorMessage(apiErr)}
		}
		return "", fmt.Errorf("messages request: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyReply
}

func errorMessage(apiErr *anthropic.Error) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(apiErr.RawJSON()), &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return http.StatusText(apiErr.StatusCode)
}
