package anthropic

import (
	"context"
	"fmt"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

// Message is one conversation turn. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client streams Messages API replies into a workspace.
type Client struct {
	api       sdk.Client
	model     string
	maxTokens int
	system    string
	request   []option.RequestOption
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another endpoint (proxies, tests).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.request = append(c.request, option.WithBaseURL(url))
	}
}

// WithModel sets the model name.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxTokens sets the completion budget.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// WithSystemPrompt replaces the default artifact-protocol prompt.
func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) {
		c.system = prompt
	}
}

// WithHTTPClient sets the transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.request = append(c.request, option.WithHTTPClient(hc))
	}
}

// WithMaxRetries sets how often failed requests are retried (SDK default: 2).
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.request = append(c.request, option.WithMaxRetries(n))
	}
}

// NewClient creates a Client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		system:    SystemPrompt,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.api = sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.request...)...)
	return c
}

// Stream sends the conversation and feeds the reply's text deltas to target as they
// arrive. It returns the accumulated reply text, also on error.
func (c *Client) Stream(ctx context.Context, messages []Message, target Target, mode Mode) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  toParams(messages),
	}
	if c.system != "" {
		params.System = []sdk.TextBlockParam{{Text: c.system}}
	}

	stream := c.api.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	f := feeder{target: target, mode: mode}
	for stream.Next() {
		ev, ok := stream.Current().AsAny().(sdk.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if d, ok := ev.Delta.AsAny().(sdk.TextDelta); ok && d.Text != "" {
			f.feed(d.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return f.text(), fmt.Errorf("messages stream failed: %w", err)
	}
	return f.text(), nil
}

func toParams(messages []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, sdk.NewAssistantMessage(block))
			continue
		}
		out = append(out, sdk.NewUserMessage(block))
	}
	return out
}
