package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"promptpilot/internal/config"
	"promptpilot/internal/parser"
)

// ErrEmptyResponse is the protocol error for a completion response
// that carries no choices or an empty message. It is never retried as
// a transport failure.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Client talks to an OpenAI-compatible chat-completion endpoint. The
// business logic is strictly sequential; the only concurrency is the
// cosmetic heartbeat spinner around blocking calls.
type Client struct {
	api    *openai.Client
	parser *parser.Parser
	cfg    config.Config
	log    *slog.Logger

	out   io.Writer
	sleep func(time.Duration)
}

// NewClient builds a client for the configured endpoint.
func NewClient(cfg config.Config, p *parser.Parser) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}

	return &Client{
		api:    openai.NewClientWithConfig(oc),
		parser: p,
		cfg:    cfg,
		log:    slog.Default(),
		out:    os.Stdout,
		sleep:  time.Sleep,
	}
}

// SetOutput redirects console feedback (progress and heartbeat).
func (c *Client) SetOutput(w io.Writer) {
	c.out = w
}

// SystemPrompt is the format instruction sent with every generation
// request. The markers must match what the parser scans for.
func (c *Client) SystemPrompt() string {
	return fmt.Sprintf(`You are a professional code generation assistant. Output every file in exactly this format:

%s
Path: [absolute path of the file, e.g. /home/user/project/main.py]
Name: [file name with extension, e.g. main.py]
%s
[complete file content, never truncated]
%s
%s

Rules:
1. Always output the complete file content, never only the changed part.
2. Wrap every file in the full set of markers.
3. After the last file, emit the end marker: %s
4. Make sure the code is syntactically correct.
5. When modifying an existing file, emit the whole modified file.
6. File paths must be absolute; missing directories are created by the tool.

Generate or modify the files the user asks for.`,
		c.cfg.FileStartMarker, c.cfg.ContentStartMarker,
		c.cfg.ContentEndMarker, c.cfg.FileEndMarker,
		c.cfg.OutputEndMarker)
}

// ProcessPrompt drives one generation exchange and returns the raw
// (possibly accumulated) response text. Prompts over the character
// budget are split into line-bounded chunks and sent as a continued
// conversation; the exchange stops early once the completion sentinel
// appears in the accumulated text.
func (c *Client) ProcessPrompt(ctx context.Context, prompt string) (string, error) {
	if len(prompt) <= c.cfg.MaxInputChars {
		c.log.Info("prompt fits in one call", "chars", len(prompt))
		return c.completeWithHeartbeat(ctx, []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.SystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		}, c.cfg.MaxRetries)
	}

	chunks := parser.SplitPrompt(prompt, c.cfg.MaxInputChars)
	c.log.Info("prompt exceeds budget, chunking", "chars", len(prompt), "chunks", len(chunks))
	fmt.Fprintf(c.out, "\nProcessing %d prompt chunks...\n", len(chunks))

	var accumulated string
	for i, chunk := range chunks {
		fmt.Fprintf(c.out, "  chunk %d/%d... ", i+1, len(chunks))

		var messages []openai.ChatCompletionMessage
		if i == 0 {
			messages = []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem,
					Content: c.SystemPrompt() + "\n\nNote: this task arrives in several parts."},
				{Role: openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Part %d/%d:\n\n%s", i+1, len(chunks), chunk)},
			}
		} else {
			messages = []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Part %d/%d (continued):\n\n%s", i+1, len(chunks), chunk)},
			}
		}

		text, err := c.completeWithHeartbeat(ctx, messages, c.cfg.MaxRetries)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}

		if i == 0 {
			accumulated = text
		} else {
			accumulated += "\n" + text
		}

		if c.parser.IsComplete(accumulated) {
			c.log.Info("completion sentinel found, stopping early", "chunk", i+1)
			break
		}

		// Pause between chunk calls to respect rate limits, but not
		// after the final one.
		if i < len(chunks)-1 {
			c.sleep(c.cfg.ChunkPause)
		}
	}

	fmt.Fprintln(c.out, "all chunks processed")
	return accumulated, nil
}

// RegenerateFile asks the model for a fresh version of a single file
// and returns its new content.
func (c *Client) RegenerateFile(ctx context.Context, path, name, instructions string) (string, error) {
	req := fmt.Sprintf("Regenerate the file %s (path %s). The previous version failed its syntax check. %s",
		name, path, instructions)

	text, err := c.completeWithHeartbeat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: c.SystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: req},
	}, c.cfg.MaxRetries)
	if err != nil {
		return "", err
	}

	records := c.parser.Parse(text)
	for _, rec := range records {
		if rec.Name == name {
			return rec.Content, nil
		}
	}
	if len(records) == 1 {
		return records[0].Content, nil
	}
	return "", fmt.Errorf("regeneration response did not contain %s", name)
}

// TestConnection performs a minimal round trip.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.completeWithHeartbeat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: `Reply with "pong".`},
	}, 1)
	return err
}

func (c *Client) completeWithHeartbeat(ctx context.Context, messages []openai.ChatCompletionMessage, retries int) (string, error) {
	hb := startHeartbeat(c.out, "waiting for the model", c.cfg.HeartbeatInterval)
	text, err := c.complete(ctx, messages, retries)
	hb.stop()

	if err != nil {
		fmt.Fprintln(c.out, "model call failed")
		return "", err
	}
	fmt.Fprintln(c.out, "model response received")
	return text, nil
}

// complete performs the blocking API call with bounded exponential
// backoff across transport failures. A response without choices is a
// protocol error and fails immediately.
func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage, retries int) (string, error) {
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		c.log.Debug("api call", "attempt", attempt+1, "max", retries)

		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.cfg.Model,
			Messages:    messages,
			Temperature: c.cfg.Temperature,
			MaxTokens:   c.cfg.MaxTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			c.log.Warn("api call failed", "attempt", attempt+1, "error", err)
			if attempt < retries-1 {
				c.sleep(time.Duration(1<<attempt) * time.Second)
			}
			continue
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return "", ErrEmptyResponse
		}

		content := resp.Choices[0].Message.Content
		c.log.Info("api call succeeded", "chars", len(content))
		return content, nil
	}

	return "", fmt.Errorf("api call failed after %d attempts: %w", retries, lastErr)
}
