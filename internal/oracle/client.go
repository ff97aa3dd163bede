// Package oracle is the LLM client: it turns an activity context into
// a structured verdict and scores purchase-audit consistency. All
// responses are parsed strictly and retried with exponential backoff
// on transport or parse failure.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/vigildev/vigil/internal/audit"
	"github.com/vigildev/vigil/pkg/models"
)

// Retry policy: 3 attempts with delays of 1s, 2s between them.
const (
	maxAttempts = 3
	baseDelay   = time.Second
)

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	model      string
	apiKey     string
}

// NewClient creates an oracle client. A nil httpClient selects a
// client with a 30 second timeout.
func NewClient(url, model, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		url:        url,
		model:      model,
		apiKey:     apiKey,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete performs one chat completion round trip.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// withRetry runs fn up to maxAttempts times, doubling the delay after
// each failure. The context cancels both the request and the waits.
func (c *Client) withRetry(ctx context.Context, what string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		log.Warn().Err(lastErr).Str("op", what).Int("attempt", attempt+1).Msg("oracle call failed")
	}
	return fmt.Errorf("%s: all %d attempts failed: %w", what, maxAttempts, lastErr)
}

// Analyze asks the oracle for a verdict over the supplied context.
func (c *Client) Analyze(ctx context.Context, actx AnalysisContext) (*Verdict, error) {
	prompt := BuildPrompt(actx)

	var verdict *Verdict
	err := c.withRetry(ctx, "analyze", func() error {
		text, err := c.complete(ctx, prompt)
		if err != nil {
			return err
		}
		v, err := ParseVerdict(text)
		if err != nil {
			return err
		}
		verdict = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Bool("distracted", verdict.IsDistracted).
		Int("confidence", verdict.Confidence).
		Str("status", string(verdict.Status)).
		Msg("oracle verdict")

	return verdict, nil
}

// ScoreConsistency implements audit.ConsistencyScorer.
func (c *Client) ScoreConsistency(ctx context.Context, req audit.ScoreRequest) (float64, string, error) {
	prompt := buildAuditPrompt(req.Action, req.Reason, req.App, req.WindowTitle, req.URL, req.Blocks)

	var score float64
	var reasoning string
	err := c.withRetry(ctx, "score consistency", func() error {
		text, err := c.complete(ctx, prompt)
		if err != nil {
			return err
		}
		s, r, err := parseConsistency(text)
		if err != nil {
			return err
		}
		score, reasoning = s, r
		return nil
	})
	if err != nil {
		return 0, "", err
	}
	return score, reasoning, nil
}

var _ audit.ConsistencyScorer = (*Client)(nil)

// InsightDescriptions extracts the description line per insight for
// prompt injection.
func InsightDescriptions(insights map[models.InsightType]*models.Insight) map[models.InsightType]string {
	out := make(map[models.InsightType]string, len(insights))
	for t, ins := range insights {
		var payload struct {
			Description string `json:"description"`
		}
		if err := json.Unmarshal([]byte(ins.Data), &payload); err != nil {
			continue
		}
		if payload.Description != "" {
			out[t] = payload.Description
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
