// Package embedding provides a client for turning text into fixed-dimension vectors.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"suvidha-go/internal/config"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
)

// Client defines the interface for an embedding client.
type Client interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type titanClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

// NewClient creates a Titan-style embedding client. Missing credentials do not
// fail construction; every Embed call reports EmbeddingUnavailable instead.
func NewClient(cfg config.EmbeddingConfig) Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 8000
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &titanClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	InputText string `json:"inputText"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Normalize collapses whitespace runs to a single space, trims the ends and
// truncates to maxChars characters.
func Normalize(text string, maxChars int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if maxChars > 0 {
		runes := []rune(normalized)
		if len(runes) > maxChars {
			normalized = string(runes[:maxChars])
		}
	}
	return normalized
}

// statusError records a non-2xx reply so the retry loop can tell 4xx from 5xx.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("embedding api returned status %d: %s", e.status, e.body)
}

// linearBackOff waits unit, 2*unit, 3*unit ... between attempts.
type linearBackOff struct {
	unit    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.unit * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// Embed normalises text and calls the provider, retrying transport failures
// and 5xx replies with linear backoff.
func (c *titanClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.cfg.APIKey == "" || c.cfg.Endpoint == "" {
		return nil, apperr.ErrEmbeddingUnavailable
	}

	input := Normalize(text, c.cfg.MaxInputChars)
	if input == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "text to embed is empty")
	}

	var vector []float64
	operation := func() error {
		v, err := c.invoke(ctx, input)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		vector = v
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{unit: c.cfg.RetryBackoff}, uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		log.Warnf("[EmbeddingClient] 调用失败，%v 后重试: %v", wait, err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 最终失败: %v", err)
		return nil, apperr.Wrap(apperr.CodeEmbeddingRequestFailed, "embedding request failed", err)
	}
	return vector, nil
}

// transportError marks a call that never got a response.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "failed to call embedding api: " + e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// retryable reports whether a failure came with no response or a 5xx status.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500
	}
	var te *transportError
	return errors.As(err, &te)
}

type dimensionError struct {
	got, want int
}

func (e *dimensionError) Error() string {
	return fmt.Sprintf("embedding has dimension %d, expected %d", e.got, e.want)
}

func (c *titanClient) invoke(ctx context.Context, input string) ([]float64, error) {
	reqBytes, err := json.Marshal(embeddingRequest{InputText: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL(), bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("x-amz-bedrock-model-id", c.cfg.Model)

	log.Debugf("[EmbeddingClient] 调用 Embedding API, model: %s, input_len: %d", c.cfg.Model, len(input))
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &statusError{status: resp.StatusCode, body: string(body)}
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(embeddingResp.Embedding) == 0 {
		return nil, errors.New("received empty embedding from api")
	}
	if c.cfg.Dimensions > 0 && len(embeddingResp.Embedding) != c.cfg.Dimensions {
		return nil, &dimensionError{got: len(embeddingResp.Embedding), want: c.cfg.Dimensions}
	}
	return embeddingResp.Embedding, nil
}

func (c *titanClient) invokeURL() string {
	endpoint := strings.TrimRight(c.cfg.Endpoint, "/")
	if strings.Contains(endpoint, "/model/") {
		return endpoint
	}
	return endpoint + "/model/" + c.cfg.Model + "/invoke"
}
