package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/depot-replenishment/internal/config"
)

const defaultTimeout = 60 * time.Second

// Completer turns a prompt into free text. The engine never depends on it.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type disabledCompleter struct{}

func Disabled() Completer { return disabledCompleter{} }

func (disabledCompleter) Complete(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

// NewCompleter returns the Ollama client when the assistant is enabled.
func NewCompleter(cfg config.AssistantConfig) Completer {
	if !cfg.Enabled || cfg.BaseURL == "" {
		return disabledCompleter{}
	}
	return NewOllamaClient(cfg)
}

type ollamaClient struct {
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
}

func NewOllamaClient(cfg config.AssistantConfig) Completer {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ollamaClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		timeout: timeout,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
}

// generateRequest is the JSON body sent to POST /api/generate.
type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

func (c *ollamaClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.doRequest(ctx, generateRequest{
		Model:  c.model,
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		log.Warn().Err(err).Str("model", c.model).Dur("latency", time.Since(start)).Msg("assistant call failed")
		switch {
		case ctx.Err() != nil:
			return "", ErrTimeout
		case isConnectionError(err):
			return "", ErrUnavailable
		}
		return "", err
	}

	log.Debug().Str("model", resp.Model).Dur("latency", time.Since(start)).Msg("assistant call complete")
	return strings.TrimSpace(resp.Response), nil
}

func (c *ollamaClient) doRequest(ctx context.Context, body generateRequest) (*generateResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assistant returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
