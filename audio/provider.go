package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrEmptyGeneration = errors.New("provider returned no audio")

// Provider produces audio for a spec. Any error sends the caller to the
// procedural fallback.
type Provider interface {
	Generate(ctx context.Context, spec Spec, category string) (Clip, error)
}

// HTTPProvider calls an external generation service over JSON/HTTP.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Spec     Spec   `json:"spec"`
	Category string `json:"category"`
}

func (p *HTTPProvider) Generate(ctx context.Context, spec Spec, category string) (Clip, error) {
	body, err := json.Marshal(generateRequest{Spec: spec, Category: category})
	if err != nil {
		return Clip{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return Clip{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Clip{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Clip{}, fmt.Errorf("provider returned status code: %d, response: %s", resp.StatusCode, string(data))
	}

	var clip Clip
	if err := json.Unmarshal(data, &clip); err != nil {
		return Clip{}, fmt.Errorf("failed to decode provider response: %w", err)
	}
	if clip.URL == "" && len(clip.Notes) == 0 {
		return Clip{}, ErrEmptyGeneration
	}
	return clip, nil
}
