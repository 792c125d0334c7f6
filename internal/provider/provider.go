package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/h7labs/imageforge/internal/config"
)

// Image is the decoded output of one successful provider call.
type Image struct {
	Data []byte
	Mime string
	Seed string
}

// Provider is one external image generation backend.
type Provider interface {
	// Tag returns the identifier stored on generation records.
	Tag() string

	// Generate performs one bounded HTTP attempt for the prompt.
	Generate(ctx context.Context, prompt string) (*Image, error)
}

// HTTPProvider calls a configured endpoint and decodes the response according
// to the provider's shape: a JSON envelope with a base64 image field, or the
// raw image bytes.
type HTTPProvider struct {
	tag        string
	endpoint   string
	apiKey     string
	shape      config.ProviderShape
	httpClient *http.Client
	log        *slog.Logger
}

// NewHTTPProvider builds a provider from its config entry. The timeout bounds
// the full request, including reading the body.
func NewHTTPProvider(cfg config.ProviderConfig, timeout time.Duration, log *slog.Logger) *HTTPProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPProvider{
		tag:      cfg.Name,
		endpoint: strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		shape:    cfg.Shape,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (p *HTTPProvider) Tag() string {
	return p.tag
}

func (p *HTTPProvider) Generate(ctx context.Context, prompt string) (*Image, error) {
	payload := map[string]any{
		"prompt":        prompt,
		"output_format": "png",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if p.shape == config.ShapeJSON {
		req.Header.Set("Accept", "application/json")
	} else {
		req.Header.Set("Accept", "image/*")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", p.tag, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s error: status=%d body=%s", p.tag, resp.StatusCode, truncateBody(rawBody))
	}

	switch p.shape {
	case config.ShapeBinary:
		return p.decodeBinary(resp, rawBody)
	default:
		return p.decodeJSON(rawBody)
	}
}

func (p *HTTPProvider) decodeJSON(rawBody []byte) (*Image, error) {
	var envelope struct {
		Image string      `json:"image"`
		Seed  json.Number `json:"seed"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w (body=%s)", p.tag, err, truncateBody(rawBody))
	}
	if envelope.Image == "" {
		return nil, fmt.Errorf("%s response has no image field (body=%s)", p.tag, truncateBody(rawBody))
	}

	data, err := base64.StdEncoding.DecodeString(envelope.Image)
	if err != nil {
		return nil, fmt.Errorf("decode %s base64 image: %w", p.tag, err)
	}

	return &Image{
		Data: data,
		Mime: "image/png",
		Seed: envelope.Seed.String(),
	}, nil
}

func (p *HTTPProvider) decodeBinary(resp *http.Response, rawBody []byte) (*Image, error) {
	if len(rawBody) == 0 {
		return nil, fmt.Errorf("%s returned an empty body", p.tag)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%s returned unexpected content type %q", p.tag, mime)
	}
	return &Image{Data: rawBody, Mime: mime}, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
