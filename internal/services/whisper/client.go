package whisper

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"chronicle/internal/services"
)

const (
	serviceName    = "whisper"
	defaultBaseURL = "https://api.openai.com/v1"
)

// Config describes the OpenAI-compatible transcription endpoint.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// Segment is one timed span of the transcription. Whisper does not diarize,
// so segments carry no speaker.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Client wraps go-openai's transcription endpoint.
type Client struct {
	cfg Config
	api *openai.Client
}

// NewClient constructs a whisper client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = openai.Whisper1
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return &Client{cfg: cfg, api: openai.NewClientWithConfig(clientConfig)}
}

// Transcribe uploads the clip and returns its timed segments.
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "transcribe", "api key required", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, serviceName, "stat audio", audioPath, err)
	}
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.Model,
		FilePath: audioPath,
		Language: c.cfg.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, classify(err)
	}
	segments := make([]Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	if len(segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		segments = append(segments, Segment{Start: 0, End: resp.Duration, Text: resp.Text})
	}
	return segments, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		statusErr := &services.HTTPStatusError{Service: serviceName, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		return services.Wrap(statusErr, serviceName, "transcribe", "", err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		statusErr := &services.HTTPStatusError{Service: serviceName, StatusCode: reqErr.HTTPStatusCode, Body: string(reqErr.Body)}
		return services.Wrap(statusErr, serviceName, "transcribe", "", err)
	}
	return services.Wrap(services.TransportMarker(err), serviceName, "transcribe", "", err)
}
