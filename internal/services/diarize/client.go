package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chronicle/internal/services"
)

const (
	serviceName         = "diarize"
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultModel        = "gpt-4o-transcribe-diarize"
	defaultHTTPTimeout  = 5 * time.Minute
	transcriptionsPath  = "/audio/transcriptions"
	diarizedJSONFormat  = "diarized_json"
	autoChunkingSetting = "auto"
)

// Config describes the transcription endpoint.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// Speaker is a known voice sample passed as a diarization hint. DataURL must
// already be encoded (data:<mime>;base64,...).
type Speaker struct {
	Name    string
	DataURL string
}

// Segment is one diarized span of the response.
type Segment struct {
	ID      string  `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Response mirrors the subset of the diarized_json payload we consume.
type Response struct {
	Text     string    `json:"text"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Client posts clips to the diarizing transcription endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient constructs a diarization client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	client := &Client{cfg: cfg, http: &http.Client{Timeout: defaultHTTPTimeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Transcribe uploads the clip and returns diarized segments. Speakers are
// labelled with the supplied names when references are given, otherwise the
// service assigns anonymous labels (A, B, ...).
func (c *Client) Transcribe(ctx context.Context, audioPath string, speakers []Speaker) (Response, error) {
	if c.cfg.APIKey == "" {
		return Response{}, services.Wrap(services.ErrConfiguration, serviceName, "transcribe", "api key required", nil)
	}
	file, err := os.Open(audioPath)
	if err != nil {
		return Response{}, services.Wrap(services.ErrNotFound, serviceName, "open audio", audioPath, err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", diarizedJSONFormat},
		{"chunking_strategy", autoChunkingSetting},
	}
	if c.cfg.Language != "" {
		fields = append(fields, [2]string{"language", c.cfg.Language})
	}
	for _, speaker := range speakers {
		name := strings.TrimSpace(speaker.Name)
		if name == "" || speaker.DataURL == "" {
			continue
		}
		fields = append(fields,
			[2]string{"known_speaker_names[]", name},
			[2]string{"known_speaker_references[]", speaker.DataURL},
		)
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return Response{}, fmt.Errorf("diarize client: write %s field: %w", field[0], err)
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Response{}, fmt.Errorf("diarize client: create file field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Response{}, services.Wrap(services.ErrNotFound, serviceName, "read audio", audioPath, err)
	}
	if err := writer.Close(); err != nil {
		return Response{}, fmt.Errorf("diarize client: close multipart writer: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+transcriptionsPath, body)
	if err != nil {
		return Response{}, fmt.Errorf("diarize client: build request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(request)
	if err != nil {
		return Response{}, services.Wrap(services.TransportMarker(err), serviceName, "post", "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, services.Wrap(services.TransportMarker(err), serviceName, "read response", "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, services.NewHTTPStatusError(serviceName, resp, payload)
	}

	var decoded Response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Response{}, services.Wrap(services.ErrValidation, serviceName, "decode response", "", err)
	}
	return decoded, nil
}
