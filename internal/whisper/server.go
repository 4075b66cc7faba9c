package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/petems/clipwav/internal/wav"
)

// Option configures a server transcriber
type Option func(*serverTranscriber)

func WithLanguage(lang string) Option {
	return func(s *serverTranscriber) {
		if lang != "auto" {
			s.language = lang
		}
	}
}

func WithModel(model string) Option {
	return func(s *serverTranscriber) { s.model = model }
}

func WithTimeout(d time.Duration) Option {
	return func(s *serverTranscriber) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(s *serverTranscriber) { s.httpClient = c }
}

type serverTranscriber struct {
	serverURL  string
	language   string
	model      string
	httpClient *http.Client
}

// NewServer creates a transcriber backed by a whisper.cpp server's
// /inference endpoint
func NewServer(serverURL string, opts ...Option) (Transcriber, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("whisper: server URL is required")
	}
	s := &serverTranscriber{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Transcribe POSTs the clip as multipart/form-data and returns the text.
// Failures are not retried.
func (s *serverTranscriber) Transcribe(ctx context.Context, clip wav.Clip) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	// Primary audio field.
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("%w: create form file: %v", ErrTransport, err)
	}
	if _, err := io.Copy(fw, clip.Reader()); err != nil {
		return "", fmt.Errorf("%w: write wav data: %v", ErrTransport, err)
	}

	// Optional hint fields.
	if s.language != "" {
		if err := mw.WriteField("language", s.language); err != nil {
			return "", fmt.Errorf("%w: write language field: %v", ErrTransport, err)
		}
	}
	if s.model != "" {
		if err := mw.WriteField("model", s.model); err != nil {
			return "", fmt.Errorf("%w: write model field: %v", ErrTransport, err)
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("%w: write format field: %v", ErrTransport, err)
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: close multipart writer: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: http request: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: server returned HTTP %d", ErrTransport, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response body: %v", ErrTransport, err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("%w: parse JSON response: %v", ErrTransport, err)
	}

	return strings.TrimSpace(result.Text), nil
}

func (s *serverTranscriber) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
