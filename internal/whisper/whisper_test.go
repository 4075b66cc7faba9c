package whisper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/petems/clipwav/internal/pcm"
	"github.com/petems/clipwav/internal/wav"
	"github.com/rs/zerolog"
)

func testClip(t *testing.T) wav.Clip {
	t.Helper()
	clip, err := wav.NewClip(pcm.Buffer{SampleRate: 16000, Channels: 1, Samples: make([]float32, 320)})
	if err != nil {
		t.Fatal(err)
	}
	return clip
}

func TestServerTranscribe(t *testing.T) {
	clip := testClip(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" || r.Method != http.MethodPost {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if len(data) != clip.Len() {
			http.Error(w, "short upload", http.StatusBadRequest)
			return
		}
		if r.FormValue("language") != "en" {
			http.Error(w, "missing language", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text": "  hello world \n"}`)
	}))
	defer srv.Close()

	tr, err := NewServer(srv.URL+"/", WithLanguage("en"))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer tr.Close()

	text, err := tr.Transcribe(context.Background(), clip)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", text)
	}
}

func TestServerTranscribeErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http 500", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			tr, _ := NewServer(srv.URL)
			_, err := tr.Transcribe(context.Background(), testClip(t))
			if !errors.Is(err, ErrTransport) {
				t.Fatalf("expected ErrTransport, got %v", err)
			}
		})
	}
}

func TestServerTranscribeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr, _ := NewServer(url)
	if _, err := tr.Transcribe(context.Background(), testClip(t)); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestNewServerRequiresURL(t *testing.T) {
	if _, err := NewServer(""); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestDownloadModel(t *testing.T) {
	payload := []byte("ggml model bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ggml-tiny.en.bin" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	orig := modelBaseURL
	modelBaseURL = srv.URL
	defer func() { modelBaseURL = orig }()

	dest := filepath.Join(t.TempDir(), "models", "tiny.en.bin")
	if err := downloadModel(context.Background(), zerolog.Nop(), "tiny.en", dest); err != nil {
		t.Fatalf("downloadModel failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Fatalf("unexpected model contents %q", got)
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}
}

func TestDownloadUnknownModel(t *testing.T) {
	if err := downloadModel(context.Background(), zerolog.Nop(), "huge", filepath.Join(t.TempDir(), "x.bin")); err == nil {
		t.Fatal("expected unknown model error")
	}
}
