package diarize

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"chronicle/internal/services"
)

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip_001.webm")
	if err := os.WriteFile(path, []byte("webm-bytes"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func TestTranscribeSendsKnownSpeakers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		form := r.MultipartForm
		if got := form.Value["model"]; len(got) != 1 || got[0] != "gpt-4o-transcribe-diarize" {
			t.Errorf("unexpected model %v", got)
		}
		if got := form.Value["response_format"]; len(got) != 1 || got[0] != "diarized_json" {
			t.Errorf("unexpected response format %v", got)
		}
		names := form.Value["known_speaker_names[]"]
		refs := form.Value["known_speaker_references[]"]
		if len(names) != 2 || names[0] != "Alice" || names[1] != "Bob" {
			t.Errorf("unexpected speaker names %v", names)
		}
		if len(refs) != 2 || refs[0] != "data:audio/webm;base64,QQ==" {
			t.Errorf("unexpected speaker refs %v", refs)
		}
		files := form.File["file"]
		if len(files) != 1 || files[0].Filename != "clip_001.webm" {
			t.Errorf("unexpected file parts %v", files)
		} else {
			f, _ := files[0].Open()
			data, _ := io.ReadAll(f)
			f.Close()
			if string(data) != "webm-bytes" {
				t.Errorf("unexpected audio payload %q", data)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text": "hi",
			"segments": []any{
				map[string]any{"start": 1.2, "end": 2.0, "speaker": "Alice", "text": " Look! "},
				map[string]any{"start": 3.0, "end": 4.0, "speaker": "Bob", "text": ""},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL + "/v1/"})
	resp, err := client.Transcribe(context.Background(), writeClip(t), []Speaker{
		{Name: "Alice", DataURL: "data:audio/webm;base64,QQ=="},
		{Name: "Bob", DataURL: "data:audio/webm;base64,Qg=="},
		{Name: "", DataURL: "data:audio/webm;base64,Qw=="},
	})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if len(resp.Segments) != 2 || resp.Segments[0].Speaker != "Alice" || resp.Segments[0].Start != 1.2 {
		t.Fatalf("unexpected segments %+v", resp.Segments)
	}
}

func TestTranscribeWithoutSpeakersOmitsReferenceFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if _, ok := r.MultipartForm.Value["known_speaker_names[]"]; ok {
			t.Errorf("expected no speaker names")
		}
		_, _ = w.Write([]byte(`{"segments":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	if _, err := client.Transcribe(context.Background(), writeClip(t), nil); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
}

func TestTranscribeClassifiesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	clip := writeClip(t)

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	_, err := client.Transcribe(context.Background(), clip, nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error for 502, got %v", err)
	}

	_, err = client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.webm"), nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing clip, got %v", err)
	}

	_, err = NewClient(Config{BaseURL: server.URL}).Transcribe(context.Background(), clip, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without key, got %v", err)
	}
}

func TestTranscribeMalformedBodyIsValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	_, err := client.Transcribe(context.Background(), writeClip(t), nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
