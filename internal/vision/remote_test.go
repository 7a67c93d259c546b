package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoteTagger_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ImageSource == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(&Annotation{
			Labels:       []string{"key", "keychain"},
			Colors:       []string{"rgb(192,192,192)", "rgb(255,0,0)"},
			DetectedText: "ROOM 204",
		})
	}))
	defer srv.Close()

	tagger, err := NewRemoteTagger(srv.URL)
	if err != nil {
		t.Fatalf("NewRemoteTagger: %v", err)
	}
	defer tagger.Close()

	ann, err := tagger.Analyze(context.Background(), "https://example.com/keys.jpg")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(ann.Labels) != 2 || ann.Labels[0] != "key" {
		t.Errorf("Labels = %v", ann.Labels)
	}
	if ann.DetectedText != "ROOM 204" {
		t.Errorf("DetectedText = %q", ann.DetectedText)
	}
}

func TestRemoteTagger_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tagger, _ := NewRemoteTagger(srv.URL)
	defer tagger.Close()
	if _, err := tagger.Analyze(context.Background(), "https://example.com/keys.jpg"); err == nil {
		t.Error("expected error on 500 from vision service")
	}
}

func TestNopTagger(t *testing.T) {
	ann, err := NopTagger{}.Analyze(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(ann.Labels) != 0 || len(ann.Colors) != 0 || ann.DetectedText != "" {
		t.Errorf("NopTagger annotation not empty: %+v", ann)
	}
}
