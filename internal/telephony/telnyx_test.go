package telephony

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewTelnyxClient_MissingAPIKey(t *testing.T) {
	_, err := NewTelnyxClient(TelnyxClientConfig{})
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewTelnyxClient_Success(t *testing.T) {
	client, err := NewTelnyxClient(TelnyxClientConfig{APIKey: "key_123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestPlayText_Success(t *testing.T) {
	var gotPath string
	var gotBody speakRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("Authorization") != "Bearer test_key" {
			t.Errorf("auth: got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"result":"ok"}}`))
	}))
	defer server.Close()

	client, _ := NewTelnyxClient(TelnyxClientConfig{
		APIKey:  "test_key",
		BaseURL: server.URL,
		Voice:   "female",
	})

	if err := client.PlayText(context.Background(), "call-123", "Do you consent?", "it"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/calls/call-123/actions/speak" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotBody.Payload != "Do you consent?" {
		t.Errorf("payload: got %q", gotBody.Payload)
	}
	if gotBody.Language != "it-IT" {
		t.Errorf("language: got %q, want it-IT", gotBody.Language)
	}
}

func TestPlayText_EmptyTextIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty text")
	}))
	defer server.Close()

	client, _ := NewTelnyxClient(TelnyxClientConfig{APIKey: "k", BaseURL: server.URL})
	if err := client.PlayText(context.Background(), "call-1", "   ", "en"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTerminateCall_Success(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"result":"ok"}}`))
	}))
	defer server.Close()

	client, _ := NewTelnyxClient(TelnyxClientConfig{APIKey: "k", BaseURL: server.URL})
	if err := client.TerminateCall(context.Background(), "call-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/calls/call-9/actions/hangup" {
		t.Errorf("path: got %q", gotPath)
	}
}

func TestTerminateCall_AlreadyEndedIsBenign(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnprocessableEntity} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"errors":[{"title":"Call has already ended"}]}`))
		}))

		client, _ := NewTelnyxClient(TelnyxClientConfig{APIKey: "k", BaseURL: server.URL})
		if err := client.TerminateCall(context.Background(), "call-1"); err != nil {
			t.Errorf("status %d: unexpected error: %v", status, err)
		}
		server.Close()
	}
}

func TestTerminateCall_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := NewTelnyxClient(TelnyxClientConfig{APIKey: "k", BaseURL: server.URL})
	if err := client.TerminateCall(context.Background(), "call-1"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestTerminateCall_MissingCallID(t *testing.T) {
	client, _ := NewTelnyxClient(TelnyxClientConfig{APIKey: "k"})
	if err := client.TerminateCall(context.Background(), " "); err == nil {
		t.Error("expected error for missing call ID")
	}
}

func TestSpeakLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en-US"},
		{"it", "it-IT"},
		{"fr", "en-US"},
	}
	for _, tt := range tests {
		if got := speakLanguage(tt.in); got != tt.want {
			t.Errorf("speakLanguage(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
