// Package telephony drives live calls through the Telnyx Call Control API.
package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voxcampaign/voice-survey-platform/pkg/logging"
)

const (
	defaultTelnyxBaseURL = "https://api.telnyx.com/v2"
	telnyxCallTimeout    = 15 * time.Second
	defaultVoice         = "female"
)

// TelnyxClient plays prompts on and terminates live calls via Telnyx Call
// Control command endpoints.
type TelnyxClient struct {
	apiKey     string
	baseURL    string
	voice      string
	httpClient *http.Client
	logger     *logging.Logger
}

// TelnyxClientConfig configures the call control client.
type TelnyxClientConfig struct {
	// APIKey is the Telnyx API key (Bearer token).
	APIKey string
	// BaseURL overrides the Telnyx API base URL (for testing).
	BaseURL string
	// Voice selects the TTS voice for speak commands.
	Voice string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// NewTelnyxClient creates a Telnyx call control client.
func NewTelnyxClient(cfg TelnyxClientConfig) (*TelnyxClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("telephony: telnyx API key required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTelnyxBaseURL
	}
	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: telnyxCallTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &TelnyxClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		voice:      voice,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type speakRequest struct {
	Payload  string `json:"payload"`
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

// PlayText speaks text on the call using Telnyx TTS.
func (c *TelnyxClient) PlayText(ctx context.Context, callID, text, language string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	req := speakRequest{
		Payload:  text,
		Voice:    c.voice,
		Language: speakLanguage(language),
	}
	return c.postAction(ctx, callID, "speak", req)
}

// TerminateCall hangs up the call. Hanging up a call that already ended is
// treated as success.
func (c *TelnyxClient) TerminateCall(ctx context.Context, callID string) error {
	return c.postAction(ctx, callID, "hangup", struct{}{})
}

func (c *TelnyxClient) postAction(ctx context.Context, callID, action string, payload any) error {
	if strings.TrimSpace(callID) == "" {
		return fmt.Errorf("telephony: call ID required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telephony: marshal %s request: %w", action, err)
	}

	endpoint := fmt.Sprintf("%s/calls/%s/actions/%s", c.baseURL, url.PathEscape(callID), action)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telephony: create %s request: %w", action, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("telephony: %s request: %w", action, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telephony: read %s response: %w", action, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Telnyx answers 404/422 when the call already hung up. For our flows
	// that outcome is equivalent to success.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity {
		c.logger.Info("telnyx: call already ended", "call_id", callID, "action", action, "status", resp.StatusCode)
		return nil
	}

	c.logger.Error("telnyx: API error",
		"call_id", callID, "action", action, "status", resp.StatusCode, "body", string(respBody))
	return fmt.Errorf("telephony: %s returned %d: %s", action, resp.StatusCode, string(respBody))
}

// speakLanguage maps dialogue language codes to Telnyx TTS locales.
func speakLanguage(language string) string {
	switch language {
	case "it":
		return "it-IT"
	default:
		return "en-US"
	}
}
