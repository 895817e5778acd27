package dialogue

import (
	"context"
	"errors"
	"testing"
)

type fakeLLMClient struct {
	text string
	err  error
	last LLMRequest
}

func (f *fakeLLMClient) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.last = req
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.text}, nil
}

func TestParseConsentClassification(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Intent
		wantErr bool
	}{
		{
			name: "clean json",
			text: `{"intent": "POSITIVE", "confidence": 0.92, "reasoning": "clear agreement"}`,
			want: IntentPositive,
		},
		{
			name: "json wrapped in prose",
			text: "Here is my analysis:\n{\"intent\": \"NEGATIVE\", \"confidence\": 0.88, \"reasoning\": \"refusal\"}\nDone.",
			want: IntentNegative,
		},
		{
			name: "repeat request",
			text: `{"intent": "REPEAT_REQUEST", "confidence": 0.8, "reasoning": "asked to repeat"}`,
			want: IntentRepeatRequest,
		},
		{
			name:    "no json",
			text:    "the user seems to agree",
			wantErr: true,
		},
		{
			name:    "intent outside vocabulary",
			text:    `{"intent": "MAYBE", "confidence": 0.5, "reasoning": ""}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseConsentClassification(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Intent != tt.want {
				t.Errorf("intent: got %q, want %q", got.Intent, tt.want)
			}
		})
	}
}

func TestParseConsentClassification_ClampsConfidence(t *testing.T) {
	got, err := parseConsentClassification(`{"intent": "POSITIVE", "confidence": 3.5, "reasoning": ""}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Confidence != 1.0 {
		t.Errorf("confidence: got %v, want 1.0", got.Confidence)
	}
}

func TestParseAnswerClassification(t *testing.T) {
	text := "INTENT: ANSWER\nANSWER: about seven people\nCONFIDENCE: 0.85\nREASONING: clear numeric answer"
	got, err := parseAnswerClassification(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Intent != IntentAnswer {
		t.Errorf("intent: got %q, want %q", got.Intent, IntentAnswer)
	}
	if got.AnswerText != "about seven people" {
		t.Errorf("answer: got %q", got.AnswerText)
	}
	if got.Confidence != 0.85 {
		t.Errorf("confidence: got %v", got.Confidence)
	}
	if got.Reasoning != "clear numeric answer" {
		t.Errorf("reasoning: got %q", got.Reasoning)
	}
}

func TestParseAnswerClassification_NoneAnswer(t *testing.T) {
	got, err := parseAnswerClassification("INTENT: UNCLEAR\nANSWER: NONE\nCONFIDENCE: 0.3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Intent != IntentUnclear {
		t.Errorf("intent: got %q", got.Intent)
	}
	if got.AnswerText != "" {
		t.Errorf("answer: got %q, want empty", got.AnswerText)
	}
}

func TestParseAnswerClassification_MissingIntent(t *testing.T) {
	if _, err := parseAnswerClassification("ANSWER: seven\nCONFIDENCE: 0.9"); err == nil {
		t.Error("expected error for missing INTENT line")
	}
}

func TestParseAnswerClassification_DefaultConfidence(t *testing.T) {
	got, err := parseAnswerClassification("INTENT: OFF_TOPIC\nANSWER: NONE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Confidence != 0.5 {
		t.Errorf("confidence: got %v, want default 0.5", got.Confidence)
	}
}

func TestLLMIntentClassifier_ConsentRequest(t *testing.T) {
	llm := &fakeLLMClient{text: `{"intent": "POSITIVE", "confidence": 0.9, "reasoning": "agreed"}`}
	c := NewLLMIntentClassifier(llm, "model-id")

	got, err := c.Classify(context.Background(), ClassifyRequest{Utterance: "sure", Language: "en", Mode: ModeConsent})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Intent != IntentPositive {
		t.Errorf("intent: got %q", got.Intent)
	}
	if llm.last.Model != "model-id" {
		t.Errorf("model: got %q", llm.last.Model)
	}
	if llm.last.Temperature != 0.1 {
		t.Errorf("temperature: got %v", llm.last.Temperature)
	}
}

func TestLLMIntentClassifier_QARequest(t *testing.T) {
	llm := &fakeLLMClient{text: "INTENT: ANSWER\nANSWER: 7\nCONFIDENCE: 0.9"}
	c := NewLLMIntentClassifier(llm, "model-id")

	got, err := c.Classify(context.Background(), ClassifyRequest{
		Utterance:    "seven of us",
		Language:     "en",
		Mode:         ModeQA,
		QuestionText: "How many people live in your household?",
		QuestionType: "numeric",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AnswerText != "7" {
		t.Errorf("answer: got %q", got.AnswerText)
	}
}

func TestLLMIntentClassifier_PropagatesError(t *testing.T) {
	llm := &fakeLLMClient{err: errors.New("throttled")}
	c := NewLLMIntentClassifier(llm, "model-id")

	if _, err := c.Classify(context.Background(), ClassifyRequest{Utterance: "yes", Mode: ModeConsent}); err == nil {
		t.Error("expected error")
	}
}
