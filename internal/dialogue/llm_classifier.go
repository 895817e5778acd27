package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const consentClassifierPrompt = `You are a consent detection system for phone surveys.
Analyze the user's response to determine if they consent to participate in a brief survey.

Respond with EXACTLY one of these intents:
- POSITIVE: User clearly agrees/consents (e.g., "yes", "sure", "okay", "go ahead", "sì", "va bene")
- NEGATIVE: User clearly refuses (e.g., "no", "not interested", "no thanks", "non mi interessa")
- UNCLEAR: Cannot determine intent (mumbling, off-topic, silence)
- REPEAT_REQUEST: User asks to repeat the question (e.g., "what?", "can you repeat?", "come?")

Output format (JSON):
{"intent": "POSITIVE|NEGATIVE|UNCLEAR|REPEAT_REQUEST", "confidence": 0.0-1.0, "reasoning": "brief explanation"}

Be conservative: if unsure, use UNCLEAR. Consider cultural variations for Italian responses.`

const qaClassifierPromptFmt = `You are analyzing a user's response to a survey question.
Your task is to determine the user's intent and extract their answer if provided.

Question type: %s
%s

Analyze the response and output in this exact format:
INTENT: [ANSWER|REPEAT_REQUEST|UNCLEAR|OFF_TOPIC]
ANSWER: [extracted answer or NONE]
CONFIDENCE: [0.0-1.0]
REASONING: [brief explanation]

Intent definitions:
- ANSWER: User provided a valid answer to the question
- REPEAT_REQUEST: User asked to repeat the question (e.g., "can you repeat that?", "what was the question?", "sorry?")
- UNCLEAR: Cannot determine what the user meant
- OFF_TOPIC: User's response is unrelated to the question

Be generous in interpreting answers - if the user attempts to answer, extract what you can.`

var qaAnswerTypeHints = map[string]string{
	"free_text": "Extract the main content of their response as the answer.",
	"numeric":   "Extract the number from their response. If they give a range, use the midpoint.",
	"scale":     "Extract the scale value (number) from their response.",
}

// LLMIntentClassifier implements the Classifier collaborator contract over
// an LLMClient. Parse failures surface as errors so the caller falls back.
type LLMIntentClassifier struct {
	client LLMClient
	model  string
}

func NewLLMIntentClassifier(client LLMClient, model string) *LLMIntentClassifier {
	if client == nil {
		panic("dialogue: llm client cannot be nil")
	}
	return &LLMIntentClassifier{client: client, model: model}
}

func (c *LLMIntentClassifier) Classify(ctx context.Context, req ClassifyRequest) (Result, error) {
	switch req.Mode {
	case ModeConsent:
		return c.classifyConsent(ctx, req)
	case ModeQA:
		return c.classifyAnswer(ctx, req)
	default:
		return Result{}, fmt.Errorf("dialogue: unknown classification mode %q", req.Mode)
	}
}

func (c *LLMIntentClassifier) classifyConsent(ctx context.Context, req ClassifyRequest) (Result, error) {
	prompt := fmt.Sprintf("Language: %s\nUser response: %q\n\nDetect consent intent.", req.Language, req.Utterance)

	resp, err := c.client.Complete(ctx, LLMRequest{
		Model:       c.model,
		System:      []string{consentClassifierPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   100,
		Temperature: 0.1,
	})
	if err != nil {
		return Result{}, fmt.Errorf("dialogue: consent classification: %w", err)
	}
	return parseConsentClassification(resp.Text)
}

func (c *LLMIntentClassifier) classifyAnswer(ctx context.Context, req ClassifyRequest) (Result, error) {
	hint, ok := qaAnswerTypeHints[req.QuestionType]
	if !ok {
		hint = "Extract the answer."
	}
	system := fmt.Sprintf(qaClassifierPromptFmt, req.QuestionType, hint)
	prompt := fmt.Sprintf("Question asked: %s\n\nUser response: %s", req.QuestionText, req.Utterance)

	resp, err := c.client.Complete(ctx, LLMRequest{
		Model:       c.model,
		System:      []string{system},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   300,
		Temperature: 0.2,
	})
	if err != nil {
		return Result{}, fmt.Errorf("dialogue: answer classification: %w", err)
	}
	return parseAnswerClassification(resp.Text)
}

// parseConsentClassification decodes the JSON intent envelope. The model
// may wrap the JSON in extra prose, so the outermost braces are located
// first.
func parseConsentClassification(text string) (Result, error) {
	content := strings.TrimSpace(text)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("dialogue: consent classification response has no JSON object: %q", text)
	}

	var payload struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return Result{}, fmt.Errorf("dialogue: decode consent classification: %w", err)
	}

	intent := Intent(strings.ToLower(strings.TrimSpace(payload.Intent)))
	if !intentValidForMode(intent, ModeConsent) {
		return Result{}, fmt.Errorf("dialogue: unexpected consent intent %q", payload.Intent)
	}
	return Result{
		Intent:     intent,
		Confidence: clampConfidence(payload.Confidence),
		Reasoning:  payload.Reasoning,
	}, nil
}

// parseAnswerClassification decodes the INTENT/ANSWER/CONFIDENCE line
// format used for answer extraction.
func parseAnswerClassification(text string) (Result, error) {
	var (
		result    Result
		sawIntent bool
	)
	result.Confidence = 0.5

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "INTENT:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "INTENT:"))
			intent := Intent(strings.ToLower(raw))
			if !intentValidForMode(intent, ModeQA) {
				return Result{}, fmt.Errorf("dialogue: unexpected answer intent %q", raw)
			}
			result.Intent = intent
			sawIntent = true
		case strings.HasPrefix(line, "ANSWER:"):
			answer := strings.TrimSpace(strings.TrimPrefix(line, "ANSWER:"))
			if answer != "" && !strings.EqualFold(answer, "NONE") {
				result.AnswerText = answer
			}
		case strings.HasPrefix(line, "CONFIDENCE:"):
			if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:")), 64); err == nil {
				result.Confidence = clampConfidence(v)
			}
		case strings.HasPrefix(line, "REASONING:"):
			result.Reasoning = strings.TrimSpace(strings.TrimPrefix(line, "REASONING:"))
		}
	}

	if !sawIntent {
		return Result{}, fmt.Errorf("dialogue: answer classification response missing INTENT line: %q", text)
	}
	return result, nil
}
