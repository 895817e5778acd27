package dialogue

import (
	"context"
	"strings"
	"unicode"

	"github.com/voxcampaign/voice-survey-platform/internal/observability/metrics"
	"github.com/voxcampaign/voice-survey-platform/pkg/logging"
)

// Mode selects the closed intent vocabulary for a classification.
type Mode string

const (
	ModeConsent Mode = "consent"
	ModeQA      Mode = "qa"
)

// Intent is the classified meaning of an utterance within a mode.
type Intent string

const (
	// Consent mode.
	IntentPositive      Intent = "positive"
	IntentNegative      Intent = "negative"
	IntentUnclear       Intent = "unclear"
	IntentRepeatRequest Intent = "repeat_request"

	// Q&A mode. IntentRepeatRequest and IntentUnclear are shared.
	IntentAnswer   Intent = "answer"
	IntentOffTopic Intent = "off_topic"
)

// Classification result sources, used for metrics only.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
	SourceEmpty    = "empty"
)

// Fallback confidences are fixed so keyword classification stays
// deterministic and distinguishable from the primary path.
const (
	fallbackMatchConfidence   = 0.7
	fallbackRepeatConfidence  = 0.6
	fallbackUnclearConfidence = 0.5
)

// ClassifyRequest carries one utterance plus its dialogue context.
type ClassifyRequest struct {
	Utterance    string
	Language     string
	Mode         Mode
	QuestionText string
	QuestionType string
}

// Result is a classified utterance. AnswerText is set only for
// IntentAnswer in Q&A mode.
type Result struct {
	Intent     Intent
	Confidence float64
	AnswerText string
	Reasoning  string
	Source     string
}

// Classifier is the language-classification collaborator contract. It may
// fail; IntentClassifier recovers with the keyword fallback.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (Result, error)
}

// IntentClassifier wraps the remote collaborator with the deterministic
// keyword fallback. Classification is never fatal to a call.
type IntentClassifier struct {
	remote  Classifier
	logger  *logging.Logger
	metrics *metrics.DialogueMetrics
}

func NewIntentClassifier(remote Classifier, logger *logging.Logger, m *metrics.DialogueMetrics) *IntentClassifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &IntentClassifier{remote: remote, logger: logger, metrics: m}
}

// Classify turns an utterance into an intent for the given mode. Empty or
// silent input short-circuits to UNCLEAR without calling the collaborator.
func (c *IntentClassifier) Classify(ctx context.Context, req ClassifyRequest) Result {
	req.Language = NormalizeLanguage(req.Language)

	if strings.TrimSpace(req.Utterance) == "" {
		c.metrics.ObserveClassification(string(req.Mode), SourceEmpty)
		return Result{
			Intent:     IntentUnclear,
			Confidence: 0.0,
			Reasoning:  "empty or silent response",
			Source:     SourceEmpty,
		}
	}

	if c.remote != nil {
		result, err := c.remote.Classify(ctx, req)
		if err == nil && intentValidForMode(result.Intent, req.Mode) {
			result.Confidence = clampConfidence(result.Confidence)
			result.Source = SourceLLM
			c.metrics.ObserveClassification(string(req.Mode), SourceLLM)
			return result
		}
		if err != nil {
			c.logger.Warn("intent classification failed, using keyword fallback",
				"error", err, "mode", req.Mode, "language", req.Language)
		} else {
			c.logger.Warn("classifier returned out-of-mode intent, using keyword fallback",
				"intent", result.Intent, "mode", req.Mode)
		}
	}

	c.metrics.ObserveClassification(string(req.Mode), SourceFallback)
	return fallbackClassify(req)
}

func intentValidForMode(intent Intent, mode Mode) bool {
	switch mode {
	case ModeConsent:
		switch intent {
		case IntentPositive, IntentNegative, IntentUnclear, IntentRepeatRequest:
			return true
		}
	case ModeQA:
		switch intent {
		case IntentAnswer, IntentRepeatRequest, IntentUnclear, IntentOffTopic:
			return true
		}
	}
	return false
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Keyword lists per language. Matching is whole-word over a lowercased,
// punctuation-stripped utterance so short negatives like "no" and "non"
// cannot fire inside longer words or repeat phrases.
var (
	affirmativeKeywords = map[string][]string{
		LanguageEnglish: {"yes", "yeah", "yep", "sure", "okay", "ok", "go ahead"},
		LanguageItalian: {"sì", "si", "certo", "va bene", "d'accordo", "procedi"},
	}
	negativeKeywords = map[string][]string{
		LanguageEnglish: {"no", "nope", "not interested", "no thanks", "don't want"},
		LanguageItalian: {"non", "no grazie", "non mi interessa", "non voglio"},
	}
	repeatKeywords = map[string][]string{
		LanguageEnglish: {"what", "repeat", "again", "sorry", "pardon"},
		LanguageItalian: {"come", "ripeti", "scusa", "non ho capito"},
	}
)

func fallbackClassify(req ClassifyRequest) Result {
	lowered := normalizeUtterance(req.Utterance)

	switch req.Mode {
	case ModeConsent:
		// Repeat phrases win first: Italian ones carry the negation "non",
		// and a repeat request must replay the question, not refuse.
		if matchesAny(lowered, repeatKeywords[req.Language]) {
			return fallbackResult(IntentRepeatRequest, fallbackRepeatConfidence, "")
		}
		if matchesAny(lowered, affirmativeKeywords[req.Language]) {
			return fallbackResult(IntentPositive, fallbackMatchConfidence, "")
		}
		if matchesAny(lowered, negativeKeywords[req.Language]) {
			return fallbackResult(IntentNegative, fallbackMatchConfidence, "")
		}
	case ModeQA:
		if matchesAny(lowered, repeatKeywords[req.Language]) {
			return fallbackResult(IntentRepeatRequest, fallbackRepeatConfidence, "")
		}
		if matchesAny(lowered, affirmativeKeywords[req.Language]) ||
			matchesAny(lowered, negativeKeywords[req.Language]) {
			return fallbackResult(IntentAnswer, fallbackMatchConfidence, req.Utterance)
		}
	}

	return Result{
		Intent:     IntentUnclear,
		Confidence: fallbackUnclearConfidence,
		Reasoning:  "no clear intent detected (fallback)",
		Source:     SourceFallback,
	}
}

func fallbackResult(intent Intent, confidence float64, answerText string) Result {
	return Result{
		Intent:     intent,
		Confidence: confidence,
		AnswerText: answerText,
		Reasoning:  "keyword match (fallback)",
		Source:     SourceFallback,
	}
}

// normalizeUtterance lowercases the utterance and maps punctuation to
// spaces, keeping apostrophes so "d'accordo" and "don't want" survive.
func normalizeUtterance(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'' {
			return r
		}
		return ' '
	}, lowered)
}

func matchesAny(lowered string, keywords []string) bool {
	padded := " " + lowered + " "
	for _, kw := range keywords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}
