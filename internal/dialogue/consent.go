package dialogue

import (
	"context"
	"fmt"
	"time"

	"github.com/voxcampaign/voice-survey-platform/internal/events"
	"github.com/voxcampaign/voice-survey-platform/internal/observability/metrics"
	"github.com/voxcampaign/voice-survey-platform/pkg/logging"
)

// maxConsentUnclearAttempts is the consent-phase escalation threshold:
// two unclear responses are treated as a refusal.
const maxConsentUnclearAttempts = 2

// ConsentFlowOrchestrator drives a session from call answer through consent
// resolution. On refusal the terminate call is issued before anything else
// so call teardown stays within its latency bound.
type ConsentFlowOrchestrator struct {
	classifier *IntentClassifier
	telephony  TelephonyControl
	logger     *logging.Logger
	metrics    *metrics.DialogueMetrics
}

func NewConsentFlowOrchestrator(classifier *IntentClassifier, telephony TelephonyControl, logger *logging.Logger, m *metrics.DialogueMetrics) *ConsentFlowOrchestrator {
	if classifier == nil {
		panic("dialogue: intent classifier cannot be nil")
	}
	if telephony == nil {
		panic("dialogue: telephony control cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ConsentFlowOrchestrator{
		classifier: classifier,
		telephony:  telephony,
		logger:     logger,
		metrics:    m,
	}
}

// HandleCallAnswered plays the intro script and then the consent question,
// in that order with nothing interleaved, and moves the session into the
// consent-request phase.
func (o *ConsentFlowOrchestrator) HandleCallAnswered(ctx context.Context, s *Session) error {
	if s.Phase != PhaseIntro {
		return fmt.Errorf("dialogue: consent flow cannot start in phase %q", s.Phase)
	}

	o.logger.Info("call answered, starting consent flow",
		"call_id", s.CallID, "campaign_id", s.CampaignID, "language", s.Language)

	o.playPrompt(ctx, s, s.IntroScript)

	s.Phase = PhaseConsentRequest
	s.ConsentRequestedAt = time.Now().UTC()

	o.playPrompt(ctx, s, scriptFor(consentQuestions, s.Language))
	return nil
}

// HandleUserResponse classifies one utterance in consent mode and resolves
// the resulting transition. A returned error means the telephony terminate
// call failed and the call state is unknown.
func (o *ConsentFlowOrchestrator) HandleUserResponse(ctx context.Context, s *Session, utterance string) (Result, error) {
	if s.Phase != PhaseConsentRequest {
		return Result{}, fmt.Errorf("dialogue: session %s not in consent phase (phase %q)", s.CallID, s.Phase)
	}

	s.AppendUtterance(SpeakerUser, utterance)

	result := o.classifier.Classify(ctx, ClassifyRequest{
		Utterance: utterance,
		Language:  s.Language,
		Mode:      ModeConsent,
	})

	o.logger.Info("consent response classified",
		"call_id", s.CallID, "intent", result.Intent, "confidence", result.Confidence,
		"source", result.Source, "reasoning", result.Reasoning)

	switch result.Intent {
	case IntentPositive:
		if err := s.SetConsentGranted(); err != nil {
			return result, err
		}
		o.metrics.ObserveConsentOutcome(string(ConsentGranted))
		o.playPrompt(ctx, s, scriptFor(proceedMessages, s.Language))
		return result, nil

	case IntentNegative:
		return result, o.refuse(ctx, s, events.RefusalReasonExplicit)

	case IntentRepeatRequest:
		o.playPrompt(ctx, s, scriptFor(consentQuestions, s.Language))
		return result, nil

	case IntentUnclear:
		s.UnclearAttempts++
		if s.UnclearAttempts >= maxConsentUnclearAttempts {
			o.logger.Info("max unclear attempts reached, treating as refusal",
				"call_id", s.CallID, "attempts", s.UnclearAttempts)
			return result, o.refuse(ctx, s, events.RefusalReasonMaxUnclear)
		}
		o.playPrompt(ctx, s, scriptFor(clarifyMessages, s.Language))
		return result, nil

	default:
		return result, fmt.Errorf("dialogue: unhandled consent intent %q", result.Intent)
	}
}

// refuse resolves consent to REFUSED. The terminate call is issued first,
// before any other collaborator call, so no network round trip delays call
// teardown. A goodbye prompt would be such a round trip and is skipped.
func (o *ConsentFlowOrchestrator) refuse(ctx context.Context, s *Session, reason string) error {
	if err := s.SetConsentRefused(); err != nil {
		return err
	}
	s.RefusalReason = reason
	o.metrics.ObserveConsentOutcome(string(ConsentRefused))

	start := time.Now()
	err := o.telephony.TerminateCall(ctx, s.CallID)
	o.metrics.ObserveTerminateLatency(time.Since(start).Seconds())
	if err != nil {
		// Not retried: a second hang-up against a dead call is unsafe, and
		// masking the failure would hide a billing/compliance risk.
		return fmt.Errorf("dialogue: terminate call %s: %w", s.CallID, err)
	}

	o.logger.Info("consent refused, call terminated",
		"call_id", s.CallID, "reason", reason, "unclear_attempts", s.UnclearAttempts)
	return nil
}

// playPrompt plays text on the call and records it in the transcript.
// Play failures degrade the conversation but never end the session.
func (o *ConsentFlowOrchestrator) playPrompt(ctx context.Context, s *Session, text string) {
	if text == "" {
		return
	}
	if err := o.telephony.PlayText(ctx, s.CallID, text, s.Language); err != nil {
		o.logger.Warn("failed to play prompt", "error", err, "call_id", s.CallID)
	}
	s.AppendUtterance(SpeakerAgent, text)
}
