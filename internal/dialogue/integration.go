package dialogue

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voxcampaign/voice-survey-platform/internal/events"
	"github.com/voxcampaign/voice-survey-platform/internal/observability/metrics"
	"github.com/voxcampaign/voice-survey-platform/pkg/logging"
)

// Integration owns the live session registry and routes telephony events to
// the phase-appropriate orchestrator. Events for the same call are
// serialized on a per-session mutex; events for distinct calls proceed
// concurrently.
type Integration struct {
	consent     *ConsentFlowOrchestrator
	qa          *QAOrchestrator
	publisher   EventPublisher
	transcripts *TranscriptStore
	defaultLang string
	logger      *logging.Logger
	metrics     *metrics.DialogueMetrics
	tracer      trace.Tracer

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
	// synced counts transcript entries already mirrored to the store.
	synced int
}

// IntegrationConfig wires the Integration's collaborators. Transcripts is
// optional; when nil, survey events carry no transcript_ref.
type IntegrationConfig struct {
	Consent     *ConsentFlowOrchestrator
	QA          *QAOrchestrator
	Publisher   EventPublisher
	Transcripts *TranscriptStore
	// DefaultLanguage applies to call.answered events that carry no
	// language tag. Empty means English.
	DefaultLanguage string
	Logger          *logging.Logger
	Metrics         *metrics.DialogueMetrics
}

func NewIntegration(cfg IntegrationConfig) *Integration {
	if cfg.Consent == nil {
		panic("dialogue: consent orchestrator cannot be nil")
	}
	if cfg.QA == nil {
		panic("dialogue: qa orchestrator cannot be nil")
	}
	if cfg.Publisher == nil {
		panic("dialogue: event publisher cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Integration{
		consent:     cfg.Consent,
		qa:          cfg.QA,
		publisher:   cfg.Publisher,
		transcripts: cfg.Transcripts,
		defaultLang: NormalizeLanguage(cfg.DefaultLanguage),
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		tracer:      otel.Tracer("dialogue"),
		sessions:    make(map[string]*sessionEntry),
	}
}

// ActiveSessions reports how many sessions are currently registered.
func (i *Integration) ActiveSessions() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.sessions)
}

// OnCallAnswered registers a new session and starts the consent flow. A
// duplicate call_id is discarded.
func (i *Integration) OnCallAnswered(ctx context.Context, evt events.CallAnsweredV1) error {
	ctx, span := i.tracer.Start(ctx, "dialogue.call_answered",
		trace.WithAttributes(attribute.String("call_id", evt.CallID)))
	defer span.End()

	if evt.Language == "" {
		evt.Language = i.defaultLang
	}

	session, err := NewSession(evt)
	if err != nil {
		i.metrics.ObserveDiscardedEvent()
		i.logger.Warn("rejected call.answered event", "error", err, "call_id", evt.CallID)
		return err
	}

	entry := &sessionEntry{session: session}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	i.mu.Lock()
	if _, exists := i.sessions[evt.CallID]; exists {
		i.mu.Unlock()
		i.metrics.ObserveDiscardedEvent()
		i.logger.Warn("duplicate call.answered discarded", "call_id", evt.CallID)
		return nil
	}
	i.sessions[evt.CallID] = entry
	i.mu.Unlock()

	i.metrics.ObserveSessionStarted(session.Language)
	i.logger.Info("session started",
		"call_id", evt.CallID, "session_id", session.SessionID,
		"campaign_id", evt.CampaignID, "language", session.Language)

	err = i.consent.HandleCallAnswered(ctx, session)
	i.syncTranscript(ctx, entry)
	return err
}

// OnUserSpeech dispatches one utterance to the orchestrator owning the
// session's current phase. Events for unknown or finished calls are
// discarded with a log line.
func (i *Integration) OnUserSpeech(ctx context.Context, evt events.CallSpeechV1) error {
	ctx, span := i.tracer.Start(ctx, "dialogue.user_speech",
		trace.WithAttributes(attribute.String("call_id", evt.CallID)))
	defer span.End()

	entry, ok := i.lookup(evt.CallID)
	if !ok {
		i.metrics.ObserveDiscardedEvent()
		i.logger.Info("speech for unknown call discarded", "call_id", evt.CallID)
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	session := entry.session
	span.SetAttributes(attribute.String("phase", string(session.Phase)))

	var err error
	switch {
	case session.Phase == PhaseConsentRequest:
		_, err = i.consent.HandleUserResponse(ctx, session, evt.Transcript)
		if session.Consent == ConsentGranted && err == nil {
			err = i.qa.Start(ctx, session)
		}
	case session.Phase == PhaseQuestion1 || session.Phase == PhaseQuestion2 || session.Phase == PhaseQuestion3:
		_, err = i.qa.HandleUserResponse(ctx, session, evt.Transcript)
	default:
		// Intro is transient and completion/terminated are final; speech
		// arriving in those phases is late or out of order.
		i.metrics.ObserveDiscardedEvent()
		i.logger.Info("speech outside dialogue phase discarded",
			"call_id", evt.CallID, "phase", session.Phase)
		return nil
	}

	i.syncTranscript(ctx, entry)
	i.finishIfTerminal(ctx, entry)
	return err
}

// OnCallEnded discards the session for a call that ended outside the
// flow. No survey event is published for an incomplete session.
func (i *Integration) OnCallEnded(ctx context.Context, evt events.CallEndedV1) error {
	_, span := i.tracer.Start(ctx, "dialogue.call_ended",
		trace.WithAttributes(attribute.String("call_id", evt.CallID)))
	defer span.End()

	entry, ok := i.lookup(evt.CallID)
	if !ok {
		return nil
	}

	entry.mu.Lock()
	phase := entry.session.Phase
	entry.mu.Unlock()

	i.evict(evt.CallID)
	i.logger.Info("call ended, session discarded",
		"call_id", evt.CallID, "phase", phase, "reason", evt.Reason)
	return nil
}

// finishIfTerminal publishes the outcome event for a session that reached a
// final phase, then evicts it. Publish failures are logged, not retried.
func (i *Integration) finishIfTerminal(ctx context.Context, entry *sessionEntry) {
	session := entry.session

	switch {
	case session.Consent == ConsentRefused:
		evt := events.SurveyRefusedV1{
			CampaignID:      session.CampaignID,
			ContactID:       session.ContactID,
			CallID:          session.CallID,
			Reason:          session.RefusalReason,
			UnclearAttempts: session.UnclearAttempts,
			TranscriptRef:   i.transcriptRef(session.CallID),
			OccurredAt:      time.Now().UTC(),
		}
		if err := i.publisher.PublishRefused(ctx, evt); err != nil {
			i.logger.Error("failed to publish refused event", "error", err, "call_id", session.CallID)
		}
		i.evict(session.CallID)

	case session.Phase == PhaseCompletion:
		evt := events.SurveyCompletedV1{
			CampaignID:    session.CampaignID,
			ContactID:     session.ContactID,
			CallID:        session.CallID,
			Answers:       session.SurveyAnswers(),
			TranscriptRef: i.transcriptRef(session.CallID),
			OccurredAt:    time.Now().UTC(),
		}
		if err := i.publisher.PublishCompleted(ctx, evt); err != nil {
			i.logger.Error("failed to publish completed event", "error", err, "call_id", session.CallID)
		}
		i.evict(session.CallID)
	}
}

func (i *Integration) lookup(callID string) (*sessionEntry, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, ok := i.sessions[callID]
	return entry, ok
}

func (i *Integration) evict(callID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.sessions, callID)
}

// syncTranscript mirrors new transcript entries to the store. Mirroring is
// best-effort; a store outage never blocks the dialogue.
func (i *Integration) syncTranscript(ctx context.Context, entry *sessionEntry) {
	if i.transcripts == nil {
		return
	}
	session := entry.session
	for _, te := range session.Transcript[entry.synced:] {
		if err := i.transcripts.Append(ctx, session.CallID, te); err != nil {
			i.logger.Warn("transcript mirror failed", "error", err, "call_id", session.CallID)
			return
		}
		entry.synced++
	}
}

func (i *Integration) transcriptRef(callID string) string {
	if i.transcripts == nil {
		return ""
	}
	return i.transcripts.Ref(callID)
}
