package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for the voice dialogue flow.
type DialogueMetrics struct {
	sessionsStarted   *prometheus.CounterVec
	consentOutcomes   *prometheus.CounterVec
	classifications   *prometheus.CounterVec
	questionReplays   *prometheus.CounterVec
	surveysCompleted  prometheus.Counter
	discardedEvents   prometheus.Counter
	terminateLatency  prometheus.Histogram
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxsurvey",
			Subsystem: "dialogue",
			Name:      "sessions_started_total",
			Help:      "Dialogue sessions created from call.answered events",
		}, []string{"language"}),
		consentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxsurvey",
			Subsystem: "dialogue",
			Name:      "consent_outcomes_total",
			Help:      "Terminal consent outcomes by result",
		}, []string{"outcome"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxsurvey",
			Subsystem: "dialogue",
			Name:      "classifications_total",
			Help:      "Intent classifications by mode and source (llm, fallback, empty)",
		}, []string{"mode", "source"}),
		questionReplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxsurvey",
			Subsystem: "dialogue",
			Name:      "question_replays_total",
			Help:      "Question replays by cause (repeat, unclear, off_topic)",
		}, []string{"cause"}),
		surveysCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxsurvey",
			Subsystem: "dialogue",
			Name:      "surveys_completed_total",
			Help:      "Sessions that reached completion with three answers",
		}),
		discardedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxsurvey",
			Subsystem: "dialogue",
			Name:      "discarded_events_total",
			Help:      "Late or duplicate call events dropped without a session",
		}),
		terminateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxsurvey",
			Subsystem: "dialogue",
			Name:      "terminate_latency_seconds",
			Help:      "Latency from refusal resolution to the terminate call returning",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.sessionsStarted,
		m.consentOutcomes,
		m.classifications,
		m.questionReplays,
		m.surveysCompleted,
		m.discardedEvents,
		m.terminateLatency,
	)
	return m
}

func (m *DialogueMetrics) ObserveSessionStarted(language string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(language).Inc()
}

func (m *DialogueMetrics) ObserveConsentOutcome(outcome string) {
	if m == nil {
		return
	}
	m.consentOutcomes.WithLabelValues(outcome).Inc()
}

func (m *DialogueMetrics) ObserveClassification(mode, source string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(mode, source).Inc()
}

func (m *DialogueMetrics) ObserveQuestionReplay(cause string) {
	if m == nil {
		return
	}
	m.questionReplays.WithLabelValues(cause).Inc()
}

func (m *DialogueMetrics) ObserveSurveyCompleted() {
	if m == nil {
		return
	}
	m.surveysCompleted.Inc()
}

func (m *DialogueMetrics) ObserveDiscardedEvent() {
	if m == nil {
		return
	}
	m.discardedEvents.Inc()
}

func (m *DialogueMetrics) ObserveTerminateLatency(seconds float64) {
	if m == nil {
		return
	}
	m.terminateLatency.Observe(seconds)
}
