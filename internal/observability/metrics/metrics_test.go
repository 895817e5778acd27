package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDialogueMetricsObserve(t *testing.T) {
	m := NewDialogueMetrics(prometheus.NewRegistry())
	m.ObserveSessionStarted("en")
	m.ObserveConsentOutcome("granted")
	m.ObserveClassification("consent", "fallback")
	m.ObserveQuestionReplay("repeat")
	m.ObserveSurveyCompleted()
	m.ObserveDiscardedEvent()
	m.ObserveTerminateLatency(0.25)
}

func TestDialogueMetricsNilSafe(t *testing.T) {
	var m *DialogueMetrics
	m.ObserveSessionStarted("it")
	m.ObserveConsentOutcome("refused")
	m.ObserveClassification("qa", "llm")
	m.ObserveQuestionReplay("unclear")
	m.ObserveSurveyCompleted()
	m.ObserveDiscardedEvent()
	m.ObserveTerminateLatency(0.1)
}
