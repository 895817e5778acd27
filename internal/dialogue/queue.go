package dialogue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/voxcampaign/voice-survey-platform/internal/events"
)

// Queue is the transport for event envelopes. SQSQueue backs production;
// MemoryQueue backs local development and tests.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// eventEnvelope is the wire format on both the call-events and the
// survey-events queues. Exactly one payload field is set, selected by Kind.
type eventEnvelope struct {
	ID        string                   `json:"id"`
	Kind      string                   `json:"kind"`
	Answered  *events.CallAnsweredV1   `json:"answered,omitempty"`
	Speech    *events.CallSpeechV1     `json:"speech,omitempty"`
	Ended     *events.CallEndedV1      `json:"ended,omitempty"`
	Refused   *events.SurveyRefusedV1  `json:"refused,omitempty"`
	Completed *events.SurveyCompletedV1 `json:"completed,omitempty"`
}

func encodeEnvelope(env eventEnvelope) (eventEnvelope, string, error) {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}

	body, err := json.Marshal(env)
	if err != nil {
		return eventEnvelope{}, "", fmt.Errorf("dialogue: failed to encode envelope: %w", err)
	}

	return env, string(body), nil
}

func decodeEnvelope(body string) (eventEnvelope, error) {
	var env eventEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return eventEnvelope{}, fmt.Errorf("dialogue: failed to decode envelope: %w", err)
	}
	if env.Kind == "" {
		return eventEnvelope{}, fmt.Errorf("dialogue: envelope missing kind")
	}
	return env, nil
}
