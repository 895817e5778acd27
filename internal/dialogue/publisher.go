package dialogue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/voxcampaign/voice-survey-platform/internal/events"
	"github.com/voxcampaign/voice-survey-platform/pkg/logging"
)

// QueuePublisher implements EventPublisher on top of the survey-events
// queue.
type QueuePublisher struct {
	queue  Queue
	logger *logging.Logger
}

func NewQueuePublisher(queue Queue, logger *logging.Logger) *QueuePublisher {
	if queue == nil {
		panic("dialogue: publisher queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &QueuePublisher{queue: queue, logger: logger}
}

func (p *QueuePublisher) PublishRefused(ctx context.Context, evt events.SurveyRefusedV1) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	env, body, err := encodeEnvelope(eventEnvelope{
		ID:      evt.EventID,
		Kind:    events.KindSurveyRefused,
		Refused: &evt,
	})
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("dialogue: failed to publish refused event: %w", err)
	}
	p.logger.Info("published survey refused", "event_id", env.ID, "call_id", evt.CallID, "reason", evt.Reason)
	return nil
}

func (p *QueuePublisher) PublishCompleted(ctx context.Context, evt events.SurveyCompletedV1) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	env, body, err := encodeEnvelope(eventEnvelope{
		ID:        evt.EventID,
		Kind:      events.KindSurveyCompleted,
		Completed: &evt,
	})
	if err != nil {
		return err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("dialogue: failed to publish completed event: %w", err)
	}
	p.logger.Info("published survey completed", "event_id", env.ID, "call_id", evt.CallID, "answers", len(evt.Answers))
	return nil
}
