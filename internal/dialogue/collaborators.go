package dialogue

import (
	"context"

	"github.com/voxcampaign/voice-survey-platform/internal/events"
)

// TelephonyControl drives audio on a live call. PlayText failures are
// best-effort for the orchestrators; TerminateCall failures are
// session-fatal. Implementations must be safe for concurrent use across
// sessions, and terminating an already-ended call must be benign.
type TelephonyControl interface {
	PlayText(ctx context.Context, callID, text, language string) error
	TerminateCall(ctx context.Context, callID string) error
}

// EventPublisher forwards terminal dialogue outcomes downstream. Delivery
// guarantees and retries belong to the publisher, not to this package.
type EventPublisher interface {
	PublishRefused(ctx context.Context, evt events.SurveyRefusedV1) error
	PublishCompleted(ctx context.Context, evt events.SurveyCompletedV1) error
}
