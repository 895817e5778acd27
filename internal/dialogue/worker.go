package dialogue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/voxcampaign/voice-survey-platform/internal/events"
	"github.com/voxcampaign/voice-survey-platform/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// Worker consumes call events from the queue and routes them through the
// Integration.
type Worker struct {
	integration *Integration
	queue       Queue
	logger      *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of consumer goroutines.
func WithWorkerCount(n int) WorkerOption {
	return func(cfg *workerConfig) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// WithReceiveWait sets the long-poll wait in seconds.
func WithReceiveWait(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds > 0 && seconds <= maxWaitSeconds {
			cfg.receiveWaitSecs = seconds
		}
	}
}

// WithReceiveBatchSize sets the max messages fetched per receive.
func WithReceiveBatchSize(n int) WorkerOption {
	return func(cfg *workerConfig) {
		if n > 0 && n <= maxReceiveBatchSize {
			cfg.receiveBatchSize = n
		}
	}
}

// NewWorker creates a queue consumer for call events.
func NewWorker(integration *Integration, queue Queue, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if integration == nil {
		panic("dialogue: integration cannot be nil")
	}
	if queue == nil {
		panic("dialogue: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		integration: integration,
		queue:       queue,
		logger:      logger,
		cfg:         cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("dialogue worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("dialogue worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive call events", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

// handleMessage dispatches one envelope. The message is always deleted:
// call events have no value on redelivery because the live call has moved
// on by the time a retry would land.
func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	env, err := decodeEnvelope(msg.Body)
	if err != nil {
		w.logger.Error("failed to decode call event", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	switch env.Kind {
	case events.KindCallAnswered:
		if env.Answered == nil {
			w.logger.Error("call.answered envelope missing payload", "event_id", env.ID)
			break
		}
		if err := w.integration.OnCallAnswered(ctx, *env.Answered); err != nil {
			w.logger.Error("call.answered handling failed", "error", err, "call_id", env.Answered.CallID)
		}
	case events.KindCallSpeech:
		if env.Speech == nil {
			w.logger.Error("call.speech envelope missing payload", "event_id", env.ID)
			break
		}
		if err := w.integration.OnUserSpeech(ctx, *env.Speech); err != nil {
			w.logger.Error("call.speech handling failed", "error", err, "call_id", env.Speech.CallID)
		}
	case events.KindCallEnded:
		if env.Ended == nil {
			w.logger.Error("call.ended envelope missing payload", "event_id", env.ID)
			break
		}
		if err := w.integration.OnCallEnded(ctx, *env.Ended); err != nil {
			w.logger.Error("call.ended handling failed", "error", err, "call_id", env.Ended.CallID)
		}
	default:
		w.logger.Warn("unknown event kind discarded", "kind", env.Kind, "event_id", env.ID)
	}

	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to delete call event", "error", err)
	}
}
