package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/voxcampaign/voice-survey-platform/cmd/mainconfig"
	appconfig "github.com/voxcampaign/voice-survey-platform/internal/config"
	"github.com/voxcampaign/voice-survey-platform/internal/dialogue"
	"github.com/voxcampaign/voice-survey-platform/internal/observability/metrics"
	"github.com/voxcampaign/voice-survey-platform/internal/telephony"
	"github.com/voxcampaign/voice-survey-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var callQueue, surveyQueue dialogue.Queue
	if cfg.UseMemoryQueue {
		callQueue = dialogue.NewMemoryQueue(256)
		surveyQueue = dialogue.NewMemoryQueue(256)
		logger.Warn("using in-memory queues; events do not survive restarts")
	} else {
		sqsClient := sqs.NewFromConfig(awsConfig)
		callQueue = dialogue.NewSQSQueue(sqsClient, cfg.CallEventsQueueURL)
		surveyQueue = dialogue.NewSQSQueue(sqsClient, cfg.SurveyEventsQueueURL)
	}

	var classifierBackend dialogue.Classifier
	var llm dialogue.LLMClient
	if cfg.BedrockModelID != "" {
		bedrock := dialogue.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsConfig))
		llm = bedrock
		classifierBackend = dialogue.NewLLMIntentClassifier(bedrock, cfg.BedrockModelID)
	} else {
		logger.Warn("no bedrock model configured; intent classification falls back to keyword matching")
	}

	dialogueMetrics := metrics.NewDialogueMetrics(nil)
	classifier := dialogue.NewIntentClassifier(classifierBackend, logger, dialogueMetrics)

	telnyx, err := telephony.NewTelnyxClient(telephony.TelnyxClientConfig{
		APIKey:  cfg.TelnyxAPIKey,
		BaseURL: cfg.TelnyxBaseURL,
		Voice:   cfg.TelnyxVoice,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to create telnyx client", "error", err)
		os.Exit(1)
	}

	var transcripts *dialogue.TranscriptStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		transcripts = dialogue.NewTranscriptStore(redis.NewClient(opts), cfg.TranscriptTTL)
	} else {
		logger.Warn("no redis configured; survey events carry no transcript reference")
	}

	consent := dialogue.NewConsentFlowOrchestrator(classifier, telnyx, logger, dialogueMetrics)
	qa := dialogue.NewQAOrchestrator(classifier, llm, cfg.BedrockModelID, telnyx, logger, dialogueMetrics)
	publisher := dialogue.NewQueuePublisher(surveyQueue, logger)

	integration := dialogue.NewIntegration(dialogue.IntegrationConfig{
		Consent:         consent,
		QA:              qa,
		Publisher:       publisher,
		Transcripts:     transcripts,
		DefaultLanguage: cfg.DefaultLanguage,
		Logger:          logger,
		Metrics:         dialogueMetrics,
	})

	worker := dialogue.NewWorker(integration, callQueue, logger,
		dialogue.WithWorkerCount(cfg.WorkerCount),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	opsServer := startOpsServer(cfg, logger, integration)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down dialogue worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("dialogue worker stopped")
	case <-doneCtx.Done():
		logger.Error("dialogue worker shutdown timed out", "error", doneCtx.Err())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown failed", "error", err)
	}
}

// startOpsServer exposes liveness and Prometheus metrics on the configured
// port.
func startOpsServer(cfg *appconfig.Config, logger *logging.Logger, integration *dialogue.Integration) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/sessions", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active_sessions":` + strconv.Itoa(integration.ActiveSessions()) + `}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("ops server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server failed", "error", err)
		}
	}()

	return srv
}
