// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/AleutianInterview/pkg/logging"
	"github.com/AleutianAI/AleutianInterview/services/interview/analyze"
	"github.com/AleutianAI/AleutianInterview/services/interview/annotate"
	"github.com/AleutianAI/AleutianInterview/services/interview/config"
	"github.com/AleutianAI/AleutianInterview/services/interview/evaluate"
	"github.com/AleutianAI/AleutianInterview/services/interview/hint"
	"github.com/AleutianAI/AleutianInterview/services/interview/ingest"
	"github.com/AleutianAI/AleutianInterview/services/interview/observability"
	"github.com/AleutianAI/AleutianInterview/services/interview/question"
	"github.com/AleutianAI/AleutianInterview/services/interview/routes"
	"github.com/AleutianAI/AleutianInterview/services/interview/session"
	"github.com/AleutianAI/AleutianInterview/services/interview/store"
	"github.com/AleutianAI/AleutianInterview/services/llm"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("interview-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// buildStore wires the session store: Redis with an in-memory fallback when
// REDIS_ADDR is set, in-memory only otherwise.
func buildStore(cfg *config.Config, metrics *observability.InterviewMetrics,
	logger *slog.Logger) (*store.Failover, error) {

	mem, err := store.NewMemoryStore(logger)
	if err != nil {
		return nil, err
	}

	if cfg.RedisAddr == "" {
		slog.Info("REDIS_ADDR not set, running on the in-memory session store")
		metrics.SetStoreBackend(false)
		return store.NewMemoryOnly(mem, logger), nil
	}

	redis := store.NewRedisStore(store.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	failover := store.NewFailover(redis, mem, logger)
	failover.OnFailover = func() {
		metrics.SetStoreBackend(false)
	}
	metrics.SetStoreBackend(true)
	return failover, nil
}

func buildLLMClient(backend string) (llm.LLMClient, error) {
	switch backend {
	case "ollama":
		return llm.NewOllamaClient()
	default:
		return llm.NewOpenAIClient()
	}
}

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		LogDir:  os.Getenv("LOG_DIR"),
		Service: "interview",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// --- Init the tracer ---
	if cfg.OTLPEndpoint != "" {
		cleanup, err := initTracer(cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	} else {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, trace export disabled")
	}

	metrics := observability.NewInterviewMetrics(prometheus.DefaultRegisterer)

	failover, err := buildStore(cfg, metrics, slog.Default())
	if err != nil {
		log.Fatalf("failed to initialize the session store: %v", err)
	}
	defer failover.Close()

	llmClient, err := buildLLMClient(cfg.LLMBackend)
	if err != nil {
		log.Fatalf("failed to initialize the %s client: %v", cfg.LLMBackend, err)
	}
	slog.Info("LLM backend ready", "backend", cfg.LLMBackend)

	hosting := ingest.NewGitHubClient(cfg.GitHubToken, cfg.GitHubAPIBase)

	annotator := annotate.NewAnnotator(llmClient, slog.Default())
	annotator.OnDegraded = metrics.RecordDegradedAnnotation

	pipeline := &routes.Pipeline{
		Sessions:  session.NewManager(failover, cfg.SessionTTL, slog.Default()),
		Ingestor:  ingest.NewIngestor(hosting, slog.Default()),
		Analyzer:  analyze.NewAnalyzer(llmClient, slog.Default()),
		Questions: question.NewGenerator(llmClient, slog.Default()),
		Annotator: annotator,
		Evaluator: evaluate.NewEvaluator(llmClient, slog.Default()),
		Hinter:    hint.NewGenerator(llmClient, slog.Default()),
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("interview-service"))

	routes.SetupRoutes(router, pipeline, failover, metrics)

	slog.Info("interview service listening", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
