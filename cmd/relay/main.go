package main

import (
	"chat-relay/ai"
	"chat-relay/auth"
	"chat-relay/domain/event"
	"chat-relay/gateway"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern ensures 'defer' statements execute before the program exits and keeps
// the initialization logic testable, decoupled from the main entry point.
func run() (int, error) {
	// 1. Configuration & Logger
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Supervision & Orchestration
	telemetry := make(chan event.Event, config.BufferSize)
	supervisor := workers.NewSupervisor(logger, telemetry, config.RestartInterval)
	registry := runtime.NewRegistry()
	monitoring := observability.NewMonitoring()
	generator := ai.NewGeminiClient(logger, config.GeminiEndpoint,
		config.GeminiModel, config.GeminiAPIKey, config.GeneratorTimeout)

	orchestrator := runtime.NewOrchestrator(logger, supervisor, registry,
		generator, monitoring, telemetry, runtime.Options{
			BufferSize:           config.BufferSize,
			SinkTimeout:          config.SinkTimeout,
			MetricInterval:       config.MetricInterval,
			LatencyThreshold:     config.LatencyThreshold,
			LowCapacityThreshold: config.LowCapacityThreshold,
			CharReplacement:      charReplacement,
		})

	// 3. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Error (HTTP & Orchestrator)
	errChan := make(chan error, 2)

	// 4. Start the Engine (Relay loop, telemetry, health)
	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 5. WebSocket Gateway Setup
	var tokens *auth.TokenManager
	if config.AuthTokenSecret != "" {
		tokens = auth.NewTokenManager(config.AuthTokenSecret, config.AuthTokenDuration)
	}

	relayService := services.NewRelayService(orchestrator)
	ws := gateway.NewServer(logger, relayService, tokens,
		config.ConnectionBufferSize, config.MaxMessageSize)

	address := fmt.Sprintf("0.0.0.0:%d", config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Starting WebSocket gateway", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("gateway error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	// The execution blocks here until either a signal is received or a component crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 7. Final Cleanup (Graceful Shutdown)
	// Open sockets get a short window to flush; workers drain their channels.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	orchestrator.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}
