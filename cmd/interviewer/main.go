// Command interviewer serves the interview backend for local development:
// resume upload, the interview channel and a health check. Finished
// interviews are evaluated and archived like the client archives them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koscakluka/ema-interview/core/transcript"
	"github.com/koscakluka/ema-interview/internal/config"
	"github.com/koscakluka/ema-interview/internal/interviewer"
	"github.com/koscakluka/ema-interview/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("interviewer stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.LogFile != "" {
		closeLog, err := logging.ToFile(cfg.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()
	} else {
		logging.Install(slog.NewTextHandler(os.Stderr, nil))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var questioner interviewer.Questioner = interviewer.NewScriptedQuestioner()
	var opts []interviewer.ServerOption
	if cfg.GeminiAPIKey != "" {
		gemini, err := interviewer.NewGeminiQuestioner(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("failed to create gemini questioner: %w", err)
		}
		questioner = gemini
		opts = append(opts, interviewer.WithEvaluator(gemini))
	} else {
		slog.Info("no gemini api key, using scripted questions")
	}

	if cfg.TranscriptDir != "" {
		opts = append(opts, interviewer.WithTranscriptSink(transcript.NewFileSink(cfg.TranscriptDir)))
	}
	if cfg.RedisURL != "" {
		client, err := transcript.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			slog.Warn("redis unavailable, transcripts will not be archived there", "error", err)
		} else {
			defer client.Close()
			opts = append(opts, interviewer.WithTranscriptSink(transcript.NewRedisSink(client)))
		}
	}

	server := interviewer.NewServer(cfg, questioner, opts...)
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("interviewer listening", "addr", cfg.ListenAddr)
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
