// Command interview runs an interview session against the interview
// backend in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	interview "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/speechtotext/lines"
	"github.com/koscakluka/ema-interview/core/upload"
	"github.com/koscakluka/ema-interview/internal/config"
	"github.com/koscakluka/ema-interview/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to a TOML config file")
	headless := flag.Bool("headless", false, "Read answers from stdin and print the conversation")
	resumePath := flag.String("resume", "", "Upload this resume before the interview starts")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	closeLog, err := logging.ToFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *resumePath != "" {
		uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		_, err := upload.NewClient(cfg.UploadURL).UploadResumeFile(uploadCtx, *resumePath)
		cancel()
		if err != nil {
			// Not fatal, the interview runs without a resume.
			fmt.Fprintln(os.Stderr, "resume upload failed:", err)
		}
	}

	var recognizer speechtotext.Recognizer
	if *headless {
		cfg.AudioBackend = config.AudioBackendNone
		recognizer = lines.NewRecognizer(os.Stdin)
	}
	stack, err := buildStack(ctx, cfg, recognizer)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			slog.Warn("failed to release audio resources", "error", err)
		}
	}()

	if *headless {
		return runHeadless(ctx, cfg, stack)
	}
	return runTUI(ctx, cfg, stack)
}

func runTUI(ctx context.Context, cfg *config.Config, stack *stack) error {
	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	opts := append(stack.options,
		interview.WithOnMessage(func(u conversation.Utterance) { send(utteranceMsg{Utterance: u}) }),
		interview.WithOnStatus(func(status channel.Status, err error) { send(statusMsg{Status: status, Err: err}) }),
		interview.WithOnTick(func(elapsed time.Duration) { send(tickMsg{Elapsed: elapsed}) }),
		interview.WithOnSuppressionChanged(func(suppressed bool) { send(suppressionMsg{Suppressed: suppressed}) }),
		interview.WithOnAudioLevel(func(level float64) { send(levelMsg{Level: level}) }),
		interview.WithOnCaptureUnavailable(func(err error) {
			send(noticeMsg{Text: "Microphone unavailable, type your answers: " + err.Error()})
		}),
		interview.WithOnEnded(func(summary interview.Summary) { send(endedMsg{Summary: summary}) }),
	)
	// Local echoes are already delivered through the log subscription below.
	session := interview.NewSession(opts...)
	unsubscribe := session.Log().Subscribe(func(u conversation.Utterance) {
		if u.Origin == conversation.OriginLocalEcho {
			send(utteranceMsg{Utterance: u})
		}
	})
	defer unsubscribe()

	program = tea.NewProgram(newModel(sessionController{session: session}), tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		if err := session.Start(ctx, cfg.Endpoint); err != nil {
			send(noticeMsg{Text: "Could not reach the interviewer: " + err.Error()})
		}
	}()

	_, err := program.Run()
	if endErr := session.End(); endErr != nil {
		slog.Warn("session teardown failed", "error", endErr)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal ui failed: %w", err)
	}
	return nil
}

