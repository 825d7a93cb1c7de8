package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	interview "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
	"github.com/koscakluka/ema-interview/internal/config"
)

// printer serializes conversation output for headless runs.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) utterance(u conversation.Utterance) {
	if u.Origin == conversation.OriginServerAck {
		return
	}
	label := "AI:"
	if u.Role == conversation.RoleUser {
		label = "You:"
	}
	p.printf("%s %s\n", label, u.Text)
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func runHeadless(ctx context.Context, cfg *config.Config, stack *stack) error {
	p := &printer{out: os.Stdout}

	opts := append(stack.options,
		interview.WithOnStatus(func(status channel.Status, err error) {
			if err != nil {
				p.printf("[%s] %v\n", status, err)
			}
		}),
	)
	session := interview.NewSession(opts...)
	unsubscribe := session.Log().Subscribe(p.utterance)
	defer unsubscribe()

	if err := session.Start(ctx, cfg.Endpoint); err != nil {
		_ = session.End()
		return err
	}

	// Cancelling ctx ends the session through its context hook.
	<-session.Done()
	summary, _ := session.Summary()
	p.printf("Interview ended (%s) after %s, %d messages\n",
		summary.Reason, interview.FormatElapsed(summary.Elapsed), len(summary.Utterances))
	return nil
}
