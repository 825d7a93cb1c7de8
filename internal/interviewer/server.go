// Package interviewer is a development backend that speaks the interview
// channel protocol. It greets the candidate, echoes every answer back with
// the user tag and asks the next question. Once the interview is over it
// is evaluated and archived.
package interviewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-interview/core/channel"
	"github.com/koscakluka/ema-interview/core/conversation"
	"github.com/koscakluka/ema-interview/core/transcript"
	"github.com/koscakluka/ema-interview/internal/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	maxResumeSize   = 10 << 20
	writeTimeout    = 10 * time.Second
	resumeTextSize  = 4 << 10
	finalizeTimeout = time.Minute
)

// TranscriptSink archives a finished interview together with its
// evaluation.
type TranscriptSink interface {
	Store(ctx context.Context, doc transcript.Document) error
}

type ServerOption func(*Server)

// WithEvaluator replaces the scripted evaluator.
func WithEvaluator(evaluator Evaluator) ServerOption {
	return func(s *Server) {
		s.evaluator = evaluator
	}
}

func WithTranscriptSink(sink TranscriptSink) ServerOption {
	return func(s *Server) {
		s.sinks = append(s.sinks, sink)
	}
}

type Server struct {
	cfg        *config.Config
	questioner Questioner
	evaluator  Evaluator
	sinks      []TranscriptSink
	upgrader   websocket.Upgrader
	router     chi.Router
	httpServer *http.Server

	// resume is the latest upload; interviews started afterwards use it.
	mu     sync.RWMutex
	resume *ParsedResume
}

// ParsedResume is returned by the upload endpoint as parsed_resume.
type ParsedResume struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
	Text        string `json:"text,omitempty"`
}

func NewServer(cfg *config.Config, questioner Questioner, opts ...ServerOption) *Server {
	if questioner == nil {
		questioner = NewScriptedQuestioner()
	}
	s := &Server{
		cfg:        cfg,
		questioner: questioner,
		evaluator:  NewScriptedEvaluator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Post("/upload_resume", s.handleUploadResume)
	router.Get("/ws/interview", s.handleInterview)
	router.Get("/health", s.handleHealth)
	s.router = router

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("interview backend listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Resume() *ParsedResume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resume
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"status":"ok"}`)
}

func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "interviewer.upload_resume")
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}
	if len(content) == 0 {
		http.Error(w, "empty file", http.StatusBadRequest)
		return
	}

	parsed := parseResume(header.Filename, header.Header.Get("Content-Type"), content)
	s.mu.Lock()
	s.resume = parsed
	s.mu.Unlock()

	span.SetAttributes(attribute.String("upload.filename", parsed.Filename), attribute.Int("upload.size", parsed.SizeBytes))
	logger.Info("resume received", "filename", parsed.Filename, "size", parsed.SizeBytes)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"parsed_resume": parsed}); err != nil {
		logger.Error("failed to write upload response", "error", err)
	}
}

// parseResume keeps the metadata and, for text uploads, the start of the
// text. PDF content is not extracted.
func parseResume(filename, contentType string, content []byte) *ParsedResume {
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	parsed := &ParsedResume{Filename: filename, ContentType: contentType, SizeBytes: len(content)}
	if strings.HasPrefix(http.DetectContentType(content), "text/") {
		text := string(content)
		if len(text) > resumeTextSize {
			cut := resumeTextSize
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		parsed.Text = strings.TrimSpace(text)
	}
	return parsed
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	logger.Info("interview connected", "connection_id", id)

	interview := &interviewConn{
		id:           id,
		conn:         conn,
		questioner:   s.questioner,
		evaluator:    s.evaluator,
		sinks:        s.sinks,
		maxQuestions: s.cfg.MaxQuestions,
		startedAt:    time.Now(),
		log:          conversation.NewLog(),
	}
	if resume := s.Resume(); resume != nil {
		summary, _ := json.Marshal(resume)
		interview.resume = string(summary)
	}

	err = interview.run(r.Context())
	interview.finalize(r.Context())
	if err != nil {
		logger.Warn("interview ended with error", "connection_id", id, "error", err)
		return
	}
	logger.Info("interview disconnected", "connection_id", id)
}

// interviewConn runs one interview over a single connection. Reads and
// writes happen on the handler goroutine only.
type interviewConn struct {
	id           string
	conn         *websocket.Conn
	questioner   Questioner
	evaluator    Evaluator
	sinks        []TranscriptSink
	maxQuestions int
	resume       string
	startedAt    time.Time

	history      []Turn
	log          *conversation.Log
	answered     int
	lastQuestion string
	closed       bool

	finalizeOnce sync.Once
}

func (c *interviewConn) run(ctx context.Context) error {
	if err := c.askNext(ctx); err != nil {
		return err
	}

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := c.handleAnswer(ctx, string(data)); err != nil {
			return err
		}
	}
}

func (c *interviewConn) handleAnswer(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if err := c.send(channel.UserTag + text); err != nil {
		return err
	}
	c.history = append(c.history, Turn{Role: conversation.RoleUser, Text: text})
	c.log.Append(conversation.NewUserUtterance(text, conversation.OriginChannel))

	if c.closed {
		return nil
	}
	c.answered++
	if c.answered >= c.maxQuestions {
		c.closed = true
		if err := c.say(ClosingLine); err != nil {
			return err
		}
		c.finalize(ctx)
		return nil
	}
	return c.askNext(ctx)
}

// askNext asks the questioner for the next line and asks again once when
// it repeats the previous question.
func (c *interviewConn) interview() Interview {
	return Interview{Resume: c.resume, MaxQuestions: c.maxQuestions, History: c.history}
}

func (c *interviewConn) askNext(ctx context.Context) error {
	interview := c.interview()
	question, err := c.questioner.Ask(ctx, interview)
	if err != nil {
		return fmt.Errorf("failed to get next question: %w", err)
	}
	if c.lastQuestion != "" && strings.TrimSpace(question) == c.lastQuestion {
		logger.Info("questioner repeated the last question, asking again", "connection_id", c.id)
		if question, err = c.questioner.Ask(ctx, interview); err != nil {
			return fmt.Errorf("failed to get next question: %w", err)
		}
	}

	c.lastQuestion = strings.TrimSpace(question)
	return c.say(question)
}

func (c *interviewConn) say(text string) error {
	if err := c.send(text); err != nil {
		return err
	}
	c.history = append(c.history, Turn{Role: conversation.RoleAssistant, Text: text})
	c.log.Append(conversation.NewAssistantUtterance(text))
	return nil
}

// finalize evaluates the interview and hands it to the sinks. It runs once
// per connection: after the closing line or on disconnect, whichever comes
// first. Interviews without a single answer are archived unevaluated.
func (c *interviewConn) finalize(ctx context.Context) {
	c.finalizeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
		defer cancel()
		ctx, span := tracer.Start(ctx, "interviewer.finalize")
		defer span.End()
		span.SetAttributes(attribute.String("connection.id", c.id), attribute.Int("interview.answered", c.answered))

		doc, err := transcript.FromUtterances(c.id, time.Since(c.startedAt), time.Now(), c.log.Snapshot())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("failed to build transcript", "connection_id", c.id, "error", err)
			return
		}

		if c.answered > 0 && c.evaluator != nil {
			reply, err := c.evaluator.Evaluate(ctx, c.interview())
			if err != nil {
				span.RecordError(err)
				logger.Warn("failed to evaluate interview", "connection_id", c.id, "error", err)
			} else {
				evaluation := transcript.ParseEvaluation(reply)
				doc.Evaluation = &evaluation
				span.SetAttributes(attribute.Float64("evaluation.average", evaluation.Average()), attribute.Bool("evaluation.proceed", evaluation.Proceed))
				logger.Info("interview evaluated", "connection_id", c.id, "average", evaluation.Average(), "proceed", evaluation.Proceed)
			}
		}

		var errs []error
		for _, sink := range c.sinks {
			if err := sink.Store(ctx, doc); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("failed to archive interview", "connection_id", c.id, "error", err)
		}
	})
}

func (c *interviewConn) send(text string) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}
