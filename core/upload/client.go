// Package upload sends a candidate resume to the interview backend.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// FormField is the multipart field carrying the file.
	FormField = "file"

	maxErrorBody = 4 << 10
)

type Client struct {
	url        string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient uploads to url, the full POST /upload_resume address.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is a successful upload.
type Result struct {
	StatusCode int
	// ParsedResume is the parsed_resume object when the backend returns one.
	ParsedResume json.RawMessage
}

// UploadResumeFile opens path and uploads it.
func (c *Client) UploadResumeFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrUploadFailed, fmt.Errorf("failed to open resume: %w", err))
	}
	defer f.Close()
	return c.UploadResume(ctx, filepath.Base(path), f)
}

// UploadResume posts the content as the multipart field "file". Any non-2xx
// answer is a *StatusError.
func (c *Client) UploadResume(ctx context.Context, filename string, content io.Reader) (_ *Result, err error) {
	ctx, span := tracer.Start(ctx, "upload.resume", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("request.url", c.url), attribute.String("upload.filename", filename))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(FormField, filename)
	if err != nil {
		return nil, errors.Join(ErrUploadFailed, fmt.Errorf("failed to create form file: %w", err))
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, errors.Join(ErrUploadFailed, fmt.Errorf("failed to read resume: %w", err))
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Join(ErrUploadFailed, fmt.Errorf("failed to finish form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, errors.Join(ErrUploadFailed, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrUploadFailed, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(errorBody))}
	}

	result := &Result{StatusCode: resp.StatusCode}
	var payload struct {
		ParsedResume json.RawMessage `json:"parsed_resume"`
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("failed to read upload response", "error", err)
		return result, nil
	}
	if err := json.Unmarshal(respBody, &payload); err == nil {
		result.ParsedResume = payload.ParsedResume
	}

	logger.Info("resume uploaded", "filename", filename, "status", resp.StatusCode)
	return result, nil
}
