package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"pkt.systems/pslog"
	"pkt.systems/tabforge/schema"
)

// VisionProvider answers a prompt about an image.
type VisionProvider interface {
	Describe(ctx context.Context, prompt string, image []byte, mime string) (string, error)
}

// Analyzer turns a screenshot into tab headers.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mime string) (schema.AnalysisResponse, error)
}

// Service analyzes images in-process through a vision provider. A nil
// provider means no credential is configured.
type Service struct {
	provider VisionProvider
	log      pslog.Logger
}

// NewService constructs a Service.
func NewService(provider VisionProvider, logger pslog.Logger) *Service {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Service{provider: provider, log: logger}
}

// Configured reports whether a provider credential is available.
func (s *Service) Configured() bool {
	return s.provider != nil
}

// UpstreamError wraps a failed provider call.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

// AnalyzeImage asks the provider for tab headers in image. The declared mime
// type is replaced by the inspected one.
func (s *Service) AnalyzeImage(ctx context.Context, image []byte, mime string) (schema.AnalysisResponse, error) {
	if s.provider == nil {
		s.log.Error("analysis rejected", "err", schema.ErrMissingAPIKey)
		return schema.AnalysisResponse{}, schema.ErrMissingAPIKey
	}
	upload, err := Inspect(image)
	if err != nil {
		s.log.Warn("analysis rejected", "err", err, "declared_mime", mime, "bytes", len(image))
		return schema.AnalysisResponse{}, err
	}
	log := s.log.With("mime", upload.MIME, "bytes", len(image))
	log.Info("analysis start", "width", upload.Width, "height", upload.Height)
	reply, err := s.provider.Describe(ctx, Prompt, image, upload.MIME)
	if err != nil {
		log.Warn("analysis failed", "err", err)
		return schema.AnalysisResponse{}, &UpstreamError{Err: err}
	}
	headers := ParseHeaders(reply)
	log.Info("analysis done", "headers", headers)
	return schema.AnalysisResponse{Success: true, TabHeaders: headers, Analysis: reply}, nil
}

// HTTPStatus maps an analysis error to the status the analyze endpoint replies with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, schema.ErrNoImage), errors.Is(err, schema.ErrNotImage):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrAnalysisBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody maps an analysis error to the analyze endpoint's error body.
func ErrorBody(err error) schema.ErrorResponse {
	switch {
	case errors.Is(err, schema.ErrMissingAPIKey),
		errors.Is(err, schema.ErrNoImage),
		errors.Is(err, schema.ErrNotImage),
		errors.Is(err, schema.ErrAnalysisBusy):
		return schema.ErrorResponse{Error: err.Error()}
	default:
		return schema.ErrorResponse{Error: "Failed to analyze image", Details: fmt.Sprint(err)}
	}
}
