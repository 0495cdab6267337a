package mlbackend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"backend/internal/config"
	"backend/internal/models"
)

var (
	// ErrUnavailable means the backend refused the connection.
	ErrUnavailable = errors.New("ml backend unavailable")
	// ErrTimeout means the call exceeded the configured timeout or was aborted.
	ErrTimeout = errors.New("ml backend timed out")
)

// CallError is returned for non-2xx responses and other transport failures.
// The raw body is kept for diagnostics only and must not be forwarded to
// untrusted callers.
type CallError struct {
	StatusCode int
	Body       string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("ml backend returned status %d: %s", e.StatusCode, e.Body)
}

// Options controls what the backend is asked to compute alongside the label.
type Options struct {
	Explain bool
	Bias    bool
}

// Response marks a backend-specific raw response. Orchestration code never
// inspects it directly; the paired Normalizer does.
type Response interface {
	backendResponse()
}

// Client issues exactly one inference call per invocation. No retries.
type Client interface {
	Name() string
	ModelVersion() string
	Call(ctx context.Context, text, language string, opts Options) (Response, error)
}

// Normalizer maps a backend-specific raw response into the canonical outcome.
// The original input text is needed for fallback token attribution.
type Normalizer func(text string, resp Response) (*models.Outcome, error)

// New selects a client+normalizer pair for the configured variant. Adding a
// backend means adding a client, a normalizer and a case here.
func New(cfg config.BackendConfig) (Client, Normalizer, error) {
	switch cfg.Variant {
	case config.VariantInference:
		return NewInferenceClient(cfg), NormalizeInference, nil
	case config.VariantHosted:
		return NewHostedClient(cfg), NormalizeHosted, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend variant %q", cfg.Variant)
	}
}

// classifyTransportErr maps a transport-level error from http.Client.Do into
// the stable failure taxonomy.
func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrUnavailable
	}
	return &CallError{StatusCode: 0, Body: err.Error()}
}
