package llmservice

import (
	"context"
	"errors"
	"time"

	"pdfchat-quiz/internal/models"
)

// ClassifyError turns a failed upstream call into an *models.UpstreamTimeoutError
// when the call ran out of time and an *models.UpstreamError otherwise. Some
// provider clients drop the context error from their wrap chain, so ctx is
// checked as well.
func ClassifyError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &models.UpstreamTimeoutError{Op: op, Err: err}
	}
	return &models.UpstreamError{Op: op, Err: err}
}

// WithTimeout bounds ctx by timeout; a zero timeout leaves it unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
