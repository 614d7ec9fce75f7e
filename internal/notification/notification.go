package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/musicmoon/marketplace/internal/apperr"
)

const (
	// KindSuccess confirms a completed user action.
	KindSuccess = "success"
	// KindFailure reports a failed user action.
	KindFailure = "failure"
)

// Message describes a notification shown to the person driving the client.
// Action names the attempted operation, Body carries a human readable cause
// or confirmation.
type Message struct {
	Kind   string
	Action string
	Body   string
}

// Notifier delivers notifications to whatever surface the client renders.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// Success builds a confirmation message.
func Success(action, body string) Message {
	return Message{Kind: KindSuccess, Action: action, Body: body}
}

// Failure builds a failure message naming action with a readable cause for err.
func Failure(action string, err error) Message {
	return Message{Kind: KindFailure, Action: action, Body: Cause(err)}
}

// Cause turns an error from the taxonomy into a sentence fit for a user.
func Cause(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, apperr.ErrAlreadyExists):
		return "a record with these details already exists"
	case errors.Is(err, apperr.ErrNotFound):
		return "the requested record could not be found"
	case errors.Is(err, apperr.ErrValidationFailed):
		return fmt.Sprintf("the request was invalid (%v)", err)
	case errors.Is(err, apperr.ErrUnauthorized):
		return "invalid credentials or insufficient permissions"
	case errors.Is(err, apperr.ErrFetchFailed):
		return "the marketplace could not be reached, please try again"
	case errors.Is(err, apperr.ErrStoreFailed):
		return "your changes could not be saved, please try again"
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out"
	default:
		return err.Error()
	}
}

// Notify sends message through n when n is set. Delivery errors are dropped.
func Notify(ctx context.Context, n Notifier, message Message) {
	if n == nil {
		return
	}
	_ = n.Send(ctx, message)
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	level := slog.LevelInfo
	if message.Kind == KindFailure {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, "notification", "kind", message.Kind, "action", message.Action, "body", message.Body)
	return nil
}

// WriterNotifier prints notifications as single lines, the CLI's toast.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a notifier printing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Send prints the message.
func (n *WriterNotifier) Send(_ context.Context, message Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	mark := "ok"
	if message.Kind == KindFailure {
		mark = "error"
	}
	_, err := fmt.Fprintf(n.w, "[%s] %s: %s\n", mark, message.Action, message.Body)
	return err
}
