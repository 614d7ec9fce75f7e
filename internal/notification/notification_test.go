package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/logging"
)

func TestFailureNamesActionAndCause(t *testing.T) {
	msg := Failure("Sign up", fmt.Errorf("register: %w", apperr.ErrAlreadyExists))

	assert.Equal(t, KindFailure, msg.Kind)
	assert.Equal(t, "Sign up", msg.Action)
	assert.Equal(t, "a record with these details already exists", msg.Body)
}

func TestCauseFallsBackToErrorText(t *testing.T) {
	assert.Equal(t, "disk full", Cause(errors.New("disk full")))
	assert.Equal(t, "the request timed out", Cause(fmt.Errorf("load: %w", context.DeadlineExceeded)))
	assert.Empty(t, Cause(nil))
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)

	Notify(context.Background(), n, Success("Sign in", "welcome back"))
	Notify(context.Background(), n, Failure("Mint", apperr.ErrStoreFailed))

	assert.Equal(t, "[ok] Sign in: welcome back\n[error] Mint: your changes could not be saved, please try again\n", buf.String())
}

func TestNotifyToleratesNil(t *testing.T) {
	Notify(context.Background(), nil, Success("noop", ""))
	var n *LoggerNotifier
	assert.NoError(t, n.Send(context.Background(), Success("noop", "")))
	assert.NoError(t, NewLoggerNotifier(logging.Discard()).Send(context.Background(), Failure("x", errors.New("y"))))
}
