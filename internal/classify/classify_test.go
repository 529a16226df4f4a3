package classify

import (
	"errors"
	"testing"

	"github.com/tomasbasham/webcapd/internal/task"
)

func TestFromExceptionTimeout(t *testing.T) {
	ed := FromException(errors.New("Timeout 30000ms exceeded (30000ms)"))
	if ed.Type != task.ErrorTypeTimeout {
		t.Fatalf("want timeout, got %s", ed.Type)
	}
	if ed.TimeoutMs != 30000 {
		t.Fatalf("want 30000ms extracted, got %d", ed.TimeoutMs)
	}
}

func TestFromExceptionTimeoutNoDuration(t *testing.T) {
	ed := FromException(errors.New("Timeout waiting for navigation"))
	if ed.Type != task.ErrorTypeTimeout {
		t.Fatalf("want timeout, got %s", ed.Type)
	}
	if ed.TimeoutMs != 0 {
		t.Fatalf("want 0, got %d", ed.TimeoutMs)
	}
}

func TestFromExceptionConnection(t *testing.T) {
	for _, msg := range []string{"websocket disconnected", "session closed", "Target Closed"} {
		ed := FromException(errors.New(msg))
		if ed.Type != task.ErrorTypeConnection {
			t.Fatalf("msg %q: want connection, got %s", msg, ed.Type)
		}
	}
}

func TestFromExceptionInternal(t *testing.T) {
	ed := FromException(errors.New("something unexpected happened"))
	if ed.Type != task.ErrorTypeInternal {
		t.Fatalf("want internal, got %s", ed.Type)
	}
}

func TestIsDisconnected(t *testing.T) {
	if !IsDisconnected("page closed unexpectedly") {
		t.Fatal("expected true")
	}
	if IsDisconnected("navigation failed") {
		t.Fatal("expected false")
	}
}
