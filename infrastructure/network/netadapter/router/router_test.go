package router

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestRouterRoutesByCommand(t *testing.T) {
	router := NewRouter("test")
	diffs, err := router.AddIncomingRoute([]string{"mnlistdiff", "qrinfo"})
	if err != nil {
		t.Fatalf("AddIncomingRoute: %s", err)
	}
	if _, err := router.AddIncomingRoute([]string{"qrinfo"}); err == nil {
		t.Fatalf("AddIncomingRoute: expected an error for a command that's already routed")
	}

	for _, command := range []string{"mnlistdiff", "qrinfo"} {
		err := router.EnqueueIncomingMessage(&Message{Command: command, Payload: []byte{1}})
		if err != nil {
			t.Fatalf("EnqueueIncomingMessage(%s): %s", command, err)
		}
	}
	err = router.EnqueueIncomingMessage(&Message{Command: "ping"})
	if err == nil {
		t.Fatalf("EnqueueIncomingMessage: expected an error for an unrouted command")
	}

	for _, expected := range []string{"mnlistdiff", "qrinfo"} {
		message, err := diffs.DequeueWithTimeout(time.Second)
		if err != nil {
			t.Fatalf("DequeueWithTimeout: %s", err)
		}
		if message.Command != expected {
			t.Fatalf("got %s, want %s", message.Command, expected)
		}
	}

	err = router.RemoveRoute([]string{"qrinfo"})
	if err != nil {
		t.Fatalf("RemoveRoute: %s", err)
	}
	if err := router.EnqueueIncomingMessage(&Message{Command: "qrinfo"}); err == nil {
		t.Fatalf("EnqueueIncomingMessage: expected an error after the route was removed")
	}
}

func TestRouteCapacityAndTimeout(t *testing.T) {
	route := newRouteWithCapacity("test", 1)
	err := route.Enqueue(&Message{Command: "mnlistdiff"})
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}
	err = route.Enqueue(&Message{Command: "mnlistdiff"})
	if !errors.Is(err, ErrRouteCapacityReached) {
		t.Fatalf("Enqueue: expected ErrRouteCapacityReached, got %v", err)
	}

	_, err = route.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue: %s", err)
	}
	_, err = route.DequeueWithTimeout(10 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("DequeueWithTimeout: expected ErrTimeout, got %v", err)
	}
}

func TestRouterClose(t *testing.T) {
	router := NewRouter("test")
	route, err := router.AddIncomingRoute([]string{"mnlistdiff"})
	if err != nil {
		t.Fatalf("AddIncomingRoute: %s", err)
	}

	done := make(chan error)
	go func() {
		_, err := route.Dequeue()
		done <- err
	}()
	router.Close()
	router.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrRouteClosed) {
			t.Fatalf("Dequeue: expected ErrRouteClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Dequeue didn't return after the router was closed")
	}
	if err := router.OutgoingRoute().Enqueue(&Message{}); !errors.Is(err, ErrRouteClosed) {
		t.Fatalf("Enqueue: expected ErrRouteClosed, got %v", err)
	}
}
