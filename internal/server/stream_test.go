package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inkwelllabs/corkboard/internal/auth"
	"github.com/inkwelllabs/corkboard/internal/board"
	"github.com/inkwelllabs/corkboard/internal/store"
)

func TestEventPayloadShape(t *testing.T) {
	obj := board.NewObject(board.ObjectTypeStickyNote, 120, 80, "", 0)
	obj.ObjectID = "obj-1"
	payload := eventPayloadFor(store.Event{
		BoardID:   "b1",
		Type:      store.EventTypeCreated,
		ObjectID:  "obj-1",
		Object:    obj,
		Timestamp: time.UnixMilli(1700000000000),
	})

	if payload.Type != "created" {
		t.Fatalf("type = %q, want created", payload.Type)
	}
	if payload.ObjectID != "obj-1" || payload.Object.ID != "obj-1" {
		t.Fatalf("object id not carried: %+v", payload)
	}
	if payload.Timestamp != 1700000000000 {
		t.Fatalf("timestamp = %d", payload.Timestamp)
	}
	if payload.Object.Width != 200 || payload.Object.Height != 150 {
		t.Fatalf("object size = %vx%v, want sticky defaults", payload.Object.Width, payload.Object.Height)
	}
}

// closeNotifyRecorder adds the http.CloseNotifier method gin's Stream
// helper requires but httptest.ResponseRecorder lacks.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func TestObjectStreamDeliversChanges(t *testing.T) {
	ts := newTestServer(t)

	token, _, err := ts.issuer.Issue(auth.Identity{UserID: "watcher"})
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	request := httptest.NewRequest(http.MethodGet, "/api/boards/b1/stream", nil).WithContext(ctx)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := newCloseNotifyRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.handler.ServeHTTP(recorder, request)
	}()

	// Give the handler a moment to subscribe, publish, then let the
	// event flush before tearing the stream down.
	time.Sleep(50 * time.Millisecond)
	obj := board.NewObject(board.ObjectTypeRectangle, 10, 20, "", 0)
	if _, err := ts.store.Create(context.Background(), "b1", obj, "writer"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	cancel()
	<-done

	body := recorder.Body.String()
	if !strings.Contains(body, "event:change") {
		t.Fatalf("no change event observed, body: %q", body)
	}
	if !strings.Contains(body, `"type":"created"`) {
		t.Fatalf("body missing created event: %q", body)
	}
	if !strings.Contains(body, `"rectangle"`) {
		t.Fatalf("body missing object payload: %q", body)
	}
	if recorder.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content-type = %q", recorder.Header().Get("Content-Type"))
	}
}

func TestObjectStreamSwallowsSignOutRace(t *testing.T) {
	ts := newTestServer(t)

	token, _, err := ts.issuer.Issue(auth.Identity{UserID: "watcher"})
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	// A context cancelled before the subscription takes is how a
	// concurrent sign-out reaches the stream handler.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	request := httptest.NewRequest(http.MethodGet, "/api/boards/b1/stream", nil).WithContext(ctx)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()

	ts.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusNoContent)
	}
	if strings.Contains(recorder.Body.String(), "error") {
		t.Fatalf("sign-out race surfaced an error: %q", recorder.Body.String())
	}
}
