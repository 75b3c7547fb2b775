package ws

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"healthsync-api/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestHub_BroadcastOnlyToRoom(t *testing.T) {
	hub := NewHub(testLogger())
	doctorID := uuid.New()
	room := service.QueueChannel(doctorID, "2030-01-07")

	inRoom := NewClient("a", room)
	otherDay := NewClient("b", service.QueueChannel(doctorID, "2030-01-08"))
	hub.Register(inRoom)
	hub.Register(otherDay)

	event := service.NewQueueUpdatedEvent(doctorID, "2030-01-07")
	hub.Broadcast(room, event)

	select {
	case data := <-inRoom.Send:
		var got service.QueueEvent
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != event {
			t.Errorf("expected %+v, got %+v", event, got)
		}
	default:
		t.Fatal("expected client in room to receive the event")
	}

	select {
	case <-otherDay.Send:
		t.Error("client in another room must not receive the event")
	default:
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(testLogger())
	client := NewClient("a", "room")
	hub.Register(client)

	hub.Unregister(client)
	hub.Unregister(client)

	if hub.RoomSize("room") != 0 {
		t.Errorf("expected empty room, got %d", hub.RoomSize("room"))
	}
	if _, ok := <-client.Send; ok {
		t.Error("expected Send to be closed")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(testLogger())
	slow := NewClient("slow", "room")
	fast := NewClient("fast", "room")
	hub.Register(slow)
	hub.Register(fast)

	event := service.NewQueueUpdatedEvent(uuid.New(), "2030-01-07")
	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast("room", event)
		<-fast.Send
	}
	hub.Broadcast("room", event)

	if hub.RoomSize("room") != 1 {
		t.Fatalf("expected slow client dropped, room size %d", hub.RoomSize("room"))
	}
	if len(fast.Send) != 1 {
		t.Errorf("expected fast client to keep receiving, buffered %d", len(fast.Send))
	}
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Register(NewClient("a", "r1"))
	hub.Register(NewClient("b", "r2"))

	hub.CloseAll()

	if hub.RoomSize("r1") != 0 || hub.RoomSize("r2") != 0 {
		t.Error("expected all rooms empty")
	}
}

func TestQueueHandler_RejectsBadQuery(t *testing.T) {
	handler := NewQueueHandler(NewHub(testLogger()), []string{"*"}, testLogger())

	for _, target := range []string{
		"/ws/queue?date=2030-01-07",
		"/ws/queue?doctorId=" + uuid.NewString() + "&date=07-01-2030",
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestQueueHandler_DeliversRoomEvents(t *testing.T) {
	hub := NewHub(testLogger())
	server := httptest.NewServer(NewQueueHandler(hub, []string{"*"}, testLogger()))
	defer server.Close()

	doctorID := uuid.New()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/queue?doctorId=" + doctorID.String() + "&date=2030-01-07"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	room := service.QueueChannel(doctorID, "2030-01-07")
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(room) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined the room")
		}
		time.Sleep(10 * time.Millisecond)
	}

	event := service.NewQueueUpdatedEvent(doctorID, "2030-01-07")
	hub.Broadcast(room, event)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got service.QueueEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != event {
		t.Errorf("expected %+v, got %+v", event, got)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://app.test"})

	req := httptest.NewRequest(http.MethodGet, "/ws/queue", nil)
	if !check(req) {
		t.Error("requests without Origin should pass")
	}
	req.Header.Set("Origin", "http://app.test")
	if !check(req) {
		t.Error("allowed origin should pass")
	}
	req.Header.Set("Origin", "http://evil.test")
	if check(req) {
		t.Error("unknown origin should be rejected")
	}
}
