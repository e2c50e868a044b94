package service

import (
	"context"
	"credlyse_backend/internal/model"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *EventHub, userID uint) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWs(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for !hub.Connected(userID) {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func TestEventHubPublishReachesOnlyThatUser(t *testing.T) {
	hub := NewEventHub()
	alice := dialHub(t, hub, 1)
	bob := dialHub(t, hub, 2)

	hub.Publish(1, Event{Type: "PING", Data: "for alice"})
	hub.Publish(2, Event{Type: "PING", Data: "for bob"})

	if ev := readEvent(t, alice); ev.Data != "for alice" {
		t.Fatalf("alice got %+v", ev)
	}
	if ev := readEvent(t, bob); ev.Data != "for bob" {
		t.Fatalf("bob got %+v", ev)
	}
}

func TestEventHubCertificateNotification(t *testing.T) {
	hub := NewEventHub()
	conn := dialHub(t, hub, 7)

	course := &model.Course{Title: "Go Basics"}
	course.ID = 3
	cert := &model.Certificate{UserID: 7, CourseID: 3, ArtifactURL: "/uploads/certificates/x.png"}
	cert.ID = "cert-1"

	var n Notifier = hub
	if err := n.CertificateIssued(context.Background(), &model.User{}, course, cert); err != nil {
		t.Fatalf("CertificateIssued: %v", err)
	}

	ev := readEvent(t, conn)
	if ev.Type != EventCertificateIssued {
		t.Fatalf("type: want=%s got=%s", EventCertificateIssued, ev.Type)
	}
	data, _ := ev.Data.(map[string]interface{})
	if data["certificate_id"] != "cert-1" || data["course_title"] != "Go Basics" {
		t.Fatalf("payload: %+v", data)
	}
}

func TestEventHubCloseDisconnects(t *testing.T) {
	hub := NewEventHub()
	conn := dialHub(t, hub, 5)

	hub.Close()
	if hub.Connected(5) {
		t.Fatal("still connected after Close")
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to be closed")
	}
	// publishing to nobody is a no-op
	hub.Publish(5, Event{Type: "PING"})
}

func TestNotifiersJoinErrors(t *testing.T) {
	ok := &fakeNotifier{}
	bad := &fakeNotifier{err: errors.New("smtp down")}

	err := Notifiers{bad, ok}.CertificateIssued(context.Background(), &model.User{}, &model.Course{}, &model.Certificate{})
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("want joined error, got %v", err)
	}
	if ok.sent != 1 {
		t.Fatalf("later notifiers must still run: sent=%d", ok.sent)
	}
}
