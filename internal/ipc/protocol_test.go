package ipc

import (
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"
)

func connPair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return NewConn(a), NewConn(b)
}

func TestSendRecvRoundTrip(t *testing.T) {
	client, server := connPair(t)

	go func() {
		client.SendTyped("req-1", TypeSwitchDesktop, SwitchRequest{
			DesktopID: "{AA509086-5CA9-4C25-8F95-589D3C07B48A}",
		})
	}()

	env, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if env.ID != "req-1" || env.Type != TypeSwitchDesktop {
		t.Fatalf("envelope = %q/%q, want req-1/%s", env.ID, env.Type, TypeSwitchDesktop)
	}

	var req SwitchRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if req.DesktopID != "{AA509086-5CA9-4C25-8F95-589D3C07B48A}" {
		t.Fatalf("DesktopID = %q", req.DesktopID)
	}
}

func TestErrorEnvelope(t *testing.T) {
	client, server := connPair(t)

	go func() {
		client.SendError("req-2", TypeRemoveDesktop, &ErrorInfo{
			Kind:    ErrKindNotFound,
			Message: "desktop not found",
			ID:      "{00000000-0000-0000-0000-000000000001}",
		})
	}()

	env, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if env.Error == nil {
		t.Fatal("expected error envelope")
	}
	if env.Error.Kind != ErrKindNotFound {
		t.Errorf("Kind = %q, want %q", env.Error.Kind, ErrKindNotFound)
	}
	if env.Error.ID == "" {
		t.Error("not-found error must carry the offending identifier")
	}
}

func TestRecvRejectsOversizedFrame(t *testing.T) {
	client, server := connPair(t)

	go func() {
		// Hand-write a frame header claiming more than MaxMessageSize.
		header := []byte{0xFF, 0xFF, 0xFF, 0xFF}
		clientRaw := client.conn
		clientRaw.SetWriteDeadline(time.Now().Add(time.Second))
		clientRaw.Write(header)
	}()

	if _, err := server.Recv(); err == nil {
		t.Fatal("oversized frame must be rejected")
	}
}

func TestSendRejectsOversizedMessage(t *testing.T) {
	client, _ := connPair(t)

	big, err := json.Marshal(strings.Repeat("x", MaxMessageSize))
	if err != nil {
		t.Fatalf("marshal filler: %v", err)
	}
	env := &Envelope{ID: "big", Type: TypePing, Payload: big}
	if err := client.Send(env); err == nil {
		t.Fatal("oversized message must be rejected before writing")
	}
}

func TestSequentialMessages(t *testing.T) {
	client, server := connPair(t)

	go func() {
		for i := 0; i < 3; i++ {
			client.SendTyped("seq", TypePing, nil)
		}
	}()

	for i := 0; i < 3; i++ {
		env, err := server.Recv()
		if err != nil {
			t.Fatalf("Recv %d: %v", i, err)
		}
		if env.Type != TypePing {
			t.Fatalf("Type = %q, want ping", env.Type)
		}
	}
}
