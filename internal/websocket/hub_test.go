// Pulse - DaKshaa Festival Registration Live Statistics
// Copyright 2026 DaKshaa Tech Team
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dakshaa-fest/pulse

package websocket

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dakshaa-fest/pulse/internal/stats"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc, chan error) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	t.Cleanup(cancel)
	return hub, cancel, done
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != want {
		select {
		case <-deadline:
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBroadcastReachesClients(t *testing.T) {
	hub, _, _ := runHub(t)

	c1 := NewClient(hub, nil, 4)
	c2 := NewClient(hub, nil, 4)
	hub.Register <- c1
	hub.Register <- c2
	waitForClients(t, hub, 2)

	hub.Publish(stats.Snapshot{TotalParticipants: 42})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeStatsUpdate {
				t.Errorf("message type = %q, want %q", msg.Type, MessageTypeStatsUpdate)
			}
			snap, ok := msg.Data.(stats.Snapshot)
			if !ok {
				t.Fatalf("message data is %T, want stats.Snapshot", msg.Data)
			}
			if snap.TotalParticipants != 42 {
				t.Errorf("TotalParticipants = %d, want 42", snap.TotalParticipants)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("client never received broadcast")
		}
	}
}

func TestNewClientReceivesCurrentSnapshot(t *testing.T) {
	hub, _, _ := runHub(t)

	hub.Publish(stats.Snapshot{TotalParticipants: 7})

	// Wait for the broadcast to be processed so the hub has a snapshot
	// to replay.
	deadline := time.After(2 * time.Second)
	for {
		hub.mu.RLock()
		cached := hub.last != nil
		hub.mu.RUnlock()
		if cached {
			break
		}
		select {
		case <-deadline:
			t.Fatal("snapshot never cached")
		case <-time.After(5 * time.Millisecond):
		}
	}

	c := NewClient(hub, nil, 4)
	hub.Register <- c
	waitForClients(t, hub, 1)

	select {
	case msg := <-c.send:
		snap := msg.Data.(stats.Snapshot)
		if snap.TotalParticipants != 7 {
			t.Errorf("replayed TotalParticipants = %d, want 7", snap.TotalParticipants)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("new client never received the current snapshot")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub, _, _ := runHub(t)

	slow := NewClient(hub, nil, 1)
	hub.Register <- slow
	waitForClients(t, hub, 1)

	// First broadcast fills the queue, the second finds it full.
	hub.Publish(stats.Snapshot{TotalParticipants: 1})
	hub.Publish(stats.Snapshot{TotalParticipants: 2})

	waitForClients(t, hub, 0)

	// The hub closed the channel after the queued message.
	if msg, ok := <-slow.send; !ok || msg.Data.(stats.Snapshot).TotalParticipants != 1 {
		t.Errorf("queued message = %+v ok=%v, want first snapshot", msg, ok)
	}
	if _, ok := <-slow.send; ok {
		t.Error("send channel still open after drop")
	}
}

func TestShutdownClosesClients(t *testing.T) {
	hub, cancel, done := runHub(t)

	c := NewClient(hub, nil, 4)
	hub.Register <- c
	waitForClients(t, hub, 1)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after cancel")
	}

	if _, ok := <-c.send; ok {
		t.Error("client send channel still open after shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after shutdown, want 0", hub.ClientCount())
	}
}

func TestServeWSDeliversSnapshots(t *testing.T) {
	hub, _, _ := runHub(t)

	srv := httptest.NewServer(ServeWS(hub, 4))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	waitForClients(t, hub, 1)
	hub.Publish(stats.Snapshot{TotalParticipants: 99, BasePaid: 90})

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	var msg struct {
		Type string `json:"type"`
		Data struct {
			TotalParticipants int `json:"total_participants"`
			BasePaid          int `json:"base_paid"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != MessageTypeStatsUpdate {
		t.Errorf("type = %q, want %q", msg.Type, MessageTypeStatsUpdate)
	}
	if msg.Data.TotalParticipants != 99 || msg.Data.BasePaid != 90 {
		t.Errorf("data = %+v, want total 99 base 90", msg.Data)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub() // not running, queue fills up

	donech := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(stats.Snapshot{TotalParticipants: i})
		}
		close(donech)
	}()

	select {
	case <-donech:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}
