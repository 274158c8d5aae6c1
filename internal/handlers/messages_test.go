package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/notify"
)

func TestSendMessageRequiresContentOrImage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	conv, _, _ := env.store.GetOrCreateIndividual(alice.ID, bob.ID)

	rr, resp := env.do(t, "POST", fmt.Sprintf("/api/conversations/%d/messages", conv.ID),
		env.token(t, alice), map[string]string{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if resp.Error == nil || !strings.Contains(resp.Error.Message, "content or image") {
		t.Errorf("Expected a 'content or image' message, got %+v", resp.Error)
	}
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	conv, _, _ := env.store.GetOrCreateIndividual(alice.ID, bob.ID)

	rr, resp := env.do(t, "POST", fmt.Sprintf("/api/conversations/%d/messages", conv.ID),
		env.token(t, alice), map[string]string{"content": "hello bob"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}

	var msg models.Message
	decodeData(t, resp, &msg)
	if msg.Status != models.MessageSent {
		t.Errorf("Expected status sent, got %s", msg.Status)
	}

	// Fan-out went to bob only.
	if len(env.notifier.events) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(env.notifier.events))
	}
	ev := env.notifier.events[0]
	if ev.Type != notify.EventMessageNew || ev.MessageID != msg.ID {
		t.Errorf("Unexpected event %+v", ev)
	}
	if len(env.notifier.users[0]) != 1 || env.notifier.users[0][0] != bob.ID {
		t.Errorf("Expected notification to bob, got %v", env.notifier.users[0])
	}
}

func TestSendMessageBlockedIndividualButNotGroup(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	indiv, _, _ := env.store.GetOrCreateIndividual(alice.ID, bob.ID)
	group, err := env.store.CreateGroup(carol.ID, "Shared", "", []uint{alice.ID, bob.ID})
	if err != nil {
		t.Fatalf("Fixture failed: %v", err)
	}

	env.store.Block(alice.ID, bob.ID)

	rr, resp := env.do(t, "POST", fmt.Sprintf("/api/conversations/%d/messages", indiv.ID),
		env.token(t, bob), map[string]string{"content": "hi"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 in individual conversation, got %d", rr.Code)
	}
	if resp.Error == nil || !strings.Contains(resp.Error.Message, "blocked") {
		t.Errorf("Expected a blocked error, got %+v", resp.Error)
	}

	// The same pair can still talk inside a shared group.
	rr, _ = env.do(t, "POST", fmt.Sprintf("/api/conversations/%d/messages", group.ID),
		env.token(t, bob), map[string]string{"content": "hi all"})
	if rr.Code != http.StatusCreated {
		t.Errorf("Expected 201 in group conversation, got %d (%s)", rr.Code, rr.Body.String())
	}
}

func TestSendMessageNonParticipant(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	mallory := env.createUser(t, "mallory")
	conv, _, _ := env.store.GetOrCreateIndividual(alice.ID, bob.ID)

	rr, _ := env.do(t, "POST", fmt.Sprintf("/api/conversations/%d/messages", conv.ID),
		env.token(t, mallory), map[string]string{"content": "let me in"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rr.Code)
	}
}

func TestListMessagesCursor(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	conv, _, _ := env.store.GetOrCreateIndividual(alice.ID, bob.ID)

	for i := 0; i < 5; i++ {
		env.store.SendMessage(&models.Message{
			ConversationID: conv.ID, SenderID: alice.ID, Content: fmt.Sprintf("msg %d", i),
		})
	}

	type page struct {
		Messages   []models.Message `json:"messages"`
		HasMore    bool             `json:"has_more"`
		NextCursor uint             `json:"next_cursor"`
	}

	rr, resp := env.do(t, "GET",
		fmt.Sprintf("/api/conversations/%d/messages?limit=2", conv.ID), env.token(t, bob), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var p1 page
	decodeData(t, resp, &p1)
	if len(p1.Messages) != 2 || !p1.HasMore {
		t.Fatalf("Expected full first page with more, got %d hasMore=%v", len(p1.Messages), p1.HasMore)
	}

	_, resp = env.do(t, "GET",
		fmt.Sprintf("/api/conversations/%d/messages?limit=2&cursor=%d", conv.ID, p1.NextCursor),
		env.token(t, bob), nil)
	var p2 page
	decodeData(t, resp, &p2)
	for _, m := range p2.Messages {
		if m.ID >= p1.NextCursor {
			t.Errorf("Expected ids below cursor %d, got %d", p1.NextCursor, m.ID)
		}
	}

	rr, _ = env.do(t, "GET",
		fmt.Sprintf("/api/conversations/%d/messages?cursor=abc", conv.ID), env.token(t, bob), nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed cursor, got %d", rr.Code)
	}
}

func TestMarkSeenHandler(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	conv, _, _ := env.store.GetOrCreateIndividual(alice.ID, bob.ID)

	env.store.SendMessage(&models.Message{ConversationID: conv.ID, SenderID: alice.ID, Content: "one"})
	env.store.SendMessage(&models.Message{ConversationID: conv.ID, SenderID: alice.ID, Content: "two"})

	path := fmt.Sprintf("/api/conversations/%d/seen", conv.ID)
	rr, resp := env.do(t, "PUT", path, env.token(t, bob), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var result struct {
		NewlySeen int64 `json:"newly_seen"`
	}
	decodeData(t, resp, &result)
	if result.NewlySeen != 2 {
		t.Errorf("Expected 2 newly seen, got %d", result.NewlySeen)
	}

	// Other participants get a best-effort seen notification.
	found := false
	for _, ev := range env.notifier.events {
		if ev.Type == notify.EventConversationSeen && ev.ConversationID == conv.ID {
			found = true
		}
	}
	if !found {
		t.Error("Expected a conversation:seen notification")
	}

	_, resp = env.do(t, "PUT", path, env.token(t, bob), nil)
	decodeData(t, resp, &result)
	if result.NewlySeen != 0 {
		t.Errorf("Expected idempotent repeat, got %d newly seen", result.NewlySeen)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rr, _ := env.do(t, "POST", "/api/register", "",
		map[string]string{"username": "newuser", "password": "longenough"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}

	rr, resp := env.do(t, "POST", "/api/login", "",
		map[string]string{"username": "newuser", "password": "longenough"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var login models.LoginResponse
	decodeData(t, resp, &login)
	if login.Token == "" {
		t.Error("Expected a token")
	}

	rr, _ = env.do(t, "POST", "/api/login", "",
		map[string]string{"username": "newuser", "password": "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad password, got %d", rr.Code)
	}
}
