package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/middleware"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/notify"
	"github.com/parley-chat/parley/internal/store/gormstore"
	"github.com/parley-chat/parley/internal/upload"
)

const testSecret = "test-secret"

// recordingNotifier captures fan-out so tests can assert on it without a
// live transport.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	users  [][]uint
}

func (n *recordingNotifier) Notify(userIDs []uint, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userIDs)
	n.events = append(n.events, ev)
}

type testEnv struct {
	router   *mux.Router
	store    *gormstore.GormStore
	notifier *recordingNotifier
}

// newTestEnv wires the real router, middleware and store the way the
// server binary does, against an isolated in-memory database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	st, err := gormstore.New(db, gormstore.Options{GroupMinParticipants: 3, GroupMaxParticipants: 5})
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	notifier := &recordingNotifier{}
	authHandler := &AuthHandler{Store: st, JWTSecret: testSecret, TokenTTL: time.Hour}
	convHandler := &ConversationHandler{Store: st, Notifier: notifier}
	msgHandler := &MessageHandler{
		Store:        st,
		Notifier:     notifier,
		Uploader:     upload.Disabled{},
		Conversation: convHandler,
		PageLimit:    50,
		PageMax:      100,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/login", authHandler.Login).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(testSecret))
	api.HandleFunc("/conversations", convHandler.CreateIndividual).Methods("POST")
	api.HandleFunc("/conversations", convHandler.List).Methods("GET")
	api.HandleFunc("/conversations/group", convHandler.CreateGroup).Methods("POST")
	api.HandleFunc("/conversations/{id}", convHandler.Get).Methods("GET")
	api.HandleFunc("/conversations/{id}", convHandler.Update).Methods("PATCH")
	api.HandleFunc("/conversations/{id}/members", convHandler.AddMember).Methods("POST")
	api.HandleFunc("/conversations/{id}/members/{userId}", convHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/conversations/{id}/leave", convHandler.Leave).Methods("POST")
	api.HandleFunc("/conversations/{id}/seen", convHandler.MarkSeen).Methods("PUT")
	api.HandleFunc("/conversations/{id}/messages", msgHandler.Send).Methods("POST")
	api.HandleFunc("/conversations/{id}/messages", msgHandler.List).Methods("GET")

	return &testEnv{router: r, store: st, notifier: notifier}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Password: "hashed"}
	if err := e.store.CreateUser(u); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return u
}

func (e *testEnv) token(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, u.ID, u.Username, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	var resp response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Response is not a JSON envelope: %v (%s)", err, rr.Body.String())
	}
	return rr, resp
}

func decodeData(t *testing.T, resp response, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, dst); err != nil {
		t.Fatalf("Failed to decode data: %v (%s)", err, string(resp.Data))
	}
}
