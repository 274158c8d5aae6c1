package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/handlers"
	"github.com/parley-chat/parley/internal/middleware"
	"github.com/parley-chat/parley/internal/notify"
	"github.com/parley-chat/parley/internal/store/gormstore"
	"github.com/parley-chat/parley/internal/upload"
	"github.com/parley-chat/parley/internal/ws"
)

func main() {
	godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	db, err := openDatabase(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	st, err := gormstore.New(db, gormstore.Options{
		GroupMinParticipants: cfg.GroupMinParticipants,
		GroupMaxParticipants: cfg.GroupMaxParticipants,
	})
	if err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	hub := ws.NewHub(st, rdb)
	go hub.Run()

	// With redis configured, events go through pub/sub and come back to
	// every instance's hub; otherwise the local hub delivers directly.
	var notifier notify.Notifier = hub
	if rdb != nil {
		notifier = notify.NewRedisPublisher(rdb)
	}

	var uploader upload.Uploader = upload.Disabled{}
	if cfg.CloudinaryCloudName != "" {
		uploader = upload.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset)
	}

	authHandler := &handlers.AuthHandler{
		Store:     st,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  24 * time.Hour,
	}
	convHandler := &handlers.ConversationHandler{Store: st, Notifier: notifier}
	msgHandler := &handlers.MessageHandler{
		Store:        st,
		Notifier:     notifier,
		Uploader:     uploader,
		Conversation: convHandler,
		PageLimit:    cfg.MessagePageLimit,
		PageMax:      cfg.MessagePageMax,
	}
	uploadConfig := &handlers.UploadConfig{
		CloudName:    cfg.CloudinaryCloudName,
		APIKey:       cfg.CloudinaryAPIKey,
		UploadPreset: cfg.CloudinaryUploadPreset,
	}

	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.Logging)

	r.HandleFunc("/api/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/login", authHandler.Login).Methods("POST")

	// The socket authenticates with the token in the query string because
	// browsers cannot set headers on websocket dials.
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		userID, _, err := auth.ParseToken(cfg.JWTSecret, req.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ws.Serve(hub, w, req, userID)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))

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
	api.HandleFunc("/uploads/config", uploadConfig.Get).Methods("GET")

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Println("Starting server on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

// openDatabase treats an empty DSN as a local sqlite file for development
// and anything else as Postgres.
func openDatabase(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return gorm.Open(sqlite.Open("parley.db"), &gorm.Config{})
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}
