package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/adapters/handler"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/adapters/messaging"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/adapters/middleware"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/adapters/repository"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/config"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/services"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	roomRepo := repository.NewRoomRepository(db)
	alarmRepo := repository.NewAlarmRepository(db)
	userRepo := repository.NewUserRepository(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	log.Println("Connected to Redis successfully")

	fanout := services.NewFanout(messaging.NewRedisPublisher(redisClient))

	roomService := services.NewRoomService(roomRepo, userRepo)
	alarmService := services.NewAlarmService(alarmRepo, roomRepo, userRepo, fanout)
	userService := services.NewUserService(userRepo)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey)

	roomHandler := handler.NewRoomHandler(roomService)
	alarmHandler := handler.NewAlarmHandler(alarmService)
	userHandler := handler.NewUserHandler(userService, roomService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	mux := http.NewServeMux()

	// Health endpoints (OpenShift compatible)
	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/health/ready", healthHandler.Ready)
	mux.HandleFunc("/health/live", healthHandler.Live)
	mux.Handle("/metrics", promhttp.Handler())

	route := func(pattern, label string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Metrics(label, authMiddleware.Authenticate(h)))
	}

	// Room endpoints
	route("GET /rooms", "/rooms", roomHandler.List)
	route("POST /rooms", "/rooms", roomHandler.Create)
	route("GET /rooms/{id}", "/rooms/{id}", roomHandler.Get)
	route("PUT /rooms/{id}", "/rooms/{id}", roomHandler.Update)
	route("DELETE /rooms/{id}", "/rooms/{id}", roomHandler.Delete)

	// Alarm endpoints
	route("GET /alarms", "/alarms", alarmHandler.List)
	route("POST /alarms/trigger", "/alarms/trigger", alarmHandler.Trigger)
	route("POST /alarms/{id}/acknowledge", "/alarms/{id}/acknowledge", alarmHandler.Acknowledge)
	route("POST /alarms/{id}/reset", "/alarms/{id}/reset", alarmHandler.Reset)
	route("GET /alarms/active-for-caretaker", "/alarms/active-for-caretaker", alarmHandler.ActiveForCaretaker)

	// User endpoints (admin-only enforcement lives in the core)
	route("GET /users", "/users", userHandler.List)
	route("POST /users/{id}/assign-rooms", "/users/{id}/assign-rooms", userHandler.AssignRooms)

	corsWrapped := middleware.CORSMiddleware(cfg.AllowedOrigins)(mux)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, corsWrapped); err != nil {
		log.Fatalf("Could not start server: %s\n", err)
	}
}
