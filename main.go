package main

import (
	"context"
	"log"
	"os"
	"time"

	"figurachat/internal/admin"
	"figurachat/internal/api"
	"figurachat/internal/auth"
	"figurachat/internal/config"
	"figurachat/internal/conversation"
	"figurachat/internal/intake"
	"figurachat/internal/notify"
	"figurachat/internal/redis"
	"figurachat/internal/session"
	"figurachat/internal/storage"
	"figurachat/internal/worker"
	"figurachat/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("FIGURACHAT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("FIGURACHAT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer cache.Close()
	}

	adminService := admin.NewService(db)
	if err := adminService.SeedDefaultAdmin(context.Background(),
		cfg.BasicConfig.AdminUsername, cfg.BasicConfig.AdminPassword); err != nil {
		log.Fatalf("seed admin account: %v", err)
	}
	authService := auth.NewService(db, 24*time.Hour)

	var sender notify.Sender
	if cfg.SMTP.Host != "" {
		sender, err = notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			log.Fatalf("init smtp sender: %v", err)
		}
	} else {
		log.Println("smtp not configured, order emails disabled")
	}

	conversations := conversation.NewService(db, cache)
	notifier := notify.NewService(db, sender)
	engine := session.NewEngine(
		intake.NewFlow(intake.DefaultRules()),
		session.NewRegistry(),
		conversations,
		notifier,
		cfg.BasicConfig.HistoryLimit,
	)

	dispatcher := worker.NewDispatcher(
		cfg.BasicConfig.MinWorkers,
		cfg.BasicConfig.MaxWorkers,
		cfg.BasicConfig.QueueSize,
		time.Duration(cfg.BasicConfig.WorkerIdleTimeout)*time.Minute,
	)
	gateway := ws.NewGateway(engine, dispatcher)
	handlers := api.NewHandler(adminService, authService, gateway)

	router := gin.Default()
	handlers.RegisterRoutes(router)
	router.GET("/ws", gateway.Handle)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
