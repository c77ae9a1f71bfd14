package main

import (
	"context"
	"log"
	"net/http"

	_ "ascai/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ascai/internal/audit"
	"ascai/internal/auth"
	"ascai/internal/cache"
	"ascai/internal/config"
	"ascai/internal/db"
	"ascai/internal/handler"
	"ascai/internal/mailer"
	"ascai/internal/model"
	"ascai/internal/repository"
	"ascai/internal/router"
	"ascai/internal/service"
	"ascai/internal/storage"
	"ascai/internal/ws"
)

// @title ASCAI Membership API
// @version 1.0
// @description Membership management API: members, events, news, jobs, documents, forum and direct messaging.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.FailedLoginAttempt{},
		&model.Member{},
		&model.MemberApplication{},
		&model.MemberBadge{},
		&model.MemberAchievement{},
		&model.SubscriptionSettings{},
		&model.Payment{},
		&model.EventCategory{},
		&model.Event{},
		&model.EventRegistration{},
		&model.EventReminder{},
		&model.NewsCategory{},
		&model.NewsPost{},
		&model.JobPosting{},
		&model.JobApplication{},
		&model.DocumentTag{},
		&model.DocumentFolder{},
		&model.Document{},
		&model.ForumCategory{},
		&model.Thread{},
		&model.Reply{},
		&model.Vote{},
		&model.Flag{},
		&model.ForumNotification{},
		&model.ModeratorAction{},
		&model.Conversation{},
		&model.Message{},
		&model.UserPresence{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	fileStore, err := storage.NewLocalStore(cfg.StorageDir)
	if err != nil {
		log.Fatalf("storage init: %v", err)
	}

	var mail mailer.Service
	if cfg.SendGridKey != "" {
		mail = mailer.NewSendGrid(cfg.SendGridKey, cfg.AppName, cfg.FromEmail)
	} else {
		mail = mailer.NewConsole(cfg.AppName)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	memberRepo := repository.NewMemberRepository(gormDB)
	paymentRepo := repository.NewPaymentRepository(gormDB)
	eventRepo := repository.NewEventRepository(gormDB)
	newsRepo := repository.NewNewsRepository(gormDB)
	jobRepo := repository.NewJobRepository(gormDB)
	documentRepo := repository.NewDocumentRepository(gormDB)
	forumRepo := repository.NewForumRepository(gormDB)
	messagingRepo := repository.NewMessagingRepository(gormDB)
	auditRepo := repository.NewAuditLogRepository(gormDB)

	recorder := audit.NewRecorder(auditRepo)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, recorder)
	memberService := service.NewMemberService(memberRepo, userRepo, paymentRepo, mail, recorder)
	paymentService := service.NewPaymentService(paymentRepo, memberRepo, recorder)
	eventService := service.NewEventService(eventRepo, mail, recorder)
	newsService := service.NewNewsService(newsRepo, recorder)
	jobService := service.NewJobService(jobRepo, mail, recorder)
	documentService := service.NewDocumentService(documentRepo, fileStore, recorder)
	forumService := service.NewForumService(forumRepo, recorder)
	messagingService := service.NewMessagingService(messagingRepo, userRepo, cacheClient)

	hub := ws.NewHub(context.Background(), cacheClient)

	// Register routes
	router.Register(e, cfg, jwtService, userRepo, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Member:    handler.NewMemberHandler(memberService),
		Payment:   handler.NewPaymentHandler(paymentService),
		Event:     handler.NewEventHandler(eventService),
		News:      handler.NewNewsHandler(newsService),
		Job:       handler.NewJobHandler(jobService),
		Document:  handler.NewDocumentHandler(documentService),
		Forum:     handler.NewForumHandler(forumService),
		Messaging: handler.NewMessagingHandler(messagingService, hub),
		Audit:     handler.NewAuditHandler(auditRepo),
	})

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
