package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Sumit771/1-2-1/internal/chat"
	"github.com/Sumit771/1-2-1/internal/config"
	"github.com/Sumit771/1-2-1/internal/database"
	"github.com/Sumit771/1-2-1/internal/media"
	"github.com/Sumit771/1-2-1/internal/repository"
	"github.com/Sumit771/1-2-1/internal/repository/memory"
	postgresrepo "github.com/Sumit771/1-2-1/internal/repository/postgres"
	"github.com/Sumit771/1-2-1/internal/service"
	"github.com/Sumit771/1-2-1/internal/transport/http/handlers"
	"github.com/Sumit771/1-2-1/internal/transport/http/middleware"
	"github.com/Sumit771/1-2-1/internal/transport/ws"
	"github.com/Sumit771/1-2-1/pkg/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := log.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log.Init(cfg.Log)

	if err := run(cfg); err != nil {
		l := log.L()
		l.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := log.L()

	// Identity store
	var userRepo repository.UserRepository
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := database.Connect(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		userRepo = postgresrepo.NewUserRepo(pool)
		l.Info().Str("host", cfg.DB.Host).Msg("connected to database")
	default:
		userRepo = memory.NewUserRepo()
	}

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	userService := service.NewUserService(userRepo)

	if cfg.Store.Driver == "memory" && cfg.Store.SeedUsers > 0 {
		if _, err := userService.SeedDefaults(ctx, cfg.Store.SeedUsers); err != nil {
			return err
		}
	}

	// Chat core
	images := chat.NewImageTracker()
	rooms := chat.NewRoomRegistry(images)
	messages := chat.NewMessageStore(rooms, images, cfg.Chat.MessageTTL)
	presence := chat.NewPresenceTracker()
	hub := chat.NewHub()
	sessions := chat.NewSessionManager(rooms, messages, presence, hub, authService, chat.Options{
		MaxContentLength: cfg.Chat.MaxContentLength,
		TypingClearDelay: cfg.Chat.TypingClearDelay,
	})
	chatService := service.NewChatService(userRepo, rooms, messages, presence)

	// Media
	store, err := media.NewLocalStorage(cfg.Upload.Dir)
	if err != nil {
		return err
	}
	processor := media.NewProcessor(store, media.Config{
		MaxSize:   cfg.Upload.MaxSize,
		MaxWidth:  cfg.Upload.MaxWidth,
		MaxHeight: cfg.Upload.MaxHeight,
		Quality:   cfg.Upload.Quality,
	})

	reaper := chat.NewReaper(images, messages, rooms, presence, processor, chat.ReaperConfig{
		Interval:  cfg.Chat.ReaperInterval,
		OrphanAge: cfg.Chat.ImageTTL,
	})

	// HTTP
	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:  handlers.NewAuthHandler(authService),
		Users: handlers.NewUserHandler(userService),
		Chat: handlers.NewChatHandler(chatService, handlers.ClientConfig{
			MessageTTL:       cfg.Chat.MessageTTL,
			MaxContentLength: cfg.Chat.MaxContentLength,
			TypingDebounce:   cfg.Chat.TypingDebounce,
		}),
		Images: handlers.NewImageHandler(processor, images, cfg.Chat.ImageTTL, cfg.Upload.MaxSize),
		Admin:  handlers.NewAdminHandler(userService),
		WebSocket: ws.NewHandler(ctx, sessions, ws.Options{
			PingInterval:   cfg.WebSocket.PingInterval,
			WriteWait:      cfg.WebSocket.WriteWait,
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
			SendBuffer:     cfg.WebSocket.SendBuffer,
			OriginPatterns: ws.OriginPatterns(cfg.CORS.Origin),
		}),
		Tokens:        authService,
		AdminToken:    cfg.Admin.Token,
		CORSOrigin:    cfg.CORS.Origin,
		APILimiter:    middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst, "Too many requests, please try again later"),
		AuthLimiter:   middleware.PerMinute(cfg.AuthRateLimit.PerMinute, "Too many authentication attempts, please try again later"),
		UploadLimiter: middleware.PerMinute(cfg.Upload.PerMinute, "Too many uploads, please try again later"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info().Str("addr", srv.Addr).Str("env", cfg.Server.Env).Str("store", cfg.Store.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return reaper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
