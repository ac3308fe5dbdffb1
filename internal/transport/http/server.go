package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fb "firebase.google.com/go/v4"

	"arthub/internal/cache"
	"arthub/internal/config"
	"arthub/internal/database"
	"arthub/internal/firebase"
	"arthub/internal/handler"
	"arthub/internal/model"
	"arthub/internal/queue"
	"arthub/internal/redis"
	"arthub/internal/repository"
	"arthub/internal/service"
	"arthub/internal/store"
	authmw "arthub/internal/transport/http/middleware"
	"arthub/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Realtime store and token verification
	var (
		app      *fb.App
		st       store.Store
		verifier authmw.TokenVerifier
	)
	if firebase.Configured(cfg) {
		app, err = firebase.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		dbClient, err := app.Database(ctx)
		if err != nil {
			return fmt.Errorf("failed to open realtime database: %w", err)
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			return fmt.Errorf("failed to init firebase auth: %w", err)
		}
		st = store.NewFirebase(dbClient)
		verifier = authmw.NewFirebaseVerifier(authClient)
	} else {
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when firebase is not configured")
		}
		log.Println("Firebase not configured, using in-memory store and dev JWT auth")
		st = store.NewMemory()
		verifier = authmw.NewJWTVerifier(cfg.JWTSecret)
	}

	// 3. Notification inbox (optional)
	var notifRepo repository.NotificationRepository
	if cfg.DatabaseEnabled() {
		db, err := database.Connect(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		notifRepo = repository.NewNotificationRepository(db)
	} else {
		log.Println("Database not configured, notification inbox disabled")
	}

	// 4. Push providers
	var fcm service.PushSender
	if app != nil {
		client, err := service.NewFCMClient(ctx, app)
		if err != nil {
			return err
		}
		fcm = client
	}
	notifService := service.NewNotificationService(
		notifRepo,
		repository.NewDeviceTokenRepository(st),
		fcm,
		service.NewExpoPushClient(),
	)
	eventHandler := worker.NewHandler(notifService, service.NotificationCopy)

	// 5. Event delivery: Redis stream + workers, or inline
	var (
		publisher   queue.Publisher
		statusCache cache.StatusCache
		manager     *worker.Manager
	)
	rc, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("Redis unavailable, delivering events inline: %v", err)
	}
	if rc != nil {
		defer rc.Close()
		publisher = queue.NewPublisher(rc.Client)
		statusCache = cache.NewStatusCache(rc.Client)

		mcfg := worker.DefaultManagerConfig()
		mcfg.WorkerCount = cfg.WorkerCount
		manager = worker.NewManager(queue.NewConsumer(rc.Client), eventHandler, mcfg)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer manager.Stop()
	} else {
		publisher = queue.NewInlinePublisher(eventHandler.HandleEvent)
		statusCache = cache.NewMemoryStatusCache()
	}

	// 6. Services
	counterService := service.NewCounterService(repository.NewCounterRepository(st), model.MembershipCounters...)
	commentService := service.NewCommentService(repository.NewCommentRepository(st), counterService, publisher)
	coordinator := service.NewStatusCoordinator(statusCache, service.NewQueueSink(publisher))
	invitationService := service.NewInvitationService(repository.NewInvitationRepository(st), coordinator, cfg.StatusPollInterval)
	accountService := service.NewAccountService(repository.NewAccountRepository(st))
	chatService := service.NewChatService(repository.NewChatRepository(st))

	var mediaService *service.MediaService
	if cfg.MediaEnabled() {
		mediaService, err = service.NewMediaService(ctx, cfg)
		if err != nil {
			return err
		}
	} else {
		log.Println("R2 not configured, media uploads disabled")
	}

	go func() {
		if err := invitationService.WatchAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[Server] Invitation watcher stopped: %v", err)
		}
	}()

	// 7. Setup Server
	router := NewRouter(RouterConfig{
		CommentHandler:      handler.NewCommentHandler(commentService),
		CounterHandler:      handler.NewCounterHandler(counterService),
		InvitationHandler:   handler.NewInvitationHandler(invitationService),
		AccountHandler:      handler.NewAccountHandler(accountService, chatService),
		NotificationHandler: handler.NewNotificationHandler(notifService),
		MediaHandler:        handler.NewMediaHandler(mediaService),
		Verifier:            verifier,
		Roles:               accountService,
		AllowedOrigins:      cfg.CORSAllowedOrigins,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// connectRedis returns nil without error when no URL is configured.
func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return redis.Connect(pingCtx, url)
}
