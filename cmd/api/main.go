package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/portones-fc/access/internal/audit"
	"github.com/portones-fc/access/internal/bridge"
	"github.com/portones-fc/access/internal/domain"
	"github.com/portones-fc/access/internal/gate"
	"github.com/portones-fc/access/internal/http/handlers"
	httpmw "github.com/portones-fc/access/internal/http/middleware"
	"github.com/portones-fc/access/internal/pass"
	"github.com/portones-fc/access/internal/store"
	"github.com/portones-fc/access/internal/store/memory"
	"github.com/portones-fc/access/internal/store/postgres"
	"github.com/portones-fc/access/pkg/config"
	"github.com/portones-fc/access/pkg/database"
	"github.com/portones-fc/access/pkg/events"
	"github.com/portones-fc/access/pkg/logger"
	mw "github.com/portones-fc/access/pkg/middleware"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()

	// Select the store backend
	var (
		gates       store.GateStore
		residents   store.ResidentStore
		passes      store.PassStore
		redeemLimit func(http.Handler) http.Handler
	)

	switch cfg.Database.Backend {
	case "memory":
		mem := memory.New()
		seedDemo(mem)
		gates, residents, passes = mem, mem, mem
		logger.Info("Using in-memory store; data will not survive a restart")
	default:
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}

		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := postgres.New(pool)
		gates, residents, passes = pg, pg, pg

		// Anonymous QR redemption is the only unauthenticated write, so it
		// alone gets an IP rate limit.
		limiter := httpmw.NewRateLimiter(pool, httpmw.RateLimitConfig{
			Requests: cfg.Pass.RedeemLimit,
			Window:   cfg.Pass.RedeemWindow,
			KeyFunc:  httpmw.RedemptionRateLimitKeyFunc,
		})
		redeemLimit = limiter.Middleware()
	}

	// Connect to the gate controller bridge
	br, err := bridge.New(cfg.NATS.URL, cfg.Gate.CommandSubject, cfg.Gate.StatusSubject,
		nats.ReconnectWait(cfg.NATS.ReconnectWait))
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer br.Close()

	// Audit events ride the same broker under their own subjects.
	var recorder audit.Recorder = audit.Noop{}
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Warn("Audit bus unavailable; commands and redemptions will not be recorded", "error", err)
	} else {
		defer eventBus.Close()
		recorder = audit.NewBusRecorder(eventBus)
	}

	// Initialize services
	states := gate.NewStateStore()
	gateService := gate.NewService(gates, residents, states, br, recorder, cfg.Gate.ConfirmTimeout)
	passService := pass.NewService(passes, gateService, pass.DefaultCatalog(), recorder)

	if err := br.Start(gateService.HandleStatusReport); err != nil {
		logger.Error("Failed to subscribe to gate status reports", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	h := handlers.New(gateService, passService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", "*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(mw.Health)

	// Routes
	r.Mount("/v1", h.Routes(redeemLimit))

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down access service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Access service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting access service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Access service error", "error", err)
		os.Exit(1)
	}
}

// seedDemo loads a small fixture set so the in-memory backend is usable
// immediately after startup.
func seedDemo(mem *memory.Store) {
	now := time.Now()
	mem.AddGate(domain.Gate{
		ID: "gate-entrada", Name: "Entrada Principal", Type: domain.GateEntry,
		ColoniaID: "colonia-demo", Enabled: true, CreatedAt: now,
	})
	mem.AddGate(domain.Gate{
		ID: "gate-salida", Name: "Salida Principal", Type: domain.GateExit,
		ColoniaID: "colonia-demo", Enabled: true, CreatedAt: now,
	})
	mem.AddResident(domain.Resident{
		ID: "resident-demo", Name: "Residente Demo", HouseID: "casa-1",
		ColoniaID: "colonia-demo", CreatedAt: now,
	})
}
