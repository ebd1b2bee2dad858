// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"subadmin/internal/config"
	"subadmin/internal/dashboard"
	dashboardhttp "subadmin/internal/dashboard/transport/http"
	"subadmin/internal/metrics"
	subscriptionclient "subadmin/internal/subscription/client"
	"subadmin/internal/subscription/events"
	subscriptionrepository "subadmin/internal/subscription/repository"
	subscriptionservice "subadmin/internal/subscription/service"
	subscriptionhttp "subadmin/internal/subscription/transport/http"
	"subadmin/pkg/db"
	"subadmin/pkg/hash"
	"subadmin/pkg/jwt"
	"subadmin/pkg/middleware"
)

// dashboardCaller is the token subject the dashboard signs its API calls with.
const dashboardCaller = "dashboard"

func main() {
	log.Println("subadmin starting...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer database.Close()
	if err := db.Migrate(context.Background(), database); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	log.Println("Database connected")

	metrics.InitMetrics()
	if cfg.MetricsUser != "" {
		if cost, err := hash.Cost(cfg.MetricsPasswordHash); err != nil {
			log.Fatalf("METRICS_PASSWORD_HASH is not a bcrypt hash: %v", err)
		} else if cost < 10 {
			log.Printf("Warning: METRICS_PASSWORD_HASH uses a low bcrypt cost (%d)", cost)
		}
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Fatalf("NATS connection failed: %v", err)
		}
		publisher = p
		log.Println("Publishing subscription events to NATS")
	}
	defer publisher.Close()

	// --- subscriptions API ---
	subRepo := subscriptionrepository.NewSubscriptionRepository(database)
	subService := subscriptionservice.NewService(subRepo, publisher)
	subHandler := subscriptionhttp.NewSubscriptionHandler(subService)

	// --- dashboard ---
	remote := subscriptionclient.New(subscriptionclient.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.RemoteTimeout,
		MaxRetries: cfg.RemoteMaxRetries,
		Token: func() (string, error) {
			return jwt.GenerateToken(cfg.SessionSecret, dashboardCaller, time.Minute)
		},
	})
	sessions := dashboard.NewSessions(cfg.SessionSecret, cfg.SessionTTL, func() *dashboard.Controller {
		return dashboard.NewController(remote)
	})
	pageHandler, err := dashboardhttp.NewHandler(sessions, cfg.SecureCookies)
	if err != nil {
		log.Fatalf("Dashboard templates failed to load: %v", err)
	}

	// --- router ---
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.MetricsMiddleware)

	// The dashboard calls the API from this process, so its calls are counted
	// against the browser's address on /admin instead of the loopback one.
	apiLimiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute).
		Exempt(middleware.BearerSubject(cfg.SessionSecret, dashboardCaller))
	pageLimiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)

	r.Route("/api/subscriptions", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		api.Use(apiLimiter.Middleware)
		api.Use(middleware.ValidateRequest)
		subHandler.Routes(api)
	})

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(pageLimiter.Middleware)
		pageHandler.Routes(admin)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/subscriptions", http.StatusFound)
	})

	r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPasswordHash)).Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Println("Shutdown signal received, starting graceful shutdown")
		shutdownServer(server)
	}()

	log.Printf("Server running on %s (dashboard at /admin/subscriptions, API at %s)", cfg.HTTPAddr, cfg.APIBaseURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}
