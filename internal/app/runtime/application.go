// Package runtime assembles the storefront from configuration and manages
// the server lifecycle.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	app "github.com/astrobite/storefront/internal/app"
	"github.com/astrobite/storefront/internal/app/auth"
	"github.com/astrobite/storefront/internal/app/httpapi"
	"github.com/astrobite/storefront/internal/app/metrics"
	"github.com/astrobite/storefront/internal/app/services/accounts"
	"github.com/astrobite/storefront/internal/app/services/contact"
	"github.com/astrobite/storefront/internal/app/session"
	"github.com/astrobite/storefront/internal/app/storage/memory"
	"github.com/astrobite/storefront/internal/app/storage/postgres"
	"github.com/astrobite/storefront/internal/config"
	"github.com/astrobite/storefront/internal/middleware"
	"github.com/astrobite/storefront/internal/platform/migrations"
	"github.com/astrobite/storefront/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *http.Server
	db         *sql.DB
	redis      *redis.Client
}

// NewApplication constructs the application with default wiring: postgres
// storage when a DSN is configured, redis carts when an address is
// configured, memory twins otherwise.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Logging)

	stores := app.Stores{}
	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = openDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}

		migCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migrations.Apply(migCtx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}

		pg := postgres.New(db)
		stores.Catalog = pg
		stores.Orders = pg
		stores.Users = pg
	} else {
		log.Warn("no database configured, using in-memory stores")
		mem := memory.New()
		stores.Catalog = mem
		stores.Orders = mem
		stores.Users = mem
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			if db != nil {
				db.Close()
			}
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		stores.Carts = session.NewRedisCartStore(redisClient)
	} else {
		log.Warn("no redis configured, carts will not survive restarts")
		stores.Carts = session.NewMemoryCartStore()
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	var mailer contact.Mailer
	if cfg.Mail.SendGridKey != "" {
		mailer = contact.NewSendGridMailer(cfg.Mail)
	}

	application := app.New(stores, issuer, mailer, log)
	registerOAuthProviders(application, cfg.OAuth)

	m := metrics.New(prometheus.DefaultRegisterer)
	authn := middleware.NewAuthenticator(issuer, stores.Users, log)

	router := httpapi.NewRouter(application, httpapi.RouterConfig{
		Authenticator:  authn,
		Metrics:        m,
		AllowedOrigins: []string{"*"},
		Log:            log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		httpServer: srv,
		db:         db,
		redis:      redisClient,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and closes connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
	}
	return nil
}

func registerOAuthProviders(application *app.Application, cfg config.OAuthConfig) {
	providers := map[string]config.OAuthProviderConfig{
		"google":   cfg.Google,
		"facebook": cfg.Facebook,
	}
	for name, pc := range providers {
		if pc.ClientID == "" {
			continue
		}
		application.Accounts.RegisterOAuthProvider(name, accounts.NewHTTPOAuthProvider(accounts.OAuthEndpoints{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURI:  pc.RedirectURI,
			TokenURL:     pc.TokenURL,
			UserInfoURL:  pc.UserInfoURL,
		}, nil))
	}
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
