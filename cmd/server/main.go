package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/gpio_shop/internal/config"
	"github.com/Skotchmaster/gpio_shop/internal/db"
	"github.com/Skotchmaster/gpio_shop/internal/events"
	"github.com/Skotchmaster/gpio_shop/internal/hardware"
	"github.com/Skotchmaster/gpio_shop/internal/httpserver"
	"github.com/Skotchmaster/gpio_shop/internal/logging"
	loggingmw "github.com/Skotchmaster/gpio_shop/internal/middleware/logging"
	"github.com/Skotchmaster/gpio_shop/internal/repo"
	"github.com/Skotchmaster/gpio_shop/internal/search"
	"github.com/Skotchmaster/gpio_shop/internal/service"
	"github.com/Skotchmaster/gpio_shop/internal/tokens"
	"github.com/Skotchmaster/gpio_shop/internal/upload"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.MustLoad()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store open: %v", err)
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		publisher = p
	}

	var index search.Index
	if cfg.ESURL != "" {
		es, err := search.NewClient(search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		index = search.NewESIndex(es, cfg.ESIndex)
	}

	controller, closeController, err := newController(cfg)
	if err != nil {
		log.Fatalf("hardware controller: %v", err)
	}

	uploads, err := upload.New(upload.Config{Dir: cfg.UploadDir, URLPrefix: cfg.UploadPrefix})
	if err != nil {
		log.Fatalf("uploads: %v", err)
	}

	authSvc := &service.AuthService{
		Repo:   store,
		Tokens: tokens.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Events: publisher,
	}
	catalogSvc := &service.CatalogService{Repo: store, Events: publisher, Index: index}
	checkoutSvc := &service.CheckoutService{Repo: store, Hardware: controller, Events: publisher}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:     &httpserver.AuthHTTP{Svc: authSvc},
		CatalogHandler:  &httpserver.CatalogHTTP{Svc: catalogSvc, Uploads: uploads},
		CheckoutHandler: &httpserver.CheckoutHTTP{Svc: checkoutSvc},
		Uploads:         uploads,
		JWTSecret:       cfg.JWTSecret,
		SearchEnabled:   index != nil,
		Ready:           store.Ping,
	})

	// no WriteTimeout: checkout waits on the device for as long as it takes
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr, "store", cfg.StoreDriver, "hardware", cfg.HardwareTransport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}
	closeController()
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("store_close_error", "error", err)
	}

	logger.Info("server_stopped")
}

func openStore(cfg config.Config) (repo.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI, 10*time.Second)
		if err != nil {
			return nil, err
		}
		r := repo.NewMongoRepo(client, cfg.MongoDatabase)
		if err := r.EnsureIndexes(ctx); err != nil {
			_ = r.Close(context.Background())
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return r, nil
	case config.StorePostgres, config.StoreSQLite:
		open := func() (*repo.GormRepo, error) {
			if cfg.StoreDriver == config.StoreSQLite {
				gdb, err := db.OpenSQLite(cfg.DatabaseURL)
				if err != nil {
					return nil, err
				}
				return repo.NewGormRepo(gdb), nil
			}
			gdb, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			return repo.NewGormRepo(gdb), nil
		}
		r, err := open()
		if err != nil {
			return nil, err
		}
		if err := r.Migrate(ctx); err != nil {
			_ = r.Close(context.Background())
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newController(cfg config.Config) (hardware.Controller, func(), error) {
	if cfg.HardwareTransport == config.TransportMQTT {
		m, err := hardware.NewMQTTController(hardware.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
			User:     cfg.MQTTUser,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	}
	return hardware.NewHTTPController(cfg.HardwareURL, cfg.HardwareTimeout), func() {}, nil
}
