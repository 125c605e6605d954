package main

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assetdesk/internal"
	"assetdesk/internal/config"
	"assetdesk/internal/container"
	"assetdesk/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewConfiguredLogger(appConfig.Log.Level, appConfig.Log.Format)
	internal.DefaultLogger = logger
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appConfig, logger); err != nil {
		logger.Error("assetdesk stopped: %v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, appConfig *config.Config, logger *internal.Logger) error {
	db, err := container.OpenDatabase(appConfig.Database)
	if err != nil {
		return err
	}

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		db.Close()
		return err
	}
	defer appContainer.Shutdown(context.Background())

	if err := appContainer.InitWithDatabase(ctx, db); err != nil {
		return err
	}

	server := ui.NewServer(appContainer.ImportService,
		ui.WithMaxUploadBytes(appConfig.Import.MaxUploadMB<<20),
		ui.WithServerLogger(logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, ":"+appConfig.Server.Port, appConfig.Server.ShutdownTimeout)
	})

	if appConfig.Admin.Enabled {
		admin := &http.Server{
			Addr:              ":" + appConfig.Admin.Port,
			Handler:           ui.NewAdmin(db).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("[admin] health and pprof on %s", admin.Addr)
			if err := admin.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
			defer cancel()
			return admin.Shutdown(shutdownCtx)
		})
	}

	logger.Info("assetdesk serving profile %s on :%s", appContainer.Schema.Profile(), appConfig.Server.Port)
	return g.Wait()
}
