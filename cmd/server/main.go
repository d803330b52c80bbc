package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/trustshare/trustshare/internal/access"
	"github.com/trustshare/trustshare/internal/api"
	"github.com/trustshare/trustshare/internal/api/handlers"
	"github.com/trustshare/trustshare/internal/config"
	"github.com/trustshare/trustshare/internal/notify"
	"github.com/trustshare/trustshare/internal/repositories"
	"github.com/trustshare/trustshare/internal/sharelink"
	"github.com/trustshare/trustshare/internal/storage"
	"github.com/trustshare/trustshare/internal/sweep"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Envs

	repositories.ConnectDatabase()
	db := repositories.DB

	var blobs storage.BlobStore
	switch cfg.Storage.Backend {
	case "s3":
		blobs = storage.NewS3Store(cfg.Storage.S3)
	default:
		disk, err := storage.NewDiskStore(cfg.Storage.DiskRoot)
		if err != nil {
			log.WithError(err).Fatal("blob store init failed")
		}
		blobs = disk
	}

	files := storage.NewService(db, blobs, log)
	notices := notify.NewTracker(db)
	engine := access.NewEngine(db, notices, log, cfg.OwnerBypassExpiry)
	links := sharelink.NewIssuer(db, log)
	sweeper := sweep.New(db, files, log)

	h := handlers.New(cfg, db, files, engine, links, notices, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: api.SetupRouter(cfg, h, log),
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("starting TrustShare server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := sweeper.Run(ctx, cfg.SweepInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server exited")
	}
	log.Info("server stopped")
}
