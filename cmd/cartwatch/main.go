package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/api"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/auth"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/cart"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/config"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/logger"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/realtime"
)

// cartwatch keeps the realtime cart channel open and prints badge updates as
// they arrive. Losing the channel is never fatal: the badge simply stops
// moving until the next run.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	zlog := logger.New()
	defer func() { _ = zlog.Sync() }()

	creds, err := auth.NewStore(cfg.CredentialsFile)
	if err != nil {
		log.Fatalf("Cannot open credentials file: %v", err)
	}

	client := api.NewClient(cfg.APIBaseURL, creds, zlog)

	store := cart.NewStore(func(snapshot cart.Snapshot) {
		fmt.Printf("Cart badge: %d (%d line items)\n", snapshot.BadgeCount(), len(snapshot.Items))
	})

	var userID int64
	if stored, err := creds.Credentials(); err == nil {
		userID = stored.UserID
		if token, err := creds.Token(); err == nil && userID == 0 {
			if id, err := auth.UserIDFromToken(token); err == nil {
				userID = id
			}
		}
	}

	channel := realtime.New(realtime.Config{
		BaseURL:     cfg.WSBaseURL,
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		OnStatus: func(status realtime.Status) {
			zlog.Info("Channel status", zap.String("status", string(status)))
		},
	}, realtime.Deps{
		Dialer: realtime.NewDialer(),
		Tokens: creds,
		Store:  store,
		Resync: client.Cart,
		Logger: zlog,
	})

	g, gctx := errgroup.WithContext(ctx)

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	debugSrv := &http.Server{
		Addr:         cfg.DebugAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Printf("Debug server listening on %s", cfg.DebugAddr)
		if err := debugSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := debugSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Debug server shutdown failed: %v", err)
		}

		channel.Close()
		store.Clear()
		return nil
	})

	channel.Connect(ctx, userID)
	log.Println("Watching cart updates, Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		log.Fatalf("cartwatch failed: %v", err)
	}
	log.Println("cartwatch stopped")
}
