package kitchen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	kitchendb "mesa/internal/kitchen/db"
	"mesa/internal/kitchen/handler"
	"mesa/internal/kitchen/service"
	"mesa/internal/kitchen/worker"
	"mesa/pkg/config"
	"mesa/pkg/db"
	"mesa/pkg/logger"
	"mesa/pkg/rabbitmq"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

// Run starts the kitchen worker: the queue consumer that projects submitted
// orders onto the board, plus the HTTP surface for the board and status
// transitions.
func Run(ctx context.Context, cfg *config.Config, port, prefetch int, workerName string, log *logger.Logger) error {
	dbPool, err := db.ConnectDB(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbPool.Close()

	rmq, err := rabbitmq.ConnectRabbitMQ(&cfg.RabbitMQ, log)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer rmq.Close()

	svc := service.NewKitchenService(kitchendb.NewKitchenDB(dbPool, log), rmq, log)
	w := worker.NewWorker(workerName, prefetch, svc, rmq, log)

	router := mux.NewRouter()
	handler.NewKitchenHandler(svc, log).Register(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		log.Info("startup", "server_started", fmt.Sprintf("Kitchen service listening on :%d", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown", "graceful_shutdown_started", "Shutting down kitchen service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
