package pos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	billingdb "mesa/internal/billing/db"
	"mesa/internal/billing/receipt"
	billingservice "mesa/internal/billing/service"
	kitchendb "mesa/internal/kitchen/db"
	menudb "mesa/internal/menu/db"
	menuservice "mesa/internal/menu/service"
	"mesa/internal/pos/cart"
	posdb "mesa/internal/pos/db"
	"mesa/internal/pos/handler"
	"mesa/internal/pos/service"
	stockdb "mesa/internal/stock/db"
	stockservice "mesa/internal/stock/service"
	"mesa/pkg/config"
	"mesa/pkg/db"
	"mesa/pkg/logger"
	"mesa/pkg/rabbitmq"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

// Run starts the POS service: the HTTP API for menu reads, carts, order
// submission, billing, and manual stock adjustments.
func Run(ctx context.Context, cfg *config.Config, port int, log *logger.Logger) error {
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

	orders := service.NewOrderService(
		posdb.NewOrderDB(dbPool, log), rmq, cart.NewStore(),
		cfg.Business.TaxRate, cfg.Business.OrderNumberPrefix, log)
	catalog := menuservice.NewCatalogService(menudb.NewMenuDB(dbPool, log), log)
	stock := stockservice.NewUpdater(stockdb.NewStockDB(dbPool, log), rmq, log)
	finalizer := billingservice.NewFinalizer(
		billingdb.NewBillingDB(dbPool, log), kitchendb.NewKitchenDB(dbPool, log),
		stock, receipt.NewTextRenderer(), receipt.ConsolePrinter{}, rmq, log)

	router := mux.NewRouter()
	handler.NewPOSHandler(orders, catalog, finalizer, stock, log).Register(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("startup", "server_started", fmt.Sprintf("POS service listening on :%d", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown", "graceful_shutdown_started", "Shutting down POS service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
