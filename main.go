package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mesa/internal/kitchen"
	"mesa/internal/notifier/subscriber"
	"mesa/internal/pos"
	"mesa/internal/stock/monitor"
	"mesa/pkg/config"
	"mesa/pkg/logger"
)

func main() {
	mode := flag.String("mode", "", "Service mode: pos-service, kitchen-worker, stock-monitor, notification-subscriber")
	port := flag.Int("port", 3000, "Port for the service's HTTP API")
	prefetch := flag.Int("prefetch", 1, "Kitchen worker prefetch count")
	workerName := flag.String("worker-name", "kitchen-1", "Kitchen worker consumer name")
	flag.Parse()

	if *mode == "" {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.NewLogger(*mode)

	switch *mode {
	case "pos-service":
		err = pos.Run(ctx, cfg, *port, log)
	case "kitchen-worker":
		err = kitchen.Run(ctx, cfg, *port, *prefetch, *workerName, log)
	case "stock-monitor":
		err = monitor.Run(ctx, cfg, log)
	case "notification-subscriber":
		err = subscriber.Run(ctx, cfg, log)
	default:
		fmt.Printf("Invalid mode: %s\n", *mode)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Error("shutdown", "service_failed", "Service exited with error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: mesa --mode=<service-mode> [service-specific-flags]")
	fmt.Println("Available modes:")
	fmt.Println("  pos-service --port=3000")
	fmt.Println("  kitchen-worker --port=3001 --worker-name=kitchen-1 --prefetch=1")
	fmt.Println("  stock-monitor")
	fmt.Println("  notification-subscriber")
}
