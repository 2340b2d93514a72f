package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/showcaseworker/internal/gcp"
	"github.com/Lllllllleong/showcaseworker/internal/metrics"
	"github.com/Lllllllleong/showcaseworker/internal/services"
)

var (
	registry      = prometheus.NewRegistry()
	workerMetrics = metrics.New(registry)

	pushHandler  http.Handler
	eventHandler func(context.Context, cloudevents.Event) error
	once         sync.Once
	initErr      error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Pub/Sub push subscriptions target the HTTP function; Eventarc triggers
	// target the CloudEvent one. FUNCTION_TARGET picks one at deploy time.
	functions.HTTP("ProcessShowcaseImage", processShowcaseImage)
	functions.CloudEvent("ProcessShowcaseEvent", processShowcaseEvent)
}

// setup builds the worker once per instance.
func setup() error {
	once.Do(func() {
		var fn *services.ShowcaseFunction
		fn, initErr = services.NewShowcaseFromEnv(context.Background(), workerMetrics)
		if initErr != nil {
			return
		}
		pushHandler = services.NewPushHandler(fn)
		eventHandler = services.NewEventHandler(fn)
	})
	return initErr
}

func processShowcaseImage(w http.ResponseWriter, r *http.Request) {
	if err := setup(); err != nil {
		slog.Error("CRITICAL: Showcase worker initialization failed.", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	pushHandler.ServeHTTP(w, r)
}

func processShowcaseEvent(ctx context.Context, e cloudevents.Event) error {
	if err := setup(); err != nil {
		slog.Error("CRITICAL: Showcase worker initialization failed.", "error", err)
		return err
	}
	return eventHandler(ctx, e)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file.", "error", err)
	}

	port := gcp.GetEnv("PORT", "8080")
	metricsAddr := gcp.GetEnv("METRICS_ADDR", "")

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		slog.Info("Starting function server.", "port", port)
		return funcframework.Start(port)
	})
	if metricsAddr != "" {
		g.Go(func() error {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler(registry))
			slog.Info("Starting metrics server.", "addr", metricsAddr)
			return http.ListenAndServe(metricsAddr, mux)
		})
	}

	// Neither server stops on its own; the first failure ends the process.
	<-ctx.Done()
	slog.Error("Server stopped.", "error", context.Cause(ctx))
	os.Exit(1)
}
