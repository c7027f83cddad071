package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/config"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/inference"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/server"
)

func main() {
	var (
		configPath string
		port       int
		modelPath  string
	)

	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (RUL_* environment variables override it)")
	flag.IntVar(&port, "port", 0, "Listen port (overrides config)")
	flag.StringVar(&modelPath, "model", "", "Model artifact path (overrides config)")

	klog.InitFlags(nil)
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		klog.ErrorS(err, "Failed to load configuration")
		os.Exit(1)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if modelPath != "" {
		cfg.Training.ModelPath = modelPath
	}

	klog.InfoS("Starting RUL prediction server",
		"port", cfg.Server.Port,
		"modelPath", cfg.Training.ModelPath,
		"metricsEnabled", cfg.Observability.MetricsEnabled)

	svc := inference.New(cfg.Training.ModelPath)
	if cfg.Server.PreloadModel {
		// A missing model is not fatal; the form explains how to train one
		if err := svc.Load(); err != nil {
			if errors.Is(err, inference.ErrModelNotTrained) {
				klog.InfoS("No trained model yet, serving the training hint", "modelPath", cfg.Training.ModelPath)
			} else {
				klog.ErrorS(err, "Failed to preload model", "modelPath", cfg.Training.ModelPath)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		klog.InfoS("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.New(svc, server.Options{MetricsEnabled: cfg.Observability.MetricsEnabled}).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			klog.ErrorS(err, "Prediction server error")
			cancel()
		}
	}()

	<-ctx.Done()

	klog.InfoS("Shutting down prediction server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		klog.ErrorS(err, "Error shutting down prediction server")
	}

	klog.InfoS("Prediction server stopped")
	klog.Flush()
}
