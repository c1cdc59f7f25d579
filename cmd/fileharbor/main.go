// Command fileharbor runs the S3-compatible object-storage server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fileharbor/fileharbor/internal/config"
	"github.com/fileharbor/fileharbor/internal/fsstore"
	"github.com/fileharbor/fileharbor/internal/s3api"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var showVersion bool
	var port int
	var hostname, directory, indexDocument, errorDocument string
	var silent bool

	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.IntVar(&port, "port", getEnvInt("FILEHARBOR_PORT", 4578), "HTTP listen port")
	flag.StringVar(&hostname, "hostname", getEnv("FILEHARBOR_HOSTNAME", "localhost"), "Bind address")
	flag.StringVar(&directory, "directory", getEnv("FILEHARBOR_DIRECTORY", "./data"), "Root directory for buckets")
	flag.BoolVar(&silent, "silent", parseBoolEnv("FILEHARBOR_SILENT", false), "Suppress request logging")
	flag.StringVar(&indexDocument, "index-document", getEnv("FILEHARBOR_INDEX_DOCUMENT", ""), "Static-site index document key")
	flag.StringVar(&errorDocument, "error-document", getEnv("FILEHARBOR_ERROR_DOCUMENT", ""), "Static-site error document key")
	flag.Parse()

	if showVersion {
		fmt.Printf("fileharbor %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if silent {
		logger.SetOutput(io.Discard)
		logger.SetLevel(logrus.PanicLevel)
	}

	localFS, err := fsstore.NewLocalFileSystem(directory)
	if err != nil {
		logger.Fatalf("failed to initialize storage directory: %v", err)
	}

	opts := []config.Option{
		config.WithPort(port),
		config.WithHostname(hostname),
		config.WithDirectory(directory),
		config.WithSilent(silent),
		config.WithIndexDocument(indexDocument),
		config.WithErrorDocument(errorDocument),
		config.WithFileSystem(localFS),
	}
	cfg := config.New(opts...)

	store := fsstore.NewStore(cfg.FileSystem)
	handler := s3api.NewHandler(store, cfg, logger)

	router := s3api.NewRouter(handler)
	wrapped := s3api.CORSMiddleware(
		s3api.MetricsMiddleware(
			s3api.LoggingMiddleware(logger)(
				s3api.MaxClientsMiddleware(1024)(router),
			),
		),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Hostname, cfg.Port),
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       6 * time.Hour,
		WriteTimeout:      6 * time.Hour,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Infof("starting fileharbor %s on %s (data-dir=%s)", version, server.Addr, cfg.Directory)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("forced shutdown: %v", err)
	}
	logger.Info("stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// parseBoolEnv reads an environment variable and parses it with
// strconv.ParseBool. Returns defaultVal if the variable is empty or
// unparseable.
func parseBoolEnv(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
