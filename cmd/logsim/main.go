package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"logwatch/pkg/simulate"
)

func main() {
	var (
		httpAddr string
		logLevel string
		every    time.Duration
		perTick  int
		window   int
		seed     uint64
	)

	flag.StringVar(&httpAddr, "http", ":8000", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "info", "Log level: debug, info, warn, error.")
	flag.DurationVar(&every, "every", time.Second, "Interval between generated batches.")
	flag.IntVar(&perTick, "batch", 2, "Records generated per interval.")
	flag.IntVar(&window, "window", 1000, "Number of most recent records served on /logs.")
	flag.Uint64Var(&seed, "seed", uint64(time.Now().UnixNano()), "Random seed.")
	flag.Parse()

	if !strings.Contains(httpAddr, ":") {
		log.Warn("[logsim] use ':' before port number, e.g. ':8080'")
	}

	switch logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}

	win := simulate.NewWindow(window)
	baseURL := "http://127.0.0.1"
	if i := strings.LastIndex(httpAddr, ":"); i >= 0 {
		baseURL += httpAddr[i:]
	}
	gen := simulate.NewGenerator(baseURL, seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		simulate.Run(ctx, gen, win, every, perTick)
	}()

	srv := &http.Server{
		Addr:    httpAddr,
		Handler: simulate.Router(win),
	}

	go func() {
		log.Infof("[logsim] serving %d-record window on port %v", window, httpAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[logsim] failed to start: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cancel()
	<-done

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[logsim] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[logsim] HTTP server shut down gracefully")
	}
}
