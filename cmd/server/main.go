package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"logwatch/pkg/api"
	"logwatch/pkg/config"
	"logwatch/pkg/notify"
	"logwatch/pkg/poller"
	"logwatch/pkg/source"
)

func main() {
	var (
		configPath string
		httpAddr   string
		logLevel   string
	)

	flag.StringVar(&configPath, "config", "cmd/server/config.toml", "Path to TOML config file")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[server] failed to load config: %v", err)
	}

	// Override config with flags if set
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[server] invalid config: %v", err)
	}

	if !strings.Contains(cfg.HTTPAddr, ":") {
		log.Warn("[server] use ':' before port number, e.g. ':8080'")
	}

	switch cfg.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}
	log.Debugf("[server] config: %s", cfg)

	src, err := source.New(cfg)
	if err != nil {
		log.Fatalf("[server] failed to create log source: %v", err)
	}

	var notifiers notify.Multi
	if cfg.Secrets.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Secrets.WebhookURL, cfg.ServiceName, cfg.Webhook.Timeout))
	}

	findingsWriter := newKafkaWriter(cfg.Kafka.Addr, cfg.Kafka.FindingsTopic, cfg.Kafka.Batch)
	if findingsWriter != nil {
		defer findingsWriter.Close()
		notifiers = append(notifiers, notify.NewKafka(findingsWriter, cfg.ServiceName))
	}
	if len(notifiers) == 0 {
		log.Warn("[server] no notifiers configured, anomalies will only be served by the API")
	}

	metrics := poller.NewMetrics(prometheus.DefaultRegisterer)
	opts := []poller.Option{poller.WithMetrics(metrics)}
	if len(notifiers) > 0 {
		opts = append(opts, poller.WithNotifier(notifiers))
	}

	p, err := poller.New(src, cfg.RefreshInterval, opts...)
	if err != nil {
		log.Fatalf("[server] failed to create poller: %v", err)
	}

	apiOpts := []api.Option{api.WithRefreshLimit(rate.Limit(cfg.RefreshRate), cfg.RefreshBurst)}
	logsWriter := newKafkaWriter(cfg.Kafka.Addr, cfg.Kafka.LogsTopic, cfg.Kafka.Batch)
	if logsWriter != nil {
		defer logsWriter.Close()
		apiOpts = append(apiOpts, api.WithAccessLog(logsWriter))
	} else {
		log.Warnf("[server] kafka was not configured, access logs will not be sent to Kafka")
	}

	api := api.New(cfg.ServiceName, p, apiOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("[server] poller stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Infof("[server] starting on port %v", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
			return
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cancel()
	wg.Wait()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}
}

// newKafkaWriter returns nil when addr or topic is empty.
func newKafkaWriter(addr, topic string, batch int) *kafka.Writer {
	if addr == "" || topic == "" {
		return nil
	}

	w := &kafka.Writer{
		Addr:      kafka.TCP(addr),
		Topic:     topic,
		BatchSize: batch,
	}
	if err := createTopic(addr, topic); err != nil {
		log.Warnf("[server] failed to create Kafka topic %s: %v", topic, err)
	}
	return w
}

func createTopic(broker, topic string) error {
	conn, err := kafka.DialContext(context.Background(), "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
