package di

import (
    "context"
    "fmt"
    "net"
    "strconv"
    "time"

    "LendPulse/internal/domain/repository"
    domsvc "LendPulse/internal/domain/service"
    "LendPulse/internal/handler/api"
    mid "LendPulse/internal/middleware"
    internalrepo "LendPulse/internal/repository"
    "LendPulse/internal/service/rpc"
    "LendPulse/internal/services/health"
    "LendPulse/internal/usecase"
    pkgcache "LendPulse/pkg/cache"
    pkgch "LendPulse/pkg/clickhouse"
    "LendPulse/pkg/config"
    xhttp "LendPulse/pkg/http"
    pkgkafka "LendPulse/pkg/kafka"
    applogger "LendPulse/pkg/logger"
    "LendPulse/pkg/metrics"
    pkgqueue "LendPulse/pkg/queue"
    "LendPulse/pkg/server"

    "github.com/shopspring/decimal"
)

// ProvideLogger creates the shared application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS lendpulse",
		`CREATE TABLE IF NOT EXISTS lendpulse.health_snapshots (
			address String,
			market String,
			slot UInt64,
			computed_at DateTime64(3),
			total_supply_value Float64,
			total_borrow_value Float64,
			borrow_utilization Float64,
			liquidatable UInt8,
			position_count UInt32,
			report String
		) ENGINE=MergeTree ORDER BY (address, computed_at)`,
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHealthStore creates the ClickHouse report store.
func ProvideHealthStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.HealthStore {
	store := internalrepo.NewClickHouseHealthStore(chClient.DB(), cfg.ClickHouse.Database+".health_snapshots")
	if s, ok := store.(*internalrepo.ClickHouseHealthStore); ok {
		s.SetLogger(l)
	}
	return store
}

// ProvideReportPublisher creates the Kafka report publisher.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaAccountsHandler registers the handler for the account updates topic.
func ProvideKafkaAccountsHandler(rec *usecase.Recomputer, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	return usecase.NewKafkaAccountsHandler(cfg.Kafka.Consumer.Topic, rec, m)
}

// ProvideRPCClient creates the lending program JSON-RPC client.
func ProvideRPCClient(cfg *config.Config) *rpc.Client {
	return rpc.NewClient(
		cfg.RPC.HTTPURL,
		repository.NormalizeCommitment(cfg.RPC.Commitment),
		cfg.RPC.Timeout,
		float64(cfg.RPC.MaxRPS),
	)
}

// ProvidePositionSource creates the on-chain account loader.
func ProvidePositionSource(client *rpc.Client, cfg *config.Config) repository.PositionSource {
	return rpc.NewLoader(client, cfg.RPC.Program)
}

// ProvideUpdateStream creates the program account WebSocket stream.
func ProvideUpdateStream(cfg *config.Config) repository.UpdateStream {
	return rpc.NewStream(
		cfg.RPC.WebSocketURL,
		cfg.RPC.Program,
		repository.NormalizeCommitment(cfg.RPC.Commitment),
		cfg.RPC.ReconnectDelay,
		cfg.RPC.PingInterval,
	)
}

// ProvideCalculator creates the obligation health calculator.
func ProvideCalculator() domsvc.HealthCalculator {
	return health.NewCalculator()
}

// ProvideReportProcessor creates the report routing use case.
func ProvideReportProcessor(
	pub repository.Publisher,
	store repository.HealthStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ReportProcessor {
	return usecase.NewReportProcessor(
		pub,
		store,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideRecomputer creates the single-obligation recompute use case.
func ProvideRecomputer(
	source repository.PositionSource,
	calc domsvc.HealthCalculator,
	proc *usecase.ReportProcessor,
	m repository.Metrics,
) *usecase.Recomputer {
	return usecase.NewRecomputer(source, calc, proc, m)
}

// ProvideAccountCollector creates the stream collector use case.
func ProvideAccountCollector(
	stream repository.UpdateStream,
	rec *usecase.Recomputer,
	m repository.Metrics,
) *usecase.AccountCollector {
	// Throttle per-address recomputes between WebSocket and the RPC loader
	pipe := mid.NewUpdatePipeline(rec, m,
		mid.WithMaxRPS(4),
		mid.WithBufferSize(2000),
	)
	return usecase.NewAccountCollector(stream, rec, m, pipe)
}

// ProvideRedisCache creates the Redis cache when enabled, nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Monitor.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Monitor.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Monitor.Redis.Password),
		pkgcache.WithRedisDB(cfg.Monitor.Redis.DB),
	)
}

// ProvideRecheckQueue creates the Redis-backed recheck queue with its job
// registered. The same queue publishes and consumes.
func ProvideRecheckQueue(cache *pkgcache.RedisCache, rec *usecase.Recomputer, l *applogger.Logger) *pkgqueue.RedisQueue {
	if cache == nil {
		return nil
	}
	q := pkgqueue.NewRedisQueue(l, &pkgqueue.QueueConfig{
		Workers:    2,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
	}, cache.Client(), pkgqueue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewRecheckJob(rec))
	return q
}

// ProvideObligationScanner creates the periodic market scanner.
func ProvideObligationScanner(
	source repository.PositionSource,
	calc domsvc.HealthCalculator,
	proc *usecase.ReportProcessor,
	m repository.Metrics,
	q *pkgqueue.RedisQueue,
	cfg *config.Config,
) *usecase.ObligationScanner {
	threshold := decimal.Zero
	if cfg.Monitor.AtRiskThreshold != "" {
		if d, err := decimal.NewFromString(cfg.Monitor.AtRiskThreshold); err == nil {
			threshold = d
		}
	}
	var qs pkgqueue.QueueService
	if q != nil {
		qs = q
	}
	return usecase.NewObligationScanner(
		source,
		calc,
		proc,
		m,
		qs,
		cfg.Monitor.Market,
		cfg.Monitor.ScanInterval,
		threshold,
	)
}

// ProvideHealthAggregator creates the read-side aggregation use case.
func ProvideHealthAggregator(
	source repository.PositionSource,
	calc domsvc.HealthCalculator,
	store repository.HealthStore,
	cache *pkgcache.RedisCache,
	cfg *config.Config,
) *usecase.HealthAggregator {
	// Layer an in-process cache over Redis; fall back to memory-only when
	// Redis is disabled.
	var svc pkgcache.Service
	if cache != nil {
		svc = pkgcache.NewLayeredCache(cache)
	} else {
		svc = pkgcache.NewMemoryCache()
	}
	return usecase.NewHealthAggregator(source, calc, store, svc, cfg.Monitor.CacheTTL)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(l *applogger.Logger, agg *usecase.HealthAggregator) xhttp.Handler {
	return api.NewHealthEchoHandler(l, agg)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.AccountCollector,
	scanner *usecase.ObligationScanner,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	recheck *pkgqueue.RedisQueue,
	proc *usecase.ReportProcessor,
	handler xhttp.Handler,
	l *applogger.Logger,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	// Ship aggregated error logs through the recheck queue's Redis connection
	if recheck != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "logs.aggregated",
			Publisher:      recheck,
		})
	}
	app := server.New(cfg, collector, scanner, consumer, kh, chClient, recheck)
	app.SetHTTPHandler(handler)
	app.ReportProc = proc
	return app
}
