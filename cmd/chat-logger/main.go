package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"twitch-chat-archiver/channels"
	"twitch-chat-archiver/commands"
	"twitch-chat-archiver/config"
	"twitch-chat-archiver/metrics"
	"twitch-chat-archiver/service"
	"twitch-chat-archiver/state"
	"twitch-chat-archiver/storage"
	"twitch-chat-archiver/textlog"
	"twitch-chat-archiver/twitch"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.CONFIG_FILE, "путь к TOML конфигурации")
	envFile := flag.String("env-file", ".env", "файл с переменными окружения")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("env file %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("config load failed: %v", err)
		return 1
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(sigCtx)
	defer cancel(nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Listen != "" {
		srv := serveMetrics(cfg.Metrics.Listen, reg)
		defer srv.Close()
	}

	pool := openDatabase(ctx, cfg)
	if pool != nil {
		defer pool.Close()
	}

	tracked := channels.NewSet(cfg.Twitch.Channels...)
	bot := state.New(tracked.Len(), pool != nil, time.Now())

	logs := textlog.New(cfg.Logs.Dir)
	if err := logs.EnsureDirs(tracked.List()...); err != nil {
		log.Printf("textlog: %v", err)
		return 1
	}

	var (
		batcher *storage.Batcher
		batch   service.Batch
		flushes *flushTally
	)
	if pool != nil {
		batcher = storage.NewBatcher(ctx, pool, bot, storage.BatchConfig{
			MaxInFlight:   cfg.Batch.MaxInFlight,
			MaxRetained:   cfg.Batch.MaxRetained,
			ResultBuffer:  cfg.Batch.ResultBuffer,
			StatsLogEvery: cfg.Batch.StatsLogEvery.Duration,
			FlushTimeout:  cfg.Batch.FlushTimeout.Duration,
		}, m)
		batch = batcher
		flushes = tallyFlushes(batcher.Results())
	}

	client := twitch.NewClient(cfg.Twitch, cfg.Batch.ChanBuffer, m)
	manager := channels.NewManager(tracked.List(), client, config.FileStore{Path: *configPath}, bot, logs, cfg.Twitch.JoinInterval.Duration)
	dispatcher := commands.NewDispatcher(cfg.Twitch.Admins, bot, manager, client, func(string) {
		cancel(service.ErrShutdown)
	}, m)
	router := service.NewRouter(bot, logs, batch, dispatcher, m)
	svc := service.New(client, router, manager, cfg.Twitch.Reconnect, m)

	printBanner(manager.Len())

	runErr := svc.Run(ctx)

	if batcher != nil {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*cfg.Batch.FlushTimeout.Duration)
		if err := batcher.Close(closeCtx); err != nil {
			log.Printf("батчер: финальный флаш: %v", err)
		}
		closeCancel()
		flushes.Stop()
	}
	if n := client.Dropped(); n > 0 {
		log.Printf("twitch: за время работы отброшено %d строк", n)
	}

	switch {
	case errors.Is(runErr, service.ErrShutdown), errors.Is(runErr, context.Canceled):
		log.Println("shutting down...")
		return 0
	default:
		log.Printf("service run failed: %v", runErr)
		return 1
	}
}

// openDatabase подключается к Postgres и создаёт таблицы. Любая ошибка отключает запись в БД.
func openDatabase(ctx context.Context, cfg config.Config) *pgxpool.Pool {
	if !cfg.Postgres.Enabled() {
		log.Println("Logging to database is not enabled: postgres is not configured")
		return nil
	}
	pool, err := pgxpool.New(ctx, cfg.Postgres.ConnString())
	if err != nil {
		log.Printf("Logging to database is not enabled: %v", err)
		return nil
	}
	if err := storage.CreateTables(ctx, pool, cfg.Batch.FlushTimeout.Duration); err != nil {
		pool.Close()
		log.Printf("Logging to database is not enabled: %v", err)
		return nil
	}
	return pool
}

// flushTally читает итоги флашей батчера, чтобы канал Results не переполнялся,
// и подводит счёт при остановке.
type flushTally struct {
	results  <-chan storage.FlushResult
	stop     chan struct{}
	done     chan struct{}
	ok, fail int
	rows     int
}

func tallyFlushes(results <-chan storage.FlushResult) *flushTally {
	f := &flushTally{results: results, stop: make(chan struct{}), done: make(chan struct{})}
	go f.run()
	return f
}

func (f *flushTally) run() {
	defer close(f.done)
	for {
		select {
		case r := <-f.results:
			f.count(r)
		case <-f.stop:
			for {
				select {
				case r := <-f.results:
					f.count(r)
				default:
					return
				}
			}
		}
	}
}

func (f *flushTally) count(r storage.FlushResult) {
	if r.Err != nil {
		f.fail++
		return
	}
	f.ok++
	f.rows += r.Rows
}

// Stop дочитывает оставшиеся итоги и логирует сводку.
func (f *flushTally) Stop() {
	close(f.stop)
	<-f.done
	log.Printf("батчер: успешных флашей %d (%d строк), с ошибкой %d", f.ok, f.rows, f.fail)
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics: %v", err)
		}
	}()
	return srv
}

func printBanner(n int) {
	switch n {
	case 0:
		log.Println("Bot is now logging 0 channels...")
	case 1:
		log.Println("Bot is now logging 1 channel...")
	default:
		log.Printf("Bot is now logging %d channels...", n)
	}
}
