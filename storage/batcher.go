package storage

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"twitch-chat-archiver/metrics"
	"twitch-chat-archiver/model"
)

// BatchConfig задаёт параметры батчинга для вставки событий.
type BatchConfig struct {
	MaxInFlight   int
	MaxRetained   int
	ResultBuffer  int
	StatsLogEvery time.Duration
	FlushTimeout  time.Duration
}

// Threshold отдаёт текущий порог флаша; его реализует state.Bot.
type Threshold interface {
	Buffer() int
}

// FlushResult описывает итог одного флаша.
type FlushResult struct {
	Rows int
	Err  error
}

// Batcher копит события каналов и, когда их число достигает порога, отправляет
// их одной транзакцией pgx.Batch в фоне. Неудачный батч возвращается в начало
// накопителя и уходит повторно при следующем достижении порога.
type Batcher struct {
	sender    batchSender
	threshold Threshold
	config    BatchConfig
	metrics   *metrics.Metrics
	group     errgroup.Group
	results   chan FlushResult
	dropped   atomic.Uint64
	inserted  atomic.Uint64

	mu      sync.Mutex
	pending []model.Event
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// NewBatcher создаёт батчер поверх пула и запускает периодический лог статистики.
func NewBatcher(ctx context.Context, pool *pgxpool.Pool, threshold Threshold, cfg BatchConfig, m *metrics.Metrics) *Batcher {
	return newBatcher(ctx, pool, threshold, cfg, m)
}

// Add добавляет событие в накопитель. Вызов не ждёт записи в БД.
func (b *Batcher) Add(ev model.Event) {
	limit := b.threshold.Buffer()

	b.mu.Lock()
	b.pending = append(b.pending, ev)
	var batch []model.Event
	if len(b.pending) >= limit {
		batch = b.pending
		b.pending = nil
	}
	b.metrics.SetPending(len(b.pending))
	b.mu.Unlock()

	if batch == nil {
		return
	}
	if !b.group.TryGo(func() error {
		b.flush(batch)
		return nil
	}) {
		// Все слоты заняты: события остаются в накопителе до следующего порога.
		log.Printf("батчер: все %d флашей в работе, %d событий ждут следующего порога", b.config.MaxInFlight, len(batch))
		b.restore(batch)
	}
}

// LogAdmin записывает админ-команду одной строкой adminlog в фоне.
func (b *Batcher) LogAdmin(w model.Whisper) {
	if !b.group.TryGo(func() error {
		batch := &pgx.Batch{}
		queueAdmin(batch, w)
		err := b.send(batch)
		if err != nil {
			log.Printf("батчер: ошибка записи adminlog от %s: %v", w.Username, err)
		}
		b.publish(FlushResult{Rows: 1, Err: err})
		return nil
	}) {
		log.Printf("батчер: все флаши заняты, строка adminlog от %s отброшена", w.Username)
	}
}

// Pending возвращает число событий в накопителе.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Dropped возвращает число событий, вытесненных из накопителя сверх MaxRetained.
func (b *Batcher) Dropped() uint64 {
	return b.dropped.Load()
}

// Results отдаёт итоги флашей. Если канал не читают, лишние итоги отбрасываются.
func (b *Batcher) Results() <-chan FlushResult {
	return b.results
}

// Close отправляет остаток накопителя и ждёт завершения всех флашей или отмены ctx.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) > 0 {
		b.group.Go(func() error {
			b.flush(batch)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		b.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		if n := b.Pending(); n > 0 {
			log.Printf("батчер: %d событий не записаны из-за ошибки последнего флаша", n)
		}
		log.Printf("батчер: остановлен, всего вставлено строк = %d", b.inserted.Load())
		return nil
	case <-ctx.Done():
		log.Printf("батчер: остановка прервана, флаши ещё выполняются")
		return ctx.Err()
	}
}

func (b *Batcher) flush(events []model.Event) {
	batch := &pgx.Batch{}
	for _, ev := range events {
		queueEvent(batch, ev)
	}

	err := b.send(batch)
	b.metrics.Flush(len(events), err)
	if err != nil {
		log.Printf("ошибка флаша батчера (%d событий вернутся в накопитель): %v", len(events), err)
		b.restore(events)
	} else {
		b.inserted.Add(uint64(len(events)))
	}
	b.publish(FlushResult{Rows: len(events), Err: err})
}

func (b *Batcher) send(batch *pgx.Batch) error {
	dbCtx, cancel := context.WithTimeout(context.Background(), b.config.FlushTimeout)
	defer cancel()

	// Запросы одного pgx.Batch выполняются в неявной транзакции.
	return b.sender.SendBatch(dbCtx, batch).Close()
}

// restore возвращает события в начало накопителя, сохраняя порядок.
func (b *Batcher) restore(events []model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending := make([]model.Event, 0, len(events)+len(b.pending))
	pending = append(pending, events...)
	pending = append(pending, b.pending...)
	if over := len(pending) - b.config.MaxRetained; b.config.MaxRetained > 0 && over > 0 {
		pending = pending[over:]
		dropped := b.dropped.Add(uint64(over))
		b.metrics.DropN("retain_cap", over)
		log.Printf("батчер: накопитель переполнен, отброшено %d старых событий (всего %d)", over, dropped)
	}
	b.pending = pending
	b.metrics.SetPending(len(b.pending))
}

func (b *Batcher) publish(r FlushResult) {
	select {
	case b.results <- r:
	default:
	}
}

func (b *Batcher) logStats(ctx context.Context) {
	ticker := time.NewTicker(b.config.StatsLogEvery)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			total := b.inserted.Load()
			log.Printf(
				"батчер: вставлено %d строк за %s (всего %d, в накопителе %d)",
				total-last, b.config.StatsLogEvery, total, b.Pending(),
			)
			last = total
		}
	}
}

func newBatcher(ctx context.Context, sender batchSender, threshold Threshold, cfg BatchConfig, m *metrics.Metrics) *Batcher {
	b := &Batcher{
		sender:    sender,
		threshold: threshold,
		config:    cfg,
		metrics:   m,
		results:   make(chan FlushResult, max(cfg.ResultBuffer, 1)),
	}
	b.group.SetLimit(max(cfg.MaxInFlight, 1))

	if cfg.StatsLogEvery > 0 {
		go b.logStats(ctx)
	}

	return b
}

func queueEvent(batch *pgx.Batch, ev model.Event) {
	const q = `
insert into chanlog (
  id, command, target, user_id, user_type, username, sub_count, system_msg, user_msg, timestamp
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	switch ev := ev.(type) {
	case model.ChannelMessage:
		batch.Queue(q, uuid.New(), ev.Command(), ev.Target, ev.UserID, ev.UserType.String(), ev.Username, ev.SubCount, "", ev.Text, ev.Timestamp.UTC())
	case model.SystemNotice:
		batch.Queue(q, uuid.New(), ev.Command(), ev.Target, ev.UserID, ev.UserType.String(), ev.Username, ev.SubCount, ev.SystemMsg, ev.Text, ev.Timestamp.UTC())
	}
}
