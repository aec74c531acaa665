// Package metrics регистрирует счётчики Prometheus конвейера логирования.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics хранит коллекторы конвейера. Нулевой указатель допустим: методы ничего не делают.
type Metrics struct {
	Events        *prometheus.CounterVec
	Dropped       *prometheus.CounterVec
	TextlogErrors prometheus.Counter
	Flushes       *prometheus.CounterVec
	FlushedRows   prometheus.Counter
	Pending       prometheus.Gauge
	RawDropped    prometheus.Counter
	AdminCommands *prometheus.CounterVec
}

// New создаёт и регистрирует коллекторы в reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Events:        f.NewCounterVec(prometheus.CounterOpts{Name: "chatlog_events_total", Help: "Decoded events by kind"}, []string{"kind"}),
		Dropped:       f.NewCounterVec(prometheus.CounterOpts{Name: "chatlog_events_dropped_total", Help: "Events not logged, by reason"}, []string{"reason"}),
		TextlogErrors: f.NewCounter(prometheus.CounterOpts{Name: "chatlog_textlog_errors_total", Help: "Failed text log writes"}),
		Flushes:       f.NewCounterVec(prometheus.CounterOpts{Name: "chatlog_flushes_total", Help: "Batch flushes by result"}, []string{"result"}),
		FlushedRows:   f.NewCounter(prometheus.CounterOpts{Name: "chatlog_flushed_rows_total", Help: "Rows written by successful flushes"}),
		Pending:       f.NewGauge(prometheus.GaugeOpts{Name: "chatlog_batch_pending", Help: "Events waiting in the batch accumulator"}),
		RawDropped:    f.NewCounter(prometheus.CounterOpts{Name: "chatlog_raw_lines_dropped_total", Help: "Raw lines dropped because the consumer queue was full"}),
		AdminCommands: f.NewCounterVec(prometheus.CounterOpts{Name: "chatlog_admin_commands_total", Help: "Authorized admin commands by name"}, []string{"command"}),
	}
}

// Event учитывает разобранное событие вида kind.
func (m *Metrics) Event(kind string) {
	if m != nil {
		m.Events.WithLabelValues(kind).Inc()
	}
}

// Drop учитывает отброшенное событие.
func (m *Metrics) Drop(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

// DropN учитывает сразу n отброшенных событий.
func (m *Metrics) DropN(reason string, n int) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Add(float64(n))
	}
}

// TextlogError учитывает неудачную запись текстового лога.
func (m *Metrics) TextlogError() {
	if m != nil {
		m.TextlogErrors.Inc()
	}
}

// Flush учитывает результат флаша и число записанных строк.
func (m *Metrics) Flush(rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Flushes.WithLabelValues("error").Inc()
		return
	}
	m.Flushes.WithLabelValues("ok").Inc()
	m.FlushedRows.Add(float64(rows))
}

// SetPending выставляет размер накопителя батчера.
func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}

// RawDrop учитывает сырую строку, не попавшую в очередь.
func (m *Metrics) RawDrop() {
	if m != nil {
		m.RawDropped.Inc()
	}
}

// AdminCommand учитывает выполненную админ-команду.
func (m *Metrics) AdminCommand(name string) {
	if m != nil {
		m.AdminCommands.WithLabelValues(name).Inc()
	}
}
