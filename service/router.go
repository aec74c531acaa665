package service

import (
	"context"
	"log"
	"time"

	"twitch-chat-archiver/metrics"
	"twitch-chat-archiver/model"
	"twitch-chat-archiver/state"
	"twitch-chat-archiver/textlog"
)

// TextLog пишет дневные текстовые логи каналов и админ-активности.
type TextLog interface {
	Append(channel string, day time.Time, bufSize int, lines ...string) error
	AppendAdmin(day time.Time, line string) error
}

// Batch копит строки для базы данных.
type Batch interface {
	Add(ev model.Event)
	LogAdmin(w model.Whisper)
}

// Commands выполняет админ-команды из шёпота.
type Commands interface {
	Dispatch(ctx context.Context, w model.Whisper) error
}

// Router раскладывает разобранные события по приёмникам.
type Router struct {
	state    *state.Bot
	text     TextLog
	batch    Batch
	commands Commands
	metrics  *metrics.Metrics
}

// NewRouter собирает Router. batch может быть nil, если база данных отключена.
func NewRouter(bot *state.Bot, text TextLog, batch Batch, commands Commands, m *metrics.Metrics) *Router {
	return &Router{state: bot, text: text, batch: batch, commands: commands, metrics: m}
}

// Route обрабатывает одно событие. Ошибки приёмников логируются, обработка продолжается.
func (r *Router) Route(ctx context.Context, ev model.Event) {
	switch ev := ev.(type) {
	case model.Whisper:
		r.routeWhisper(ctx, ev)
		return
	case model.Unrecognized:
		r.metrics.Drop("unrecognized")
		return
	}

	if r.state.Paused() {
		r.metrics.Drop("paused")
		return
	}

	var (
		target string
		ts     time.Time
	)
	switch ev := ev.(type) {
	case model.ChannelMessage:
		target, ts = ev.Target, ev.Timestamp
	case model.SystemNotice:
		target, ts = ev.Target, ev.Timestamp
	default:
		r.metrics.Drop("unrecognized")
		return
	}

	if err := r.text.Append(target, ts, r.state.Buffer(), textlog.Format(ev)...); err != nil {
		r.metrics.TextlogError()
		log.Printf("роутер: запись лога %s: %v", target, err)
	}
	if r.databaseEnabled() {
		r.batch.Add(ev)
	}
}

func (r *Router) routeWhisper(ctx context.Context, w model.Whisper) {
	if err := r.text.AppendAdmin(w.Timestamp, textlog.FormatAdmin(w)); err != nil {
		r.metrics.TextlogError()
		log.Printf("роутер: запись админ-лога: %v", err)
	}
	if r.databaseEnabled() {
		r.batch.LogAdmin(w)
	}
	if err := r.commands.Dispatch(ctx, w); err != nil {
		log.Printf("роутер: команда от %s: %v", w.Username, err)
	}
}

func (r *Router) databaseEnabled() bool {
	return r.batch != nil && r.state.DatabaseEnabled()
}
