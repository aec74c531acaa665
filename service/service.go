// Package service связывает Twitch транспорт, разбор строк и маршрутизацию событий.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"twitch-chat-archiver/config"
	"twitch-chat-archiver/metrics"
	"twitch-chat-archiver/model"
	"twitch-chat-archiver/parser"
)

var (
	// ErrShutdown — причина отмены контекста по админ-команде shutdown.
	ErrShutdown = errors.New("service: shutdown requested")
	// ErrReconnectExhausted возвращается, когда исчерпаны попытки переподключения.
	ErrReconnectExhausted = errors.New("service: reconnect attempts exhausted")
)

// Transport — подключение к чату и поток сырых строк.
type Transport interface {
	Run(ctx context.Context) error
	Lines() <-chan string
	Connected() <-chan struct{}
}

// Joiner заходит во все отслеживаемые каналы после подключения.
type Joiner interface {
	JoinAll(ctx context.Context) error
}

// Service управляет жизненным циклом Twitch клиента и потребителем строк.
type Service struct {
	transport Transport
	router    *Router
	channels  Joiner
	retry     config.Retry
	metrics   *metrics.Metrics

	// Decode разбирает сырую строку; по умолчанию parser.Decode.
	Decode func(raw string) model.Event
}

// New создаёт Service.
func New(transport Transport, router *Router, channels Joiner, retry config.Retry, m *metrics.Metrics) *Service {
	return &Service{
		transport: transport,
		router:    router,
		channels:  channels,
		retry:     retry,
		metrics:   m,
		Decode:    parser.Decode,
	}
}

// Run подключается к чату и обрабатывает строки до отмены ctx или исчерпания попыток
// переподключения. При отмене возвращает context.Cause(ctx).
func (s *Service) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		s.consume(runCtx)
		return nil
	})
	g.Go(func() error {
		return s.joinOnConnect(runCtx)
	})

	err := s.connect(ctx)
	cancel()
	if werr := g.Wait(); werr != nil {
		log.Printf("сервис: вход в каналы: %v", werr)
	}
	return err
}

func (s *Service) connect(ctx context.Context) error {
	failures := 0
	for {
		err := s.transport.Run(ctx)
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		failures++
		log.Printf("сервис: соединение потеряно (%d/%d): %v", failures, s.retry.Attempts, err)
		if failures >= s.retry.Attempts {
			return fmt.Errorf("%w: %v", ErrReconnectExhausted, err)
		}

		timer := time.NewTimer(s.retry.Delay.Duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return context.Cause(ctx)
		case <-timer.C:
		}
	}
}

func (s *Service) joinOnConnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-s.transport.Connected():
	}
	if err := s.channels.JoinAll(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *Service) consume(ctx context.Context) {
	lines := s.transport.Lines()
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-lines:
			ev := s.Decode(raw)
			s.metrics.Event(kind(ev))
			s.router.Route(ctx, ev)
		}
	}
}

func kind(ev model.Event) string {
	if c := ev.Command(); c != "" {
		return c
	}
	return "unrecognized"
}
