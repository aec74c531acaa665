// Package commands выполняет админ-команды, присланные боту шёпотом.
package commands

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"twitch-chat-archiver/metrics"
	"twitch-chat-archiver/model"
	"twitch-chat-archiver/state"
)

// listChunk ограничивает число имён каналов в одной строке ответа list.
const listChunk = 45

// Transport отправляет шёпот администратору.
type Transport interface {
	Whisper(username, text string)
}

// Channels меняет и перечисляет отслеживаемые каналы.
type Channels interface {
	Join(ctx context.Context, names []string) ([]string, error)
	Part(ctx context.Context, names []string) ([]string, error)
	List() []string
}

type handler func(d *Dispatcher, ctx context.Context, admin string, args []string) error

var handlers = map[string]handler{
	"join":     join,
	"part":     part,
	"leave":    part,
	"list":     list,
	"channels": list,
	"uptime":   uptime,
	"status":   uptime,
	"buffer":   buffer,
	"pause":    pause,
	"stop":     pause,
	"unpause":  unpause,
	"start":    unpause,
	"shutdown": shutdown,
	"exit":     shutdown,
	"quit":     shutdown,
}

// Dispatcher разбирает шёпот и выполняет команду, если отправитель есть в списке администраторов.
type Dispatcher struct {
	admins    map[string]bool
	state     *state.Bot
	channels  Channels
	transport Transport
	shutdown  func(admin string)
	metrics   *metrics.Metrics

	// Now задаёт часы для uptime; по умолчанию time.Now.
	Now func() time.Time
}

// NewDispatcher создаёт диспетчер. onShutdown вызывается командой shutdown.
func NewDispatcher(admins []string, bot *state.Bot, channels Channels, transport Transport, onShutdown func(admin string), m *metrics.Metrics) *Dispatcher {
	set := make(map[string]bool, len(admins))
	for _, a := range admins {
		set[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return &Dispatcher{
		admins:    set,
		state:     bot,
		channels:  channels,
		transport: transport,
		shutdown:  onShutdown,
		metrics:   m,
		Now:       time.Now,
	}
}

// Dispatch выполняет команду из шёпота. Неизвестные команды и чужие отправители игнорируются.
// Возвращает ошибку сохранения конфигурации после join/part.
func (d *Dispatcher) Dispatch(ctx context.Context, w model.Whisper) error {
	if !d.admins[strings.ToLower(w.Username)] {
		return nil
	}
	args := strings.Fields(strings.ToLower(w.Text))
	if len(args) == 0 {
		return nil
	}
	h, ok := handlers[args[0]]
	if !ok {
		return nil
	}
	d.metrics.AdminCommand(args[0])
	return h(d, ctx, w.Username, args[1:])
}

func (d *Dispatcher) reply(admin, format string, args ...any) {
	d.transport.Whisper(admin, fmt.Sprintf(format, args...))
}

func join(d *Dispatcher, ctx context.Context, admin string, args []string) error {
	joined, err := d.channels.Join(ctx, args)
	if len(joined) > 0 {
		d.reply(admin, "Joined: %s", strings.Join(joined, " "))
	}
	return err
}

func part(d *Dispatcher, ctx context.Context, admin string, args []string) error {
	left, err := d.channels.Part(ctx, args)
	if len(left) > 0 {
		d.reply(admin, "Left: %s", strings.Join(left, " "))
	}
	return err
}

func list(d *Dispatcher, _ context.Context, admin string, _ []string) error {
	names := d.channels.List()
	switch len(names) {
	case 0:
		d.reply(admin, "Bot is logging 0 channels")
	case 1:
		d.reply(admin, "Bot is logging 1 channel: %s", names[0])
	default:
		d.reply(admin, "Bot is logging %d channels:", len(names))
		for len(names) > 0 {
			chunk := names[:min(listChunk, len(names))]
			names = names[len(chunk):]
			d.reply(admin, "%s", strings.Join(chunk, " "))
		}
	}
	return nil
}

func uptime(d *Dispatcher, _ context.Context, admin string, _ []string) error {
	s := d.state.Snapshot()
	d.reply(admin, "Bot uptime: %s | Bot buffer: %d", Humanize(d.Now().Sub(s.StartTime)), s.Buffer)
	return nil
}

func buffer(d *Dispatcher, _ context.Context, admin string, args []string) error {
	if len(args) == 0 {
		d.reply(admin, "An integer value is required")
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || !d.state.SetBuffer(n) {
		d.reply(admin, "An integer value is required")
		return nil
	}
	d.reply(admin, "Bot buffer set to %d", n)
	return nil
}

func pause(d *Dispatcher, _ context.Context, admin string, _ []string) error {
	d.state.SetPaused(true)
	d.reply(admin, "Bot logging is now paused")
	return nil
}

func unpause(d *Dispatcher, _ context.Context, admin string, _ []string) error {
	d.state.SetPaused(false)
	d.reply(admin, "Bot logging is now unpaused")
	return nil
}

func shutdown(d *Dispatcher, _ context.Context, admin string, _ []string) error {
	log.Printf("Bot shutdown by %s at %s", admin, d.Now().UTC().Format(time.RFC3339))
	if d.shutdown != nil {
		d.shutdown(admin)
	}
	return nil
}
