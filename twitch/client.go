package twitch

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	twitchirc "github.com/gempir/go-twitch-irc/v4"

	"twitch-chat-archiver/config"
	"twitch-chat-archiver/metrics"
)

// Client оборачивает go-twitch-irc: отдаёт сырые строки WHISPER/PRIVMSG/USERNOTICE
// в канал Lines и отправляет JOIN, PART и шёпот.
type Client struct {
	client    *twitchirc.Client
	nick      string
	lines     chan string
	connected chan struct{}
	stopped   chan struct{}
	once      sync.Once
	stopOnce  sync.Once
	dropped   atomic.Uint64
	metrics   *metrics.Metrics
}

// NewClient инициализирует IRC-клиент и регистрирует колбэки.
func NewClient(cfg config.TwitchConfig, chanBuffer int, m *metrics.Metrics) *Client {
	client := twitchirc.NewClient(cfg.Username, cfg.OAuthToken)
	if cfg.Server != "" {
		client.IrcAddress = cfg.Server
	}

	c := &Client{
		client:    client,
		nick:      strings.ToLower(cfg.Username),
		lines:     make(chan string, chanBuffer),
		connected: make(chan struct{}),
		stopped:   make(chan struct{}),
		metrics:   m,
	}

	client.OnWhisperMessage(func(m twitchirc.WhisperMessage) {
		c.enqueueCommand(m.Raw)
	})

	client.OnPrivateMessage(func(m twitchirc.PrivateMessage) {
		c.enqueue(m.Raw)
	})

	client.OnUserNoticeMessage(func(m twitchirc.UserNoticeMessage) {
		c.enqueue(m.Raw)
	})

	client.OnConnect(func() {
		log.Printf("twitch: подключено к %s как %s", client.IrcAddress, cfg.Username)
		c.once.Do(func() { close(c.connected) })
	})

	client.OnReconnectMessage(func(message twitchirc.ReconnectMessage) {
		log.Printf("twitch: сервер запросил RECONNECT: %+v", message)
	})

	return c
}

// Lines отдаёт сырые строки в порядке получения.
func (c *Client) Lines() <-chan string {
	return c.lines
}

// Connected закрывается после первого успешного подключения.
func (c *Client) Connected() <-chan struct{} {
	return c.connected
}

// Dropped возвращает число строк, отброшенных из-за переполнения очереди.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// Join заходит в канал; go-twitch-irc сам добавляет '#' и перезаходит после реконнекта.
func (c *Client) Join(channel string) {
	c.client.Join(strings.TrimPrefix(channel, "#"))
}

// Depart выходит из канала.
func (c *Client) Depart(channel string) {
	c.client.Depart(strings.TrimPrefix(channel, "#"))
}

// Whisper отправляет личное сообщение командой /w в собственный канал бота.
func (c *Client) Whisper(username, text string) {
	c.client.Say(c.nick, "/w "+username+" "+text)
}

// Run подключает клиента и блокируется до отмены контекста или ошибки.
func (c *Client) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- c.client.Connect()
	}()

	select {
	case <-ctx.Done():
		c.stopOnce.Do(func() { close(c.stopped) })
		c.client.Disconnect()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// enqueueCommand ждёт места в очереди: шёпот несёт админ-команду и не должен теряться.
func (c *Client) enqueueCommand(raw string) {
	select {
	case c.lines <- raw:
	case <-c.stopped:
	}
}

func (c *Client) enqueue(raw string) {
	select {
	case c.lines <- raw:
	default:
		c.metrics.RawDrop()
		dropped := c.dropped.Add(1)
		if dropped%100 == 1 {
			log.Printf("twitch: очередь строк заполнена, всего отброшено %d", dropped)
		}
	}
}
