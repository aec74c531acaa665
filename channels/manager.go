package channels

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"twitch-chat-archiver/config"
	"twitch-chat-archiver/state"
)

// Transport отправляет JOIN и PART; имена каналов передаются с '#'.
type Transport interface {
	Join(channel string)
	Depart(channel string)
}

// Store читает и перезаписывает файл конфигурации.
type Store interface {
	Load() (config.Config, error)
	Update(config.Config) error
}

// Buffer — порог буфера, который сдвигается при изменении списка каналов.
type Buffer interface {
	AddBuffer(delta int) int
}

// Dirs создаёт каталоги логов для новых каналов.
type Dirs interface {
	EnsureDirs(channels ...string) error
}

// Manager добавляет и удаляет каналы с ограничением темпа и сохраняет список в конфигурацию.
type Manager struct {
	mu        sync.Mutex
	set       *Set
	transport Transport
	store     Store
	buffer    Buffer
	dirs      Dirs
	limiter   *rate.Limiter
}

// NewManager создаёт менеджер; interval задаёт минимальный интервал между JOIN/PART.
func NewManager(names []string, transport Transport, store Store, buffer Buffer, dirs Dirs, interval time.Duration) *Manager {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Manager{
		set:       NewSet(names...),
		transport: transport,
		store:     store,
		buffer:    buffer,
		dirs:      dirs,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// JoinAll заходит во все отслеживаемые каналы с ограничением темпа; используется при старте.
func (m *Manager) JoinAll(ctx context.Context) error {
	names := m.List()
	for i, ch := range names {
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("каналы: зашли в %d из %d: %w", i, len(names), err)
		}
		// Пока ждали очереди, канал могли убрать командой part.
		m.mu.Lock()
		if m.set.Contains(ch) {
			m.transport.Join(ch)
		}
		m.mu.Unlock()
	}
	return nil
}

// Join заходит в новые каналы и возвращает их список. Уже отслеживаемые каналы пропускаются.
// Ошибка сохранения конфигурации возвращается, но изменения в памяти остаются.
func (m *Manager) Join(ctx context.Context, names []string) ([]string, error) {
	var joined []string
	var waitErr error
	for _, name := range names {
		ch := Normalize(name)
		if ch == "#" || m.Contains(ch) {
			continue
		}
		if waitErr = m.limiter.Wait(ctx); waitErr != nil {
			break
		}

		m.mu.Lock()
		added := m.set.Add(ch)
		if added {
			m.transport.Join(ch)
		}
		m.mu.Unlock()
		if !added {
			continue
		}
		m.buffer.AddBuffer(state.BufferStep)
		if err := m.dirs.EnsureDirs(ch); err != nil {
			log.Printf("каналы: %v", err)
		}
		joined = append(joined, ch)
	}

	if len(joined) == 0 {
		return nil, waitErr
	}
	return joined, errors.Join(waitErr, m.persist())
}

// Part выходит из отслеживаемых каналов и возвращает их список. Неизвестные каналы пропускаются.
func (m *Manager) Part(ctx context.Context, names []string) ([]string, error) {
	var left []string
	var waitErr error
	for _, name := range names {
		ch := Normalize(name)
		if !m.Contains(ch) {
			continue
		}
		if waitErr = m.limiter.Wait(ctx); waitErr != nil {
			break
		}

		m.mu.Lock()
		removed := m.set.Remove(ch)
		if removed {
			m.transport.Depart(ch)
		}
		m.mu.Unlock()
		if !removed {
			continue
		}
		m.buffer.AddBuffer(-state.BufferStep)
		left = append(left, ch)
	}

	if len(left) == 0 {
		return nil, waitErr
	}
	return left, errors.Join(waitErr, m.persist())
}

// Contains сообщает, отслеживается ли канал.
func (m *Manager) Contains(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.Contains(name)
}

// Len возвращает число отслеживаемых каналов.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.Len()
}

// List возвращает отсортированный список каналов.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set.List()
}

func (m *Manager) persist() error {
	cfg, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("каналы: чтение конфигурации: %w", err)
	}
	cfg.Twitch.Channels = m.List()
	if err := m.store.Update(cfg); err != nil {
		return fmt.Errorf("каналы: сохранение конфигурации: %w", err)
	}
	return nil
}
