// Package state хранит разделяемое изменяемое состояние бота.
package state

import (
	"sync"
	"time"
)

// BufferStep задаёт изменение порога буфера на каждый добавленный или удалённый канал.
const BufferStep = 10

// InitialBuffer вычисляет стартовый порог буфера по числу каналов.
func InitialBuffer(channels int) int {
	if channels <= 10 {
		return 100
	}
	return channels * BufferStep
}

// Bot — состояние бота. Каждый метод берёт мьютекс только на время чтения или записи.
type Bot struct {
	mu              sync.Mutex
	paused          bool
	buffer          int
	databaseEnabled bool
	startTime       time.Time
}

// Snapshot хранит согласованную копию состояния.
type Snapshot struct {
	Paused          bool
	Buffer          int
	DatabaseEnabled bool
	StartTime       time.Time
}

// New создаёт состояние для заданного числа каналов.
func New(channels int, databaseEnabled bool, start time.Time) *Bot {
	return &Bot{
		buffer:          InitialBuffer(channels),
		databaseEnabled: databaseEnabled,
		startTime:       start,
	}
}

// Paused сообщает, приостановлено ли логирование каналов.
func (b *Bot) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// SetPaused включает или снимает паузу.
func (b *Bot) SetPaused(paused bool) {
	b.mu.Lock()
	b.paused = paused
	b.mu.Unlock()
}

// Buffer возвращает текущий порог буфера.
func (b *Bot) Buffer() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer
}

// SetBuffer задаёт порог буфера; неположительные значения отклоняются.
func (b *Bot) SetBuffer(n int) bool {
	if n <= 0 {
		return false
	}
	b.mu.Lock()
	b.buffer = n
	b.mu.Unlock()
	return true
}

// AddBuffer сдвигает порог на delta, не опуская его ниже единицы, и возвращает новое значение.
func (b *Bot) AddBuffer(delta int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = max(b.buffer+delta, 1)
	return b.buffer
}

// DatabaseEnabled сообщает, включена ли запись в БД.
func (b *Bot) DatabaseEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.databaseEnabled
}

// Snapshot возвращает копию всех полей, снятую под одной блокировкой.
func (b *Bot) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Paused:          b.paused,
		Buffer:          b.buffer,
		DatabaseEnabled: b.databaseEnabled,
		StartTime:       b.startTime,
	}
}
