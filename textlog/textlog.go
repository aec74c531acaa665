// Package textlog дописывает события чата в текстовые файлы по каналам и дням.
package textlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// TimeLayout задаёт формат времени в начале каждой строки лога.
	TimeLayout = "2006-01-02 15:04:05"
	// DayLayout задаёт формат имени дневного файла.
	DayLayout = "2006-01-02"

	adminDir = "admin"
)

// Writer пишет строки в {Dir}/{канал}/{YYYY-MM-DD}.txt, создавая каталоги при первом обращении.
type Writer struct {
	Dir string
}

// New создаёт Writer с корнем dir.
func New(dir string) *Writer {
	return &Writer{Dir: dir}
}

// EnsureDirs создаёт каталог админ-лога и каталоги перечисленных каналов.
func (w *Writer) EnsureDirs(channels ...string) error {
	if err := os.MkdirAll(filepath.Join(w.Dir, adminDir), 0o755); err != nil {
		return fmt.Errorf("textlog: create admin dir: %w", err)
	}
	for _, ch := range channels {
		if err := os.MkdirAll(w.channelDir(ch), 0o755); err != nil {
			return fmt.Errorf("textlog: create dir for %s: %w", ch, err)
		}
	}
	return nil
}

// Append дописывает строки в файл канала за день day; bufSize задаёт размер буфера записи.
func (w *Writer) Append(channel string, day time.Time, bufSize int, lines ...string) error {
	return appendLines(w.dayFile(w.channelDir(channel), day), bufSize, lines)
}

// AppendAdmin дописывает строку в дневной файл админ-активности.
func (w *Writer) AppendAdmin(day time.Time, line string) error {
	return appendLines(w.dayFile(filepath.Join(w.Dir, adminDir), day), 0, []string{line})
}

// Path возвращает путь к файлу канала за день; используется в тестах и диагностике.
func (w *Writer) Path(channel string, day time.Time) string {
	return w.dayFile(w.channelDir(channel), day)
}

// AdminPath возвращает путь к файлу админ-активности за день.
func (w *Writer) AdminPath(day time.Time) string {
	return w.dayFile(filepath.Join(w.Dir, adminDir), day)
}

func (w *Writer) channelDir(channel string) string {
	return filepath.Join(w.Dir, strings.ReplaceAll(channel, "#", ""))
}

func (w *Writer) dayFile(dir string, day time.Time) string {
	return filepath.Join(dir, day.UTC().Format(DayLayout)+".txt")
}

func appendLines(path string, bufSize int, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("textlog: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("textlog: open %s: %w", path, err)
	}

	// bufio сам подставляет размер по умолчанию для маленьких значений.
	buf := bufio.NewWriterSize(f, bufSize)
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("textlog: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("textlog: close %s: %w", path, err)
	}
	return nil
}
