package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const CONFIG_FILE = "config.toml"

// FileStore хранит конфигурацию в TOML файле и перезаписывает его атомарно.
type FileStore struct {
	Path string
}

func (store FileStore) configPath() string {
	if strings.TrimSpace(store.Path) == "" {
		return CONFIG_FILE
	}
	return store.Path
}

// Load читает конфигурацию из файла без переменных окружения и значений по умолчанию.
// Отсутствующий файл даёт пустую конфигурацию.
func (store FileStore) Load() (Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(store.configPath(), &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: decode toml: %w", err)
	}
	return cfg, nil
}

// Update записывает конфигурацию во временный файл рядом с исходным и переименовывает его поверх.
func (store FileStore) Update(cfg Config) error {
	path := store.configPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save config: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("save config: encode toml: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save config: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("save config: chmod file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save config: replace: %w", err)
	}

	return nil
}

// Duration записывается в TOML строкой вида "320ms".
type Duration struct {
	time.Duration
}

// MarshalText реализует encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText разбирает строку через time.ParseDuration.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}
