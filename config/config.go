package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrNoAdmins возвращается, если в конфигурации не задан ни один администратор.
var ErrNoAdmins = errors.New("требуется хотя бы один администратор")

// Config агрегирует значения конфигурации из файла и переменных окружения.
type Config struct {
	Twitch   TwitchConfig   `toml:"twitch"`
	Postgres PostgresConfig `toml:"postgres"`
	Batch    BatchConfig    `toml:"batch"`
	Logs     LogsConfig     `toml:"logs"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// TwitchConfig содержит учётные данные, администраторов и каналы IRC клиента.
type TwitchConfig struct {
	Username     string   `toml:"nickname"`
	OAuthToken   string   `toml:"oauth"`
	Server       string   `toml:"server"`
	Admins       []string `toml:"admins"`
	Channels     []string `toml:"channels"`
	JoinInterval Duration `toml:"join_interval"`
	Reconnect    Retry    `toml:"reconnect"`
}

// Retry задаёт число попыток переподключения и паузу между ними.
type Retry struct {
	Attempts int      `toml:"attempts"`
	Delay    Duration `toml:"delay"`
}

// PostgresConfig хранит параметры подключения к пулу базы данных.
// Пустые DSN и Host отключают запись в БД.
type PostgresConfig struct {
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	DB       string `toml:"db"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// ConnString собирает строку подключения для pgx/pgxpool.
func (p PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	if p.Host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

// Enabled сообщает, настроена ли запись в БД.
func (p PostgresConfig) Enabled() bool {
	return p.ConnString() != ""
}

// BatchConfig задаёт параметры батчинга и флашей при записи чатов.
type BatchConfig struct {
	ChanBuffer    int      `toml:"chan_buffer"`
	MaxInFlight   int      `toml:"max_in_flight"`
	MaxRetained   int      `toml:"max_retained"`
	ResultBuffer  int      `toml:"result_buffer"`
	StatsLogEvery Duration `toml:"stats_log_every"`
	FlushTimeout  Duration `toml:"flush_timeout"`
}

// LogsConfig задаёт каталог текстовых логов.
type LogsConfig struct {
	Dir string `toml:"dir"`
}

// MetricsConfig задаёт адрес HTTP-листенера Prometheus; пустой адрес отключает его.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

// Load читает файл конфигурации, применяет переменные окружения и возвращает валидированную Config.
func Load(path string) (Config, error) {
	cfg, err := FileStore{Path: path}.Load()
	if err != nil {
		return Config{}, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Twitch.Username, "TWITCH_USERNAME")
	setFromEnv(&c.Twitch.OAuthToken, "TWITCH_OAUTH_TOKEN")
	setFromEnv(&c.Twitch.Server, "TWITCH_SERVER")
	if admins := splitAndTrim(os.Getenv("TWITCH_ADMINS")); len(admins) > 0 {
		c.Twitch.Admins = admins
	}
	// Каналы из окружения только засевают пустой список: дальше им владеет файл.
	if len(c.Twitch.Channels) == 0 {
		c.Twitch.Channels = splitAndTrim(os.Getenv("TWITCH_CHANNELS"))
	}

	setFromEnv(&c.Postgres.DSN, "POSTGRES_DSN")
	setFromEnv(&c.Postgres.Host, "POSTGRES_HOST")
	setFromEnv(&c.Postgres.Port, "POSTGRES_PORT")
	setFromEnv(&c.Postgres.DB, "POSTGRES_DB")
	setFromEnv(&c.Postgres.User, "POSTGRES_USER")
	setFromEnv(&c.Postgres.Password, "POSTGRES_PASSWORD")

	setFromEnv(&c.Logs.Dir, "LOG_DIR")
	setFromEnv(&c.Metrics.Listen, "METRICS_LISTEN")
}

func (c *Config) applyDefaults() {
	if c.Twitch.Server == "" {
		c.Twitch.Server = "irc.chat.twitch.tv:6697"
	}
	if c.Twitch.JoinInterval.Duration == 0 {
		// 50 JOIN за 15 секунд.
		c.Twitch.JoinInterval.Duration = 320 * time.Millisecond
	}
	if c.Twitch.Reconnect.Attempts == 0 {
		c.Twitch.Reconnect.Attempts = 3
	}
	if c.Twitch.Reconnect.Delay.Duration == 0 {
		c.Twitch.Reconnect.Delay.Duration = 30 * time.Second
	}
	if c.Postgres.Port == "" && c.Postgres.Host != "" {
		c.Postgres.Port = "5432"
	}
	if c.Batch.ChanBuffer == 0 {
		c.Batch.ChanBuffer = 4096
	}
	if c.Batch.MaxInFlight == 0 {
		c.Batch.MaxInFlight = 4
	}
	if c.Batch.MaxRetained == 0 {
		c.Batch.MaxRetained = 10000
	}
	if c.Batch.ResultBuffer == 0 {
		c.Batch.ResultBuffer = 16
	}
	if c.Batch.StatsLogEvery.Duration == 0 {
		c.Batch.StatsLogEvery.Duration = 5 * time.Minute
	}
	if c.Batch.FlushTimeout.Duration == 0 {
		c.Batch.FlushTimeout.Duration = 5 * time.Second
	}
	if c.Logs.Dir == "" {
		c.Logs.Dir = "logs"
	}
}

func (c Config) validate() error {
	if c.Twitch.Username == "" {
		return fmt.Errorf("требуется TWITCH_USERNAME")
	}
	if c.Twitch.OAuthToken == "" {
		return fmt.Errorf("требуется TWITCH_OAUTH_TOKEN")
	}
	if len(c.Twitch.Admins) == 0 {
		return ErrNoAdmins
	}
	if c.Twitch.Reconnect.Attempts < 0 {
		return fmt.Errorf("Twitch.Reconnect.Attempts не может быть отрицательным")
	}
	if c.Postgres.DSN == "" && c.Postgres.Host != "" {
		if c.Postgres.DB == "" {
			return fmt.Errorf("требуется POSTGRES_DB")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("требуется POSTGRES_USER")
		}
	}

	if c.Batch.ChanBuffer <= 0 {
		return fmt.Errorf("Batch.ChanBuffer должен быть больше нуля")
	}
	if c.Batch.MaxInFlight <= 0 {
		return fmt.Errorf("Batch.MaxInFlight должен быть больше нуля")
	}
	if c.Batch.MaxRetained <= 0 {
		return fmt.Errorf("Batch.MaxRetained должен быть больше нуля")
	}
	if c.Batch.ResultBuffer <= 0 {
		return fmt.Errorf("Batch.ResultBuffer должен быть больше нуля")
	}
	if c.Batch.FlushTimeout.Duration <= 0 {
		return fmt.Errorf("Batch.FlushTimeout должен быть больше нуля")
	}

	return nil
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
