package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for values the acquisition system does not dictate.
const (
	DefaultInterval       = 30 * time.Minute
	DefaultConnectTimeout = 5 * time.Second
	DefaultSampleWindow   = 2 * time.Second
	DefaultTailLines      = 500
	DefaultSniffCommand   = "sniffwave"
	DefaultRing           = "WAVE_RING"
	DefaultLogMatch       = "import"
	DefaultTelegramAPIURL = "https://api.telegram.org"
	DefaultStoragePath    = "ewwatch.db"
)

// Connection probe modes.
const (
	ModeDial        = "dial"
	ModeEstablished = "established"
)

// DefaultMarkers are the import-ack log phrases that indicate a broken upstream link.
var DefaultMarkers = []string{
	"failed to set up tcp client connection",
	"connection refused",
	"timeout",
	"timed out",
	"lost connection",
	"broken pipe",
}

// Environment variable names.
const (
	EnvBotToken          = "BOT_TOKEN"
	EnvChatID            = "CHAT_ID"
	EnvSlackWebhookURL   = "EWWATCH_SLACK_WEBHOOK_URL"
	EnvWebhookURL        = "EWWATCH_WEBHOOK_URL"
	EnvConnectionAddress = "EWWATCH_CONNECTION_ADDRESS"
	EnvLogPath           = "EWWATCH_LOG_PATH"
	EnvLogLevel          = "EWWATCH_LOG_LEVEL"
	envEarthwormLog      = "EW_LOG"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Connection configures the TCP reachability probe.
type Connection struct {
	Address       string   `yaml:"address"`
	Timeout       Duration `yaml:"timeout"`
	Mode          string   `yaml:"mode"`
	SocketCommand []string `yaml:"socket_command"`
}

// DataFlow configures the wave ring sampling probe.
type DataFlow struct {
	Command string            `yaml:"command"`
	Ring    string            `yaml:"ring"`
	Args    []string          `yaml:"args"`
	Window  Duration          `yaml:"window"`
	Env     map[string]string `yaml:"env"`
}

// Log configures the import-ack log probe. Path is a file or a log directory.
type Log struct {
	Path      string   `yaml:"path"`
	Match     string   `yaml:"match"`
	TailLines int      `yaml:"tail_lines"`
	Markers   []string `yaml:"markers"`
}

// Probes groups the three signal collectors.
type Probes struct {
	Connection Connection `yaml:"connection"`
	DataFlow   DataFlow   `yaml:"data_flow"`
	Log        Log        `yaml:"log"`
}

// Telegram holds bot delivery settings.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID string `yaml:"chat_id"`
	APIURL string `yaml:"api_url"`
}

// Configured reports whether any Telegram credential was supplied.
func (t Telegram) Configured() bool {
	return t.Token != "" || t.ChatID != ""
}

// Slack holds incoming-webhook settings.
type Slack struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Webhook holds generic webhook settings.
type Webhook struct {
	URL      string `yaml:"url"`
	Template string `yaml:"template"`
}

// Notify holds notification policy and channel settings.
type Notify struct {
	Enabled        bool     `yaml:"enabled"`
	ReportGoodNews bool     `yaml:"report_good_news"`
	DryRun         bool     `yaml:"dry_run"`
	Telegram       Telegram `yaml:"telegram"`
	Slack          Slack    `yaml:"slack"`
	Webhook        Webhook  `yaml:"webhook"`
}

// ServerConfig holds HTTP status server settings. An empty address disables it.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig holds report history settings. An explicitly empty path disables history.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Config is the root application configuration. It is built once at startup.
type Config struct {
	Interval Duration      `yaml:"interval"`
	LogLevel string        `yaml:"log_level"`
	Probes   Probes        `yaml:"probes"`
	Notify   Notify        `yaml:"notify"`
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
}

// Error is a startup configuration error.
type Error struct {
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", msg, e.Err)
	}
	return "config: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns a Config populated with defaults only.
func Default() Config {
	return Config{
		Interval: Duration{DefaultInterval},
		LogLevel: "info",
		Probes: Probes{
			Connection: Connection{
				Timeout:       Duration{DefaultConnectTimeout},
				Mode:          ModeDial,
				SocketCommand: []string{"ss", "-tn"},
			},
			DataFlow: DataFlow{
				Command: DefaultSniffCommand,
				Ring:    DefaultRing,
				Window:  Duration{DefaultSampleWindow},
			},
			Log: Log{
				Match:     DefaultLogMatch,
				TailLines: DefaultTailLines,
				Markers:   append([]string(nil), DefaultMarkers...),
			},
		},
		Notify: Notify{
			Telegram: Telegram{APIURL: DefaultTelegramAPIURL},
		},
		Storage: StorageConfig{Path: DefaultStoragePath},
	}
}

// Load builds the configuration like Read and validates the result.
func Load(path string, required bool, overrides ...func(*Config)) (*Config, error) {
	cfg, err := Read(path, required, overrides...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration from defaults, the YAML file at path, a local
// .env file and the environment, in increasing precedence. Overrides run last
// (command-line flags). The result is not validated, so commands that only
// read history can run without probe settings.
// A missing file is an error only when required is set.
func Read(path string, required bool, overrides ...func(*Config)) (*Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return nil, &Error{Msg: "loading .env", Err: err}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, &Error{Msg: "parsing " + path, Err: err}
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return nil, &Error{Msg: "reading " + path, Err: err}
		}
	}

	applyEnv(&cfg)
	for _, fn := range overrides {
		fn(&cfg)
	}
	cfg.normalize()
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := lookupTrimmed(EnvBotToken); ok {
		cfg.Notify.Telegram.Token = v
	}
	if v, ok := lookupTrimmed(EnvChatID); ok {
		cfg.Notify.Telegram.ChatID = v
	}
	if v, ok := lookupTrimmed(EnvSlackWebhookURL); ok {
		cfg.Notify.Slack.WebhookURL = v
	}
	if v, ok := lookupTrimmed(EnvWebhookURL); ok {
		cfg.Notify.Webhook.URL = v
	}
	if v, ok := lookupTrimmed(EnvConnectionAddress); ok {
		cfg.Probes.Connection.Address = v
	}
	if v, ok := lookupTrimmed(EnvLogPath); ok {
		cfg.Probes.Log.Path = v
	}
	if v, ok := lookupTrimmed(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
}

// normalize fills values derived from other settings.
func (c *Config) normalize() {
	if c.Probes.Connection.Mode == "" {
		c.Probes.Connection.Mode = ModeDial
	}
	if c.Probes.Log.Path == "" {
		if v, ok := lookupTrimmed(envEarthwormLog); ok && v != "" {
			c.Probes.Log.Path = v
		} else if v := c.Probes.DataFlow.Env[envEarthwormLog]; v != "" {
			c.Probes.Log.Path = v
		}
	}
	if c.Probes.Log.Match == "" {
		c.Probes.Log.Match = DefaultLogMatch
	}
	markers := c.Probes.Log.Markers[:0:0]
	for _, m := range c.Probes.Log.Markers {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}
	c.Probes.Log.Markers = markers
	if c.Notify.Telegram.APIURL == "" {
		c.Notify.Telegram.APIURL = DefaultTelegramAPIURL
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Interval.Duration <= 0 {
		return &Error{Field: "interval", Msg: "must be greater than zero"}
	}

	conn := c.Probes.Connection
	if conn.Address == "" {
		return &Error{Field: "probes.connection.address", Msg: "is required"}
	}
	if _, _, err := net.SplitHostPort(conn.Address); err != nil {
		return &Error{Field: "probes.connection.address", Msg: "must be host:port", Err: err}
	}
	if conn.Timeout.Duration <= 0 {
		return &Error{Field: "probes.connection.timeout", Msg: "must be greater than zero"}
	}
	switch conn.Mode {
	case ModeDial:
	case ModeEstablished:
		if len(conn.SocketCommand) == 0 {
			return &Error{Field: "probes.connection.socket_command", Msg: "is required in established mode"}
		}
	default:
		return &Error{Field: "probes.connection.mode", Msg: fmt.Sprintf("invalid mode %q (must be dial or established)", conn.Mode)}
	}

	df := c.Probes.DataFlow
	if df.Command == "" {
		return &Error{Field: "probes.data_flow.command", Msg: "is required"}
	}
	if df.Ring == "" {
		return &Error{Field: "probes.data_flow.ring", Msg: "is required"}
	}
	if df.Window.Duration <= 0 {
		return &Error{Field: "probes.data_flow.window", Msg: "must be greater than zero"}
	}

	lg := c.Probes.Log
	if lg.Path == "" {
		return &Error{Field: "probes.log.path", Msg: "is required (or set EW_LOG)"}
	}
	if lg.TailLines <= 0 {
		return &Error{Field: "probes.log.tail_lines", Msg: "must be greater than zero"}
	}
	if len(lg.Markers) == 0 {
		return &Error{Field: "probes.log.markers", Msg: "at least one marker is required"}
	}

	return c.validateNotify()
}

func (c *Config) validateNotify() error {
	n := c.Notify
	if !n.Enabled {
		return nil
	}
	tg := n.Telegram
	if tg.Configured() || (n.Slack.WebhookURL == "" && n.Webhook.URL == "") {
		if tg.Token == "" {
			return &Error{Field: EnvBotToken, Msg: "is required when notifications are enabled"}
		}
		if tg.ChatID == "" {
			return &Error{Field: EnvChatID, Msg: "is required when notifications are enabled"}
		}
	}
	return nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}
