package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Settings represents the gateway configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Resolver ResolverSettings `json:"resolver"`
	Static   StaticSettings   `json:"static"`
	Metrics  MetricsSettings  `json:"metrics"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ResolverSettings describes how the external resolver tool is invoked.
// The command line is: Binary BaseArgs... <command> [argument].
type ResolverSettings struct {
	Binary             string   `json:"binary"`
	BaseArgs           []string `json:"baseArgs"`
	WorkDir            string   `json:"workDir"`
	Env                []string `json:"env,omitempty"`
	TimeoutSeconds     int      `json:"timeoutSeconds"`     // 0 = no timeout
	CancelOnDisconnect bool     `json:"cancelOnDisconnect"` // kill the child when the HTTP client goes away
	MaxOutputBytes     int64    `json:"maxOutputBytes"`
}

// Timeout returns the configured resolver timeout, or zero when disabled.
func (r ResolverSettings) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// StaticSettings points at the browser application served for unmatched routes.
type StaticSettings struct {
	Directory string `json:"directory"`
	Index     string `json:"index"`
}

type MetricsSettings struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	Format     string `json:"format"` // auto | console | json
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

const defaultMaxOutputBytes = 16 << 20

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 3000},
		Resolver: ResolverSettings{
			Binary:         "python3",
			BaseArgs:       []string{"scraper_bot.py"},
			TimeoutSeconds: 0,
			MaxOutputBytes: defaultMaxOutputBytes,
		},
		Static:  StaticSettings{Directory: "public", Index: "index.html"},
		Metrics: MetricsSettings{Enabled: true, Path: "/metrics"},
		Log: LogConfig{
			File:       "cache/logs/gateway.log",
			Level:      "info",
			Format:     "auto",
			MaxSize:    50,   // 50 MB per file
			MaxBackups: 3,    // keep 3 old files
			MaxAge:     7,    // 7 days
			Compress:   true, // compress old files
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	// Missing sections keep their defaults. Base args only default alongside the
	// default interpreter.
	s := DefaultSettings()
	s.Resolver.BaseArgs = nil
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}
	normalize(&s)
	return s, nil
}

func normalize(s *Settings) {
	defaults := DefaultSettings()

	s.Server.Host = strings.TrimSpace(s.Server.Host)
	if s.Server.Port <= 0 {
		s.Server.Port = defaults.Server.Port
	}

	s.Resolver.Binary = strings.TrimSpace(s.Resolver.Binary)
	if s.Resolver.Binary == "" {
		s.Resolver.Binary = defaults.Resolver.Binary
	}
	if s.Resolver.Binary == defaults.Resolver.Binary && len(s.Resolver.BaseArgs) == 0 {
		s.Resolver.BaseArgs = defaults.Resolver.BaseArgs
	}
	if s.Resolver.MaxOutputBytes <= 0 {
		s.Resolver.MaxOutputBytes = defaults.Resolver.MaxOutputBytes
	}
	if s.Resolver.TimeoutSeconds < 0 {
		s.Resolver.TimeoutSeconds = 0
	}

	if strings.TrimSpace(s.Static.Directory) == "" {
		s.Static.Directory = defaults.Static.Directory
	}
	if strings.TrimSpace(s.Static.Index) == "" {
		s.Static.Index = defaults.Static.Index
	}

	if s.Metrics.Path == "" || !strings.HasPrefix(s.Metrics.Path, "/") {
		s.Metrics.Path = defaults.Metrics.Path
	}

	s.Log.Level = strings.ToLower(strings.TrimSpace(s.Log.Level))
	if s.Log.Level == "" {
		s.Log.Level = defaults.Log.Level
	}
	s.Log.Format = strings.ToLower(strings.TrimSpace(s.Log.Format))
	if s.Log.Format == "" {
		s.Log.Format = defaults.Log.Format
	}
}

func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
