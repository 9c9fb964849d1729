package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type FeedType = string

var (
	JSON = FeedType("json")
	RSS  = FeedType("rss")
)

type RendererType = string

var (
	HTTPRenderer    = RendererType("http")
	BrowserRenderer = RendererType("browser")
)

type ShareTarget = string

var (
	Stdout   = ShareTarget("stdout")
	Command  = ShareTarget("command")
	Telegram = ShareTarget("telegram")
)

const (
	baseCfgPath     = "blogreader/config.toml"
	DefaultEndpoint = "http://blog.teamtreehouse.com/api/get_recent_summary/"
	DefaultCount    = 20
)

type Config struct {
	Feed         Feed    `toml:"feed"`
	Network      Network `toml:"network"`
	Detail       Detail  `toml:"detail"`
	Share        Share   `toml:"share"`
	Strings      Strings `toml:"strings"`
	DatabasePath string  `toml:"database_path"` // Diagnostics journal, never read back into screen state
	LogLevel     string  `toml:"log_level"`     // debug|info|warn|error
}

type Feed struct {
	Endpoint     string   `toml:"endpoint"`
	T            FeedType `toml:"type"`
	Count        int      `toml:"count"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
}

type Network struct {
	Timeout      string `toml:"timeout"`       // Overall request timeout, e.g. "30s"
	ProbeAddress string `toml:"probe_address"` // host:port dialed before fetching (defaults to the feed host)
	ProbeTimeout string `toml:"probe_timeout"` // e.g. "3s"
	SkipCheck    bool   `toml:"skip_check"`    // Treat the network as always reachable
	UserAgent    string `toml:"user_agent"`
}

type Detail struct {
	Renderer       RendererType `toml:"renderer"`
	InstallBrowser bool         `toml:"install_browser"`
}

type Share struct {
	Target       ShareTarget `toml:"target"`
	Command      []string    `toml:"command"`       // argv receiving the shared text on stdin
	TelegramPeer string      `toml:"telegram_peer"` // @username or t.me link; empty sends to Saved Messages
}

// Strings are the user-visible texts of the screens
type Strings struct {
	NetworkUnavailable string `toml:"network_unavailable"`
	ErrorTitle         string `toml:"error_title"`
	ErrorMessage       string `toml:"error_message"`
	NoItems            string `toml:"no_items"`
	ShareChooserTitle  string `toml:"share_chooser_title"`
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid config at %s: %w", path, err)
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	slog.Info("config written", "at", cfgPath)
	return nil
}

// Validate fills in defaults for empty fields and rejects values that cannot work
func (c *Config) Validate() error {
	def := Default()

	if c.Feed.Endpoint == "" {
		c.Feed.Endpoint = def.Feed.Endpoint
	}
	if c.Feed.T == "" {
		c.Feed.T = JSON
	}
	if c.Feed.T != JSON && c.Feed.T != RSS {
		return fmt.Errorf("unknown feed type: %s", c.Feed.T)
	}
	if c.Feed.Count <= 0 {
		return errors.New("feed count must be a positive integer")
	}
	if c.Feed.MaxBodyBytes <= 0 {
		c.Feed.MaxBodyBytes = def.Feed.MaxBodyBytes
	}

	if c.Network.Timeout == "" {
		c.Network.Timeout = def.Network.Timeout
	}
	if c.Network.ProbeTimeout == "" {
		c.Network.ProbeTimeout = def.Network.ProbeTimeout
	}
	if _, err := time.ParseDuration(c.Network.Timeout); err != nil {
		return fmt.Errorf("network timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Network.ProbeTimeout); err != nil {
		return fmt.Errorf("network probe_timeout: %w", err)
	}

	if c.Detail.Renderer == "" {
		c.Detail.Renderer = HTTPRenderer
	}
	if c.Detail.Renderer != HTTPRenderer && c.Detail.Renderer != BrowserRenderer {
		return fmt.Errorf("unknown detail renderer: %s", c.Detail.Renderer)
	}

	switch c.Share.Target {
	case "":
		c.Share.Target = Stdout
	case Stdout, Telegram:
	case Command:
		if len(c.Share.Command) == 0 {
			return errors.New("share target 'command' requires a non-empty command")
		}
	default:
		return fmt.Errorf("unknown share target: %s", c.Share.Target)
	}

	c.Strings.fill(def.Strings)

	if c.DatabasePath == "" {
		c.DatabasePath = def.DatabasePath
	}
	switch strings.ToLower(c.LogLevel) {
	case "":
		c.LogLevel = "info"
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	return nil
}

func (s *Strings) fill(def Strings) {
	if s.NetworkUnavailable == "" {
		s.NetworkUnavailable = def.NetworkUnavailable
	}
	if s.ErrorTitle == "" {
		s.ErrorTitle = def.ErrorTitle
	}
	if s.ErrorMessage == "" {
		s.ErrorMessage = def.ErrorMessage
	}
	if s.NoItems == "" {
		s.NoItems = def.NoItems
	}
	if s.ShareChooserTitle == "" {
		s.ShareChooserTitle = def.ShareChooserTitle
	}
}

// RequestTimeout returns the parsed overall request timeout
func (n Network) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ProbeDuration returns the parsed reachability probe timeout
func (n Network) ProbeDuration() time.Duration {
	d, err := time.ParseDuration(n.ProbeTimeout)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// SlogLevel maps LogLevel onto slog
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Default() Config {
	var dbBase = path.Join(os.Getenv("HOME"), ".local/share/blogreader")
	return Config{
		Feed: Feed{
			Endpoint:     DefaultEndpoint,
			T:            JSON,
			Count:        DefaultCount,
			MaxBodyBytes: 4 << 20,
		},
		Network: Network{
			Timeout:      "30s",
			ProbeTimeout: "3s",
		},
		Detail: Detail{Renderer: HTTPRenderer},
		Share:  Share{Target: Stdout},
		Strings: Strings{
			NetworkUnavailable: "Network is unavailable!",
			ErrorTitle:         "Oops! Sorry!",
			ErrorMessage:       "There was an error getting data from the blog.",
			NoItems:            "No items to display.",
			ShareChooserTitle:  "Share this post with",
		},
		DatabasePath: path.Join(dbBase, "journal.db"),
		LogLevel:     "info",
	}
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	panic("unclear where to search for the config file")
}
