// Package config loads settings of the request command.
//
// Sources are layered, later ones win: defaults, an optional file (.json or .env),
// environment variables prefixed with [EnvPrefix], and overrides from the caller.
package config

import (
	"log/slog"
	"net/netip"
	"path/filepath"
	"strings"
	"time"

	"http-request/application/http"
	"http-request/application/http/actor/client"
	"http-request/transport/tcp"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix marks environment variables read by [Load].
// Nested keys are separated by "__", e.g. REQUEST_TIMEOUT__DIAL=5s.
const EnvPrefix = "REQUEST_"

var ErrUnknownFileType = errors.New("unknown config file type")

type Config struct {
	LogLevel string `conf:"log_level"`

	Timeout TimeoutConfig `conf:"timeout"`
	Decode  DecodeConfig  `conf:"decode"`

	SkipInformational   bool `conf:"skip_informational"`
	DefaultReasonPhrase bool `conf:"default_reason_phrase"`

	// Headers are added by the command to every request lacking a field
	// of the same name, each as "Name: Value".
	Headers []string `conf:"headers"`
	// Hosts are resolved before DNS, each as "name=addr".
	Hosts []string `conf:"hosts"`
}

type TimeoutConfig struct {
	Dial      time.Duration `conf:"dial"`
	Write     time.Duration `conf:"write"`
	Read      time.Duration `conf:"read"`
	KeepAlive time.Duration `conf:"keep_alive"`
}

type DecodeConfig struct {
	AllowSoleLF         bool `conf:"allow_sole_lf"`
	MaxStatusLineLength uint `conf:"max_status_line_length"`
	MaxFieldLineLength  uint `conf:"max_field_line_length"`
}

var DefaultConfig = map[string]any{
	"log_level":          "warn",
	"timeout.dial":       "30s",
	"skip_informational": true,
}

type LoadOptions struct {
	// FileName is read when set. Type is chosen by extension.
	FileName string

	// Overrides are applied last, keyed like DefaultConfig.
	Overrides map[string]any

	// Environ defaults to the process environment.
	Environ func() []string
}

func Load(opts LoadOptions) (Config, error) {
	var cfg Config

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(DefaultConfig, "."), nil); err != nil {
		return cfg, errors.Wrap(err, "loading defaults")
	}

	if opts.FileName != "" {
		if err := loadFile(k, opts.FileName); err != nil {
			return cfg, errors.Wrapf(err, "loading %s", opts.FileName)
		}
	}

	if err := loadEnv(k, opts.Environ); err != nil {
		return cfg, errors.Wrap(err, "loading environment")
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return cfg, errors.Wrap(err, "loading overrides")
		}
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "conf"}); err != nil {
		return cfg, errors.Wrap(err, "unmarshalling config")
	}

	return cfg, nil
}

func loadFile(k *koanf.Koanf, name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return k.Load(file.Provider(name), json.Parser())
	case ".env":
		// .env files use the same keys as the environment.
		b, err := file.Provider(name).ReadBytes()
		if err != nil {
			return err
		}
		vars, err := dotenv.Parser().Unmarshal(b)
		if err != nil {
			return err
		}
		m := make(map[string]any, len(vars))
		for key, value := range vars {
			if !strings.HasPrefix(key, EnvPrefix) {
				continue
			}
			m[transformEnv(key)] = value
		}
		return k.Load(confmap.Provider(m, "."), nil)
	default:
		return errors.WithMessagef(ErrUnknownFileType, "%q", filepath.Ext(name))
	}
}

func loadEnv(k *koanf.Koanf, environ func() []string) error {
	if environ == nil {
		return k.Load(env.Provider(EnvPrefix, ".", transformEnv), nil)
	}

	m := make(map[string]any)
	for _, kv := range environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		m[transformEnv(key)] = value
	}
	return k.Load(confmap.Provider(m, "."), nil)
}

func transformEnv(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	// allow specifying nested keys w/ __
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, errors.Wrap(err, "parsing log level")
	}
	return level, nil
}

func (c Config) ClientOptions() client.Options {
	opts := client.DefaultOptions

	opts.Receive.Decode.AllowSoleLF = c.Decode.AllowSoleLF
	opts.Receive.Decode.MaxStatusLineLength = c.Decode.MaxStatusLineLength
	opts.Receive.Decode.MaxFieldLineLength = c.Decode.MaxFieldLineLength
	opts.Receive.SkipInformational = c.SkipInformational
	opts.Receive.DefaultReasonPhrase = c.DefaultReasonPhrase

	opts.Timeout = client.TimeoutOptions{
		Dial:  c.Timeout.Dial,
		Write: c.Timeout.Write,
		Read:  c.Timeout.Read,
	}

	return opts
}

// DefaultHeaders parses Headers. The caller adds them to each request it builds.
func (c Config) DefaultHeaders() (http.Headers, error) {
	headers := make(http.Headers, 0, len(c.Headers))
	for _, line := range c.Headers {
		f, err := http.ParseField([]byte(line))
		if err != nil {
			return nil, errors.Wrap(err, "parsing default header")
		}
		if f.Name == "" {
			return nil, errors.Errorf("default header has empty name: %q", line)
		}
		headers = append(headers, f)
	}
	return headers, nil
}

func (c Config) DialOptions() tcp.DialOptions {
	return tcp.DialOptions{
		Timeout:   c.Timeout.Dial,
		KeepAlive: c.Timeout.KeepAlive,
	}
}

// StaticHosts groups Hosts by name. Names are lowercased.
func (c Config) StaticHosts() (map[string][]netip.Addr, error) {
	hosts := make(map[string][]netip.Addr, len(c.Hosts))
	for _, entry := range c.Hosts {
		name, addr, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Errorf("host entry is not name=addr: %q", entry)
		}
		ip, err := netip.ParseAddr(strings.TrimSpace(addr))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing address of %q", name)
		}
		name = strings.ToLower(name)
		hosts[name] = append(hosts[name], ip)
	}
	return hosts, nil
}
