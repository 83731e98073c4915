package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ErrConfigTypeRequired is returned when an in-memory config has no format.
var ErrConfigTypeRequired = errors.New("config type is required")

// Option customizes the underlying viper instance.
type Option func(v *viper.Viper)

// WithDefaults registers fallback values for keys missing from the file.
func WithDefaults(defaults map[string]any) Option {
	return func(v *viper.Viper) {
		for k, val := range defaults {
			v.SetDefault(k, val)
		}
	}
}

// WithEnvPrefix lets environment variables override file values.
// The key "modules.notification.sms.api_key" is read from PREFIX_MODULES_NOTIFICATION_SMS_API_KEY.
func WithEnvPrefix(prefix string) Option {
	return func(v *viper.Viper) {
		v.SetEnvPrefix(prefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
}

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewViper loads configuration from pathFile and reloads it when the file changes.
func NewViper(pathFile string, opts ...Option) (*Viper, error) {
	v := viper.New()
	for _, opt := range opts {
		opt(v)
	}

	filename := path.Base(pathFile)
	v.AddConfigPath(path.Dir(pathFile))
	v.SetConfigName(strings.TrimSuffix(filename, path.Ext(filename)))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", pathFile, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config file changed", "path", pathFile, "op", e.Op.String())
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory.
// configType is a format supported by viper, such as "yaml" or "json".
func NewViperFromBytes(configType string, data []byte, opts ...Option) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, ErrConfigTypeRequired
	}

	v := viper.New()
	for _, opt := range opts {
		opt(v)
	}
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func (vc *Viper) GetBool(key string) bool { return vc.v.GetBool(key) }
func (vc *Viper) GetString(key string) string { return vc.v.GetString(key) }
func (vc *Viper) GetInt(key string) int { return vc.v.GetInt(key) }
func (vc *Viper) GetInt32(key string) int32 { return vc.v.GetInt32(key) }
func (vc *Viper) GetInt64(key string) int64 { return vc.v.GetInt64(key) }
func (vc *Viper) GetUint16(key string) uint16 { return uint16(vc.v.GetUint(key)) }
func (vc *Viper) GetFloat64(key string) float64 { return vc.v.GetFloat64(key) }

func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

func (vc *Viper) GetMinute(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Minute
}

func (vc *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(vc.v.GetString(key))
	if err != nil {
		return nil
	}
	return data
}

func (vc *Viper) GetArray(key string) []string {
	var raw []string
	if list, ok := vc.v.Get(key).([]any); ok {
		for _, item := range list {
			raw = append(raw, fmt.Sprint(item))
		}
	} else {
		raw = strings.Split(vc.v.GetString(key), ",")
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (vc *Viper) GetMap(key string) map[string]string {
	if sub := vc.v.GetStringMapString(key); len(sub) > 0 {
		return sub
	}

	m := make(map[string]string)
	for pair := range strings.SplitSeq(vc.v.GetString(key), ",") {
		k, val, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return m
}

// Close implements io.Closer. Viper holds no resources besides the file watcher.
func (vc *Viper) Close() error {
	return nil
}
