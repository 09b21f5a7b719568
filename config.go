package flowgraph

import (
	"strconv"
	"strings"
)

// ConfigSeparator is the hierarchical key separator.
const ConfigSeparator = ":"

// NameKey is the reserved key carrying a process's instance name.
const NameKey = "_name"

// Config is a hierarchical key→string store. It is not internally
// synchronized — per the concurrency model, callers own a Config exclusively
// during setup-phase operations and must synchronize or copy across
// goroutines themselves.
type Config struct {
	name     string
	data     map[string]string
	readOnly map[string]bool

	// view, when non-nil, makes this Config a live subblock view: every
	// read/write is delegated to parent with prefix prepended.
	view *viewBinding
}

type viewBinding struct {
	parent *Config
	prefix string
}

// NewConfig creates an empty root block with the given symbolic name.
func NewConfig(name string) *Config {
	return &Config{
		name:     name,
		data:     make(map[string]string),
		readOnly: make(map[string]bool),
	}
}

// Name returns the block's symbolic name.
func (c *Config) Name() string {
	return c.name
}

func (c *Config) fullKey(key string) string {
	if c.view == nil {
		return key
	}
	return c.view.prefix + ConfigSeparator + key
}

// Set stores value under key. Fails with KindSetOnReadOnly if key is locked.
func (c *Config) Set(key, value string) error {
	if c.view != nil {
		return c.view.parent.Set(c.fullKey(key), value)
	}
	if c.readOnly[key] {
		return newErr(KindSetOnReadOnly, key)
	}
	c.data[key] = value
	return nil
}

// Get returns the string value stored under key, or KindNoSuchConfigurationValue.
func (c *Config) Get(key string) (string, error) {
	if c.view != nil {
		return c.view.parent.Get(c.fullKey(key))
	}
	v, ok := c.data[key]
	if !ok {
		return "", newErr(KindNoSuchConfigurationValue, key)
	}
	return v, nil
}

// Unset removes key. Fails with KindUnsetOnReadOnly if locked, or
// KindNoSuchConfigurationValue if absent.
func (c *Config) Unset(key string) error {
	if c.view != nil {
		return c.view.parent.Unset(c.fullKey(key))
	}
	if c.readOnly[key] {
		return newErr(KindUnsetOnReadOnly, key)
	}
	if _, ok := c.data[key]; !ok {
		return newErr(KindNoSuchConfigurationValue, key)
	}
	delete(c.data, key)
	return nil
}

// MarkReadOnly locks key: subsequent Set/Unset on it fail.
func (c *Config) MarkReadOnly(key string) {
	if c.view != nil {
		c.view.parent.MarkReadOnly(c.fullKey(key))
		return
	}
	c.readOnly[key] = true
}

// IsReadOnly reports whether key is locked.
func (c *Config) IsReadOnly(key string) bool {
	if c.view != nil {
		return c.view.parent.IsReadOnly(c.fullKey(key))
	}
	return c.readOnly[key]
}

// Keys returns, for a non-view block, every key currently present.
func (c *Config) Keys() []string {
	if c.view != nil {
		prefix := c.view.prefix + ConfigSeparator
		var keys []string
		for _, k := range c.view.parent.Keys() {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, strings.TrimPrefix(k, prefix))
			}
		}
		return keys
	}
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys
}

// Subblock returns a new, independent block holding copies of every key
// under prefix (prefix itself stripped). Later writes to either block do
// not affect the other.
func (c *Config) Subblock(prefix string) *Config {
	sub := NewConfig(c.name + ConfigSeparator + prefix)
	full := prefix + ConfigSeparator
	for _, k := range c.Keys() {
		if !strings.HasPrefix(k, full) {
			continue
		}
		rel := strings.TrimPrefix(k, full)
		v, _ := c.Get(k) //nolint:errcheck // key came from Keys(), always present
		sub.data[rel] = v
		if c.IsReadOnly(k) {
			sub.readOnly[rel] = true
		}
	}
	return sub
}

// SubblockView returns a live view onto prefix: reads fall through to c and
// writes reflect back into it.
func (c *Config) SubblockView(prefix string) *Config {
	return &Config{
		name: c.name + ConfigSeparator + prefix,
		view: &viewBinding{parent: c, prefix: prefix},
	}
}

// Merge copies every key from other into c, overwriting existing values,
// but still respects c's own read-only locks (returns the first violation).
func (c *Config) Merge(other *Config) error {
	for _, k := range other.Keys() {
		v, err := other.Get(k)
		if err != nil {
			continue
		}
		if err := c.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// ConfigAs parses the string stored under key into T, failing with
// KindBadConfigurationCast on any parse error.
func ConfigAs[T any](c *Config, key string) (T, error) {
	var zero T
	raw, err := c.Get(key)
	if err != nil {
		return zero, err
	}
	return parseConfigValue[T](raw)
}

// ConfigAsDefault behaves like ConfigAs but returns def instead of failing.
func ConfigAsDefault[T any](c *Config, key string, def T) T {
	v, err := ConfigAs[T](c, key)
	if err != nil {
		return def
	}
	return v
}

func parseConfigValue[T any](raw string) (T, error) {
	var zero T
	switch any(zero).(type) {
	case bool:
		b, err := parseConfigBool(raw)
		if err != nil {
			return zero, err
		}
		return any(b).(T), nil
	case int:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return zero, newErr(KindBadConfigurationCast, raw)
		}
		return any(n).(T), nil
	case int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return zero, newErr(KindBadConfigurationCast, raw)
		}
		return any(n).(T), nil
	case float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return zero, newErr(KindBadConfigurationCast, raw)
		}
		return any(f).(T), nil
	case string:
		return any(raw).(T), nil
	default:
		return zero, newErr(KindBadConfigurationCast, "unsupported configuration type")
	}
}

// parseConfigBool recognizes true/false/1/0 case-insensitively, per the
// configuration contract.
func parseConfigBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, newErr(KindBadConfigurationCast, raw)
	}
}
