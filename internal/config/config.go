package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

// EngineSim selects the in-process macro engine.
const EngineSim = "sim"

// EnvPrefix prefixes environment overrides, e.g. HMBRIDGE_WASM_DEBUG.
const EnvPrefix = "HMBRIDGE"

type Config struct {
	LogLevel string `mapstructure:"log_level"`

	// Native integer width in bits; 0 follows the running process.
	NativeWidth int `mapstructure:"native_width"`

	// Host version reported by engines that cannot ask a real host.
	HostVersion float64 `mapstructure:"host_version"`

	// Module path remote methods must be declared in.
	ModulePath string `mapstructure:"module_path"`

	Component ComponentConfig `mapstructure:"component"`

	// "sim" or the name of an engine pack.
	Engine      string   `mapstructure:"engine"`
	EnginePaths []string `mapstructure:"engine_paths"`

	Wasm WasmConfig `mapstructure:"wasm"`
}

// ComponentConfig names the mailbox component macro text creates.
type ComponentConfig struct {
	Path  string `mapstructure:"path"`
	Class string `mapstructure:"class"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Enable debug logging.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Guest call timeout (seconds).
	ExecutionTimeout int `mapstructure:"execution_timeout"`
}

// Timeout returns ExecutionTimeout as a duration.
func (w WasmConfig) Timeout() time.Duration {
	return time.Duration(w.ExecutionTimeout) * time.Second
}

// Load reads defaults, then the optional config file, then HMBRIDGE_*
// environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("native_width", 0)
	v.SetDefault("host_version", 940.0)
	v.SetDefault("module_path", "main")
	v.SetDefault("component.path", "hmbridge.dll")
	v.SetDefault("component.class", "HmBridge.Mailbox")
	v.SetDefault("engine", EngineSim)
	v.SetDefault("engine_paths", []string{"./engines"})

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 16)
	v.SetDefault("wasm.execution_timeout", 30)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if _, ok := macro.ParseWidth(c.NativeWidth); !ok {
		return fmt.Errorf("native_width must be 0, 32 or 64, got %d", c.NativeWidth)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Engine == "" {
		return fmt.Errorf("engine is required")
	}
	if c.Component.Path == "" || c.Component.Class == "" {
		return fmt.Errorf("component.path and component.class are required")
	}
	if c.Wasm.ExecutionTimeout < 0 {
		return fmt.Errorf("wasm.execution_timeout must not be negative")
	}
	return nil
}

// Width returns the configured native width.
func (c *Config) Width() macro.Width {
	w, _ := macro.ParseWidth(c.NativeWidth)
	return w
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	lvl, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl.Level(), nil
}
