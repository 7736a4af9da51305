package config

import (
	"context"
	_ "embed"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/common"
	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/broadcast"
	"github.com/gaze-network/inscriber/internal/runes"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/gaze-network/inscriber/pkg/retry"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFile is the config written by the init command.
//
//go:embed config.example.yaml
var DefaultFile []byte

// MaxRuneRepeat caps the mints of one run. Longer chains exceed the default mempool descendant limit.
const MaxRuneRepeat = 25

type Config struct {
	Logger      logger.Config    `mapstructure:"logger"`
	Network     common.Network   `mapstructure:"network"`
	Unisat      UnisatConfig     `mapstructure:"unisat"`
	Mempool     MempoolConfig    `mapstructure:"mempool"`
	RPC         RPCConfig        `mapstructure:"rpc"`
	HTTP        HTTPConfig       `mapstructure:"http"`
	FeeRate     int64            `mapstructure:"fee_rate"`
	Funding     FundingConfig    `mapstructure:"funding"`
	Destination string           `mapstructure:"destination"`
	Text        TextConfig       `mapstructure:"text"`
	Rune        RuneConfig       `mapstructure:"rune"`
	Files       FilesConfig      `mapstructure:"files"`
	Data        DataConfig       `mapstructure:"data"`
	Broadcast   broadcast.Config `mapstructure:"broadcast"`
}

type UnisatConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

type MempoolConfig struct {
	URL string `mapstructure:"url"`
}

// RPCConfig is the optional Bitcoin node used to push transactions.
type RPCConfig struct {
	Host       string `mapstructure:"host"`
	User       string `mapstructure:"user"`
	Pass       string `mapstructure:"pass"`
	DisableTLS bool   `mapstructure:"disable_tls"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type FundingConfig struct {
	WIF string `mapstructure:"wif"`
	// Address selects the funding address type. It must match the WIF.
	Address string `mapstructure:"address"`
}

type TextConfig struct {
	Content string `mapstructure:"content"`
	Repeat  int    `mapstructure:"repeat"`
}

type RuneConfig struct {
	ID     string `mapstructure:"id"`
	Repeat int    `mapstructure:"repeat"`
}

type FilesConfig struct {
	Dir string `mapstructure:"dir"`
}

type DataConfig struct {
	DumpPath    string `mapstructure:"dump_path"`
	ArchiveDir  string `mapstructure:"archive_dir"`
	JournalPath string `mapstructure:"journal_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.output", "console")
	v.SetDefault("logger.debug", false)
	v.SetDefault("network", string(common.NetworkBitcoinMainnet))
	v.SetDefault("unisat.url", "")
	v.SetDefault("unisat.api_key", "")
	v.SetDefault("mempool.url", "")
	v.SetDefault("rpc.host", "")
	v.SetDefault("rpc.disable_tls", false)
	v.SetDefault("rpc.user", "user")
	v.SetDefault("rpc.pass", "pass")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("fee_rate", 0)
	v.SetDefault("funding.wif", "")
	v.SetDefault("funding.address", "")
	v.SetDefault("destination", "")
	v.SetDefault("text.content", "")
	v.SetDefault("text.repeat", 1)
	v.SetDefault("rune.id", "")
	v.SetDefault("rune.repeat", 1)
	v.SetDefault("files.dir", "data/files")
	v.SetDefault("data.dump_path", "data/dump.json")
	v.SetDefault("data.archive_dir", "data/archive")
	v.SetDefault("data.journal_path", "data/journal.db")

	defaults := broadcast.DefaultConfig()
	v.SetDefault("broadcast.concurrency", defaults.Concurrency)
	v.SetDefault("broadcast.first_batch_size", defaults.FirstBatchSize)
	v.SetDefault("broadcast.poll_interval", defaults.PollInterval)
	v.SetDefault("broadcast.max_rounds", defaults.MaxRounds)
	v.SetDefault("broadcast.retry.max_attempts", defaults.Retry.MaxAttempts)
	v.SetDefault("broadcast.retry.delay", defaults.Retry.Delay)
	v.SetDefault("broadcast.retry.multiplier", defaults.Retry.Multiplier)
	v.SetDefault("broadcast.retry.max_delay", defaults.Retry.MaxDelay)
}

// Load reads the config file at path, or ./config.yaml when path is empty, then the
// environment and the flags. A missing file falls back to the defaults.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))

	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		if flag := flags.Lookup("network"); flag != nil {
			if err := v.BindPFlag("network", flag); err != nil {
				return Config{}, errors.Wrap(err, "can't bind network flag")
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var errNotFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &errNotFound), path != "" && errors.Is(err, os.ErrNotExist):
			logger.WarnContext(ctx, "Config file not found, using default values", slogx.Error(err))
		default:
			return Config{}, errors.Wrapf(errs.InvalidConfig, "invalid config file: %v", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrapf(errs.InvalidConfig, "can't unmarshal config: %v", err)
	}
	config.applyNetworkDefaults()
	logger.DebugContext(ctx, "Loaded config", slogx.String("file", v.ConfigFileUsed()), slogx.Stringer("network", config.Network))
	return config, nil
}

func (c *Config) applyNetworkDefaults() {
	if !c.Network.IsSupported() {
		return
	}
	if c.Unisat.URL == "" {
		c.Unisat.URL = c.Network.UnisatURL()
	}
	if c.Mempool.URL == "" {
		c.Mempool.URL = c.Network.MempoolURL()
	}
}

// Validate checks the settings every command relies on.
func (c Config) Validate() error {
	if !c.Network.IsSupported() {
		return errors.Wrapf(errs.InvalidConfig, "unsupported network %q, must be one of %v", c.Network, common.Networks)
	}
	if c.FeeRate < 0 {
		return errors.Wrapf(errs.InvalidConfig, "fee_rate must not be negative, got %d", c.FeeRate)
	}
	if c.HTTP.Timeout < 0 {
		return errors.Wrap(errs.InvalidConfig, "http.timeout must not be negative")
	}
	if c.Broadcast.Concurrency < 1 || c.Broadcast.FirstBatchSize < 1 || c.Broadcast.MaxRounds < 1 {
		return errors.Wrap(errs.InvalidConfig, "broadcast.concurrency, broadcast.first_batch_size and broadcast.max_rounds must be positive")
	}
	if c.Broadcast.PollInterval <= 0 {
		return errors.Wrap(errs.InvalidConfig, "broadcast.poll_interval must be positive")
	}
	if c.Broadcast.Retry.MaxAttempts < 1 {
		return errors.Wrap(errs.InvalidConfig, "broadcast.retry.max_attempts must be positive")
	}
	if c.Data.DumpPath == "" || c.Data.ArchiveDir == "" || c.Data.JournalPath == "" {
		return errors.Wrap(errs.InvalidConfig, "data.dump_path, data.archive_dir and data.journal_path are required")
	}
	return nil
}

// ValidateInscribe checks the settings needed to build and sign transactions.
func (c Config) ValidateInscribe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Funding.WIF == "" {
		return errors.Wrap(errs.InvalidConfig, "funding.wif is required")
	}
	if c.Unisat.APIKey == "" {
		return errors.Wrap(errs.InvalidConfig, "unisat.api_key is required")
	}
	return nil
}

func (c Config) ValidateText() error {
	if err := c.ValidateInscribe(); err != nil {
		return err
	}
	if c.Text.Content == "" {
		return errors.Wrap(errs.InvalidConfig, "text.content is required")
	}
	if c.Text.Repeat < 1 {
		return errors.Wrapf(errs.InvalidConfig, "text.repeat must be at least 1, got %d", c.Text.Repeat)
	}
	return nil
}

func (c Config) ValidateFiles() error {
	if err := c.ValidateInscribe(); err != nil {
		return err
	}
	if c.Files.Dir == "" {
		return errors.Wrap(errs.InvalidConfig, "files.dir is required")
	}
	return nil
}

func (c Config) ValidateRune() error {
	if err := c.ValidateInscribe(); err != nil {
		return err
	}
	if _, err := runes.ParseRuneID(c.Rune.ID); err != nil {
		return errors.Wrapf(errs.InvalidConfig, "invalid rune.id: %v", err)
	}
	if c.Rune.Repeat < 1 {
		return errors.Wrapf(errs.InvalidConfig, "rune.repeat must be at least 1, got %d", c.Rune.Repeat)
	}
	return nil
}

// PushToNode reports whether transactions are pushed through the configured node instead of unisat.
func (c Config) PushToNode() bool {
	return c.RPC.Host != ""
}

// RetryPolicy is the policy used for push and fetch retries.
func (c Config) RetryPolicy() retry.Policy {
	return c.Broadcast.Retry
}
