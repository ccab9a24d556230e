package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Oracle     OracleConfig     `yaml:"oracle" mapstructure:"oracle"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" mapstructure:"checkpoint"`
	Split      SplitConfig      `yaml:"split" mapstructure:"split"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// OracleConfig selects and tunes the classification/extraction oracle.
type OracleConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // "api" or "cli"
	CLIPath        string `yaml:"cli_path" mapstructure:"cli_path"`
	MaxRetries     int    `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelaySecs int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RetryDelay returns the fixed pause between oracle attempts.
func (c OracleConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySecs) * time.Second
}

// Timeout returns the per-call oracle timeout.
func (c OracleConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CheckpointConfig configures where job state is persisted.
type CheckpointConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	Backend    string `yaml:"backend" mapstructure:"backend"` // "file" or "sqlite"
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SplitConfig configures how the source PDF is split into pages.
type SplitConfig struct {
	Mode        string `yaml:"mode" mapstructure:"mode"` // "script" or "builtin"
	ScriptPath  string `yaml:"script_path" mapstructure:"script_path"`
	MaxPages    int    `yaml:"max_pages" mapstructure:"max_pages"`
	TextWorkers int    `yaml:"text_workers" mapstructure:"text_workers"`
}

// OCRConfig configures the text extraction and OCR tools.
type OCRConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfToPPMPath  string `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	DPI           int    `yaml:"dpi" mapstructure:"dpi"`
	Language      string `yaml:"language" mapstructure:"language"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-page OCR timeout.
func (c OCRConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ClassifyConfig configures page classification.
type ClassifyConfig struct {
	BatchSize   int `yaml:"batch_size" mapstructure:"batch_size"`
	SampleChars int `yaml:"sample_chars" mapstructure:"sample_chars"`
	PromptChars int `yaml:"prompt_chars" mapstructure:"prompt_chars"`
}

// OutputConfig configures exported artifacts.
type OutputConfig struct {
	Dir              string `yaml:"dir" mapstructure:"dir"`
	MarkdownMaxLines int    `yaml:"markdown_max_lines" mapstructure:"markdown_max_lines"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HOA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("anthropic.key", "HOA_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.requests_per_minute", 40)
	v.SetDefault("oracle.provider", "api")
	v.SetDefault("oracle.cli_path", "claude")
	v.SetDefault("oracle.max_retries", 3)
	v.SetDefault("oracle.retry_delay_secs", 5)
	v.SetDefault("oracle.timeout_secs", 120)
	v.SetDefault("checkpoint.dir", filepath.Join("data", "checkpoints"))
	v.SetDefault("checkpoint.backend", "file")
	v.SetDefault("checkpoint.sqlite_path", filepath.Join("data", "checkpoints", "checkpoints.db"))
	v.SetDefault("split.mode", "script")
	v.SetDefault("split.script_path", defaultScriptPath())
	v.SetDefault("split.max_pages", 30)
	v.SetDefault("split.text_workers", 4)
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.dpi", 200)
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.timeout_secs", 60)
	v.SetDefault("classify.batch_size", 20)
	v.SetDefault("classify.sample_chars", 800)
	v.SetDefault("classify.prompt_chars", 600)
	v.SetDefault("output.dir", filepath.Join("data", "output"))
	v.SetDefault("output.markdown_max_lines", 400)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func defaultScriptPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "split-hoa-financials.sh"
	}
	return filepath.Join(home, "bin", "split-hoa-financials.sh")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
