package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/account-advisor/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Scoring       ScoringConfig       `yaml:"scoring" mapstructure:"scoring"`
	Urgency       UrgencyConfig       `yaml:"urgency" mapstructure:"urgency"`
	Gate          GateConfig          `yaml:"gate" mapstructure:"gate"`
	Notion        NotionConfig        `yaml:"notion" mapstructure:"notion"`
	DataScout     DataScoutConfig     `yaml:"datascout" mapstructure:"datascout"`
	MemoryAnalyst MemoryAnalystConfig `yaml:"memory_analyst" mapstructure:"memory_analyst"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`

	// PlaybookPath optionally points at a YAML playbook overriding the
	// built-in per-type allowlists and next-step checklists.
	PlaybookPath string `yaml:"playbook_path" mapstructure:"playbook_path"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ScoreWeights holds the weights for the four confidence components.
type ScoreWeights struct {
	Recency            float64 `yaml:"recency" mapstructure:"recency"`
	PatternStrength    float64 `yaml:"pattern_strength" mapstructure:"pattern_strength"`
	EvidenceQuality    float64 `yaml:"evidence_quality" mapstructure:"evidence_quality"`
	HistoricalAccuracy float64 `yaml:"historical_accuracy" mapstructure:"historical_accuracy"`
}

// ScoringConfig configures the confidence scorer. The defaults are tuned
// starting points, not contracts; deployments adjust them per account base.
type ScoringConfig struct {
	HalfLifeDays     float64               `yaml:"half_life_days" mapstructure:"half_life_days"`
	MaxCorroboration int                   `yaml:"max_corroboration" mapstructure:"max_corroboration"`
	NeutralPrior     float64               `yaml:"neutral_prior" mapstructure:"neutral_prior"`
	WilsonZ          float64               `yaml:"wilson_z" mapstructure:"wilson_z"`
	Weights          ScoreWeights          `yaml:"weights" mapstructure:"weights"`
	Levels           model.LevelThresholds `yaml:"levels" mapstructure:"levels"`
}

// UrgencyConfig configures the prioritizer's urgency formula.
type UrgencyConfig struct {
	PriorityWeight       float64 `yaml:"priority_weight" mapstructure:"priority_weight"`
	TimeSensitivity      float64 `yaml:"time_sensitivity" mapstructure:"time_sensitivity"`
	AccountValue         float64 `yaml:"account_value" mapstructure:"account_value"`
	Risk                 float64 `yaml:"risk" mapstructure:"risk"`
	DeadlineHorizonDays  float64 `yaml:"deadline_horizon_days" mapstructure:"deadline_horizon_days"`
	RevenueNormalization float64 `yaml:"revenue_normalization" mapstructure:"revenue_normalization"`
}

// GateConfig configures the approval gate.
type GateConfig struct {
	AutoApproveThreshold float64 `yaml:"auto_approve_threshold" mapstructure:"auto_approve_threshold"`
}

// NotionConfig holds the review-queue database credentials.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// DataScoutConfig holds Salesforce JWT auth settings for the Data Scout.
type DataScoutConfig struct {
	ClientID string  `yaml:"client_id" mapstructure:"client_id"`
	Username string  `yaml:"username" mapstructure:"username"`
	KeyPath  string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string  `yaml:"login_url" mapstructure:"login_url"`
	RateRPS  float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
}

// MemoryAnalystConfig holds the Memory Analyst API settings.
type MemoryAnalystConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	Key     string  `yaml:"key" mapstructure:"key"`
	RateRPS float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
}

// ServerConfig configures the approval API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "advisor.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("scoring.half_life_days", 30.0)
	v.SetDefault("scoring.max_corroboration", 10)
	v.SetDefault("scoring.neutral_prior", 0.5)
	v.SetDefault("scoring.wilson_z", 1.96)
	v.SetDefault("scoring.weights.recency", 0.25)
	v.SetDefault("scoring.weights.pattern_strength", 0.25)
	v.SetDefault("scoring.weights.evidence_quality", 0.25)
	v.SetDefault("scoring.weights.historical_accuracy", 0.25)
	v.SetDefault("scoring.levels.medium", 0.5)
	v.SetDefault("scoring.levels.high", 0.7)
	v.SetDefault("scoring.levels.very_high", 0.85)
	v.SetDefault("urgency.priority_weight", 0.4)
	v.SetDefault("urgency.time_sensitivity", 0.25)
	v.SetDefault("urgency.account_value", 0.2)
	v.SetDefault("urgency.risk", 0.15)
	v.SetDefault("urgency.deadline_horizon_days", 30.0)
	v.SetDefault("urgency.revenue_normalization", 1000000.0)
	v.SetDefault("gate.auto_approve_threshold", 0.85)
	v.SetDefault("datascout.login_url", "https://login.salesforce.com")
	v.SetDefault("datascout.rate_rps", 10.0)
	v.SetDefault("memory_analyst.rate_rps", 5.0)

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
