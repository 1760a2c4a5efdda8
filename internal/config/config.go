package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN           string
		MigrationsDir string `mapstructure:"migrations_dir"`
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	// Source — откуда читаем входные таблицы: xlsx | postgres
	Source string `mapstructure:"source"`

	Workbook struct {
		Input  string
		Output string
	} `mapstructure:"workbook"`

	Allocation Allocation `mapstructure:"allocation"`
	Ranking    Ranking    `mapstructure:"ranking"`

	Reconcile struct {
		FailOnAmbiguous bool `mapstructure:"fail_on_ambiguous"`
	} `mapstructure:"reconcile"`

	Reports struct {
		BaseURL       string        `mapstructure:"base_url"`
		AccessToken   string        `mapstructure:"access_token"`
		MarketplaceID string        `mapstructure:"marketplace_id"`
		PollInterval  time.Duration `mapstructure:"poll_interval"`
		MaxAttempts   uint64        `mapstructure:"max_attempts"`
		MaxAge        time.Duration `mapstructure:"max_age"`
	} `mapstructure:"reports"`

	Schedule struct {
		Interval time.Duration
	} `mapstructure:"schedule"`
}

type Allocation struct {
	SinglePackSize   int     `mapstructure:"single_pack_size"`
	ComboPackSize    int     `mapstructure:"combo_pack_size"`
	MinThreshold     int     `mapstructure:"min_threshold"`
	YesRatio         float64 `mapstructure:"yes_ratio"`
	LeadTimeDays     float64 `mapstructure:"lead_time_days"`
	HighRiskDays     float64 `mapstructure:"high_risk_days"`
	MediumRiskDays   float64 `mapstructure:"medium_risk_days"`
	InfiniteCoverage float64 `mapstructure:"infinite_coverage"`
	ComboPackagingOz float64 `mapstructure:"combo_packaging_oz"`
	ScheduledStatus  string  `mapstructure:"scheduled_status"`
}

type Ranking struct {
	HighShare                  float64  `mapstructure:"high_share"`
	MediumShare                float64  `mapstructure:"medium_share"`
	VelocityWeight             float64  `mapstructure:"velocity_weight"`
	CoverageWeight             float64  `mapstructure:"coverage_weight"`
	TrendWeight                float64  `mapstructure:"trend_weight"`
	OutOfStockMultiplier       float64  `mapstructure:"out_of_stock_multiplier"`
	CriticalCoverageDays       float64  `mapstructure:"critical_coverage_days"`
	CriticalCoverageMultiplier float64  `mapstructure:"critical_coverage_multiplier"`
	LowCoverageDays            float64  `mapstructure:"low_coverage_days"`
	LowCoverageMultiplier      float64  `mapstructure:"low_coverage_multiplier"`
	Discontinued               []string `mapstructure:"discontinued"`
}

const (
	SourceXLSX     = "xlsx"
	SourcePostgres = "postgres"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("postgres.migrations_dir", "migrations")
	v.SetDefault("source", SourceXLSX)
	v.SetDefault("workbook.input", "data/planning.xlsx")
	v.SetDefault("workbook.output", "out")

	v.SetDefault("allocation.single_pack_size", 60)
	v.SetDefault("allocation.combo_pack_size", 8)
	v.SetDefault("allocation.min_threshold", 10)
	v.SetDefault("allocation.yes_ratio", 0.9)
	v.SetDefault("allocation.lead_time_days", 7)
	v.SetDefault("allocation.high_risk_days", 0)
	v.SetDefault("allocation.medium_risk_days", 14)
	v.SetDefault("allocation.infinite_coverage", 999)
	v.SetDefault("allocation.combo_packaging_oz", 0.43)
	v.SetDefault("allocation.scheduled_status", "Prep")

	v.SetDefault("ranking.high_share", 0.85)
	v.SetDefault("ranking.medium_share", 0.95)
	v.SetDefault("ranking.velocity_weight", 1.0)
	v.SetDefault("ranking.coverage_weight", 1.0)
	v.SetDefault("ranking.trend_weight", 1.0)
	v.SetDefault("ranking.out_of_stock_multiplier", 2.0)
	v.SetDefault("ranking.critical_coverage_days", 14)
	v.SetDefault("ranking.critical_coverage_multiplier", 1.5)
	v.SetDefault("ranking.low_coverage_days", 30)
	v.SetDefault("ranking.low_coverage_multiplier", 1.2)

	v.SetDefault("reports.base_url", "https://sellingpartnerapi-na.amazon.com")
	v.SetDefault("reports.poll_interval", 30*time.Second)
	v.SetDefault("reports.max_attempts", 20)
	v.SetDefault("reports.max_age", 24*time.Hour)
}

func Load(path string) (Config, error) {
	// .env необязателен — если файла нет, работаем с окружением как есть
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Source {
	case SourceXLSX, SourcePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}
	if c.Source == SourcePostgres && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required for postgres source"))
	}
	a := c.Allocation
	if a.SinglePackSize < 0 || a.ComboPackSize < 0 || a.MinThreshold < 0 {
		errs = append(errs, errors.New("allocation pack sizes and min_threshold must be >= 0"))
	}
	if a.YesRatio <= 0 || a.YesRatio > 1 {
		errs = append(errs, fmt.Errorf("allocation.yes_ratio must be in (0,1], got %v", a.YesRatio))
	}
	if a.HighRiskDays > a.MediumRiskDays {
		errs = append(errs, errors.New("allocation.high_risk_days must be <= medium_risk_days"))
	}
	r := c.Ranking
	if r.HighShare <= 0 || r.HighShare > r.MediumShare || r.MediumShare > 1 {
		errs = append(errs, fmt.Errorf("ranking shares must satisfy 0 < high (%v) <= medium (%v) <= 1", r.HighShare, r.MediumShare))
	}
	return errors.Join(errs...)
}
