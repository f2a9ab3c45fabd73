package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// Config 应用程序配置结构
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Source   Source   `yaml:"source"`
	Engine   Engine   `yaml:"engine"`
	Telegram Telegram `yaml:"telegram"`
	App      App      `yaml:"app"`
}

// Storage 开奖历史与base存储配置
type Storage struct {
	Driver    string        `yaml:"driver"` // file 或 mysql
	DataDir   string        `yaml:"data_dir"`
	DrawsFile string        `yaml:"draws_file"`
	CacheTTL  time.Duration `yaml:"cache_ttl"` // 负数表示不缓存
	MySQL     Database      `yaml:"mysql"`
}

// Database 数据库配置
type Database struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Database        string        `yaml:"database"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Source 开奖结果来源配置
type Source struct {
	URL               string        `yaml:"url"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxDaysBack       int           `yaml:"max_days_back"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// Engine 选号引擎配置
type Engine struct {
	DefaultStrategy     string   `yaml:"default_strategy"`
	Strategies          []string `yaml:"strategies"`
	RecentN             int      `yaml:"recent_n"`
	BacktestRounds      int      `yaml:"backtest_rounds"`
	Predictions         int      `yaml:"predictions"`
	PredictionsPerRound int      `yaml:"predictions_per_round"`
	Seed                int64    `yaml:"seed"` // 0 表示使用当前时间
}

// Telegram Bot配置
type Telegram struct {
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// App 应用程序配置
type App struct {
	LogLevel       string `yaml:"log_level"`
	MetricsAddr    string `yaml:"metrics_addr"`
	UpdateSchedule string `yaml:"update_schedule"` // cron 表达式，为空时不自动更新
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default 返回全部使用默认值的配置
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为未设置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.DrawsFile == "" {
		c.Storage.DrawsFile = filepath.Join(c.Storage.DataDir, "draws.txt")
	}
	if c.Storage.CacheTTL == 0 {
		c.Storage.CacheTTL = 5 * time.Minute
	}
	if c.Storage.MySQL.Port == 0 {
		c.Storage.MySQL.Port = 3306
	}

	if c.Source.URL == "" {
		c.Source.URL = "https://gdlotto.net/results/ajax/_result.aspx"
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = "Mozilla/5.0"
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 5 * time.Second
	}
	if c.Source.MaxDaysBack == 0 {
		c.Source.MaxDaysBack = 30
	}
	if c.Source.RequestsPerSecond == 0 {
		c.Source.RequestsPerSecond = 2
	}

	if c.Engine.DefaultStrategy == "" {
		c.Engine.DefaultStrategy = "frequency"
	}
	if len(c.Engine.Strategies) == 0 {
		c.Engine.Strategies = []string{"frequency", "gap", "hybrid", "qaisara", "smartpattern"}
	}
	if c.Engine.RecentN == 0 {
		c.Engine.RecentN = 20
	}
	if c.Engine.BacktestRounds == 0 {
		c.Engine.BacktestRounds = 10
	}
	if c.Engine.Predictions == 0 {
		c.Engine.Predictions = 10
	}

	if c.Telegram.Timeout == 0 {
		c.Telegram.Timeout = 60 * time.Second
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "file", "mysql":
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	if c.Engine.RecentN < 1 {
		return fmt.Errorf("engine.recent_n must be positive, got %d", c.Engine.RecentN)
	}
	if c.Engine.BacktestRounds < 1 {
		return fmt.Errorf("engine.backtest_rounds must be positive, got %d", c.Engine.BacktestRounds)
	}
	if c.Source.RequestsPerSecond < 0 {
		return fmt.Errorf("source.requests_per_second must not be negative")
	}
	return nil
}

// GetDSN 获取数据库连接字符串
func (d *Database) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}
