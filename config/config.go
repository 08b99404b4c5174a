package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server Server   `mapstructure:"server"`
	Store  Store    `mapstructure:"store"`
	Game   Game     `mapstructure:"game"`
	Admins []string `mapstructure:"admins"`
}

type Server struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MonitorAddress string `mapstructure:"monitor_address"`
}

type Store struct {
	// Backend selects the key-value implementation: redis, postgres,
	// gorm or memory.
	Backend  string   `mapstructure:"backend"`
	Redis    Redis    `mapstructure:"redis"`
	Postgres Postgres `mapstructure:"postgres"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type Game struct {
	TurnTimeoutSeconds   int `mapstructure:"turn_timeout_seconds"`
	SolveTimeoutSeconds  int `mapstructure:"solve_timeout_seconds"`
	MaxTimeouts          int `mapstructure:"max_timeouts"`
	MatchTTLSeconds      int `mapstructure:"match_ttl_seconds"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	DefaultWinLimit      int `mapstructure:"default_win_limit"`
	LetterReward         int `mapstructure:"letter_reward"`
	SolveReward          int `mapstructure:"solve_reward"`
}

func (g Game) TurnTimeout() time.Duration {
	return time.Duration(g.TurnTimeoutSeconds) * time.Second
}

func (g Game) SolveTimeout() time.Duration {
	return time.Duration(g.SolveTimeoutSeconds) * time.Second
}

func (g Game) MatchTTL() time.Duration {
	return time.Duration(g.MatchTTLSeconds) * time.Second
}

func (g Game) SweepInterval() time.Duration {
	return time.Duration(g.SweepIntervalSeconds) * time.Second
}

func setDefaults() {
	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.monitor_address", ":9100")
	viper.SetDefault("store.backend", "redis")
	viper.SetDefault("store.redis.addr", "localhost:6379")
	viper.SetDefault("game.turn_timeout_seconds", 90)
	viper.SetDefault("game.solve_timeout_seconds", 60)
	viper.SetDefault("game.max_timeouts", 3)
	viper.SetDefault("game.match_ttl_seconds", 86400)
	viper.SetDefault("game.sweep_interval_seconds", 15)
	viper.SetDefault("game.default_win_limit", 10)
	viper.SetDefault("game.letter_reward", 1)
	viper.SetDefault("game.solve_reward", 3)
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaults()
	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		// A missing file is fine, the defaults cover local runs.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	err = viper.Unmarshal(&config)
	return
}
