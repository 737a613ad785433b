package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type Config struct {
	LogLevel string `yaml:"log-level" env-default:"info"`
	Port     string `yaml:"port" env-default:"8002"`
	// IdleTimeout is the per-connection read deadline; zero disables it.
	IdleTimeout time.Duration `yaml:"idle-timeout" env-default:"10m"`
	Storage     Storage       `yaml:"storage"`
}

type Storage struct {
	Type       string `yaml:"type" env-default:"sqlite"`
	SQLitePath string `yaml:"sqlite-path" env-default:"users.db"`
	Redis      Redis  `yaml:"redis"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
