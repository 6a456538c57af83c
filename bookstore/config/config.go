package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/cache"
	"github.com/Astemirdum/bookstore-service/pkg/auth0"
	"github.com/Astemirdum/bookstore-service/pkg/kafka"
	"github.com/Astemirdum/bookstore-service/pkg/logger"
	"github.com/Astemirdum/bookstore-service/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"BOOKSTORE_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"BOOKSTORE_HTTP_PORT" default:"5000"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration
}

type Bookstore struct {
	// AdminKey promotes a logging-in user to admin. Empty disables promotion.
	AdminKey     string `yaml:"adminKey" envconfig:"BOOKSTORE_ADMIN_KEY" json:"-"`
	EnforceAdmin bool   `yaml:"enforceAdmin" envconfig:"BOOKSTORE_ENFORCE_ADMIN" default:"false"`
}

type Config struct {
	Server    HTTPServer   `yaml:"server"`
	Database  postgres.DB  `yaml:"db"`
	Redis     cache.Config `yaml:"redis"`
	Kafka     kafka.Config `yaml:"kafka"`
	Auth0     auth0.Config `yaml:"auth0"`
	Bookstore Bookstore    `yaml:"bookstore"`
	Log       logger.Log   `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
