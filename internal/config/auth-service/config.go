package auth_service_config

import (
	"time"

	"github.com/mkshuvo/e-commerce-store-sub001/internal/obs"
	kafkarepo "github.com/mkshuvo/e-commerce-store-sub001/internal/repository/kafka"
	pg "github.com/mkshuvo/e-commerce-store-sub001/internal/repository/postgres"
	redisrepo "github.com/mkshuvo/e-commerce-store-sub001/internal/repository/redis"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Auth is the configuration surface of the identity core. Secret is the
// symmetric signing key and must never be logged.
type Auth struct {
	Secret      string        `mapstructure:"secret"`
	Issuer      string        `mapstructure:"issuer"`
	Audience    string        `mapstructure:"audience"`
	AccessTTL   time.Duration `mapstructure:"access_ttl"`
	RefreshTTL  time.Duration `mapstructure:"refresh_ttl"`
	ClockSkew   time.Duration `mapstructure:"clock_skew"`
	ServiceKeys []string      `mapstructure:"service_keys"`
}

type Config struct {
	App    App              `mapstructure:"app"`
	Server Server           `mapstructure:"server"`
	DB     pg.Config        `mapstructure:"db"`
	Redis  redisrepo.Config `mapstructure:"redis"`
	Kafka  kafkarepo.Config `mapstructure:"kafka"`
	OTEL   OTEL             `mapstructure:"otel"`
	Log    Log              `mapstructure:"log"`
	Auth   Auth             `mapstructure:"auth"`
}
