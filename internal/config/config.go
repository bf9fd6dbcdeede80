package config

import (
	"bytes"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppCfg struct {
	Name string
	Env  string
	Host string
	Port int
	// PublicURL is the front end origin used in invite links. Empty derives it from the request.
	PublicURL string
}

type RootCfg struct {
	// ApiBearerToken is shared with the trusted front end and the agent runner.
	ApiBearerToken string
}

type LogCfg struct {
	Level string
}

type DBCfg struct {
	DSN         string
	MaxOpen     int
	MaxIdle     int
	AutoMigrate bool
}

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type MQQueue struct {
	AgentCallback string
}

type MQCfg struct {
	URL      string
	Prefetch int
	Queue    MQQueue
}

type S3Cfg struct {
	Endpoint         string
	Region           string
	AccessKey        string
	SecretKey        string
	Bucket           string
	UsePathStyle     bool
	PresignExpireSec int
	SSE              string
}

type TelemetryCfg struct {
	Enabled      bool
	OtlpEndpoint string
	SampleRatio  float64
}

type OpenAICfg struct {
	APIKey  string
	BaseURL string
	Model   string
}

type AgentCfg struct {
	// Driver selects the agent capability: "http" (remote runner) or "openai".
	Driver           string
	RunnerURL        string
	RunnerToken      string
	InvokeTimeoutSec int
	HistoryLimit     int
	HistoryMaxChars  int
	OpenAI           OpenAICfg
}

func (a AgentCfg) InvokeTimeout() time.Duration {
	if a.InvokeTimeoutSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.InvokeTimeoutSec) * time.Second
}

type BroadcastCfg struct {
	SubscriberBuffer int
	RelayEnabled     bool
	RelayChannel     string
	KeepaliveSec     int
}

func (b BroadcastCfg) Keepalive() time.Duration {
	if b.KeepaliveSec <= 0 {
		return 25 * time.Second
	}
	return time.Duration(b.KeepaliveSec) * time.Second
}

type ArtifactCfg struct {
	// InlineContentLimit is the largest content (bytes) stored in the row; larger
	// content goes to S3 when a bucket is configured. Zero disables offloading.
	InlineContentLimit int
}

type Config struct {
	App       AppCfg
	Root      RootCfg
	Log       LogCfg
	Database  DBCfg
	Redis     RedisCfg
	RabbitMQ  MQCfg
	S3        S3Cfg
	Telemetry TelemetryCfg
	Agent     AgentCfg
	Broadcast BroadcastCfg
	Artifact  ArtifactCfg
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	base := viper.New()
	base.SetConfigName("config")
	base.SetConfigType("yaml")
	base.AddConfigPath("./configs")
	base.AddConfigPath(".")
	base.AutomaticEnv()
	base.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	base.SetEnvPrefix("APP") // e.g. APP_APP_PORT -> app.port

	setDefaults(base)

	if err := base.ReadInConfig(); err == nil {
		// Expand ${ENV} references once before parsing.
		path := base.ConfigFileUsed()
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		expanded := os.ExpandEnv(string(raw))

		v := viper.New()
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, err
		}
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.SetEnvPrefix("APP")
		setDefaults(v)

		cfg := new(Config)
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// No config file: env + defaults only
	cfg := new(Config)
	if err := base.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "oz-workspace-api")
	v.SetDefault("app.env", "debug")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.maxOpen", 20)
	v.SetDefault("database.maxIdle", 5)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("rabbitmq.prefetch", 10)
	v.SetDefault("rabbitmq.queue.agentCallback", "agent_callback")
	v.SetDefault("s3.region", "auto")
	v.SetDefault("s3.usePathStyle", true)
	v.SetDefault("s3.presignExpireSec", 900)
	v.SetDefault("telemetry.sampleRatio", 1.0)
	v.SetDefault("agent.driver", "http")
	v.SetDefault("agent.invokeTimeoutSec", 300)
	v.SetDefault("agent.historyLimit", 20)
	v.SetDefault("agent.historyMaxChars", 4000)
	v.SetDefault("agent.openai.model", "gpt-4o")
	v.SetDefault("broadcast.subscriberBuffer", 64)
	v.SetDefault("broadcast.relayChannel", "oz:events")
	v.SetDefault("broadcast.keepaliveSec", 25)
	v.SetDefault("artifact.inlineContentLimit", 64*1024)
}
