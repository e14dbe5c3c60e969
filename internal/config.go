package internal

import (
	"chat-gateway/bus"
	"chat-gateway/domain"
	"chat-gateway/runtime"
	"fmt"
	"net"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BrokerBadger    = "badger"
	BrokerJetStream = "jetstream"
)

type Config struct {
	Host           string `env:"HOST,default=127.0.0.1" validate:"required"`
	Port           int    `env:"PORT,default=8080" validate:"min=1,max=65535"`
	HealthPort     int    `env:"HEALTH_PORT,default=8081" validate:"min=1,max=65535"`
	ServerID       int64  `env:"SERVER_ID,default=0" validate:"min=0"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath string `env:"BADGER_FILEPATH" validate:"required_if=Broker badger"`

	Broker          string        `env:"BROKER,default=badger" validate:"oneof=badger jetstream"`
	NatsURL         string        `env:"NATS_URL,default=nats://127.0.0.1:4222" validate:"required_if=Broker jetstream"`
	Stream          string        `env:"NATS_STREAM,default=CHAT"`
	KVPrefix        string        `env:"NATS_KV_PREFIX,default=chat"`
	BrokerRetention time.Duration `env:"BROKER_RETENTION,default=720h"`

	TopicPattern           string        `env:"TOPIC_PATTERN,default=chat" validate:"required"`
	ShardCount             int           `env:"SHARD_COUNT,default=8" validate:"min=1"`
	WorkerCount            int           `env:"WORKER_COUNT,default=4" validate:"min=1"`
	RelayInterval          time.Duration `env:"RELAY_INTERVAL,default=80ms" validate:"gt=0"`
	PollMaxRecords         int           `env:"POLL_MAX_RECORDS,default=100" validate:"min=1"`
	ConsumerCommitCount    int           `env:"CONSUMER_COMMIT_COUNT,default=100" validate:"min=0"`
	ConsumerCommitInterval time.Duration `env:"CONSUMER_COMMIT_INTERVAL,default=1s"`
	ProducerCommitCount    int           `env:"PRODUCER_COMMIT_COUNT,default=0" validate:"min=0"`
	ProducerCommitInterval time.Duration `env:"PRODUCER_COMMIT_INTERVAL,default=0s"`

	ReplayMaxAge         time.Duration `env:"REPLAY_MAX_AGE,default=720h" validate:"gt=0"`
	AccessTokenTTL       time.Duration `env:"ACCESS_TOKEN_TTL,default=8s" validate:"gt=0"`
	MaxGroupMembers      int           `env:"MAX_GROUP_MEMBERS,default=1000" validate:"min=1"`
	QuitSentinel         string        `env:"QUIT_SENTINEL,default=:quit!" validate:"required"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256" validate:"min=1"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=5s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	ServerLease          time.Duration `env:"SERVER_LEASE,default=15s" validate:"gt=0"`
}

// LoadConfig reads an optional .env file, then the environment, and validates the result.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if config.ServerID == 0 {
		id, err := AddressToID(config.Host, config.Port)
		if err != nil {
			return Config{}, err
		}
		config.ServerID = id
	}
	return config, nil
}

// AddressToID derives a server id from an IPv4 address and a port: the address
// in the high bits, the port in the low 16.
func AddressToID(host string, port int) (int64, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		addrs, err := net.LookupIP(host)
		if err != nil || len(addrs) == 0 {
			return 0, fmt.Errorf("resolve host %q: %w", host, err)
		}
		ip = addrs[0]
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("host %q is not an IPv4 address", host)
	}
	addr := int64(v4[0])<<24 | int64(v4[1])<<16 | int64(v4[2])<<8 | int64(v4[3])
	return addr<<16 | int64(port&0xffff), nil
}

func (c Config) BusOptions() bus.Options {
	return bus.Options{
		TopicPattern:   c.TopicPattern,
		ShardCount:     c.ShardCount,
		Subscriber:     fmt.Sprintf("gw-%d", c.ServerID),
		PollMaxRecords: c.PollMaxRecords,
		ConsumerCommit: bus.CommitPolicy{MaxRecords: c.ConsumerCommitCount, MaxInterval: c.ConsumerCommitInterval},
		ProducerCommit: bus.CommitPolicy{MaxRecords: c.ProducerCommitCount, MaxInterval: c.ProducerCommitInterval},
	}
}

func (c Config) OrchestratorConfig() runtime.OrchestratorConfig {
	return runtime.OrchestratorConfig{
		Server: domain.Server{ID: c.ServerID, Host: c.Host, Port: c.Port},
		Session: runtime.SessionConfig{
			ServerID:     c.ServerID,
			ReplayMaxAge: c.ReplayMaxAge,
			QuitSentinel: c.QuitSentinel,
			MaxMembers:   c.MaxGroupMembers,
		},
		WorkerCount:     c.WorkerCount,
		RelayInterval:   c.RelayInterval,
		AccessTokenTTL:  c.AccessTokenTTL,
		MaxGroupMembers: c.MaxGroupMembers,
		ServerLease:     c.ServerLease,
	}
}
