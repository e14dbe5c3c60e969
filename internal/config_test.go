package internal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddressToID(t *testing.T) {
	req := require.New(t)

	// Given a loopback address and a port
	id, err := AddressToID("127.0.0.1", 8080)

	// Then the address fills the high bits and the port the low 16
	req.NoError(err)
	req.Equal(int64(0x7f000001)<<16|8080, id)
	req.Equal(int64(8080), id&0xffff)
}

func TestAddressToID_DistinctPorts(t *testing.T) {
	req := require.New(t)

	a, err := AddressToID("10.0.0.5", 9000)
	req.NoError(err)
	b, err := AddressToID("10.0.0.5", 9001)
	req.NoError(err)

	req.NotEqual(a, b)
}

func TestAddressToID_RejectsIPv6(t *testing.T) {
	req := require.New(t)

	_, err := AddressToID("::1", 8080)

	req.Error(err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(BrokerBadger, config.Broker)
	req.Equal(8, config.ShardCount)
	req.Equal(":quit!", config.QuitSentinel)
	req.Equal(int64(0x7f000001)<<16|9000, config.ServerID)
	req.Equal(fmt.Sprintf("gw-%d", config.ServerID), config.BusOptions().Subscriber)
}

func TestLoadConfig_RejectsUnknownBroker(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("BROKER", "kafka")

	_, err := LoadConfig()

	req.Error(err)
}

func TestLoadConfig_JetStreamNeedsNoBadgerPath(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "")
	t.Setenv("BROKER", "jetstream")
	t.Setenv("NATS_URL", "nats://10.0.0.2:4222")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal("chat", config.KVPrefix)
	req.Equal(15*time.Second, config.OrchestratorConfig().ServerLease)
}

func TestLoadConfig_BadgerNeedsPath(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "")

	_, err := LoadConfig()

	req.Error(err)
}
