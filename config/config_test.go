package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	// set up some defaults
	cfg := DefaultConfig()
	assert.NotNil(cfg.Peer)
	assert.NotNil(cfg.Trust)
	assert.NotNil(cfg.Schedule)

	// check the root dir stuff...
	cfg.SetRoot("/foo")
	cfg.NodeKey = "bar"
	cfg.DBPath = "/opt/data"

	assert.Equal("/foo/bar", cfg.NodeKeyFile())
	assert.Equal("/opt/data", cfg.DBDir())
	assert.NoError(cfg.ValidateBasic())
}

func TestConfigValidateBasic(t *testing.T) {
	cfg := TestConfig()
	assert.NoError(t, cfg.ValidateBasic())

	// tamper with a section
	cfg.Trust.Alpha = 2
	err := cfg.ValidateBasic()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[trust]")
}

func TestBaseConfigValidateBasic(t *testing.T) {
	cfg := TestBaseConfig()
	assert.NoError(t, cfg.ValidateBasic())

	// tamper with log format
	cfg.LogFormat = "invalid"
	assert.Error(t, cfg.ValidateBasic())
}

func TestPeerConfigValidateBasic(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(*PeerConfig)
		wantErr bool
	}{
		{"default", func(*PeerConfig) {}, false},
		{"no endpoint", func(c *PeerConfig) { c.Endpoint = "" }, true},
		{"bad laddr", func(c *PeerConfig) { c.ListenAddress = "nowhere" }, true},
		{"zero connect timeout", func(c *PeerConfig) { c.ConnectTimeout = 0 }, true},
		{"zero read timeout", func(c *PeerConfig) { c.ReadTimeout = 0 }, true},
		{"zero selection", func(c *PeerConfig) { c.ChainSyncNodes = 0 }, true},
		{"negative importance", func(c *PeerConfig) { c.MinImportance = -1 }, true},
		{"negative new nodes", func(c *PeerConfig) { c.MaxNewNodes = -1 }, true},
		{"zero retention", func(c *PeerConfig) { c.ExperienceRetention = 0 }, true},
		{"malformed seed", func(c *PeerConfig) { c.PreTrustedNodes = "http://a:1" }, true},
		{"seeds", func(c *PeerConfig) { c.PreTrustedNodes = "aa@http://a:1, bb@http://b:2" }, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultPeerConfig()
			tc.modify(cfg)
			assert.Equal(t, tc.wantErr, cfg.ValidateBasic() != nil)
		})
	}
}

func TestPreTrustedNodeList(t *testing.T) {
	cfg := DefaultPeerConfig()
	assert.Empty(t, cfg.PreTrustedNodeList())

	cfg.PreTrustedNodes = " aa@http://a:1 ,, bb@http://b:2,"
	assert.Equal(t, []string{"aa@http://a:1", "bb@http://b:2"}, cfg.PreTrustedNodeList())
}

func TestTrustConfigValidateBasic(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*TrustConfig)
	}{
		{"iterations", func(c *TrustConfig) { c.MaxIterations = 0 }},
		{"alpha below", func(c *TrustConfig) { c.Alpha = -0.1 }},
		{"alpha above", func(c *TrustConfig) { c.Alpha = 1.1 }},
		{"epsilon", func(c *TrustConfig) { c.Epsilon = 0 }},
		{"min communication", func(c *TrustConfig) { c.MinCommunication = -1 }},
		{"low com weight", func(c *TrustConfig) { c.LowComWeight = 101 }},
	}

	assert.NoError(t, DefaultTrustConfig().ValidateBasic())
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultTrustConfig()
			tc.modify(cfg)
			assert.Error(t, cfg.ValidateBasic())
		})
	}
}

func TestSyncConfig(t *testing.T) {
	cfg := DefaultSyncConfig()
	ts, err := cfg.GenesisTimestamp()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2015, 3, 29, 0, 6, 25, 0, time.UTC), ts.UTC())
	assert.NoError(t, cfg.ValidateBasic())

	cfg.GenesisTime = "yesterday"
	assert.Error(t, cfg.ValidateBasic())
}

func TestScheduleConfigValidateBasic(t *testing.T) {
	assert.NoError(t, DefaultScheduleConfig().ValidateBasic())
	assert.NoError(t, TestScheduleConfig().ValidateBasic())

	cfg := DefaultScheduleConfig()
	cfg.RefreshMaxInterval = cfg.RefreshMinInterval / 2
	assert.Error(t, cfg.ValidateBasic())

	cfg = DefaultScheduleConfig()
	cfg.PruneInterval = 0
	assert.Error(t, cfg.ValidateBasic())

	cfg = DefaultScheduleConfig()
	cfg.Workers = 0
	assert.Error(t, cfg.ValidateBasic())
}

func TestInstrumentationConfigValidateBasic(t *testing.T) {
	cfg := TestInstrumentationConfig()
	assert.NoError(t, cfg.ValidateBasic())

	// tamper with maximum open connections
	cfg.MaxOpenConnections = -1
	assert.Error(t, cfg.ValidateBasic())
}
