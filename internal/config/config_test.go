package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDurationAcceptsDaySuffix(t *testing.T) {
	t.Setenv("TEST_DURATION", "7d")
	assert.Equal(t, 7*24*time.Hour, getDuration("TEST_DURATION", time.Hour))

	t.Setenv("TEST_DURATION", "90m")
	assert.Equal(t, 90*time.Minute, getDuration("TEST_DURATION", time.Hour))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Hour, getDuration("TEST_DURATION", time.Hour))
}

func TestValidateOnlyInProduction(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.NoError(t, cfg.Validate())

	cfg.Env = "production"
	cfg.MongoURI = "mongodb://db"
	cfg.RPCURL = "http://rpc"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "SUBSCRIPTION_ADDRESS")
	assert.NotContains(t, err.Error(), "MONGODB_URI")
}

func TestIsAdminIgnoresCase(t *testing.T) {
	cfg := &Config{AdminAddresses: lowerAll(splitList(" 0xABC , 0xdef,"))}
	assert.True(t, cfg.IsAdmin("0xabc"))
	assert.True(t, cfg.IsAdmin("0xDEF"))
	assert.False(t, cfg.IsAdmin("0x123"))
}

func TestLoadContractAddresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addresses.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"DXToken":"0x1","NFTMedia":"0x2","Marketplace":"0x3","Subscription":"0x4"}`), 0o600))

	addrs, err := loadContractAddresses(path)
	require.NoError(t, err)
	assert.True(t, addrs.Complete())
	assert.Equal(t, "0x3", addrs.Marketplace)

	_, err = loadContractAddresses(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
