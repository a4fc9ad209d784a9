package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, DefaultSize, cfg.Size)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPrimaryBase, cfg.PrimaryBase)
	assert.Equal(t, DefaultSecondaryBase, cfg.SecondaryBase)
}

func TestAddrDerivation(t *testing.T) {
	cfg := Config{Size: 4, Host: "127.0.0.1", PrimaryBase: 9000, SecondaryBase: 10000}

	assert.Equal(t, "127.0.0.1:9002", cfg.PrimaryAddr(2).String())
	assert.Equal(t, "127.0.0.1:10002", cfg.SecondaryAddr(2).String())
}

func TestNext_WrapsAroundTheRing(t *testing.T) {
	cfg := Config{Size: 4}
	assert.Equal(t, uint16(1), cfg.Next(0))
	assert.Equal(t, uint16(2), cfg.Next(1))
	assert.Equal(t, uint16(3), cfg.Next(2))
	assert.Equal(t, uint16(0), cfg.Next(3))
}

func TestValidate(t *testing.T) {
	cfg := Config{Size: 4}
	assert.NoError(t, cfg.Validate(0))
	assert.NoError(t, cfg.Validate(3))
	assert.Error(t, cfg.Validate(4))
}

func TestParseStoreID(t *testing.T) {
	id, err := ParseStoreID("2")
	require.NoError(t, err)
	assert.Equal(t, uint16(2), id)

	_, err = ParseStoreID("not-a-number")
	assert.Error(t, err)
}

func TestLoad_FallsBackToDefaultsWithoutAConfigFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)
}
