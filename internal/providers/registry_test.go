package providers

import (
	"testing"

	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Blockchain: config.BlockchainConfig{DefaultProvider: "pinata"},
		Pinata: config.PinataConfig{
			Enabled:     true,
			APIURL:      "http://pinata.invalid",
			GatewayURL:  "http://gateway.invalid",
			JWT:         "jwt",
			MaxFileSize: 100 * 1024 * 1024,
		},
		Arweave: config.ArweaveConfig{
			Enabled:     false,
			BundlerURL:  "http://bundler.invalid",
			GatewayURL:  "http://arweave.invalid",
			MaxFileSize: 500 * 1024 * 1024,
		},
	}
}

func TestRegistryGet(t *testing.T) {
	reg, err := NewRegistry(testConfig(), logger.NewNopLogger())
	require.NoError(t, err)

	client, err := reg.Get("Pinata")
	require.NoError(t, err)
	assert.Equal(t, "pinata", client.Name())

	_, err = reg.Get("arweave")
	assert.ErrorIs(t, err, ErrProviderDisabled)

	_, err = reg.Get("dropbox")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	client, ok := reg.Lookup("arweave")
	require.True(t, ok)
	assert.True(t, client.Permanent())
}

func TestRegistryDescriptors(t *testing.T) {
	reg, err := NewRegistry(testConfig(), logger.NewNopLogger())
	require.NoError(t, err)

	descs := reg.Descriptors()
	require.Len(t, descs, 2)

	assert.Equal(t, "pinata", descs[0].Name)
	assert.True(t, descs[0].Enabled)
	assert.True(t, descs[0].Configured)
	assert.True(t, descs[0].Default)
	assert.Equal(t, "100.0 MB", descs[0].MaxFileSizeFormatted)

	assert.Equal(t, "arweave", descs[1].Name)
	assert.False(t, descs[1].Enabled)
	assert.False(t, descs[1].Configured)
	assert.True(t, descs[1].Permanent)
	assert.Equal(t, "500.0 MB", descs[1].MaxFileSizeFormatted)
}

func TestRegistryDefault(t *testing.T) {
	cfg := testConfig()
	reg, err := NewRegistry(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "pinata", reg.Resolve(""))
	assert.Equal(t, "arweave", reg.Resolve("arweave"))

	cfg.Blockchain.DefaultProvider = "filecoin"
	_, err = NewRegistry(cfg, logger.NewNopLogger())
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
