package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 60, cfg.Task.Interval)
	assert.Equal(t, 300, cfg.Auth.NonceTTLSeconds)
	assert.False(t, cfg.Email.Enabled)
	assert.Equal(t, map[string]int32{"USDC": 6, "SOL": 9}, cfg.Currencies)
}

func TestDecodeYAMLAndEnv(t *testing.T) {
	t.Setenv("TITAFLOW_AUTH_JWT_SECRET", "from-env")

	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	v.SetEnvPrefix("titaflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	require.NoError(t, v.ReadConfig(strings.NewReader(`
server:
  port: "9090"
  cors: ["https://app.example"]
currencies:
  usdc: 6
  bonk: 5
`)))

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example"}, cfg.Server.Cors)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	// 币种代码统一大写
	assert.Equal(t, int32(6), cfg.Currencies["USDC"])
	assert.Equal(t, int32(5), cfg.Currencies["BONK"])
	assert.NotContains(t, cfg.Currencies, "bonk")
}
