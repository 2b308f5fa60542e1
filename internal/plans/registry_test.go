package plans

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlansFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writePlansFile(t, `{
		"plans": [
			{"id": "pro-monthly", "name": "Pro Monthly", "stripe_price_id": "price_monthly", "interval": "month"},
			{"id": "pro-yearly", "name": "Pro Yearly", "stripe_price_id": "price_yearly", "interval": "year"}
		]
	}`)

	registry, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.True(t, registry.Exists("pro-monthly"))
	assert.True(t, registry.Exists("pro-yearly"))
	assert.False(t, registry.Exists("enterprise"))

	plan := registry.Get("pro-monthly")
	require.NotNil(t, plan)
	assert.Equal(t, "Pro Monthly", plan.Name)
	assert.Equal(t, "month", plan.Interval)

	assert.Equal(t, "price_yearly", registry.PriceID("pro-yearly"))
	assert.Empty(t, registry.PriceID("enterprise"))

	assert.Len(t, registry.All(), 2)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := writePlansFile(t, `{"plans": [`)
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestRegisterOverwrites(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&Plan{ID: "pro", StripePriceID: "price_old"})
	registry.Register(&Plan{ID: "pro", StripePriceID: "price_new"})

	assert.Equal(t, "price_new", registry.PriceID("pro"))
	assert.Len(t, registry.All(), 1)
}
