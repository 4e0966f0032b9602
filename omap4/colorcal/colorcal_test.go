package colorcal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSysfs(t *testing.T, coef string) Calibration {
	t.Helper()
	root := t.TempDir()
	c := New(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(c.CoefPath), 0o755))
	require.NoError(t, os.WriteFile(c.CoefPath, []byte(coef), 0o644))
	require.NoError(t, os.WriteFile(c.EnablePath, []byte("0"), 0o644))
	return c
}

func TestCapabilities(t *testing.T) {
	c := New(DefaultSysfsRoot)
	assert.True(t, c.IsSupported())
	assert.Equal(t, 256, c.MaxValue())
	assert.Equal(t, 0, c.MinValue())
	assert.Equal(t, 256, c.DefValue())
	assert.Equal(t, "/sys/devices/platform/omapdss/manager0/cpr_coef", c.CoefPath)
	assert.Equal(t, "/sys/devices/platform/omapdss/manager0/cpr_enable", c.EnablePath)
}

func TestCurColors(t *testing.T) {
	c := newSysfs(t, "256 1 2 3 240 -5 6 7 -512\n")
	colors, err := c.CurColors()
	require.NoError(t, err)
	assert.Equal(t, "256 240 -512", colors)
}

func TestCurColorsMalformed(t *testing.T) {
	for _, coef := range []string{"", "256 0 0 0 256 0 0 0", "256"} {
		c := newSysfs(t, coef)
		_, err := c.CurColors()
		assert.ErrorIs(t, err, ErrMalformedCoefficients, coef)
	}
}

func TestSetColorsRoundTrip(t *testing.T) {
	for _, rgb := range []string{"256 256 256", "200 -17 511", "0 0 0"} {
		t.Run(rgb, func(t *testing.T) {
			c := newSysfs(t, "256 0 0 0 256 0 0 0 256")
			require.NoError(t, c.SetColors(rgb))
			got, err := c.CurColors()
			require.NoError(t, err)
			assert.Equal(t, rgb, got)
			enabled, err := os.ReadFile(c.EnablePath)
			require.NoError(t, err)
			assert.Equal(t, "1", string(enabled))
		})
	}
}

func TestSetColorsExpandsDiagonal(t *testing.T) {
	c := newSysfs(t, "256 0 0 0 256 0 0 0 256")
	require.NoError(t, c.SetColors("10 20 30"))
	b, err := os.ReadFile(c.CoefPath)
	require.NoError(t, err)
	assert.Equal(t, "10 0 0 0 20 0 0 0 30", string(b))
}

func TestSetColorsRejectsWrongArity(t *testing.T) {
	c := newSysfs(t, "256 0 0 0 256 0 0 0 256")
	for _, rgb := range []string{"", "1 2", "1 2 3 4"} {
		assert.ErrorIs(t, c.SetColors(rgb), ErrInvalidColors)
	}
	b, err := os.ReadFile(c.EnablePath)
	require.NoError(t, err)
	assert.Equal(t, "0", string(b))
}

func TestSetColorsShortCircuits(t *testing.T) {
	c := newSysfs(t, "256 0 0 0 256 0 0 0 256")
	require.NoError(t, os.Remove(c.CoefPath))
	assert.Error(t, c.SetColors("1 2 3"))
	b, err := os.ReadFile(c.EnablePath)
	require.NoError(t, err)
	assert.Equal(t, "0", string(b))
	_, err = os.Stat(c.CoefPath)
	assert.True(t, os.IsNotExist(err))
}
