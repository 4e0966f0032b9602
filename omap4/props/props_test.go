package props

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buildProp = `
# begin build properties
ro.product.device=umts_spyder
ro.telephony.ril.v3 = writeaidonly
ro.vold.switchablepair=/mnt/sdcard,/mnt/emmc
not a property
`

func TestParsePropFile(t *testing.T) {
	values, err := ParsePropFile(strings.NewReader(buildProp))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"ro.product.device":      "umts_spyder",
		"ro.telephony.ril.v3":    "writeaidonly",
		"ro.vold.switchablepair": "/mnt/sdcard,/mnt/emmc",
	}, values)
}

func TestOpenLayersFiles(t *testing.T) {
	dir := t.TempDir()
	build := filepath.Join(dir, "build.prop")
	local := filepath.Join(dir, "local.prop")
	require.NoError(t, os.WriteFile(build, []byte(buildProp), 0o644))
	require.NoError(t, os.WriteFile(local, []byte("ro.telephony.ril.v3=writeaidonly,signalstrength"), 0o644))
	persist := filepath.Join(dir, "property")
	require.NoError(t, os.MkdirAll(persist, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(persist, "persist.sys.gsm_fix"), []byte("1\n"), 0o600))

	s, err := Open(persist, build, local, filepath.Join(dir, "missing.prop"))
	require.NoError(t, err)
	assert.Equal(t, "writeaidonly,signalstrength", s.Get("ro.telephony.ril.v3"))
	assert.Equal(t, "umts_spyder", s.Get("ro.product.device"))
	assert.Equal(t, 1, GetInt(s, "persist.sys.gsm_fix", 0))
}

func TestSetRules(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set("ro.board.platform", "omap4"))
	assert.ErrorIs(t, s.Set("ro.board.platform", "omap3"), ErrReadOnly)
	assert.Equal(t, "omap4", s.Get("ro.board.platform"))

	require.NoError(t, s.Set("telephony.lteOnCdmaDevice", "1"))
	_, err = os.Stat(filepath.Join(dir, "telephony.lteOnCdmaDevice"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Set("persist.sys.vold.switchexternal", "1"))
	b, err := os.ReadFile(filepath.Join(dir, "persist.sys.vold.switchexternal"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(b))

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "1", reopened.Get("persist.sys.vold.switchexternal"))
	assert.Equal(t, "", reopened.Get("telephony.lteOnCdmaDevice"))
}

func TestSetValidation(t *testing.T) {
	s := NewMemory(nil)
	assert.ErrorIs(t, s.Set("", "1"), ErrInvalidKey)
	assert.ErrorIs(t, s.Set("persist.sys.a..b", "1"), ErrInvalidKey)
	assert.ErrorIs(t, s.Set("persist.sys.this.name.is.far.too.long", "1"), ErrInvalidKey)
	assert.ErrorIs(t, s.Set("persist.sys.x", strings.Repeat("v", MaxValueLength+1)), ErrValueTooLong)
	assert.NoError(t, s.Set("persist.sys.x", strings.Repeat("v", MaxValueLength)))
}

func TestGetters(t *testing.T) {
	s := NewMemory(map[string]string{"a": "1", "b": "junk", "c": "off"})
	assert.Equal(t, 1, GetInt(s, "a", 0))
	assert.Equal(t, 7, GetInt(s, "b", 7))
	assert.Equal(t, 0, GetInt(s, "missing", 0))
	assert.True(t, GetBool(s, "a", false))
	assert.False(t, GetBool(s, "c", true))
	assert.True(t, GetBool(s, "b", true))
	assert.Equal(t, "fallback", GetDefault(s, "missing", "fallback"))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := Watch(ctx, dir)
	require.NoError(t, err)

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("persist.sys.gsm_fix", "1"))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Key == "persist.sys.gsm_fix" && c.Value == "1" {
				return
			}
		case <-timeout:
			t.Fatal("no change reported")
		}
	}
}
