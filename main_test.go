package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/docopt/docopt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) docopt.Opts {
	t.Helper()
	parser := &docopt.Parser{HelpHandler: func(err error, usage string) {
		require.NoError(t, err, usage)
	}}
	opts, err := parser.ParseArgs(fmt.Sprintf(usage, version), args, version)
	require.NoError(t, err)
	return opts
}

type device struct {
	root    string
	persist string
	build   string
	local   string
	sysfs   string
}

func newDevice(t *testing.T, buildProp string) device {
	root := t.TempDir()
	d := device{
		root:    root,
		persist: filepath.Join(root, "data", "property"),
		build:   filepath.Join(root, "system", "build.prop"),
		local:   filepath.Join(root, "data", "local.prop"),
		sysfs:   filepath.Join(root, "sys"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(d.build), 0o755))
	require.NoError(t, os.WriteFile(d.build, []byte(buildProp), 0o644))
	return d
}

func (d device) args(args ...string) []string {
	return append(args,
		"--nojson",
		"--persist-dir="+d.persist,
		"--build-prop="+d.build,
		"--local-prop="+d.local,
		"--sysfs="+d.sysfs,
		"--socket="+filepath.Join(d.root, "motorild"),
	)
}

func TestPropsSet(t *testing.T) {
	d := newDevice(t, "ro.product.device=umts_spyder\n")

	assert.Equal(t, 0, run(parse(t, d.args("props", "set", "persist.sys.gsm_fix", "1")...)))
	value, err := os.ReadFile(filepath.Join(d.persist, "persist.sys.gsm_fix"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(value))

	assert.Equal(t, 0, run(parse(t, d.args("props", "get", "ro.product.device")...)))
}

func TestSettingsSet(t *testing.T) {
	d := newDevice(t, "ro.product.device=umts_maserati\nro.telephony.ril.v3=writeaidonly\n")

	assert.Equal(t, 0, run(parse(t, d.args("settings", "set", "gsm_signalstrength", "on")...)))
	local, err := os.ReadFile(d.local)
	require.NoError(t, err)
	assert.Equal(t, "ro.telephony.ril.v3=writeaidonly,signalstrength", string(local))

	value, err := os.ReadFile(filepath.Join(d.persist, "persist.sys.gsm_fix"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(value))
}

func TestColorSet(t *testing.T) {
	d := newDevice(t, "")
	dir := filepath.Join(d.sysfs, "devices/platform/omapdss/manager0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cpr_coef"), []byte("256 0 0 0 256 0 0 0 256\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cpr_enable"), []byte("0\n"), 0o644))

	assert.Equal(t, 0, run(parse(t, d.args("color", "set", "200", "210", "220")...)))
	coef, err := os.ReadFile(filepath.Join(dir, "cpr_coef"))
	require.NoError(t, err)
	assert.Equal(t, "200 0 0 0 210 0 0 0 220", string(coef))

	assert.Equal(t, 0, run(parse(t, d.args("color", "get")...)))
}

func TestMotorilcUsage(t *testing.T) {
	d := newDevice(t, "")
	assert.Equal(t, 1, run(parse(t, d.args("motorilc", "a", "b", "c")...)))
}
