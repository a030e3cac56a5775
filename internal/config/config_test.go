// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_defaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.NumThreads)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, cfg.File)
}

func TestLoad_precedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hwunit.yaml"), []byte(
		"num_threads: 4\nxunit_xml: file.xml\nverbose: true\noutput_path: out\n"), 0o644))

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "hwunit.yaml", cfg.File)
	assert.Equal(t, 4, cfg.NumThreads)
	assert.Equal(t, "file.xml", cfg.XUnitXML)
	assert.Equal(t, "out", cfg.OutputPath)
	assert.True(t, cfg.Verbose)

	t.Setenv("HWUNIT_NUM_THREADS", "6")
	t.Setenv("HWUNIT_XUNIT_XML", "env.xml")
	cfg, err = Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.NumThreads)
	assert.Equal(t, "env.xml", cfg.XUnitXML)

	cfg, err = Load("", newFlags(t, "-p", "2", "--exit-0", "--fail-fast"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.NumThreads)
	assert.Equal(t, "env.xml", cfg.XUnitXML)
	assert.True(t, cfg.Exit0)
	assert.True(t, cfg.FailFast)
}

func TestLoad_explicitFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fn := filepath.Join(dir, "other.yml")
	require.NoError(t, os.WriteFile(fn, []byte("no_color: true\n"), 0o644))

	cfg, err := Load(fn, nil)
	require.NoError(t, err)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, fn, cfg.File)

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_invalid(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load("", newFlags(t, "-p", "0"))
	assert.EqualError(t, err, "num_threads must be at least 1, got 0")

	_, err = Load("", newFlags(t, "--list", "--compile"))
	assert.EqualError(t, err, "list and compile are mutually exclusive")
}
