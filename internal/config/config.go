// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config loads the run configuration from defaults, an optional
// hwunit.yaml file, HWUNIT_* environment variables and command line flags.
//
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Default configuration file names, in lookup order.
var defaultFiles = []string{"hwunit.yaml", "hwunit.yml"}

// EnvPrefix is the prefix of environment variables overriding the
// configuration. HWUNIT_NUM_THREADS sets num_threads.
//
const EnvPrefix = "HWUNIT_"

// Config is a run configuration.
//
type Config struct {
	NumThreads int    `koanf:"num_threads"`
	OutputPath string `koanf:"output_path"`
	XUnitXML   string `koanf:"xunit_xml"`
	ExportJSON string `koanf:"export_json"`
	Verbose    bool   `koanf:"verbose"`
	NoColor    bool   `koanf:"no_color"`
	Exit0      bool   `koanf:"exit_0"`
	FailFast   bool   `koanf:"fail_fast"`
	List       bool   `koanf:"list"`
	Compile    bool   `koanf:"compile"`

	// Test name patterns from the command line. Empty means all tests.
	Patterns []string `koanf:"-"`
	// Configuration file actually loaded, if any.
	File string `koanf:"-"`
}

// Default returns the default configuration.
//
func Default() *Config {
	return &Config{NumThreads: 1}
}

// BindFlags registers the command line flags for every configuration key.
//
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "configuration file (default hwunit.yaml if present)")
	fs.IntP("num-threads", "p", 1, "number of tests to run in parallel")
	fs.StringP("output-path", "o", "", "directory where per test simulation logs are written")
	fs.StringP("xunit-xml", "x", "", "xUnit test report file")
	fs.String("export-json", "", "export project information to a JSON file")
	fs.BoolP("verbose", "v", false, "print test output and debug logs")
	fs.Bool("no-color", false, "do not color output")
	fs.Bool("exit-0", false, "exit with code 0 even if a test failed")
	fs.Bool("fail-fast", false, "stop on first test failure")
	fs.BoolP("list", "l", false, "only list all test cases")
	fs.Bool("compile", false, "only compile project without running tests")
}

// Load loads the configuration. If cfgFile is empty, hwunit.yaml or
// hwunit.yml in the working directory are used if present. Only flags that
// were explicitly set are taken into account.
//
// Precedence (highest to lowest): flags > env vars > config file > defaults
//
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	d := Default()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"num_threads": d.NumThreads,
	}, "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if cfgFile == "" {
		for _, n := range defaultFiles {
			if _, err := os.Stat(n); err == nil {
				cfgFile = n
				break
			}
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "error reading config file %s", cfgFile)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}
	cfg.File = cfgFile
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration values.
//
func (c *Config) Validate() error {
	if c.NumThreads < 1 {
		return errors.Errorf("num_threads must be at least 1, got %d", c.NumThreads)
	}
	if c.List && c.Compile {
		return errors.New("list and compile are mutually exclusive")
	}
	return nil
}
