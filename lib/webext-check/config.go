package main

import (
	"errors"
	"strings"
	"time"

	"github.com/go-rod/gecko/lib/scenario"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "WEBEXT_CHECK"

// config keys and the flags bound to them
var keys = map[string]string{
	"extension":        "extension",
	"tooltip":          "tooltip",
	"url":              "url",
	"timeouts.button":  "button-timeout",
	"timeouts.tab":     "tab-timeout",
	"timeouts.load":    "load-timeout",
	"timeouts.startup": "startup-timeout",
}

type config struct {
	Extension      string
	Scenario       scenario.Config
	StartupTimeout time.Duration
}

func addFlags(flags *pflag.FlagSet) {
	def := scenario.DefaultConfig()

	flags.String("extension", "fixtures/example-addon", "path of the add-on, an xpi file or an unpacked dir")
	flags.String("tooltip", def.Tooltip, "expected tooltip of the toolbar button")
	flags.String("url", def.URL, "expected url of the tab the button opens")
	flags.Duration("button-timeout", def.ButtonTimeout, "max time to locate the button")
	flags.Duration("tab-timeout", def.TabTimeout, "max time for the new tab to show up")
	flags.Duration("load-timeout", def.LoadTimeout, "max time for the new tab to load the url")
	flags.Duration("startup-timeout", scenario.DefaultStartupTimeout, "max time to start the browser")
}

// loadConfig merges the flags, the env vars prefixed with WEBEXT_CHECK_ and the config file.
// A flag set on the command line wins, then the env var, then the file, then the flag default.
func loadConfig(file string, flags *pflag.FlagSet) (*config, error) {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("webext-check")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		notFound := viper.ConfigFileNotFoundError{}
		if file != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &config{
		Extension: v.GetString("extension"),
		Scenario: scenario.Config{
			Tooltip:       v.GetString("tooltip"),
			URL:           v.GetString("url"),
			ButtonTimeout: v.GetDuration("timeouts.button"),
			TabTimeout:    v.GetDuration("timeouts.tab"),
			LoadTimeout:   v.GetDuration("timeouts.load"),
		},
		StartupTimeout: v.GetDuration("timeouts.startup"),
	}, nil
}
