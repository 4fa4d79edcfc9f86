// Package defaults holds some commonly used options parsed from env var "gecko".
// Set them will set the default value of options used by gecko.
// Each value is separated by a ",", key and value are separated by "=",
// For example:
//
//    gecko=show,trace,slow,wd
//
//    gecko=show,trace,slow=1s,port=4444,ext=./fixtures/example-addon
//
package defaults

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Trace is the default of gecko.Browser.Trace
var Trace bool

// Slow is the default of gecko.Browser.Slowmotion
var Slow time.Duration

// Show is the default of launcher.Launcher.Headless
var Show bool

// Bin is the default of launcher.Launcher.Bin, the firefox executable
var Bin string

// Driver is the default of launcher.Launcher.Driver, the geckodriver executable
var Driver string

// Port is the default of the "port" flag of launcher.Launcher
var Port string

// Dir is the default of launcher.Launcher.Profile
var Dir string

// URL of a running geckodriver, when set no geckodriver will be launched
var URL string

// Ext is the path of the add-on to install when a session starts
var Ext string

// WD enables the log of the webdriver wire traffic
var WD bool

// BiDi enables the webdriver bidi connection for console logs
var BiDi bool

// Parse the flags
func init() {
	ResetWithEnv()
}

// Reset all flags to their init values.
func Reset() {
	Trace = false
	Slow = 0
	Show = false
	Bin = ""
	Driver = ""
	Port = "0"
	Dir = ""
	URL = ""
	Ext = ""
	WD = false
	BiDi = false
}

// ResetWithEnv all flags by the value of the gecko env var.
func ResetWithEnv() {
	Reset()
	parse(os.Getenv("gecko"))
}

// parse options and set them globally
func parse(options string) {
	if options == "" {
		return
	}

	for _, f := range strings.Split(options, ",") {
		kv := strings.SplitN(f, "=", 2)
		rule, has := rules[kv[0]]
		if !has {
			panic("no such gecko option: " + kv[0])
		}
		if len(kv) == 2 {
			rule(kv[1])
		} else {
			rule("")
		}
	}
}

var rules = map[string]func(string){
	"show": func(string) {
		Show = true
	},
	"trace": func(string) {
		Trace = true
	},
	"slow": func(v string) {
		var err error
		Slow, err = time.ParseDuration(v)
		if err != nil {
			panic(fmt.Sprintf("invalid gecko option slow=%s: %v", v, err))
		}
	},
	"bin": func(v string) {
		Bin = v
	},
	"driver": func(v string) {
		Driver = v
	},
	"port": func(v string) {
		Port = v
	},
	"dir": func(v string) {
		Dir = v
	},
	"url": func(v string) {
		URL = v
	},
	"ext": func(v string) {
		Ext = v
	},
	"wd": func(string) {
		WD = true
	},
	"bidi": func(string) {
		BiDi = true
	},
}
