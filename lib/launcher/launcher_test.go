package launcher_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/go-rod/gecko/lib/defaults"
	"github.com/go-rod/gecko/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	defaults.Reset()
	goleak.VerifyTestMain(m)
}

func TestFormatArgs(t *testing.T) {
	l := launcher.New().Set("--log", "trace").Bin("/opt/firefox/firefox")

	assert.Equal(t, []string{
		"--host", "127.0.0.1",
		"--log", "trace",
		"--port", "0",
		"--binary", "/opt/firefox/firefox",
	}, l.FormatArgs())

	l.Delete("log")
	v, has := l.Get("port")
	assert.True(t, has)
	assert.Equal(t, "0", v)
	_, has = l.Get("log")
	assert.False(t, has)
}

func TestCapabilities(t *testing.T) {
	caps := gjson.Parse(launcher.New().
		Profile("tmp/profile").
		Arg("-devtools").
		Pref("devtools.console.stdout.content", true).
		BiDi(true).
		Capabilities())

	assert.Equal(t, "firefox", caps.Get("browserName").String())
	assert.True(t, caps.Get("webSocketUrl").Bool())

	args := []string{}
	for _, a := range caps.Get("moz:firefoxOptions.args").Array() {
		args = append(args, a.String())
	}
	abs, _ := filepath.Abs("tmp/profile")
	assert.Equal(t, []string{"-headless", "-profile", abs, "-devtools"}, args)

	prefs := caps.Get("moz:firefoxOptions.prefs")
	assert.True(t, prefs.Get(`devtools\.console\.stdout\.content`).Bool())
	assert.True(t, prefs.Get(`browser\.shell\.checkDefaultBrowser`).Exists())
	assert.False(t, caps.Get("moz:firefoxOptions.binary").Exists())

	caps = gjson.Parse(launcher.New().Headless(false).Profile("").Bin("/ff").Capabilities())
	assert.Len(t, caps.Get("moz:firefoxOptions.args").Array(), 0)
	assert.Equal(t, "/ff", caps.Get("moz:firefoxOptions.binary").String())
	assert.False(t, caps.Get("webSocketUrl").Exists())
}

func TestLookDriver(t *testing.T) {
	_, err := launcher.LookDriver(filepath.Join(t.TempDir(), "nothing"))
	assert.True(t, errors.Is(err, launcher.ErrNotFound))
}

// fakeGeckodriver writes a shell script that prints the output and then runs the tail command
func fakeGeckodriver(t *testing.T, output, tail string) string {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}

	p := filepath.Join(t.TempDir(), "geckodriver")
	script := "#!/bin/sh\necho '" + output + "'\n" + tail + "\n"
	require.NoError(t, os.WriteFile(p, []byte(script), 0755))
	return p
}

func TestLaunch(t *testing.T) {
	bin := fakeGeckodriver(t, "1700000000000\tgeckodriver\tINFO\tListening on 127.0.0.1:4444", "exec sleep 30")
	profile := filepath.Join(t.TempDir(), "profile")

	var mu sync.Mutex
	logs := ""

	l := launcher.New().Driver(bin).Profile(profile).Leakless(false).Reap(false).Log(func(s string) {
		mu.Lock()
		defer mu.Unlock()
		logs += s
	})

	u := l.Launch()
	assert.Equal(t, "http://127.0.0.1:4444", u)
	assert.NotZero(t, l.PID())
	assert.DirExists(t, profile)

	_, err := l.LaunchE()
	assert.Equal(t, launcher.ErrAlreadyLaunched, err)

	l.Kill()
	l.Kill()
	l.Cleanup()

	assert.NoDirExists(t, profile)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, logs, "--host 127.0.0.1 --port 0")
	assert.Contains(t, logs, "Remove")
}

func TestLookFirefox(t *testing.T) {
	firefox := fakeGeckodriver(t, "", "")

	found, err := launcher.LookFirefox(firefox)
	require.NoError(t, err)
	assert.Equal(t, firefox, found)

	_, err = launcher.LookFirefox(filepath.Join(t.TempDir(), "firefox"))
	assert.True(t, errors.Is(err, launcher.ErrNotFound))

	// bare names are searched in PATH
	t.Setenv("PATH", filepath.Dir(firefox))
	found, err = launcher.LookDriver("geckodriver")
	require.NoError(t, err)
	assert.Equal(t, firefox, found)
}

func TestLaunchFindsFirefox(t *testing.T) {
	bin := fakeGeckodriver(t, "Listening on 127.0.0.1:4444", "exec sleep 30")
	firefox := filepath.Join(t.TempDir(), "firefox")
	require.NoError(t, os.WriteFile(firefox, []byte("#!/bin/sh\n"), 0755))

	list := launcher.FirefoxSearchMap[runtime.GOOS]
	launcher.FirefoxSearchMap[runtime.GOOS] = []string{firefox}
	defer func() { launcher.FirefoxSearchMap[runtime.GOOS] = list }()

	l := launcher.New().Driver(bin).Profile("").Leakless(false).Reap(false)
	l.Launch()
	defer l.Cleanup()
	defer l.Kill()

	assert.Equal(t, firefox, gjson.Get(l.Capabilities(), "moz:firefoxOptions.binary").String())
	assert.Contains(t, l.FormatArgs(), firefox)
}

func TestLaunchFailed(t *testing.T) {
	bin := fakeGeckodriver(t, "geckodriver: error: Address in use", "exit 1")

	l := launcher.New().Driver(bin).Profile("").Leakless(false).Reap(false)

	_, err := l.LaunchE()
	e := &launcher.ErrLaunch{}
	require.True(t, errors.As(err, &e))
	assert.True(t, strings.Contains(e.Error(), "Address in use"))

	l.Cleanup()
}

func TestLaunchPanic(t *testing.T) {
	assert.Panics(t, func() {
		launcher.New().Driver(filepath.Join(t.TempDir(), "nothing")).Profile("").Launch()
	})
}
