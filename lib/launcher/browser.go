package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ysmood/lookpath"
)

// DriverSearchList is the list to search for geckodriver, the first found will be used
var DriverSearchList = []string{"geckodriver"}

// FirefoxSearchMap is the list to search for Firefox on each OS
var FirefoxSearchMap = map[string][]string{
	"darwin": {
		"/Applications/Firefox.app/Contents/MacOS/firefox",
		"/Applications/Firefox Nightly.app/Contents/MacOS/firefox",
	},
	"linux": {
		"firefox",
		"firefox-esr",
		"/usr/bin/firefox",
		"/usr/lib/firefox/firefox",
	},
	"windows": append([]string{"firefox"}, expandWindowsExePaths(
		`Mozilla Firefox\firefox.exe`,
		`Firefox Nightly\firefox.exe`,
	)...),
}

// LookDriver returns the path of geckodriver. If bin is not empty only bin will be checked.
func LookDriver(bin string) (string, error) {
	list := DriverSearchList
	if bin != "" {
		list = []string{bin}
	}
	return look(list)
}

// LookFirefox returns the path of Firefox. If bin is not empty only bin will be checked.
// Launcher.LaunchE uses it to pin the binary when none is set.
func LookFirefox(bin string) (string, error) {
	list := FirefoxSearchMap[runtime.GOOS]
	if bin != "" {
		list = []string{bin}
	}
	return look(list)
}

func look(list []string) (string, error) {
	for _, path := range list {
		found, err := lookpath.LookPath(os.Getenv("PATH"), path)
		if err == nil {
			return found, nil
		}
	}
	return "", fmt.Errorf("%w: %v", ErrNotFound, list)
}

func expandWindowsExePaths(list ...string) []string {
	newList := []string{}
	for _, p := range list {
		newList = append(
			newList,
			filepath.Join(os.Getenv("ProgramFiles"), p),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), p),
			filepath.Join(os.Getenv("LocalAppData"), p),
		)
	}

	return newList
}
