// Package extension reads and packs Firefox add-ons (WebExtensions).
package extension

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-rod/gecko/lib/utils"
	"github.com/tidwall/gjson"
)

// ManifestFile name
const ManifestFile = "manifest.json"

// ErrNoManifest type
var ErrNoManifest = errors.New("[extension] manifest.json not found")

// Manifest of an add-on
type Manifest struct {
	// Path of the add-on, an unpacked directory or an xpi file
	Path string

	Name    string
	Version string

	// ID from browser_specific_settings.gecko.id or applications.gecko.id, can be empty
	ID string

	// Raw json of the manifest
	Raw gjson.Result
}

// Load the manifest from an unpacked add-on directory or an xpi file
func Load(path string) (*Manifest, error) {
	var data []byte
	var err error

	if utils.DirExists(path) {
		data, err = ioutil.ReadFile(filepath.Join(path, ManifestFile))
		if os.IsNotExist(err) {
			return nil, ErrNoManifest
		}
	} else {
		data, err = readFromXPI(path)
	}
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("[extension] invalid json in %s", filepath.Join(path, ManifestFile))
	}

	raw := gjson.ParseBytes(data)

	id := raw.Get("browser_specific_settings.gecko.id").String()
	if id == "" {
		id = raw.Get("applications.gecko.id").String()
	}

	return &Manifest{
		Path:    path,
		Name:    raw.Get("name").String(),
		Version: raw.Get("version").String(),
		ID:      id,
		Raw:     raw,
	}, nil
}

// Title of the toolbar button, empty if the add-on has no browser action
func (m *Manifest) Title() string {
	title := m.Raw.Get("browser_action.default_title")
	if !title.Exists() {
		title = m.Raw.Get("action.default_title")
	}
	return title.String()
}

var regWidget = regexp.MustCompile(`[^a-z0-9_-]`)

// WidgetID converts the add-on id to the id Firefox uses for the add-on's widgets.
// Such as "example@mozilla.org" to "example_mozilla_org".
func WidgetID(addonID string) string {
	return regWidget.ReplaceAllString(strings.ToLower(addonID), "_")
}

// BrowserActionID of the toolbar button of the add-on in the browser chrome
func BrowserActionID(addonID string) string {
	return WidgetID(addonID) + "-browser-action"
}

// Pack the unpacked add-on dir into the xpi file at "to".
// If "to" is empty a temp file will be used. Returns the path of the xpi.
func Pack(dir, to string) (string, error) {
	if !utils.FileExists(filepath.Join(dir, ManifestFile)) {
		return "", ErrNoManifest
	}

	if to == "" {
		to = filepath.Join(os.TempDir(), "gecko", "xpi", utils.RandString(8)+".xpi")
	}

	err := utils.Mkdir(filepath.Dir(to))
	if err != nil {
		return "", err
	}

	f, err := os.Create(to)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)

	err = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()

		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		return "", err
	}

	return to, zw.Close()
}

func readFromXPI(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if f.Name != ManifestFile {
			continue
		}

		r, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()

		return ioutil.ReadAll(r)
	}

	return nil, ErrNoManifest
}
