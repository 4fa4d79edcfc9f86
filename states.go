package gecko

import (
	"sync"

	"github.com/go-rod/gecko/lib/bidi"
	"github.com/go-rod/gecko/lib/extension"
	"github.com/go-rod/gecko/lib/launcher"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/go-rod/gecko/lib/webdriver"
)

// state is shared by all the clones of a Browser and the elements it creates
type state struct {
	// serializes the calls to the remote end
	mu sync.Mutex

	session  *webdriver.Session
	context  string
	closed   bool
	launcher *launcher.Launcher

	manifest *extension.Manifest
	addonID  string

	bidi     *bidi.Client
	bidiDone chan utils.Nil

	closeOnce sync.Once
	closeErr  error

	logsMu sync.Mutex
	logs   []*bidi.LogEntry
}

func newState() *state {
	return &state{context: webdriver.ContextContent}
}

func (s *state) addLog(e *bidi.LogEntry) {
	s.logsMu.Lock()
	defer s.logsMu.Unlock()
	s.logs = append(s.logs, e)
}

func (s *state) getLogs() []*bidi.LogEntry {
	s.logsMu.Lock()
	defer s.logsMu.Unlock()
	return append([]*bidi.LogEntry{}, s.logs...)
}
