//go:build !windows
// +build !windows

package launcher

import (
	"os"
	"sync"

	"github.com/ramr/go-reaper"
)

var reaperOnce sync.Once

// runReaper only matters when the process is pid 1, such as inside a docker container,
// where the orphaned Firefox processes would become zombies.
func runReaper() {
	if os.Getpid() != 1 {
		return
	}
	reaperOnce.Do(func() {
		go reaper.Reap()
	})
}
