package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/gecko"
	"github.com/go-rod/gecko/lib/webdriver"
)

// Messages of the bounded waits of ButtonOpensPage
const (
	MsgNewTab = "Should have opened a new tab."
	MsgLoaded = "Should have loaded mozilla.org"
)

// Config of the toolbar button scenarios
type Config struct {
	// Tooltip expected on the button
	Tooltip string

	// URL expected to be loaded in the new tab
	URL string

	// ButtonTimeout bounds the search of the button
	ButtonTimeout time.Duration

	// TabTimeout bounds the wait of the new tab
	TabTimeout time.Duration

	// LoadTimeout bounds the wait of the url in the new tab
	LoadTimeout time.Duration
}

// DefaultConfig for the example add-on
func DefaultConfig() Config {
	return Config{
		Tooltip:       "Visit Mozilla",
		URL:           "https://www.mozilla.org/en-US/",
		ButtonTimeout: time.Second,
		TabTimeout:    9 * time.Second,
		LoadTimeout:   5 * time.Second,
	}
}

// Suite of the toolbar button scenarios in order
func Suite(cfg Config) []Scenario {
	return []Scenario{ButtonExists(cfg), ButtonOpensPage(cfg)}
}

// ButtonExists checks the toolbar button of the add-on is in the browser chrome with the tooltip
func ButtonExists(cfg Config) Scenario {
	return Scenario{
		Name: "button exists",
		Run: func(c *Context) error {
			if m := c.Browser().Manifest(); m != nil {
				c.Debug("manifest title: %q", m.Title())
			}

			el, err := button(c.Browser(), cfg)
			if err != nil {
				return err
			}

			attr, err := el.Attribute("tooltiptext")
			if err != nil {
				return err
			}

			tooltip := ""
			if attr != nil {
				tooltip = *attr
			}
			c.Debug("tooltip: %q", tooltip)

			return c.Assert(tooltip == cfg.Tooltip, "tooltip should be %q, got %q", cfg.Tooltip, tooltip)
		},
	}
}

// ButtonOpensPage checks clicking the button opens a new tab that loads the url
func ButtonOpensPage(cfg Config) Scenario {
	return Scenario{
		Name: "button click opens page",
		Run: func(c *Context) error {
			b := c.Browser()

			before, err := b.Windows()
			if err != nil {
				return err
			}
			c.Debug("windows before click: %v", before)

			el, err := button(b, cfg)
			if err != nil {
				return err
			}

			err = el.Click()
			if err != nil {
				return err
			}

			w, err := b.WaitNewWindow(before, cfg.TabTimeout, MsgNewTab)
			if err != nil {
				return err
			}

			err = b.SetContext(webdriver.ContextContent)
			if err != nil {
				return err
			}

			err = b.SwitchWindow(w)
			if err != nil {
				return err
			}

			return b.WaitURL(cfg.URL, cfg.LoadTimeout, MsgLoaded)
		},
	}
}

func button(b *gecko.Browser, cfg Config) (*gecko.Element, error) {
	err := b.SetContext(webdriver.ContextChrome)
	if err != nil {
		return nil, err
	}
	return b.WaitElement(gecko.SelectorByID(b.ButtonID()), cfg.ButtonTimeout)
}

// Connect returns a Setup that connects the browser with the context of the setup
func Connect(b *gecko.Browser) Setup {
	return func(ctx context.Context) (res *gecko.Browser, err error) {
		// the browser is returned even on a panic so the runner still closes it
		res = b
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("panic in connect: %v", v)
			}
		}()

		err = b.Context(ctx).Connect()
		return
	}
}
