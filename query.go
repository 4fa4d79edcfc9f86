// This file contains all query related code for Browser and Window to separate the concerns.

package gecko

import (
	"context"
	"strings"
	"time"

	"github.com/go-rod/gecko/lib/utils"
	"github.com/go-rod/gecko/lib/webdriver"
)

// Window is the handle of a window or tab
type Window string

// Windows provides some helpers to deal with window handle list
type Windows []Window

// Has returns true if w is in the list
func (ws Windows) Has(w Window) bool {
	for _, item := range ws {
		if item == w {
			return true
		}
	}
	return false
}

// Diff returns the windows that are in ws but not in other
func (ws Windows) Diff(other Windows) Windows {
	list := Windows{}
	for _, w := range ws {
		if !other.Has(w) {
			list = append(list, w)
		}
	}
	return list
}

// Empty returns true if the list is empty
func (ws Windows) Empty() bool {
	return len(ws) == 0
}

// Element retries until an element in the current context matches the css selector.
// Use Timeout or Context to bound it.
func (b *Browser) Element(selector string) (*Element, error) {
	var el *Element
	var findErr error

	err := utils.Retry(b.ctx, b.sleeper(), func() (bool, error) {
		el, findErr = b.find(selector)
		if IsError(findErr, ErrElementNotFound) {
			return false, nil
		}
		return true, findErr
	})

	// a find interrupted by the context is also a miss
	if err != nil && (err != findErr || b.ctx.Err() != nil) {
		return nil, &Error{Err: err, Code: ErrElementNotFound, Details: selector}
	}
	return el, err
}

// ElementByID retries until an element with the id is found
func (b *Browser) ElementByID(id string) (*Element, error) {
	return b.Element(SelectorByID(id))
}

// WaitElement is the same as Element but bounded by the timeout, the returned element doesn't
// inherit the timeout.
func (b *Browser) WaitElement(selector string, timeout time.Duration) (*Element, error) {
	tb := b.Timeout(timeout)
	defer tb.CancelTimeout()

	el, err := tb.Element(selector)
	if err != nil {
		return nil, err
	}
	return el.Context(b.ctx), nil
}

// Has an element that matches the css selector, it doesn't retry
func (b *Browser) Has(selector string) (bool, error) {
	_, err := b.find(selector)
	if IsError(err, ErrElementNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (b *Browser) find(selector string) (*Element, error) {
	var el *Element
	err := b.call(func(ctx context.Context, s *webdriver.Session) error {
		id, err := s.FindElement(ctx, webdriver.ByCSS, selector)
		if err != nil {
			return wrap(err, selector)
		}

		el = &Element{
			ctx:            b.ctx,
			ctxCancel:      func() {},
			browser:        b,
			ID:             id,
			Selector:       selector,
			FirefoxContext: b.state.context,
		}
		return nil
	})
	return el, err
}

// SelectorByID returns the css selector for the element id. Ids in the browser chrome often
// contain chars that are invalid in the "#id" form, such as "{" or "@".
func SelectorByID(id string) string {
	return `[id="` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(id) + `"]`
}
