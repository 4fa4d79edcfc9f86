package gecko

import (
	"context"

	"github.com/go-rod/gecko/lib/webdriver"
)

// Element represents a web element found in one of the Firefox contexts
type Element struct {
	// these are the handler for ctx
	ctx           context.Context
	ctxCancel     func()
	timeoutCancel func()

	browser *Browser

	// ID of the webdriver element reference
	ID string

	// Selector used to find the element
	Selector string

	// FirefoxContext the element was found in, webdriver.ContextChrome or webdriver.ContextContent
	FirefoxContext string
}

// Attribute of the element, nil if the attribute doesn't exist
func (el *Element) Attribute(name string) (*string, error) {
	var attr *string
	err := el.call(func(ctx context.Context, s *webdriver.Session) error {
		value, has, err := s.ElementAttribute(ctx, el.ID, name)
		if has {
			attr = &value
		}
		return err
	})
	return attr, err
}

// Click the element
func (el *Element) Click() error {
	b := el.browser.Context(el.ctx)

	b.trySlowmotion()
	b.tracef("click %s", el.Selector)

	return el.call(func(ctx context.Context, s *webdriver.Session) error {
		return s.ElementClick(ctx, el.ID)
	})
}

// Browser the element belongs to
func (el *Element) Browser() *Browser {
	return el.browser
}

// call fails with ErrContextMismatch if the session has switched to another context since
// the element was found
func (el *Element) call(fn func(context.Context, *webdriver.Session) error) error {
	b := el.browser.Context(el.ctx)

	return b.call(func(ctx context.Context, s *webdriver.Session) error {
		if b.state.context != el.FirefoxContext {
			return &Error{
				Code:    ErrContextMismatch,
				Details: el.Selector + " is in " + el.FirefoxContext + " but the session is in " + b.state.context,
			}
		}
		return wrap(fn(ctx, s), el.Selector)
	})
}
