// This file contains the methods that panics when error return value is not nil.
// Their function names are all prefixed with Must.

package gecko

import (
	"time"

	"github.com/go-rod/gecko/lib/utils"
)

// MustConnect creates the session and installs the add-on
func (b *Browser) MustConnect() *Browser {
	utils.E(b.Connect())
	return b
}

// MustClose the session and release related resources
func (b *Browser) MustClose() {
	_ = b.Close()
}

// MustSetContext switches the Firefox context
func (b *Browser) MustSetContext(name string) *Browser {
	utils.E(b.SetContext(name))
	return b
}

// MustElement retries until an element in the current context matches the css selector
func (b *Browser) MustElement(selector string) *Element {
	el, err := b.Element(selector)
	utils.E(err)
	return el
}

// MustElementByID retries until an element with the id is found
func (b *Browser) MustElementByID(id string) *Element {
	el, err := b.ElementByID(id)
	utils.E(err)
	return el
}

// MustHas an element that matches the css selector
func (b *Browser) MustHas(selector string) bool {
	has, err := b.Has(selector)
	utils.E(err)
	return has
}

// MustWindows returns the handles of all the windows and tabs
func (b *Browser) MustWindows() Windows {
	list, err := b.Windows()
	utils.E(err)
	return list
}

// MustWindow returns the handle of the current window
func (b *Browser) MustWindow() Window {
	w, err := b.Window()
	utils.E(err)
	return w
}

// MustSwitchWindow makes the window the current one
func (b *Browser) MustSwitchWindow(w Window) *Browser {
	utils.E(b.SwitchWindow(w))
	return b
}

// MustURL of the current window
func (b *Browser) MustURL() string {
	u, err := b.URL()
	utils.E(err)
	return u
}

// MustNavigate the current window to the url
func (b *Browser) MustNavigate(u string) *Browser {
	utils.E(b.Navigate(u))
	return b
}

// MustWait until fn returns true
func (b *Browser) MustWait(timeout time.Duration, msg string, fn func(*Browser) bool) *Browser {
	utils.E(b.Wait(timeout, msg, func(tb *Browser) (bool, error) { return fn(tb), nil }))
	return b
}

// MustWaitNewWindow waits until a new window shows up
func (b *Browser) MustWaitNewWindow(before Windows, timeout time.Duration) Window {
	w, err := b.WaitNewWindow(before, timeout, "new window")
	utils.E(err)
	return w
}

// MustWaitURL waits until the url of the current window equals u
func (b *Browser) MustWaitURL(u string, timeout time.Duration) *Browser {
	utils.E(b.WaitURL(u, timeout, "url "+u))
	return b
}

// MustAttribute of the element, empty if the attribute doesn't exist
func (el *Element) MustAttribute(name string) string {
	attr, err := el.Attribute(name)
	utils.E(err)
	if attr == nil {
		return ""
	}
	return *attr
}

// MustClick the element
func (el *Element) MustClick() *Element {
	utils.E(el.Click())
	return el
}
