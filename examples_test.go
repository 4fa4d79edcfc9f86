package gecko_test

import (
	"fmt"
	"time"

	"github.com/go-rod/gecko"
	"github.com/go-rod/gecko/lib/fakedriver"
	"github.com/go-rod/gecko/lib/utils"
	"github.com/go-rod/gecko/lib/webdriver"
)

// The add-on under test adds a toolbar button that opens a page in a new tab.
// Remove the Client line to run it against a real Firefox.
func Example() {
	d := fakedriver.New()
	u, stop := d.Serve()
	defer stop()

	browser := gecko.New().
		Client(webdriver.New(u)).
		Extension("fixtures/example-addon").
		Logger(utils.LoggerQuiet).
		MustConnect()
	defer browser.MustClose()

	// the toolbar is part of the browser chrome
	browser.MustSetContext(webdriver.ContextChrome)

	button := browser.MustElementByID(browser.ButtonID())
	fmt.Println(button.MustAttribute("tooltiptext"))

	before := browser.MustWindows()
	button.MustClick()

	tab := browser.MustWaitNewWindow(before, 9*time.Second)

	browser.
		MustSetContext(webdriver.ContextContent).
		MustSwitchWindow(tab).
		MustWaitURL("https://www.mozilla.org/en-US/", 5*time.Second)

	fmt.Println(browser.MustURL())

	// Output:
	// Visit Mozilla
	// https://www.mozilla.org/en-US/
}

// Bounded waits fail with ErrTimeout and the message.
func ExampleBrowser_Wait() {
	d := fakedriver.New()
	d.URL = ""
	u, stop := d.Serve()
	defer stop()

	browser := gecko.New().
		Client(webdriver.New(u)).
		Extension("fixtures/example-addon").
		Logger(utils.LoggerQuiet).
		MustConnect()
	defer browser.MustClose()

	before := browser.MustWindows()
	browser.MustSetContext(webdriver.ContextChrome).MustElementByID(browser.ButtonID()).MustClick()

	_, err := browser.WaitNewWindow(before, 300*time.Millisecond, "Should have opened a new tab.")

	fmt.Println(gecko.IsError(err, gecko.ErrTimeout))
	fmt.Println(err)

	// Output:
	// true
	// [gecko] wait timeout: Should have opened a new tab.
}
