package bidi

import (
	"context"
	"fmt"
	"time"
)

// Event names
const (
	EventLogEntryAdded          = "log.entryAdded"
	EventContextCreated         = "browsingContext.contextCreated"
	EventNavigationStarted      = "browsingContext.navigationStarted"
	EventBrowsingContextLoad    = "browsingContext.load"
	EventBrowsingContextDestroy = "browsingContext.contextDestroyed"
)

// LogEntry of the log.entryAdded event
type LogEntry struct {
	Type    string
	Level   string
	Text    string
	Context string
	Time    time.Time
}

// String interface
func (e *LogEntry) String() string {
	return fmt.Sprintf("%s [%s] %s", e.Time.Format("15:04:05.000"), e.Level, e.Text)
}

// ParseLogEntry returns nil if the event is not a log.entryAdded event
func ParseLogEntry(e *Event) *LogEntry {
	if e.Method != EventLogEntryAdded {
		return nil
	}
	return &LogEntry{
		Type:    e.Params.Get("type").String(),
		Level:   e.Params.Get("level").String(),
		Text:    e.Params.Get("text").String(),
		Context: e.Params.Get("source.context").String(),
		Time:    time.Unix(0, e.Params.Get("timestamp").Int()*int64(time.Millisecond)),
	}
}

// SubscribeEvents tells the browser to start sending the events
func (c *Client) SubscribeEvents(ctx context.Context, events ...string) error {
	_, err := c.Call(ctx, "session.subscribe", map[string]interface{}{
		"events": events,
	})
	return err
}
