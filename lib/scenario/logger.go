package scenario

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// CapturedMessage of the CapturingLogger
type CapturedMessage struct {
	Time    time.Time
	Message string
}

// CapturedOutput is the list of captured messages
type CapturedOutput []CapturedMessage

// CapturingLogger keeps the messages in memory, it implements utils.Logger
type CapturingLogger struct {
	output []CapturedMessage
	lock   sync.Mutex
}

// Printf interface
func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.add(fmt.Sprintf(message, args...))
}

// Println interface
func (l *CapturingLogger) Println(args ...interface{}) {
	l.add(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (l *CapturingLogger) add(msg string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.output = append(l.output, CapturedMessage{Time: time.Now(), Message: msg})
}

// Output returns a copy of the captured messages
func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append(CapturedOutput(nil), l.output...)
}

// Dump the messages to dest, each line starts with the prefix
func (output CapturedOutput) Dump(dest io.Writer, prefix string) {
	for _, m := range output {
		_, _ = fmt.Fprintf(dest, "%s[%s] %s\n",
			prefix,
			m.Time.Format(timestampFormat),
			m.Message,
		)
	}
}
