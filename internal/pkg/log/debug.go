package log

import (
	"bufio"
	"strings"
	"sync"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

// DebugLogger keeps all messages in memory, as JSON lines, it is used in tests.
type DebugLogger interface {
	Logger
	AllMessages() string
	WarnAndErrorMessages() string
	Truncate()
	CompareJSONMessages(expected string) error
	AssertJSONMessages(t assert.TestingT, expected string, msgAndArgs ...any) bool
}

type debugLogger struct {
	*zapLogger
	buffer *syncBuffer
}

type syncBuffer struct {
	lock *sync.Mutex
	out  strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.out.Write(p)
}

func (b *syncBuffer) Sync() error {
	return nil
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.out.String()
}

func (b *syncBuffer) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.out.Reset()
}

func NewDebugLogger() DebugLogger {
	buffer := &syncBuffer{lock: &sync.Mutex{}}
	core := zapcore.NewCore(newJSONEncoder(false), buffer, DebugLevel)
	return &debugLogger{zapLogger: loggerFromZapCore(core), buffer: buffer}
}

func (l *debugLogger) AllMessages() string {
	return l.buffer.String()
}

// WarnAndErrorMessages returns only the warning and error JSON lines.
func (l *debugLogger) WarnAndErrorMessages() string {
	var out strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(l.buffer.String()))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, `"level":"warn"`) || strings.Contains(line, `"level":"error"`) {
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return out.String()
}

func (l *debugLogger) Truncate() {
	l.buffer.Reset()
}

func (l *debugLogger) CompareJSONMessages(expected string) error {
	return CompareJSONMessages(expected, l.AllMessages())
}

func (l *debugLogger) AssertJSONMessages(t assert.TestingT, expected string, msgAndArgs ...any) bool {
	return AssertJSONMessages(t, expected, l.AllMessages(), msgAndArgs...)
}
