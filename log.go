package quic

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/goburrow/quic/transport"
)

type logLevel int

// Log levels
const (
	levelOff logLevel = iota
	levelError
	levelInfo
	levelDebug
	levelTrace
)

// logger logs QUIC transactions. Process-level messages (listener
// start/stop, socket errors) go through a github.com/rs/zerolog logger;
// the per-connection qlog event stream (attachLogger/transactionLogger
// below) bypasses it and writes its own line shape straight to writer,
// since a qlog line is a wire-adjacent protocol artifact rather than an
// application log line.
type logger struct {
	level  logLevel
	mu     sync.Mutex
	writer io.Writer
	zl     zerolog.Logger
}

func (s *logger) setWriter(w io.Writer) {
	s.mu.Lock()
	s.writer = w
	s.zl = zerolog.New(w).With().Timestamp().Logger()
	s.mu.Unlock()
}

func (s *logger) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Write(b)
}

func (s *logger) log(level logLevel, format string, values ...interface{}) {
	if s.level < level || s.writer == nil {
		return
	}
	s.mu.Lock()
	zl := s.zl
	s.mu.Unlock()
	var ev *zerolog.Event
	switch level {
	case levelError:
		ev = zl.Error()
	case levelDebug:
		ev = zl.Debug()
	case levelTrace:
		ev = zl.Trace()
	default:
		ev = zl.Info()
	}
	ev.Msg(fmt.Sprintf(format, values...))
}

func (s *logger) attachLogger(c *remoteConn) {
	if s.level < levelDebug || s.writer == nil {
		return
	}
	tl := transactionLogger{
		writer: s, // Write protected
		prefix: fmt.Sprintf("addr=%s cid=%x", c.addr, c.scid),
	}
	c.conn.OnLogEvent(tl.logEvent)
}

func (s *logger) detachLogger(c *remoteConn) {
	c.conn.OnLogEvent(nil)
}

type transactionLogger struct {
	writer io.Writer
	prefix string
}

func (s *transactionLogger) logEvent(e transport.LogEvent) {
	s.writer.Write(formatLogEvent(e, s.prefix))
}

func formatLogEvent(e transport.LogEvent, prefix string) []byte {
	b := bytes.Buffer{}
	b.WriteString(e.Time.Format(time.RFC3339))
	b.WriteString("   ") // extra indentation for transport-level events
	b.WriteString(e.Type)
	if prefix != "" {
		b.WriteString(" ")
		b.WriteString(prefix)
	}
	for _, f := range e.Fields {
		b.WriteString(" ")
		b.WriteString(f.String())
	}
	b.WriteString("\n")
	return b.Bytes()
}
