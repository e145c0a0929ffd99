package report

import (
	"fmt"
	"io"
	"strings"
)

// CISink emits GitHub Actions workflow commands for failing submissions.
// The sink is injected at startup; nothing deeper in the harness reads the
// environment to decide whether CI output is wanted.
type CISink struct {
	Enabled bool
	W       io.Writer
}

// ErrorAnnotation emits one ::error command pinned to a source location.
func (s *CISink) ErrorAnnotation(file string, line int, title, msg string) {
	if s == nil || !s.Enabled {
		return
	}
	fmt.Fprintf(s.W, "::error file=%s,line=%d,title=%s::%s\n",
		file, line, encodeMessage(title), encodeMessage(msg))
}

// SetOutput emits a ::set-output command with a machine-readable value.
func (s *CISink) SetOutput(name, value string) {
	if s == nil || !s.Enabled {
		return
	}
	fmt.Fprintf(s.W, "::set-output name=%s::%s\n", name, value)
}

// encodeMessage escapes message text the way the actions toolkit does, so
// multi-line traces survive the single-line command syntax.
func encodeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "%", "%25")
	msg = strings.ReplaceAll(msg, "\r", "%0D")
	msg = strings.ReplaceAll(msg, "\n", "%0A")
	return msg
}
