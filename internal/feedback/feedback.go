// Package feedback stores learner reactions to tutor replies in an
// append-only, one-record-per-line log.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimeLayout is the timestamp layout of a log line.
const TimeLayout = "2006-01-02 15:04:05"

// ErrMalformedLine is returned by ParseLine for lines it cannot read.
var ErrMalformedLine = errors.New("malformed feedback line")

// Record is one piece of feedback on a tutor message.
type Record struct {
	SessionID    string
	MessageID    string
	FeedbackType string // stored verbatim, usually "positive" or "negative"
	MessageText  string
	Time         time.Time
}

// Sink persists feedback records.
type Sink interface {
	Record(ctx context.Context, r Record) error
}

var newlines = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Line renders the record as a single log line, newline included. Line
// breaks in any field become spaces.
func (r Record) Line() string {
	text := strings.TrimSpace(newlines.Replace(r.MessageText))
	return fmt.Sprintf("[%s] Session ID: %s, Message ID: %s, Feedback: %s, Message: \"%s\"\n",
		r.Time.Format(TimeLayout),
		newlines.Replace(r.SessionID),
		newlines.Replace(r.MessageID),
		newlines.Replace(r.FeedbackType),
		text)
}

var linePattern = regexp.MustCompile(
	`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\] Session ID: (.*?), Message ID: (.*?), Feedback: (.*?), Message: "(.*)"$`)

// ParseLine reads a line written by Record.Line. The timestamp is
// interpreted in loc.
func ParseLine(line string, loc *time.Location) (Record, error) {
	m := linePattern.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return Record{}, ErrMalformedLine
	}
	ts, err := time.ParseInLocation(TimeLayout, m[1], loc)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return Record{
		Time:         ts,
		SessionID:    m[2],
		MessageID:    m[3],
		FeedbackType: m[4],
		MessageText:  m[5],
	}, nil
}
