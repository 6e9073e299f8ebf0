package feedback_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/feelps04/html-css-tutor-virtual/internal/feedback"
)

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func TestRecord_Line(t *testing.T) {
	tests := []struct {
		name    string
		session string
		msgID   string
		kind    string
		text    string
		want    string
	}{
		{"plain", "s-1", "42", "positive", "Use <div>.", `Message: "Use <div>."`},
		{"newlines", "s-1", "42", "positive", "linha 1\nlinha 2\r\nlinha 3\r", `Message: "linha 1 linha 2 linha 3"`},
		{"trimmed", "s-1", "42", "positive", "  \n resposta \n ", `Message: "resposta"`},
		{"quotes kept", "s-1", "42", "positive", `use "flex"`, `Message: "use "flex""`},
		{
			"forged session id",
			"s1\n[2020-01-01 00:00:00] Session ID: forged", "42", "positive", "ok",
			"Session ID: s1 [2020-01-01 00:00:00] Session ID: forged, Message ID: 42,",
		},
		{"feedback type breaks", "s-1", "42", "like\r\nx", "ok", "Feedback: like x, Message:"},
		{"message id breaks", "s-1", "4\r2", "positive", "ok", "Message ID: 4 2, Feedback:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := feedback.Record{
				SessionID:    tt.session,
				MessageID:    tt.msgID,
				FeedbackType: tt.kind,
				MessageText:  tt.text,
				Time:         fixedTime,
			}.Line()

			if strings.Count(line, "\n") != 1 || !strings.HasSuffix(line, "\n") {
				t.Fatalf("line %q is not exactly one line", line)
			}
			if strings.Contains(line, "\r") {
				t.Errorf("line %q contains a carriage return", line)
			}
			if !strings.HasPrefix(line, "[2025-03-14 09:26:53] Session ID: ") {
				t.Errorf("line = %q, want the record timestamp first", line)
			}
			if !strings.Contains(line, tt.want) {
				t.Errorf("line = %q, want it to contain %q", line, tt.want)
			}
			if _, err := feedback.ParseLine(line, time.UTC); err != nil {
				t.Errorf("ParseLine(%q) = %v", line, err)
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	rec := feedback.Record{
		SessionID:    "abc",
		MessageID:    "m-7",
		FeedbackType: "negative",
		MessageText:  `Errado, use "grid"`,
		Time:         fixedTime,
	}

	got, err := feedback.ParseLine(rec.Line(), time.UTC)
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}
	if !got.Time.Equal(rec.Time) || got.SessionID != rec.SessionID || got.MessageID != rec.MessageID ||
		got.FeedbackType != rec.FeedbackType || got.MessageText != rec.MessageText {
		t.Errorf("ParseLine() = %+v, want %+v", got, rec)
	}

	for _, bad := range []string{"", "hello", "[2025-03-14] Session ID: x"} {
		if _, err := feedback.ParseLine(bad, time.UTC); !errors.Is(err, feedback.ErrMalformedLine) {
			t.Errorf("ParseLine(%q) error = %v, want ErrMalformedLine", bad, err)
		}
	}
}

func TestFileSink_AppendsOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.log")
	sink := feedback.NewFileSink(feedback.FileSinkConfig{Path: path})
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Record(ctx, feedback.Record{SessionID: "s", MessageID: "1", FeedbackType: "positive", MessageText: "a\nb"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := sink.Record(ctx, feedback.Record{SessionID: "s", MessageID: "2", FeedbackType: "negative", MessageText: "c"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), data)
	}
	if !strings.HasSuffix(lines[0], `Message: "a b"`) {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestFileSink_ConcurrentRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.log")
	sink := feedback.NewFileSink(feedback.FileSinkConfig{Path: path})
	defer sink.Close()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := sink.Record(context.Background(), feedback.Record{
				SessionID:    "s",
				MessageID:    fmt.Sprint(i),
				FeedbackType: "positive",
				MessageText:  strings.Repeat("x", 500),
			})
			if err != nil {
				t.Errorf("Record() error = %v", err)
			}
		}()
	}
	wg.Wait()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, skipped, err := feedback.ReadAll(f, time.Local)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != n || skipped != 0 {
		t.Errorf("records = %d, skipped = %d, want %d and 0", len(records), skipped, n)
	}
}

func TestFileSink_WriteError(t *testing.T) {
	// A regular file in place of the log directory makes every write fail.
	parent := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(parent, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(parent, "feedback.log")
	sink := feedback.NewFileSink(feedback.FileSinkConfig{Path: path})

	if err := sink.Record(context.Background(), feedback.Record{SessionID: "s"}); err == nil {
		t.Error("Record() should fail when the log path is a directory")
	}
}

func TestReadAllAndExport(t *testing.T) {
	log := feedback.Record{SessionID: "s1", MessageID: "1", FeedbackType: "positive", MessageText: "ótimo", Time: fixedTime}.Line() +
		"lixo no meio\n\n" +
		feedback.Record{SessionID: "s2", MessageID: "2", FeedbackType: "negative", MessageText: "confuso", Time: fixedTime.Add(time.Minute)}.Line()

	records, skipped, err := feedback.ReadAll(strings.NewReader(log), time.UTC)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != 2 || skipped != 1 {
		t.Fatalf("records = %d, skipped = %d, want 2 and 1", len(records), skipped)
	}

	var buf bytes.Buffer
	if err := feedback.Export(&buf, records); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	wb, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(feedback.SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (header + 2)", len(rows))
	}
	if rows[0][0] != "Time" || rows[1][1] != "s1" || rows[2][3] != "negative" || rows[1][4] != "ótimo" {
		t.Errorf("unexpected rows: %v", rows)
	}
	if rows[2][0] != "2025-03-14 09:27:53" {
		t.Errorf("time cell = %q", rows[2][0])
	}
}
