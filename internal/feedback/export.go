package feedback

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by Export.
const SheetName = "Feedback"

var exportHeader = []any{"Time", "Session ID", "Message ID", "Feedback", "Message"}

// ReadAll parses every line of a feedback log. Lines that do not parse are
// counted in skipped and left out.
func ReadAll(r io.Reader, loc *time.Location) (records []Record, skipped int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		rec, err := ParseLine(sc.Text(), loc)
		if err != nil {
			slog.Warn("skipping feedback line", "line", lineNo, "error", err)
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading feedback log: %w", err)
	}
	return records, skipped, nil
}

// Export writes records as an XLSX workbook with a header row.
func Export(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Time.Format(TimeLayout), r.SessionID, r.MessageID, r.FeedbackType, r.MessageText}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "D", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "E", "E", 80); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
