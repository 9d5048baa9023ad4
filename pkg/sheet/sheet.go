// Package sheet inspects spreadsheets returned by the prediction service.
package sheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Summary describes a workbook.
type Summary struct {
	Sheets []string
	// Rows is the number of data rows on the first sheet, header excluded.
	Rows int
	// Header is the first row of the first sheet.
	Header []string
}

// Summarize opens an xlsx workbook and reports its sheets and the size of the
// first one.
func Summarize(data []byte) (Summary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sum := Summary{Sheets: f.GetSheetList()}
	if len(sum.Sheets) == 0 {
		return sum, nil
	}

	rows, err := f.GetRows(sum.Sheets[0])
	if err != nil {
		return sum, fmt.Errorf("failed to read sheet %q: %w", sum.Sheets[0], err)
	}
	if len(rows) > 0 {
		sum.Header = rows[0]
		sum.Rows = len(rows) - 1
	}
	return sum, nil
}

func (s Summary) String() string {
	return fmt.Sprintf("%d rows on %q (%d sheets)", s.Rows, s.first(), len(s.Sheets))
}

func (s Summary) first() string {
	if len(s.Sheets) == 0 {
		return ""
	}
	return s.Sheets[0]
}
