package statement

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"clubledger/models"
)

// NormalizedRow is the bank-independent shape of one statement line. Amount is
// always positive; the sign of the source amount becomes Type.
type NormalizedRow struct {
	Date   time.Time
	Title  string
	Note   string
	Amount int64
	Type   string // models.TypeIncome or models.TypeExpense
}

// dateLayouts covers the datetime formats seen in kakaobank and tossbank
// exports, plus date-only fallbacks.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006.01.02 15:04:05",
	"2006.01.02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// Normalize parses a bank's .xlsx export into normalized rows. It returns the
// parsed rows, the number of rows omitted (zero amounts and rows whose amount
// or date failed to parse), and an error only when the whole file is rejected:
// unknown bank, wrong extension, or a sheet that does not match the bank's
// layout. A malformed row never fails the batch.
func Normalize(bank, filename string, r io.Reader) ([]NormalizedRow, int, error) {
	cfg, ok := bankConfigs[bank]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedBank, bank)
	}

	if !strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return nil, 0, ErrUnsupportedFile
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}

	if len(rows) <= cfg.SkipRows {
		return nil, 0, fmt.Errorf("sheet has no header row after skipping %d rows", cfg.SkipRows)
	}

	cols, err := resolveColumns(cfg, rows[cfg.SkipRows])
	if err != nil {
		return nil, 0, err
	}

	var (
		normalized []NormalizedRow
		omitted    int
	)
	for _, raw := range rows[cfg.SkipRows+1:] {
		row, ok := normalizeRow(cols, raw)
		if !ok {
			omitted++
			continue
		}
		normalized = append(normalized, row)
	}

	return normalized, omitted, nil
}

// columnIndexes holds the resolved cell positions of the four imported fields.
type columnIndexes struct {
	date, title, amount, note int
}

func resolveColumns(cfg BankConfig, header []string) (columnIndexes, error) {
	find := func(want string) (int, error) {
		for i, cell := range header {
			if strings.TrimSpace(cell) == want {
				return i, nil
			}
		}
		return 0, fmt.Errorf("sheet is missing expected column %q", want)
	}

	var cols columnIndexes
	var err error
	if cols.date, err = find(cfg.DateHeader); err != nil {
		return cols, err
	}
	if cols.title, err = find(cfg.TitleHeader); err != nil {
		return cols, err
	}
	if cols.amount, err = find(cfg.AmountHeader); err != nil {
		return cols, err
	}
	if cols.note, err = find(cfg.NoteHeader); err != nil {
		return cols, err
	}
	return cols, nil
}

// normalizeRow converts one data row. ok is false when the row must be
// omitted: short row, unparseable amount or date, or an amount of exactly
// zero.
func normalizeRow(cols columnIndexes, raw []string) (NormalizedRow, bool) {
	cell := func(i int) string {
		if i < len(raw) {
			return raw[i]
		}
		return ""
	}

	amount, err := parseAmount(cell(cols.amount))
	if err != nil || amount == 0 {
		return NormalizedRow{}, false
	}

	date, err := parseDate(cell(cols.date))
	if err != nil {
		return NormalizedRow{}, false
	}

	row := NormalizedRow{
		Date:  date,
		Title: cell(cols.title),
		Note:  cell(cols.note),
	}
	if amount > 0 {
		row.Type = models.TypeIncome
		row.Amount = amount
	} else {
		row.Type = models.TypeExpense
		row.Amount = -amount
	}
	return row, true
}

// parseAmount strips thousands separators and surrounding whitespace and
// parses the remainder as a signed integer.
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	return strconv.ParseInt(s, 10, 64)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
