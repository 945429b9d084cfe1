package statement

import (
	"errors"
	"sort"
)

// Errors reported for a rejected upload. Row-level parse failures are never
// surfaced through these; they only reduce the number of imported rows.
var (
	ErrUnsupportedBank = errors.New("unsupported bank")
	ErrUnsupportedFile = errors.New("only .xlsx files are supported")
)

// BankConfig describes the layout of one bank's spreadsheet export: how many
// header/preamble rows to skip and which column headers carry the fields we
// import.
type BankConfig struct {
	SkipRows     int
	DateHeader   string
	TitleHeader  string
	AmountHeader string
	NoteHeader   string
}

// bankConfigs maps a bank identifier to its export layout. Supporting a new
// bank means adding an entry here, not touching the pipeline.
var bankConfigs = map[string]BankConfig{
	"kakaobank": {
		SkipRows:     10,
		DateHeader:   "거래일시",
		NoteHeader:   "내용",
		AmountHeader: "거래금액",
		TitleHeader:  "거래구분",
	},
	"tossbank": {
		SkipRows:     8,
		DateHeader:   "거래 일시",
		NoteHeader:   "적요",
		AmountHeader: "거래 금액",
		TitleHeader:  "거래 유형",
	},
}

// SupportedBanks returns the known bank identifiers in a stable order.
func SupportedBanks() []string {
	banks := make([]string, 0, len(bankConfigs))
	for id := range bankConfigs {
		banks = append(banks, id)
	}
	sort.Strings(banks)
	return banks
}
