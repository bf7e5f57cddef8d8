package exchange

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/choubo/choubo/internal/model"
)

// CSVHeader is the fixed header row of the delimited-text export.
var CSVHeader = []string{"カテゴリー", "年", "月", "金額", "項目/返済先/メーカー", "備考", "作成日時", "更新日時"}

// utf8BOM prefixes the output so spreadsheet tools pick up the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ScopeKind discriminates export scopes.
type ScopeKind int

const (
	// ScopeAll exports everything.
	ScopeAll ScopeKind = iota
	// ScopeMonth exports one (year, month).
	ScopeMonth
	// ScopeYear exports one year.
	ScopeYear
	// ScopeRange exports an inclusive (year, month) range.
	ScopeRange
)

// Scope describes what slice of the store a delimited-text export covers.
// Any scope other than ScopeAll is a strict subset and gets a summary
// footer with aggregate totals.
type Scope struct {
	Kind                           ScopeKind
	Year, Month, EndYear, EndMonth int
}

// Subset reports whether the scope covers less than the whole store.
func (s Scope) Subset() bool {
	return s.Kind != ScopeAll
}

// EncodeCSV renders the delimited-text export: UTF-8 with a byte-order
// marker, the fixed header, one row per record in category display order,
// and a summary footer for subset scopes. The format is export-only and
// lossy by design.
func EncodeCSV(data map[model.Category][]model.Record, scope Scope) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	totals := make(map[model.Category]int64)
	var grand int64
	rows := 0
	for _, c := range model.AllCategories() {
		for _, rec := range data[c] {
			row := []string{
				c.DisplayName(),
				strconv.Itoa(rec.Year),
				strconv.Itoa(rec.Month),
				strconv.FormatInt(rec.Amount, 10),
				rec.SpecialField(),
				rec.Note,
				rec.CreatedAt.Format(time.RFC3339),
				rec.UpdatedAt.Format(time.RFC3339),
			}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
			totals[c] += rec.Amount
			grand += rec.Amount
			rows++
		}
	}

	if scope.Subset() && rows > 0 {
		if err := writeSummary(w, totals, grand); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(w *csv.Writer, totals map[model.Category]int64, grand int64) error {
	blank := make([]string, len(CSVHeader))
	if err := w.Write(blank); err != nil {
		return fmt.Errorf("failed to write summary separator: %w", err)
	}
	for _, c := range model.AllCategories() {
		total, ok := totals[c]
		if !ok {
			continue
		}
		row := []string{c.DisplayName() + " 合計", "", "", strconv.FormatInt(total, 10), "", "", "", ""}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	row := []string{"総合計", "", "", strconv.FormatInt(grand, 10), "", "", "", ""}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write grand total: %w", err)
	}
	return nil
}
