package sheet

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/godilite/bonus-panel/internal/engine"
)

type column int

const (
	colName column = iota
	colRole
	colCity
	colAdmission
	colTenure
	colTarget
	colObservation
	colTotalErrors
	colSevereErrors
	columnCount
)

// headerAliases lists the accepted headers per column, accent-folded and
// upper-cased.
var headerAliases = map[column][]string{
	colName:         {"NOME", "NAME", "COLABORADOR"},
	colRole:         {"FUNCAO", "ROLE", "CARGO"},
	colCity:         {"CIDADE", "CITY"},
	colAdmission:    {"DATA DE ADMISSAO", "ADMISSAO", "ADMISSION DATE"},
	colTenure:       {"TEMPO DE CASA", "TENURE"},
	colTarget:       {"VALOR MENSAL META", "META MENSAL", "MONTHLY TARGET", "TARGET"},
	colObservation:  {"OBSERVACAO", "OBSERVACOES", "OBS", "OBSERVATION"},
	colTotalErrors:  {"ERROS TOTAL", "TOTAL DE ERROS", "TOTAL ERRORS"},
	colSevereErrors: {"ERROS GG", "ERROS GRAVES", "SEVERE ERRORS"},
}

var requiredColumns = []column{colName, colRole, colCity, colTarget}

var columnNames = map[column]string{
	colName:   "NOME",
	colRole:   "FUNÇÃO",
	colCity:   "CIDADE",
	colTarget: "VALOR MENSAL META",
}

// Fold upper-cases s and strips diacritics, so "Função" and "FUNCAO" match.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}

func headerIndex(header []string) (map[column]int, error) {
	lookup := make(map[string]column)
	for col, aliases := range headerAliases {
		for _, a := range aliases {
			lookup[a] = col
		}
	}

	idx := make(map[column]int, columnCount)
	for i, cell := range header {
		col, ok := lookup[Fold(cell)]
		if !ok {
			continue
		}
		if _, dup := idx[col]; !dup {
			idx[col] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, columnNames[col])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

// ParseRows turns a sheet (header row first) into month records. Rows without
// a name are skipped. Unreadable numbers count as zero.
func ParseRows(month string, rows [][]string) ([]engine.EmployeeMonthRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrMissingColumn)
	}
	idx, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	cell := func(row []string, col column) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	month = engine.Normalize(month)
	records := make([]engine.EmployeeMonthRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		name := cell(row, colName)
		if name == "" {
			continue
		}
		records = append(records, engine.EmployeeMonthRecord{
			Month:         month,
			Name:          name,
			Role:          cell(row, colRole),
			City:          cell(row, colCity),
			AdmissionDate: admissionDate(cell(row, colAdmission)),
			Tenure:        cell(row, colTenure),
			TargetValue:   ParseMoney(cell(row, colTarget)),
			Observation:   engine.ObservationText(cell(row, colObservation)),
			TotalErrors:   parseCount(cell(row, colTotalErrors)),
			SevereErrors:  parseCount(cell(row, colSevereErrors)),
		})
	}
	return records, nil
}

// ParseMoney reads "600", "600.5", "1.234,56" and "R$ 1.234,56". Anything else
// is zero.
func ParseMoney(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, ","):
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseCount(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return clampCount(float64(n))
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return clampCount(f)
}

// clampCount drops negative counts and saturates huge ones at MaxInt32 so they
// still fail every quality threshold.
func clampCount(f float64) int {
	switch {
	case f <= 0:
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	}
	return int(f)
}

// admissionDate renders Excel serials as yyyy-mm-dd and keeps text dates as
// typed.
func admissionDate(s string) string {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < 1 {
		return s
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}
