package collector

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"PolicyScan/internal/model"
)

// Recognised spreadsheet columns. Header matching is case-insensitive; order does not matter.
var xlsxColumns = []string{"id", "name", "type", "premium", "coverage", "start", "expiry"}

// XLSXFetcher reads policies from the first sheet of a spreadsheet export.
type XLSXFetcher struct {
	Path string
}

// NewXLSXFetcher creates a fetcher for the spreadsheet at path.
func NewXLSXFetcher(path string) *XLSXFetcher {
	return &XLSXFetcher{Path: path}
}

func (f *XLSXFetcher) Name() string { return "xlsx" }

func (f *XLSXFetcher) FetchPolicies(_ context.Context) ([]model.PolicyRecord, error) {
	payloads, err := ReadPayloadsXLSX(f.Path)
	if err != nil {
		return nil, err
	}
	return model.RecordsFromPayloads(payloads)
}

// ReadPayloadsXLSX parses a spreadsheet into wire payloads. Blank rows are skipped.
func ReadPayloadsXLSX(path string) ([]model.PolicyPayload, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("xlsx: sheet %q is empty", sheet.Name)
	}

	index, err := headerIndex(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var out []model.PolicyPayload
	for i, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		p, err := payloadFromCells(cells, index)
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: row %d", i+2)
		}
		out = append(out, p)
	}
	return out, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(xlsxColumns))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"id", "type", "premium"} {
		if _, ok := index[required]; !ok {
			return nil, eris.Errorf("xlsx: missing required column %q", required)
		}
	}
	return index, nil
}

func payloadFromCells(cells []string, index map[string]int) (model.PolicyPayload, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	p := model.PolicyPayload{
		ID:       get("id"),
		Name:     get("name"),
		Type:     get("type"),
		FromDate: get("start"),
		ToDate:   get("expiry"),
	}

	premium, err := parseAmount(get("premium"))
	if err != nil {
		return p, eris.Wrapf(err, "premium")
	}
	p.Price = premium

	if raw := get("coverage"); raw != "" {
		c, err := parseAmount(raw)
		if err != nil {
			return p, eris.Wrapf(err, "coverage")
		}
		p.Coverage = &c
	}
	return p, nil
}

// parseAmount accepts plain numbers and the "12,500" style used in exported sheets.
func parseAmount(raw string) (float64, error) {
	raw = strings.NewReplacer(",", "", "$", "", " ", "").Replace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse amount %q", raw)
	}
	return v, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
