package docxtemplar

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadRecords читает записи из первого листа книги Excel.
// Строка 1 — сырые ключи, каждая следующая непустая строка — одна запись.
// Ячейки под ключами дат, содержащие серийный номер Excel, переводятся в ISO (YYYY-MM-DD).
func LoadRecords(r io.Reader, cfg Config) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("открытие книги: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("лист %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	dates := cfg.dateKeys()

	var out []Record
	for _, row := range rows[1:] {
		rec := Record{}
		for c, cell := range row {
			if c >= len(header) || header[c] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if _, ok := dates[header[c]]; ok {
				cell = serialToISO(cell)
			}
			rec[header[c]] = cell
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

// serialToISO переводит серийный номер даты Excel в ISO; прочие строки возвращаются как есть.
func serialToISO(s string) string {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	t, err := excelize.ExcelDateToTime(n, false)
	if err != nil {
		return s
	}
	return t.Format(isoLayout)
}
