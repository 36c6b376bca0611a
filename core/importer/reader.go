package importer

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Row is one data row of a sheet, keyed by normalized header.
type Row struct {
	Number int // 1-indexed sheet row; the header is row 1
	Cells  map[string]string
}

// Get returns the trimmed cell under header, matched like the sheet headers are.
func (r Row) Get(header string) string {
	return strings.TrimSpace(r.Cells[normalizeHeader(header)])
}

func (r Row) blank() bool {
	for _, v := range r.Cells {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// normalizeHeader folds case and drops spaces, underscores and hyphens: "Date of Birth" == "dateOfBirth".
func normalizeHeader(h string) string {
	h = cases.Fold().String(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// ReadSheet parses an uploaded .csv or .xlsx file and returns its non-blank data rows.
// Only the first sheet of a workbook is read.
func ReadSheet(filename string, r io.Reader) ([]Row, error) {
	var (
		rows []Row
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(r)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	// raw values keep date cells as serial numbers; coercion converts them
	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrap(err, "reading first sheet")
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if row := makeRow(i+2, headers, rec); !row.blank() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func readCSV(r io.Reader) ([]Row, error) {
	// spreadsheet exports often start with a UTF-8 BOM
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading csv header")
	}

	var rows []Row
	// counts records, not lines: a quoted cell may span several lines
	for number := 2; ; number++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading csv")
		}
		if row := makeRow(number, headers, rec); !row.blank() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func makeRow(number int, headers, rec []string) Row {
	row := Row{Number: number, Cells: make(map[string]string, len(headers))}
	for i, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if i < len(rec) {
			row.Cells[key] = rec[i]
		} else {
			row.Cells[key] = ""
		}
	}
	return row
}
