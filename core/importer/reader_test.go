package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/lophoc/core"
)

func xlsxFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadSheet_CSV(t *testing.T) {
	data := "\ufeffName, User Name,Date_of_Birth\n" +
		"Anh,anh,2010-05-01\n" +
		",,\n" +
		"Binh,binh,01/02/2011\n"

	rows, err := ReadSheet("students.CSV", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "Anh", rows[0].Get("name"))
	assert.Equal(t, "anh", rows[0].Get("username"))
	assert.Equal(t, "2010-05-01", rows[0].Get("dateOfBirth"))

	// the blank line is skipped but keeps its place in the numbering
	assert.Equal(t, 4, rows[1].Number)
	assert.Equal(t, "binh", rows[1].Get("USERNAME"))
}

func TestReadSheet_CSVMultilineCell(t *testing.T) {
	data := "name,username,address\n" +
		"One,one,\"line1\nline2\nline3\"\n" +
		"Two,two,x\n" +
		",,\n" +
		"Three,three,\"a\nb\"\n"

	rows, err := ReadSheet("s.csv", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	tests := []struct {
		username string
		want     int
	}{
		{username: "one", want: 2},
		{username: "two", want: 3},
		{username: "three", want: 5},
	}
	for i, tt := range tests {
		if got := rows[i]; got.Get("username") != tt.username || got.Number != tt.want {
			t.Errorf("failed! rows[%d] = %s at row %d; want %s at row %d", i, got.Get("username"), got.Number, tt.username, tt.want)
		}
	}
	assert.Equal(t, "line1\nline2\nline3", rows[0].Get("address"))
}

func TestReadSheet_XLSX(t *testing.T) {
	buf := xlsxFile(t, [][]interface{}{
		{"name", "username", "enrollmentYear"},
		{"Anh", "anh", 2025},
		{nil, nil, nil},
		{"Binh", "binh", 2024},
	})

	rows, err := ReadSheet("students.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "2025", rows[0].Get("enrollmentYear"))
	assert.Equal(t, 4, rows[1].Number)
	assert.Equal(t, "Binh", rows[1].Get("name"))
}

func TestReadSheet_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     func(t *testing.T) *bytes.Buffer
		wantErr  error
	}{
		{name: "header only csv", filename: "a.csv", data: func(*testing.T) *bytes.Buffer { return bytes.NewBufferString("name,username\n") }, wantErr: ErrEmptyFile},
		{name: "empty csv", filename: "a.csv", data: func(*testing.T) *bytes.Buffer { return new(bytes.Buffer) }, wantErr: ErrEmptyFile},
		{name: "header only xlsx", filename: "a.xlsx", data: func(t *testing.T) *bytes.Buffer { return xlsxFile(t, [][]interface{}{{"name"}}) }, wantErr: ErrEmptyFile},
		{name: "unsupported", filename: "a.pdf", data: func(*testing.T) *bytes.Buffer { return bytes.NewBufferString("x") }, wantErr: ErrUnsupportedFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSheet(tt.filename, tt.data(t))
			if err != tt.wantErr {
				t.Errorf("failed! err = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	t.Run("dates", func(t *testing.T) {
		tests := map[string]string{
			"":           "",
			"45658":      "2025-01-01",
			"2010-05-01": "2010-05-01",
			"01/02/2011": "2011-02-01",
			"soon":       "soon",
		}
		for in, want := range tests {
			if got := coerceDate(in); got != want {
				t.Errorf("failed! coerceDate(%q) = %q; want %q", in, got, want)
			}
		}
	})

	t.Run("genders", func(t *testing.T) {
		tests := map[string]string{
			"":       "",
			"Nam":    core.GenderMale,
			"MALE":   core.GenderMale,
			"Nữ":     core.GenderFemale,
			"female": core.GenderFemale,
			"khác":   core.GenderOther,

			"Nam giới":    core.GenderMale,
			"Nữ giới":     core.GenderFemale,
			"Female (F)":  core.GenderFemale,
			"male/female": core.GenderFemale,
			"M":           core.GenderMale,
			"Minute":      core.GenderOther,
			"---":         core.GenderOther,
			"  ":          "",
		}
		for in, want := range tests {
			if got := coerceGender(in); got != want {
				t.Errorf("failed! coerceGender(%q) = %q; want %q", in, got, want)
			}
		}
	})

	t.Run("years", func(t *testing.T) {
		y, ok := coerceYear("2025.0")
		assert.True(t, ok)
		assert.Equal(t, 2025, y)
		_, ok = coerceYear("twenty")
		assert.False(t, ok)
	})
}
