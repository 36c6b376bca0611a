package sequence

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/lophoc/core"
	inmemdb "github.com/trezcool/lophoc/storage/database/inmem"
)

type failingCounters struct {
	err error
}

func (fc failingCounters) Increment(context.Context, string, ...core.DBExecutor) (int64, error) {
	return 0, fc.err
}

func TestFormat(t *testing.T) {
	tests := []struct {
		prefix string
		year   int
		seq    int64
		want   string
	}{
		{PrefixStudent, 2025, 1, "HS2025-001"},
		{PrefixStudent, 2025, 42, "HS2025-042"},
		{PrefixTeacher, 2019, 999, "GV2019-999"},
		{PrefixClass, 2025, 1000, "C2025-1000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Format(tt.prefix, tt.year, tt.seq); got != tt.want {
				t.Errorf("failed! got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAcademicStartYear(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "2025-2026", want: 2025},
		{in: "2024", want: 2024},
		{in: " 2023-2024", want: 2023},
		{in: "", wantErr: true},
		{in: "25-26", wantErr: true},
		{in: "abcd-2026", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := AcademicStartYear(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("failed! err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("failed! got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(inmemdb.NewCounterRepository())

	for _, want := range []string{"HS2025-001", "HS2025-002"} {
		got, err := gen.StudentID(ctx, 2025)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// counters are independent per (prefix, year)
	got, _ := gen.StudentID(ctx, 2026)
	assert.Equal(t, "HS2026-001", got)
	got, _ = gen.TeacherID(ctx, 2025)
	assert.Equal(t, "GV2025-001", got)
	got, _ = gen.ClassID(ctx, "2025-2026")
	assert.Equal(t, "C2025-001", got)

	_, err := gen.ClassID(ctx, "next year")
	assert.Equal(t, ErrInvalidAcademicYear, err)
}

func TestGenerator_StoreFailure(t *testing.T) {
	boom := errors.New("boom")
	gen := NewGenerator(failingCounters{err: boom})

	_, err := gen.TeacherID(context.Background(), 2025)
	assert.Equal(t, boom, errors.Cause(err))
}
