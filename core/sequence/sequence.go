// Package sequence issues human-readable, per-year identifiers such as HS2025-001.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
)

const (
	PrefixStudent = "HS"
	PrefixTeacher = "GV"
	PrefixClass   = "C"
)

var ErrInvalidAcademicYear = core.NewValidationError(
	errors.New("invalid academic year"),
	core.FieldError{Field: "academic_year", Error: "academic year must look like 2025-2026"},
)

// CounterStore atomically increments and returns the counter stored under key,
// creating it at 1 when absent. Concurrent callers never observe the same value.
type CounterStore interface {
	Increment(ctx context.Context, key string, exec ...core.DBExecutor) (int64, error)
}

type Generator struct {
	counters CounterStore
}

func NewGenerator(counters CounterStore) *Generator {
	return &Generator{counters: counters}
}

// CounterKey is the storage key of the (prefix, year) counter.
func CounterKey(prefix string, year int) string {
	return fmt.Sprintf("%s_%d", prefix, year)
}

// Format renders PREFIX{year}-{seq} with seq zero-padded to 3 digits (wider values are not truncated).
func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s%d-%03d", prefix, year, seq)
}

// NextID returns the next identifier for (prefix, year). Pass a transaction executor
// to make the increment part of it. Failures are returned as is; there is no retry here.
func (gen *Generator) NextID(ctx context.Context, prefix string, year int, exec ...core.DBExecutor) (string, error) {
	key := CounterKey(prefix, year)
	seq, err := gen.counters.Increment(ctx, key, exec...)
	if err != nil {
		return "", errors.Wrapf(err, "incrementing counter %s", key)
	}
	return Format(prefix, year, seq), nil
}

func (gen *Generator) StudentID(ctx context.Context, enrollmentYear int, exec ...core.DBExecutor) (string, error) {
	return gen.NextID(ctx, PrefixStudent, enrollmentYear, exec...)
}

func (gen *Generator) TeacherID(ctx context.Context, joinYear int, exec ...core.DBExecutor) (string, error) {
	return gen.NextID(ctx, PrefixTeacher, joinYear, exec...)
}

// ClassID numbers classes per academic start year: "2025-2026" -> C2025-NNN.
func (gen *Generator) ClassID(ctx context.Context, academicYear string, exec ...core.DBExecutor) (string, error) {
	year, err := AcademicStartYear(academicYear)
	if err != nil {
		return "", err
	}
	return gen.NextID(ctx, PrefixClass, year, exec...)
}

// AcademicStartYear returns the year before the "-" of an academic year string.
func AcademicStartYear(academicYear string) (int, error) {
	start := strings.TrimSpace(strings.SplitN(academicYear, "-", 2)[0])
	if len(start) != 4 {
		return 0, ErrInvalidAcademicYear
	}
	year, err := strconv.Atoi(start)
	if err != nil || year <= 0 {
		return 0, ErrInvalidAcademicYear
	}
	return year, nil
}
