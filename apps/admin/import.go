package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core/importer"
)

const (
	kindStudents = "students"
	kindTeachers = "teachers"
)

func (cli *commandLine) importFile(kind, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := importer.ReadSheet(path, f)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var res importer.Result
	if kind == kindStudents {
		res, err = cli.c.Importer.ImportStudents(ctx, rows)
	} else {
		res, err = cli.c.Importer.ImportTeachers(ctx, rows)
	}
	if err != nil {
		var vf *importer.ValidationFailed
		if errors.As(err, &vf) {
			for _, re := range vf.Errors {
				fmt.Fprintf(cli.out, "row %d, %s: %s\n", re.Row, re.Column, re.Error)
			}
		}
		return err
	}
	fmt.Fprintf(cli.out, "imported %d %s\n", res.Count, kind)
	return nil
}
