package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/importer"
)

const uploadField = "file"

var errMissingUpload = core.NewValidationError(nil, core.FieldError{Field: uploadField, Error: "a .xlsx or .csv file is required"})

// readUpload parses the sheet sent as the multipart "file" field.
func readUpload(ctx echo.Context) ([]importer.Row, error) {
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		return nil, errMissingUpload
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	return importer.ReadSheet(fh.Filename, f)
}
