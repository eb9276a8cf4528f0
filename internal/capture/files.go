package capture

import (
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	dErrors "trustbadge/pkg/domain-errors"
)

// ReadImageFile loads an image from disk into data-URI form. Non-image files
// and files above maxBytes are rejected before any encoding happens.
func ReadImageFile(path string, maxBytes int) (Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Image{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "cannot read image file")
	}
	if maxBytes > 0 && info.Size() > int64(maxBytes) {
		return Image{}, dErrors.New(dErrors.CodeInvalidInput, "image exceeds the size limit")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "cannot read image file")
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, dErrors.New(dErrors.CodeInvalidInput, "file is not an image")
	}

	return Image{Data: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)}, nil
}
