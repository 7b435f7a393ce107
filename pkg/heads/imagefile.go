package heads

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
)

var jpegMagic = []byte{0xff, 0xd8}

// readImage loads an image from disk and returns its base64 encoding plus a
// sniffed media type. Only PNG and JPEG are distinguished; everything else
// is reported as PNG, which the target APIs tolerate.
func readImage(path string) (b64, mediaType string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read image: %w", err)
	}

	mediaType = "image/png"
	if bytes.HasPrefix(data, jpegMagic) {
		mediaType = "image/jpeg"
	}

	return base64.StdEncoding.EncodeToString(data), mediaType, nil
}
