package images

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// AllowedExtensions are the upload formats accepted by default.
var AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// CheckUpload validates the name and size of an uploaded file.
func CheckUpload(filename string, size, maxSize int64, allowed []string) error {
	if filename == "" {
		return fmt.Errorf("missing file name")
	}
	if len(allowed) == 0 {
		allowed = AllowedExtensions
	}
	ext := strings.ToLower(filepath.Ext(filename))
	ok := false
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("file type %q is not allowed", ext)
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("file %s is too large: %d bytes exceeds limit of %d bytes", filename, size, maxSize)
	}
	return nil
}

// Normalize decodes an image, applies its EXIF orientation, scales it down so
// the longer edge is at most maxEdge pixels and re-encodes it as JPEG. A
// maxEdge of zero keeps the original size. Data that is not a decodable image
// is rejected.
func Normalize(data []byte, maxEdge int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if maxEdge > 0 && (b.Dx() > maxEdge || b.Dy() > maxEdge) {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
