package pipeline

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/lewtec/labelsync/internal/domain"
)

// HashBytes returns the hex sha256 of data
func HashBytes(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// CheckDimensions decodes the image header and compares its size with the
// one declared in the annotation set
func CheckDimensions(data []byte, img domain.Image) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("while decoding image header: %w", err)
	}
	if cfg.Width != img.Width || cfg.Height != img.Height {
		return fmt.Errorf("%s is %dx%d but annotations declare %dx%d",
			format, cfg.Width, cfg.Height, img.Width, img.Height)
	}
	return nil
}
