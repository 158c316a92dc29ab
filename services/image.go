package services

import (
	"io"

	"github.com/disintegration/imaging"
)

// imageDimensions decodes r and returns its width and height.
func imageDimensions(r io.Reader) (int, int, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return 0, 0, err
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}
