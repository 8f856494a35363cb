package method

import (
	"image"

	"github.com/disintegration/imaging"

	// Register the webp decoder for image.Decode-based loaders.
	_ "golang.org/x/image/webp"
)

// decodeImage loads the image at path, applying EXIF orientation so rotated
// shots compare against their upright duplicates.
func decodeImage(path string) (image.Image, error) {
	return imaging.Open(path, imaging.AutoOrientation(true))
}
