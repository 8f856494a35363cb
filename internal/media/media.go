// Package media provides the file-level services behind the API surface:
// image detection, MIME types, thumbnails, and EXIF metadata.
package media

import (
	"bytes"
	"image/jpeg"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// decodableExts are the formats the pure-Go decoders handle. Anything else
// can be enumerated and hashed byte-wise but not rendered.
var decodableExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tiff": true, ".tif": true, ".webp": true,
}

// Decodable reports whether a thumbnail and pixel metadata can be produced
// for the file at path.
func Decodable(path string) bool {
	return decodableExts[strings.ToLower(filepath.Ext(path))]
}

// ContentType returns the MIME content type for the file based on its
// extension, falling back to application/octet-stream.
func ContentType(path string) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// FileInfo is the API's view of one scanned file.
type FileInfo struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ModifiedAt  time.Time `json:"modified_at"`
	ContentType string    `json:"content_type"`
	Meta        ImageMeta `json:"meta"`
}

// Info stats the file and, when the format allows, attaches pixel and EXIF
// metadata. Metadata problems are not errors; only a failing stat is.
func Info(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	info := FileInfo{
		Path:        path,
		Size:        st.Size(),
		ModifiedAt:  st.ModTime(),
		ContentType: ContentType(path),
	}
	if Decodable(path) {
		info.Meta = ReadMeta(path)
	}
	return info, nil
}

// Thumbnail renders a JPEG thumbnail of the image at path, scaled to fit
// within width x height. The source is auto-oriented from its EXIF tag so
// portrait shots come out upright. Returns nil, nil when the format has no
// decoder; decode failures are folded into that case too.
func Thumbnail(path string, width, height int) ([]byte, error) {
	if !Decodable(path) {
		return nil, nil
	}

	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil
	}

	b := src.Bounds()
	if b.Dx() > width || b.Dy() > height {
		src = imaging.Fit(src, width, height, imaging.Linear)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 75}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
