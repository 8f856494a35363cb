package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ImageMeta holds pixel dimensions and the EXIF fields worth showing next to
// a duplicate group. Everything is optional; zero values are omitted from
// JSON.
type ImageMeta struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	TakenAt      *time.Time `json:"taken_at,omitempty"`
	CameraMake   string     `json:"camera_make,omitempty"`
	CameraModel  string     `json:"camera_model,omitempty"`
	Software     string     `json:"software,omitempty"`
	ISO          int        `json:"iso,omitempty"`
	FNumber      string     `json:"fnumber,omitempty"`
	ExposureTime string     `json:"exposure_time,omitempty"`
	FocalLength  string     `json:"focal_length,omitempty"`
	GPSLat       *float64   `json:"gps_lat,omitempty"`
	GPSLon       *float64   `json:"gps_lon,omitempty"`
}

// ReadMeta reads pixel dimensions and EXIF data from the file at path.
// Files without EXIF yield a struct with dimensions only; unreadable files
// yield an empty struct. Neither case is an error: metadata is decoration,
// not scan input.
func ReadMeta(path string) ImageMeta {
	var meta ImageMeta

	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer f.Close()

	// Header-only decode for dimensions; no full pixel read.
	if cfg, _, err := image.DecodeConfig(f); err == nil {
		meta.Width = cfg.Width
		meta.Height = cfg.Height
	}

	if _, err := f.Seek(0, 0); err != nil {
		return meta
	}
	x, err := exif.Decode(f)
	if err != nil {
		return meta
	}

	meta.CameraMake = exifString(x, exif.Make)
	meta.CameraModel = exifString(x, exif.Model)
	meta.Software = exifString(x, exif.Software)

	if t, err := x.DateTime(); err == nil {
		meta.TakenAt = &t
	}
	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := tag.Int(0); err == nil {
			meta.ISO = v
		}
	}
	if num, den, ok := exifRat(x, exif.FNumber); ok {
		meta.FNumber = fmt.Sprintf("f/%.1f", float64(num)/float64(den))
	}
	if num, den, ok := exifRat(x, exif.ExposureTime); ok {
		if num == 1 {
			meta.ExposureTime = fmt.Sprintf("1/%d s", den)
		} else {
			meta.ExposureTime = fmt.Sprintf("%d/%d s", num, den)
		}
	}
	if num, den, ok := exifRat(x, exif.FocalLength); ok {
		meta.FocalLength = fmt.Sprintf("%.0f mm", float64(num)/float64(den))
	}
	if lat, lon, err := x.LatLong(); err == nil {
		meta.GPSLat = &lat
		meta.GPSLon = &lon
	}

	return meta
}

func exifString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func exifRat(x *exif.Exif, field exif.FieldName) (num, den int64, ok bool) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, 0, false
	}
	num, den, err = tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, 0, false
	}
	return num, den, true
}
