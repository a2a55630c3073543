package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"

	dataURIPrefix       = "data:"
	fallbackContentType = "application/octet-stream"
)

var (
	ErrEmpty    = errors.New("image data is empty")
	ErrNotImage = errors.New("data is not an image")
)

// Image is an encoded raster image together with its MIME type.
type Image struct {
	MIMEType string
	Data     []byte
}

// New builds an Image, sniffing the MIME type when none is given.
func New(data []byte, mimeType string) Image {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return Image{MIMEType: mimeType, Data: data}
}

// Parse decodes a data URI. Bare base64 payloads are accepted too and
// their content type is sniffed.
func Parse(s string) (Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Image{}, ErrEmpty
	}

	if !strings.HasPrefix(s, dataURIPrefix) {
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Image{}, fmt.Errorf("failed to decode base64 image: %w", err)
		}
		return validate(New(raw, ""))
	}

	du, err := dataurl.DecodeString(s)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return validate(New(du.Data, du.MediaType.ContentType()))
}

// ParseAll decodes every entry, failing on the first invalid one.
func ParseAll(values []string) ([]Image, error) {
	images := make([]Image, 0, len(values))
	for i, v := range values {
		img, err := Parse(v)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		images = append(images, img)
	}
	return images, nil
}

func validate(img Image) (Image, error) {
	if len(img.Data) == 0 {
		return Image{}, ErrEmpty
	}
	if !img.IsImage() {
		return Image{}, fmt.Errorf("%w: %s", ErrNotImage, img.MIMEType)
	}
	return img, nil
}

// IsImage reports whether the MIME type is an image type.
func (i Image) IsImage() bool {
	return strings.HasPrefix(i.MIMEType, "image/")
}

// DataURI returns the image as a base64 data URI.
func (i Image) DataURI() string {
	mimeType := i.MIMEType
	if !strings.Contains(mimeType, "/") {
		mimeType = fallbackContentType
	}
	return dataurl.New(i.Data, mimeType).String()
}
