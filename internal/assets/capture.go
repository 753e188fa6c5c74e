// Package assets turns captured signature images into persisted, retrievable
// S3 objects and hands back durable URLs.
package assets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"strings"
)

// ErrEmptyAsset is returned for a zero-byte capture payload.
var ErrEmptyAsset = errors.New("signature capture is empty")

// ErrInvalidAssetFormat is returned when the payload is not a decodable
// PNG or JPEG still image.
var ErrInvalidAssetFormat = errors.New("signature capture is not a valid image")

// StorageError wraps an upstream storage failure. The caller may retry;
// nothing was committed to the contract.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// Capture is a decoded, validated signature image ready for upload.
type Capture struct {
	Bytes       []byte
	ContentType string
	Ext         string
}

// DecodeCapture decodes a browser-captured image. The client renders the
// stroke path to a raster canvas and serializes it as a base64 data URL
// (or bare base64 PNG); the payload must decode as a self-contained still
// image so later rendering environments cannot change how it looks.
func DecodeCapture(raw string) (*Capture, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyAsset
	}

	contentType := "image/png"
	if strings.HasPrefix(raw, "data:") {
		rest := strings.TrimPrefix(raw, "data:")
		semi := strings.IndexByte(rest, ';')
		comma := strings.IndexByte(rest, ',')
		if comma < 0 {
			return nil, ErrInvalidAssetFormat
		}
		if semi > 0 && semi < comma {
			contentType = rest[:semi]
		}
		raw = rest[comma+1:]
	}

	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrInvalidAssetFormat
	}
	if len(b) == 0 {
		return nil, ErrEmptyAsset
	}

	switch contentType {
	case "image/png":
		if _, err := png.DecodeConfig(bytes.NewReader(b)); err != nil {
			return nil, ErrInvalidAssetFormat
		}
		return &Capture{Bytes: b, ContentType: contentType, Ext: ".png"}, nil
	case "image/jpeg":
		if _, err := jpeg.DecodeConfig(bytes.NewReader(b)); err != nil {
			return nil, ErrInvalidAssetFormat
		}
		return &Capture{Bytes: b, ContentType: contentType, Ext: ".jpg"}, nil
	default:
		return nil, ErrInvalidAssetFormat
	}
}
