//go:build !cgo

package ocr

import "errors"

// NewTesseract is unavailable without cgo; gosseract links against libtesseract.
func NewTesseract(languages ...string) (Detector, error) {
	return nil, errors.New("tesseract detector requires a cgo build")
}
