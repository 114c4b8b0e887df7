// Package media turns photo files into the data URLs stored on records.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// ErrNotImage is returned for content that does not sniff as an image.
var ErrNotImage = errors.New("not an image")

// DataURL encodes image bytes as a base64 data URL. The media type is
// sniffed from the content, not taken from a file name.
func DataURL(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %w (%s)", types.ErrValidation, ErrNotImage, mt.String())
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Load reads each path and returns its data URL, in order.
func Load(paths ...string) ([]string, error) {
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading photo %s: %w", p, err)
		}
		url, err := DataURL(data)
		if err != nil {
			return nil, fmt.Errorf("photo %s: %w", p, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// MediaType returns the media type of a data URL, or "" if s is not one.
func MediaType(s string) string {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return ""
	}
	mt, _, ok := strings.Cut(rest, ";")
	if !ok {
		mt, _, _ = strings.Cut(rest, ",")
	}
	return mt
}
