package modifier

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat is returned for output formats the renderer cannot encode
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output encoding. The empty format keeps the source encoding.
type Format string

// Supported output formats
const (
	FormatOriginal Format = ""
	FormatJPEG     Format = "jpg"
	FormatPNG      Format = "png"
	FormatGIF      Format = "gif"
	FormatWebP     Format = "webp"
)

// Formats lists every explicit output format
func Formats() []Format {
	return []Format{FormatJPEG, FormatPNG, FormatGIF, FormatWebP}
}

// ParseFormat accepts a format name or file extension, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "":
		return FormatOriginal, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	case "webp":
		return FormatWebP, nil
	}
	return FormatOriginal, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension without the dot
func (f Format) Extension() string {
	return string(f)
}

// Or returns f, or fallback when f keeps the source encoding
func (f Format) Or(fallback Format) Format {
	if f == FormatOriginal {
		return fallback
	}
	return f
}
