package common

import (
	"fmt"
	"strings"
)

// Format is the output format a report template produces.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

var Formats = []Format{FormatHTML, FormatMarkdown, FormatCSV}

// Extension returns the file extension, with the leading dot, used for
// rendered output in this format.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return ".html"
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	default:
		return ".txt"
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html", "htm":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}
