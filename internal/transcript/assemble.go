// Package transcript normalizes recognized ASR segments into caption lines.
package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Options controls transcript assembly behavior.
type Options struct {
	// FilterAnnotations drops segments that contain only bracketed
	// non-speech markers such as "[సంగీతం]" or "(music)".
	FilterAnnotations bool
	// Timestamps prefixes caption lines with the utterance start offset.
	Timestamps bool
}

// Assemble joins final ASR segments into one normalized utterance line.
// Segments are trimmed, empty and annotation-only segments are dropped,
// immediate duplicates are collapsed, and internal whitespace is normalized.
// Telugu script has no letter case, so no casing is applied.
func Assemble(segments []string, opts Options) string {
	if len(segments) == 0 {
		return ""
	}

	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.Join(strings.Fields(seg), " ")
		if seg == "" {
			continue
		}
		if opts.FilterAnnotations && isAnnotation(seg) {
			continue
		}
		if len(kept) > 0 && kept[len(kept)-1] == seg {
			continue
		}
		kept = append(kept, seg)
	}

	return strings.Join(kept, " ")
}

// FormatLine renders one console caption line for an utterance.
func FormatLine(text string, start time.Duration, opts Options) string {
	if !opts.Timestamps {
		return text
	}
	return fmt.Sprintf("[%s] %s", formatOffset(start), text)
}

// formatOffset renders a session-relative offset as mm:ss.t.
func formatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalTenths := d.Milliseconds() / 100
	minutes := totalTenths / 600
	seconds := (totalTenths / 10) % 60
	tenths := totalTenths % 10
	return fmt.Sprintf("%02d:%02d.%d", minutes, seconds, tenths)
}

// isAnnotation reports whether a segment consists only of bracketed or
// parenthesized groups, i.e. carries no spoken text.
func isAnnotation(seg string) bool {
	rest := strings.TrimSpace(seg)
	if rest == "" {
		return false
	}
	sawGroup := false
	for rest != "" {
		var closer byte
		switch rest[0] {
		case '[':
			closer = ']'
		case '(':
			closer = ')'
		default:
			return false
		}
		end := strings.IndexByte(rest, closer)
		if end < 0 {
			return false
		}
		sawGroup = true
		rest = strings.TrimSpace(rest[end+1:])
	}
	return sawGroup
}
