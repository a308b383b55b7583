package topic

import "fmt"

// LocationKind discriminates ContentLocation.
type LocationKind int

const (
	// LocationFile covers a whole source file.
	LocationFile LocationKind = iota
	// LocationRange covers a byte range inside a source file.
	LocationRange
	// LocationExternal points outside the catalog, for example a symbol
	// graph entry with no authored markup.
	LocationExternal
)

// ContentLocation records where a topic's content comes from.
type ContentLocation struct {
	Kind  LocationKind
	File  string
	Start int
	End   int
}

// FileLocation returns a whole-file location.
func FileLocation(file string) ContentLocation {
	return ContentLocation{Kind: LocationFile, File: file}
}

// RangeLocation returns a byte-range location in file.
func RangeLocation(file string, start, end int) ContentLocation {
	return ContentLocation{Kind: LocationRange, File: file, Start: start, End: end}
}

// ExternalLocation returns a location for content that lives outside the catalog.
func ExternalLocation(source string) ContentLocation {
	return ContentLocation{Kind: LocationExternal, File: source}
}

func (l ContentLocation) String() string {
	switch l.Kind {
	case LocationRange:
		return fmt.Sprintf("%s[%d:%d]", l.File, l.Start, l.End)
	case LocationExternal:
		return "external:" + l.File
	default:
		return l.File
	}
}
