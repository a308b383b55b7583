// Package frontmatter splits YAML front matter from authored markup and
// decodes the page directives it carries.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml front matter start delimiter found but closing delimiter is missing")

// Metadata holds the page directives authors can set in front matter.
type Metadata struct {
	Title            string `yaml:"title"`
	Kind             string `yaml:"kind"`
	TechnologyRoot   bool   `yaml:"technology_root"`
	AutomaticSeeAlso string `yaml:"automatic_see_also"`
	DisplayName      string `yaml:"display_name"`
}

// Split separates YAML front matter (`---` delimited) from the markup body.
// Offset is the byte offset of the body within content.
//
// If the document does not start with a front matter delimiter, had is false
// and body is the full input.
func Split(content []byte) (front, body []byte, offset int, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, 0, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		offset = start + len(open)
		return []byte{}, content[offset:], offset, true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		return nil, nil, 0, false, ErrMissingClosingDelimiter
	}
	offset = start + idx + len(closeSeq)
	return content[start : start+idx+len(nl)], content[offset:], offset, true, nil
}

// ParseYAML parses raw YAML front matter (without delimiters) into a map.
func ParseYAML(front []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(front) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(front, &fields); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Decode parses raw YAML front matter into Metadata.
func Decode(front []byte) (Metadata, error) {
	var md Metadata
	if len(bytes.TrimSpace(front)) == 0 {
		return md, nil
	}
	if err := yaml.Unmarshal(front, &md); err != nil {
		return Metadata{}, fmt.Errorf("parse front matter: %w", err)
	}
	return md, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
