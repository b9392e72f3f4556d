// Package parse turns free-form model output into typed values. Model text
// is best-effort territory: these functions never fail, they extract what
// they can recognize and drop the rest.
package parse

import "strings"

// bulletMarkers are the line prefixes recognized as bullet points.
var bulletMarkers = []string{"•", "-", "*"}

// BulletItems extracts bullet-marked lines from text in order. The marker is
// stripped and the item trimmed; items that end up blank are dropped.
// Duplicates survive: the caller sees exactly what the model listed.
func BulletItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		if item, ok := bulletItem(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// bulletItem strips one leading bullet marker from a line. The second return
// is false when the line is not bullet-marked or is blank after stripping.
func bulletItem(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(trimmed, marker) {
			item := strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
			if item == "" {
				return "", false
			}
			return item, true
		}
	}
	return "", false
}

// Sections splits text into the given sections. A line containing a header
// phrase (case-insensitive substring) switches the current section; bullet
// lines are appended to whichever section is current. Lines before the first
// recognized header are dropped. Every header appears in the result, possibly
// with an empty list, so consumers never check for a missing key.
//
// A line that reads as both a header and a bullet counts as a header. When
// several header phrases appear in one line, the first in headers order wins.
func Sections(text string, headers []string) map[string][]string {
	sections := make(map[string][]string, len(headers))
	for _, header := range headers {
		sections[header] = []string{}
	}

	current := ""
	for _, line := range strings.Split(text, "\n") {
		if header, ok := matchHeader(line, headers); ok {
			current = header
			continue
		}
		if current == "" {
			continue
		}
		if item, ok := bulletItem(line); ok {
			sections[current] = append(sections[current], item)
		}
	}
	return sections
}

// matchHeader returns the first header phrase contained in the line.
func matchHeader(line string, headers []string) (string, bool) {
	lowered := strings.ToLower(line)
	for _, header := range headers {
		if strings.Contains(lowered, strings.ToLower(header)) {
			return header, true
		}
	}
	return "", false
}
