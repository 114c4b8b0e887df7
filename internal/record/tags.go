package record

import "strings"

// ParseTags splits comma-separated tag input. Each tag is trimmed and empty
// pieces are dropped; order and duplicates are kept as entered.
func ParseTags(input string) []string {
	tags := []string{}
	for _, part := range strings.Split(input, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// FormatTags renders tags back into form input.
func FormatTags(tags []string) string {
	return strings.Join(tags, ", ")
}
