package entity

import (
	"fmt"
	"strconv"
	"strings"
)

const designPromptTemplate = "Design a %s house (%sx%sft). Materials: %s. Details: %s."

// BuildPrompt interpolates the request into the generation prompt. Field
// order is fixed: style, length, width, materials, brief.
func BuildPrompt(r DesignRequest) string {
	return fmt.Sprintf(designPromptTemplate,
		r.Style,
		FormatFeet(r.Length),
		FormatFeet(r.Width),
		FormatMaterials(r.Materials),
		r.Brief,
	)
}

// FormatFeet prints the shortest decimal that round-trips, so 60 stays "60".
func FormatFeet(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatMaterials renders the selection as a quoted list, "[]" when empty.
func FormatMaterials(ms []Material) string {
	quoted := make([]string, 0, len(ms))
	for _, m := range ms {
		quoted = append(quoted, "'"+string(m)+"'")
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
