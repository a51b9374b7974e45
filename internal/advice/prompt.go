package advice

import (
	"fmt"
	"strings"
)

// Section headings the model is asked to produce, in order.
var Sections = []string{
	"Primary Disposal Method",
	"Recycling or Reuse Ideas",
	"Important Note",
}

// Prompt returns the fixed disposal-advice prompt for a trash category.
func Prompt(category string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provide eco-friendly disposal and recycling tips for '%s'.\n\n", strings.TrimSpace(category))
	b.WriteString("Format:\n")
	for i, s := range Sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return b.String()
}
