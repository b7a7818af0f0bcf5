package providers

import "strings"

const instructionsHeader = "[Instructions]\n"

// FormatInstructions renders scoring rules as a bulleted block placed ahead
// of the content under review. Blank rules are dropped and surrounding
// whitespace is trimmed.
func FormatInstructions(instr []string) string {
	var b strings.Builder
	b.WriteString(instructionsHeader)
	for _, rule := range instr {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteByte('\n')
	}
	return b.String()
}
