package styles

import (
	"os"

	"github.com/muesli/termenv"
)

var (
	stdout = termenv.NewOutput(os.Stdout)

	ERROR = func(s string) string {
		return stdout.String(s).
			Foreground(stdout.Color("9")).
			String()
	}
	// HEADING styles section titles in usage output (e.g., "Usage:", "Options:")
	HEADING = func(s string) string {
		return stdout.String(s).
			Foreground(stdout.Color("11")).
			Bold().
			String()
	}
	// PROMPT_HINT styles secondary text with dimmed appearance (e.g., candidate descriptions)
	PROMPT_HINT = func(s string) string {
		return stdout.String(s).
			Foreground(stdout.Color("244")).
			String()
	}
)
