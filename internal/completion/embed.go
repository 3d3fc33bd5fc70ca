package completion

import (
	"embed"
)

// CompletionData contains the default completion specs for shell builtins
// and common system commands, embedded at compile time.
//
//go:embed data/*.yaml
var CompletionData embed.FS
