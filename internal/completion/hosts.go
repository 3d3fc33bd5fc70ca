package completion

import (
	"bufio"
	"os"
	"strings"
)

// scanLines calls fn for every non-blank, non-comment line of path. A missing
// or unreadable file is treated as empty.
func scanLines(path string, fn func(line string)) {
	if path == "" {
		return
	}
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(line)
	}
}

// readColonNames returns the first colon-separated field of each line, the
// layout shared by passwd and group files.
func readColonNames(path string) []string {
	var names []string
	scanLines(path, func(line string) {
		name, _, _ := strings.Cut(line, ":")
		// NIS compat entries start with + or -
		if name == "" || strings.HasPrefix(name, "+") || strings.HasPrefix(name, "-") {
			return
		}
		names = append(names, name)
	})
	return names
}

// readServices returns the service names and aliases of a services file.
func readServices(path string) []string {
	var names []string
	scanLines(path, func(line string) {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return
		}
		// name port/proto [aliases...]
		names = append(names, fields[0])
		names = append(names, fields[2:]...)
	})
	return names
}

// readHostsFile returns the host names of an /etc/hosts style file, skipping
// the address column.
func readHostsFile(path string, hosts map[string]bool) {
	scanLines(path, func(line string) {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		for _, h := range fields[min(1, len(fields)):] {
			hosts[h] = true
		}
	})
}

// parseKnownHosts adds the plain host names of an ssh known_hosts file.
func parseKnownHosts(knownHostsPath string, hosts map[string]bool) {
	scanLines(knownHostsPath, func(line string) {
		// Format: hostname[,hostname2,...] keytype key [comment]
		// or: @marker hostname keytype key
		// Hashed: |1|base64salt|base64hash keytype key
		if strings.HasPrefix(line, "|") {
			return
		}

		if strings.HasPrefix(line, "@") {
			parts := strings.Fields(line)
			if len(parts) < 2 {
				return
			}
			line = strings.Join(parts[1:], " ")
		}

		fields := strings.Fields(line)
		if len(fields) < 1 {
			return
		}

		for _, h := range strings.Split(fields[0], ",") {
			h = strings.TrimSpace(h)
			// [hostname]:port
			if strings.HasPrefix(h, "[") {
				if end := strings.Index(h, "]"); end > 1 {
					h = h[1:end]
				}
			}
			if h == "" || looksLikeIPAddress(h) || strings.ContainsAny(h, "*?") {
				continue
			}
			hosts[h] = true
		}
	})
}

// looksLikeIPAddress returns true if the string looks like an IPv4 or IPv6 address.
func looksLikeIPAddress(s string) bool {
	allIPv4 := true
	for _, c := range s {
		if !((c >= '0' && c <= '9') || c == '.') {
			allIPv4 = false
			break
		}
	}
	if allIPv4 && strings.Contains(s, ".") {
		return true
	}

	if strings.Contains(s, ":") {
		for _, c := range s {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == ':' || c == '.') {
				return false
			}
		}
		return true
	}

	return false
}
