package completion

import (
	"encoding/json"
	"strings"
)

type JsonCandidate struct {
	Value       string `json:"Value"`
	Description string `json:"Description"`
}

// ParseExternalCompletionOutput turns the stdout of a -C command into
// candidates. Each line is one candidate; a tab separates an optional
// description. Output that is a JSON array of strings or of
// {"Value","Description"} objects (Carapace style) is also accepted.
func ParseExternalCompletionOutput(output string) ([]Candidate, error) {
	trimmedOutput := strings.TrimSpace(output)
	if trimmedOutput == "" {
		return []Candidate{}, nil
	}

	if strings.HasPrefix(trimmedOutput, "[") {
		if candidates, ok := parseJSONCandidates(trimmedOutput); ok {
			return candidates, nil
		}
	}

	lines := strings.Split(output, "\n")
	completions := make([]Candidate, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}

		if strings.HasPrefix(l, "[") {
			if candidates, ok := parseJSONCandidates(l); ok && len(candidates) > 0 {
				completions = append(completions, candidates...)
				continue
			}
		}
		if strings.HasPrefix(l, "{") {
			var obj JsonCandidate
			if err := json.Unmarshal([]byte(l), &obj); err == nil && obj.Value != "" {
				completions = append(completions, Candidate(obj))
				continue
			}
		}

		value, description, _ := strings.Cut(l, "\t")
		completions = append(completions, Candidate{Value: value, Description: description})
	}

	return completions, nil
}

func parseJSONCandidates(s string) ([]Candidate, bool) {
	var stringList []string
	if err := json.Unmarshal([]byte(s), &stringList); err == nil {
		candidates := make([]Candidate, 0, len(stringList))
		for _, v := range stringList {
			candidates = append(candidates, Candidate{Value: v})
		}
		return candidates, true
	}

	var objList []JsonCandidate
	if err := json.Unmarshal([]byte(s), &objList); err == nil {
		candidates := make([]Candidate, 0, len(objList))
		for _, o := range objList {
			candidates = append(candidates, Candidate(o))
		}
		return candidates, true
	}

	return nil, false
}
