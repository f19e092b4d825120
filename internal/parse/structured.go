package parse

import (
	"regexp"
	"strings"

	"github.com/bizmatters/deviation-service/internal/record"
)

var labelPattern = regexp.MustCompile(`^([A-Z][A-Z0-9_]*)\s*:\s*(.*)$`)

// StructuredText parses labelled model output of the form
//
//	FIELD_NAME: value
//	continuation line
//
// into a record keyed by label in first-seen order. A value that is a JSON
// object is stored as a nested record. Blank lines, lines starting with '-'
// and '===' banners are skipped. Text without any label is returned as
// {"content": text}.
func StructuredText(text string) *record.Record {
	out := record.New()

	var label string
	var lines []string
	flush := func() {
		if label == "" {
			return
		}
		out.Set(label, fieldValue(strings.TrimSpace(strings.Join(lines, "\n"))))
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "===") {
			continue
		}
		if m := labelPattern.FindStringSubmatch(line); m != nil {
			flush()
			label = m[1]
			lines = []string{m[2]}
			continue
		}
		if label != "" {
			lines = append(lines, line)
		}
	}
	flush()

	if out.Len() == 0 {
		return record.New().Set("content", record.String(text))
	}
	return out
}

func fieldValue(text string) record.Value {
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		if rec, err := record.ParseString(text); err == nil {
			return record.Object(rec)
		}
	}
	return record.String(text)
}
