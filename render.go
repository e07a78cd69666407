package discover

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// FormatCell renders one column of a hit for the results table.
// The _source column is the document as JSON, cut to maxLen runes.
func FormatCell(hit Hit, column string, maxLen int) string {
	if column == SourceField {
		data, err := json.Marshal(hit.Source)
		if err != nil {
			return fmt.Sprintf("%v", hit.Source)
		}
		return truncate(string(data), maxLen)
	}
	v, ok := hit.Source[column]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen]) + "..."
}
