package discover

const (
	// SourceField is the synthetic column that renders the whole document.
	SourceField = "_source"

	// SourceType is the type reported for SourceField.
	SourceType = "source"
)

// FieldInfo is what a backend knows about one field.
type FieldInfo struct {
	Type string `json:"type"`
}

// Field is one entry of the field list, with its column visibility.
type Field struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Display bool   `json:"display"`
}

func isSourceOnly(columns []string) bool {
	return len(columns) == 1 && columns[0] == SourceField
}

// toggleInOut removes v from list if present, otherwise appends it.
func toggleInOut(list []string, v string) []string {
	out := make([]string, 0, len(list)+1)
	found := false
	for _, item := range list {
		if item == v {
			found = true
			continue
		}
		out = append(out, item)
	}
	if !found {
		out = append(out, v)
	}
	return out
}
