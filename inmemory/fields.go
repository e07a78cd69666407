package inmemory

import (
	"context"

	"github.com/letmevibethatforyou/discover"
)

// ListFields implements discover.FieldLister. Types are inferred from the
// stored values; the first document that sets a field decides its type.
func (b *Backend) ListFields(ctx context.Context, index string) (map[string]discover.FieldInfo, error) {
	select {
	case <-ctx.Done():
		return nil, discover.ErrCanceled
	default:
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	fields := make(map[string]discover.FieldInfo)
	for _, doc := range b.documents {
		if !matchIndex(index, doc.Index) {
			continue
		}
		for name, value := range doc.Fields {
			if _, seen := fields[name]; seen || value == nil {
				continue
			}
			fields[name] = discover.FieldInfo{Type: discover.InferFieldType(value)}
		}
	}
	return fields, nil
}
