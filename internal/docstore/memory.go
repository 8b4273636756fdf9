package docstore

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Client used by tests. SetFailing simulates a
// transport outage: every call errors until it is cleared.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	failing     bool
}

var errMemoryUnavailable = errors.New("docstore: backend unreachable")

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]map[string]any)}
}

func (m *Memory) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

func (m *Memory) Add(_ context.Context, path string, data map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", errMemoryUnavailable
	}
	id := uuid.NewString()
	m.collection(path)[id] = copyDoc(data)
	return id, nil
}

func (m *Memory) Set(_ context.Context, path, id string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMemoryUnavailable
	}
	m.collection(path)[id] = copyDoc(data)
	return nil
}

func (m *Memory) Get(_ context.Context, path, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failing {
		return nil, errMemoryUnavailable
	}
	doc, ok := m.collections[path][id]
	if !ok {
		return nil, nil
	}
	return copyDoc(doc), nil
}

func (m *Memory) Update(_ context.Context, path, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMemoryUnavailable
	}
	doc, ok := m.collections[path][id]
	if !ok {
		return ErrNotFound
	}
	for key, value := range fields {
		if value == nil {
			delete(doc, key)
			continue
		}
		doc[key] = value
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, path, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errMemoryUnavailable
	}
	delete(m.collections[path], id)
	return nil
}

func (m *Memory) Query(_ context.Context, path string, q Query) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failing {
		return nil, errMemoryUnavailable
	}

	snapshots := make([]Snapshot, 0)
	for id, doc := range m.collections[path] {
		if !matches(doc, q.Filters) {
			continue
		}
		snapshots = append(snapshots, Snapshot{ID: id, Data: copyDoc(doc)})
	}

	if q.OrderBy != "" {
		sort.SliceStable(snapshots, func(i, j int) bool {
			a := snapshots[i].Data[q.OrderBy]
			b := snapshots[j].Data[q.OrderBy]
			if q.Descending {
				return lessValue(b, a)
			}
			return lessValue(a, b)
		})
	}
	if q.Limit > 0 && len(snapshots) > q.Limit {
		snapshots = snapshots[:q.Limit]
	}
	return snapshots, nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) collection(path string) map[string]map[string]any {
	col, ok := m.collections[path]
	if !ok {
		col = make(map[string]map[string]any)
		m.collections[path] = col
	}
	return col
}

func matches(doc map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !reflect.DeepEqual(doc[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func lessValue(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Before(bt)
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		out[key] = copyValue(value)
	}
	return out
}

func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return copyDoc(v)
	case []map[string]any:
		out := make([]map[string]any, 0, len(v))
		for _, entry := range v {
			out = append(out, copyDoc(entry))
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, entry := range v {
			out = append(out, copyValue(entry))
		}
		return out
	case []string:
		return append([]string{}, v...)
	default:
		return v
	}
}
