package paramhost

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/paramwire/internal/param"
)

var ErrInvalidParam = errors.New("paramhost: invalid parameter")

// Store holds the host's named parameter values.
type Store struct {
	mu     sync.RWMutex
	values map[string]param.Value
}

func NewStore() *Store {
	return &Store{values: make(map[string]param.Value)}
}

// Set stores v under name, replacing any previous value.
func (s *Store) Set(name string, v param.Value) error {
	if strings.TrimSpace(name) == "" || len(name) > param.MaxNameLen {
		return fmt.Errorf("%w: name %q", ErrInvalidParam, name)
	}
	if !v.IsValid() {
		return fmt.Errorf("%w: %q has no value", ErrInvalidParam, name)
	}
	if v.Kind().IsArray() && (v.Len() == 0 || v.Len() > param.MaxArrayLen) {
		return fmt.Errorf("%w: %q array length %d outside [1,%d]", ErrInvalidParam, name, v.Len(), param.MaxArrayLen)
	}
	s.mu.Lock()
	s.values[name] = v
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(name string) (param.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

func (s *Store) Delete(name string) {
	s.mu.Lock()
	delete(s.values, name)
	s.mu.Unlock()
}

// Names returns stored parameter names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.values))
	for name := range s.values {
		out = append(out, name)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// LoadStore reads a TOML params file. Integers become int32, floats
// float32, and homogeneous arrays the matching array kind. Nested tables
// flatten into dotted names.
func LoadStore(path string) (*Store, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("paramhost: load %s: %w", path, err)
	}
	return StoreFromMap(raw)
}

// ParseStore is LoadStore for an in-memory document.
func ParseStore(doc string) (*Store, error) {
	var raw map[string]any
	if _, err := toml.Decode(doc, &raw); err != nil {
		return nil, fmt.Errorf("paramhost: parse params: %w", err)
	}
	return StoreFromMap(raw)
}

func StoreFromMap(raw map[string]any) (*Store, error) {
	s := NewStore()
	if err := s.load("", raw); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(prefix string, raw map[string]any) error {
	for key, rv := range raw {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		if table, ok := rv.(map[string]any); ok {
			if err := s.load(name, table); err != nil {
				return err
			}
			continue
		}
		v, err := toValue(rv)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidParam, name, err)
		}
		if err := s.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

func toValue(rv any) (param.Value, error) {
	switch x := rv.(type) {
	case int64:
		i, err := toInt32(x)
		if err != nil {
			return param.Value{}, err
		}
		return param.Int32(i), nil
	case float64:
		return param.Float32(float32(x)), nil
	case string:
		return param.String(x), nil
	case []any:
		return toArray(x)
	default:
		return param.Value{}, fmt.Errorf("unsupported type %T", rv)
	}
}

func toArray(items []any) (param.Value, error) {
	if len(items) == 0 {
		return param.Value{}, errors.New("empty array")
	}
	switch items[0].(type) {
	case int64:
		out := make([]int32, 0, len(items))
		for i, it := range items {
			x, ok := it.(int64)
			if !ok {
				return param.Value{}, fmt.Errorf("mixed array at index %d", i)
			}
			v, err := toInt32(x)
			if err != nil {
				return param.Value{}, err
			}
			out = append(out, v)
		}
		return param.Int32s(out), nil
	case float64:
		out := make([]float32, 0, len(items))
		for i, it := range items {
			x, ok := it.(float64)
			if !ok {
				return param.Value{}, fmt.Errorf("mixed array at index %d", i)
			}
			out = append(out, float32(x))
		}
		return param.Float32s(out), nil
	case string:
		out := make([]string, 0, len(items))
		for i, it := range items {
			x, ok := it.(string)
			if !ok {
				return param.Value{}, fmt.Errorf("mixed array at index %d", i)
			}
			out = append(out, x)
		}
		return param.Strings(out), nil
	default:
		return param.Value{}, fmt.Errorf("unsupported array element %T", items[0])
	}
}

func toInt32(x int64) (int32, error) {
	if x < math.MinInt32 || x > math.MaxInt32 {
		return 0, fmt.Errorf("integer %d overflows int32", x)
	}
	return int32(x), nil
}
