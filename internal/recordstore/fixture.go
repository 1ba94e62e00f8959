package recordstore

import (
	"context"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Putter overwrites a path in the store.
type Putter interface {
	Put(ctx context.Context, path string, payload any) (any, bool)
}

// Fixture maps top-level store paths to the value written there.
type Fixture map[string]any

// LoadFixture decodes a YAML fixture. Mapping keys of any scalar type are
// turned into strings, since the store only has string keys.
func LoadFixture(r io.Reader) (Fixture, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return Fixture{}, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	f := make(Fixture, len(raw))
	for k, v := range raw {
		f[k] = stringKeys(v)
	}
	return f, nil
}

func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = stringKeys(x)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[fmt.Sprint(k)] = stringKeys(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = stringKeys(x)
		}
		return out
	}
	return v
}

// Paths returns the fixture's top-level paths in sorted order.
func (f Fixture) Paths() []string {
	paths := make([]string, 0, len(f))
	for p := range f {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Seed writes every collection of f with Put, in path order. It attempts all
// paths and returns the ones that failed.
func Seed(ctx context.Context, p Putter, f Fixture) (failed []string) {
	for _, path := range f.Paths() {
		if _, ok := p.Put(ctx, path, f[path]); !ok {
			failed = append(failed, path)
		}
	}
	return failed
}
