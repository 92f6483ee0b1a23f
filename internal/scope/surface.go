package scope

import (
	"errors"
	"reflect"
	"sort"
	"sync"

	"github.com/traefik/yaegi/interp"
)

// ImportPath is the virtual package card code resolves against. It exists
// only inside the interpreter; there is no module by this name.
const ImportPath = "cardkit"

// CurrentVersion is the surface version stamped into newly compiled
// artifacts.
const CurrentVersion = 1

// ErrUnknownVersion reports an artifact pinned to a surface version this
// build does not carry.
var ErrUnknownVersion = errors.New("unknown scope version")

// Surface is one immutable version of the exported name table. Everything
// a card can reference beyond its own declarations and language builtins
// is listed here; the compiler checks names against it and the factory
// loads it into the interpreter.
type Surface struct {
	version int
	names   []string
	exports interp.Exports
	member  map[string]bool
}

// Version returns the surface version number.
func (s *Surface) Version() int { return s.version }

// Names returns the exported names in sorted order. The caller may keep
// the slice; it is a copy.
func (s *Surface) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Exports returns the interpreter symbol table for this surface.
func (s *Surface) Exports() interp.Exports { return s.exports }

// Has reports whether name is part of this surface.
func (s *Surface) Has(name string) bool { return s.member[name] }

var (
	v1Once sync.Once
	v1     *Surface
)

// V1 returns the version-1 surface.
func V1() *Surface {
	v1Once.Do(func() {
		v1 = build(1, map[string]reflect.Value{
			// Types.
			"Card": reflect.ValueOf((*Card)(nil)),
			"Row":  reflect.ValueOf((*Row)(nil)),

			// Data helpers.
			"Search":   reflect.ValueOf(Search),
			"SortBy":   reflect.ValueOf(SortBy),
			"Paginate": reflect.ValueOf(Paginate),
			"Sum":      reflect.ValueOf(Sum),
			"Avg":      reflect.ValueOf(Avg),
			"Min":      reflect.ValueOf(Min),
			"Max":      reflect.ValueOf(Max),
			"CountBy":  reflect.ValueOf(CountBy),

			// Formatting.
			"Sprintf":      reflect.ValueOf(Sprintf),
			"Errorf":       reflect.ValueOf(Errorf),
			"FormatNumber": reflect.ValueOf(FormatNumber),
			"FormatDate":   reflect.ValueOf(FormatDate),
			"TimeAgo":      reflect.ValueOf(TimeAgo),
			"Truncate":     reflect.ValueOf(Truncate),

			// Presentation.
			"Bold":     reflect.ValueOf(Bold),
			"Faint":    reflect.ValueOf(Faint),
			"Colorize": reflect.ValueOf(Colorize),
			"Badge":    reflect.ValueOf(Badge),
			"Icon":     reflect.ValueOf(Icon),
			"Line":     reflect.ValueOf(Line),
			"Merge":    reflect.ValueOf(Merge),
			"Divider":  reflect.ValueOf(Divider),
			"Skeleton": reflect.ValueOf(Skeleton),
			"StatLine": reflect.ValueOf(StatLine),
			"Table":    reflect.ValueOf(Table),
		})
	})
	return v1
}

// ByVersion resolves a surface by the version recorded in an artifact.
func ByVersion(v int) (*Surface, error) {
	if v == 1 {
		return V1(), nil
	}
	return nil, ErrUnknownVersion
}

func build(version int, symbols map[string]reflect.Value) *Surface {
	names := make([]string, 0, len(symbols))
	member := make(map[string]bool, len(symbols))
	for name := range symbols {
		names = append(names, name)
		member[name] = true
	}
	sort.Strings(names)
	return &Surface{
		version: version,
		names:   names,
		// The interpreter keys symbol tables by "importPath/packageName".
		exports: interp.Exports{ImportPath + "/" + ImportPath: symbols},
		member:  member,
	}
}
