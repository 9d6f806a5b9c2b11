package docxtemplar

import (
	"maps"
	"slices"
)

// Variables — разрешённый набор identifier -> string. Не изменяется после создания,
// поэтому один набор безопасно используется всеми частями пакета и горутинами.
type Variables struct {
	m map[string]string
}

// NewVariables копирует m в новый набор.
func NewVariables(m map[string]string) Variables {
	return Variables{m: maps.Clone(m)}
}

// Lookup возвращает значение и признак членства в наборе.
func (v Variables) Lookup(id string) (string, bool) {
	s, ok := v.m[id]
	return s, ok
}

// Get возвращает значение или пустую строку.
func (v Variables) Get(id string) string { return v.m[id] }

func (v Variables) Len() int { return len(v.m) }

// Keys — идентификаторы в отсортированном порядке.
func (v Variables) Keys() []string {
	return slices.Sorted(maps.Keys(v.m))
}

// Map возвращает копию набора.
func (v Variables) Map() map[string]string {
	if v.m == nil {
		return map[string]string{}
	}
	return maps.Clone(v.m)
}

// with возвращает новый набор с дополнительными значениями; существующие не перезаписываются.
func (v Variables) with(extra map[string]string) Variables {
	out := v.Map()
	for k, s := range extra {
		if _, ok := out[k]; !ok {
			out[k] = s
		}
	}
	return Variables{m: out}
}
