package docxtemplar

import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Occurrence — одно вхождение {{identifier}} в плоской строке части.
type Occurrence struct {
	Identifier string
	FlatStart  int
	FlatEnd    int
}

var (
	xmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	// rxToken — любой токен; используется только при BlankUnknown.
	rxToken = regexp.MustCompile(`\{\{([A-Za-z0-9_.\-]+)\}\}`)
)

// Locate находит все вхождения токенов для идентификаторов из vars.
// Результат отсортирован по убыванию FlatStart.
func Locate(flat string, vars Variables) []Occurrence {
	if !strings.Contains(flat, "{{") {
		return nil
	}
	var occs []Occurrence
	for _, id := range vars.Keys() {
		if id == "" || strings.ContainsAny(id, "{}") {
			continue
		}
		tok := "{{" + id + "}}"
		for off := 0; ; {
			i := strings.Index(flat[off:], tok)
			if i < 0 {
				break
			}
			start := off + i
			occs = append(occs, Occurrence{Identifier: id, FlatStart: start, FlatEnd: start + len(tok)})
			off = start + len(tok)
		}
	}
	slices.SortFunc(occs, func(a, b Occurrence) int { return b.FlatStart - a.FlatStart })
	return occs
}

// Substitute заменяет токены в узлах значениями из vars (merge–locate–splice).
// Возвращает новый срез той же длины и порядка; исходные узлы не меняются.
// Токен, разбитый на несколько узлов, схлопывается в первый фрагмент,
// остальные фрагменты получают пустой текст, разметка вокруг них не трогается.
func Substitute(nodes []LeafTextNode, flat string, vars Variables) ([]LeafTextNode, error) {
	out, _, err := splice(nodes, flat, vars, xmlEscaper.Replace)
	return out, err
}

// ExpandString подставляет переменные в обычную строку (например, шаблон имени файла)
// без XML-экранирования.
func ExpandString(pattern string, vars Variables) string {
	nodes := []LeafTextNode{{Text: pattern, FlatEnd: len(pattern)}}
	out, _, err := splice(nodes, pattern, vars, func(s string) string { return s })
	if err != nil {
		return pattern
	}
	return out[0].Text
}

// splice возвращает узлы и число выполненных замен.
func splice(nodes []LeafTextNode, flat string, vars Variables, escape func(string) string) ([]LeafTextNode, int, error) {
	occs := Locate(flat, vars)
	if len(occs) == 0 {
		return nodes, 0, nil
	}
	out := slices.Clone(nodes)
	// Обработка с конца: диапазоны узлов берутся из исходных координат,
	// а изменения уже обработанных вхождений лежат правее текущего.
	for _, oc := range occs {
		si := findNode(out, oc.FlatStart)
		ei := findNode(out, oc.FlatEnd-1)
		if si < 0 || ei < 0 || ei < si {
			return nil, 0, violation(oc, flat)
		}
		ls := oc.FlatStart - out[si].FlatStart
		le := oc.FlatEnd - out[ei].FlatStart
		if ls > len(out[si].Text) || le > len(out[ei].Text) {
			return nil, 0, violation(oc, flat)
		}
		prefix := out[si].Text[:ls]
		suffix := out[ei].Text[le:]
		for k := si + 1; k <= ei; k++ {
			out[k].Text = ""
		}
		out[si].Text = prefix + escape(vars.Get(oc.Identifier)) + suffix
	}
	return out, len(occs), nil
}

// findNode — индекс узла, чей исходный диапазон содержит pos; -1, если такого нет.
// Узлы с пустым текстом пропускаются автоматически.
func findNode(nodes []LeafTextNode, pos int) int {
	if pos < 0 {
		return -1
	}
	i := sort.Search(len(nodes), func(i int) bool { return nodes[i].FlatEnd > pos })
	if i == len(nodes) || nodes[i].FlatStart > pos {
		return -1
	}
	return i
}

func violation(oc Occurrence, flat string) error {
	return &SpliceInvariantViolation{
		Identifier: oc.Identifier,
		FlatStart:  oc.FlatStart,
		FlatEnd:    oc.FlatEnd,
		FlatLen:    len(flat),
	}
}

// unknownTokens собирает идентификаторы токенов, отсутствующих в vars.
func unknownTokens(flat string, vars Variables) map[string]string {
	var out map[string]string
	for _, m := range rxToken.FindAllStringSubmatch(flat, -1) {
		if _, ok := vars.Lookup(m[1]); ok {
			continue
		}
		if out == nil {
			out = map[string]string{}
		}
		out[m[1]] = ""
	}
	return out
}
