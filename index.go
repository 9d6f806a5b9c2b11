package docxtemplar

import (
	"regexp"
	"strings"
)

// LeafTextNode — один листовой текстовый узел части пакета: <w:t ...>text</w:t>.
// Start/End — байтовый диапазон всего узла в исходном XML,
// FlatStart/FlatEnd — диапазон Text в плоской строке части.
// Text хранится как в XML (с сущностями), поэтому плоская строка тоже экранирована.
type LeafTextNode struct {
	Open      string
	Text      string
	Close     string
	Start     int
	End       int
	FlatStart int
	FlatEnd   int
}

// Indexer находит листовые текстовые узлы заданного элемента.
type Indexer struct {
	rx *regexp.Regexp
}

// NewIndexer строит индексатор для элемента вида "w:t".
// <w:tab/>, <w:tbl> и прочие элементы с тем же префиксом не совпадают.
func NewIndexer(element string) *Indexer {
	el := regexp.QuoteMeta(element)
	return &Indexer{rx: regexp.MustCompile(`(<` + el + `(?:\s[^>]*)?>)([^<]*)(</` + el + `>)`)}
}

// Index сканирует XML одним проходом в порядке документа.
// Пустой результат не ошибка: в части просто нет текста для подстановки.
func (ix *Indexer) Index(xml string) []LeafTextNode {
	ms := ix.rx.FindAllStringSubmatchIndex(xml, -1)
	if len(ms) == 0 {
		return nil
	}
	nodes := make([]LeafTextNode, 0, len(ms))
	flat := 0
	for _, m := range ms {
		text := xml[m[4]:m[5]]
		nodes = append(nodes, LeafTextNode{
			Open:      xml[m[2]:m[3]],
			Text:      text,
			Close:     xml[m[6]:m[7]],
			Start:     m[0],
			End:       m[1],
			FlatStart: flat,
			FlatEnd:   flat + len(text),
		})
		flat += len(text)
	}
	return nodes
}

// Flatten склеивает тексты узлов в порядке документа.
func Flatten(nodes []LeafTextNode) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.Text)
	}
	return sb.String()
}

// Rebuild собирает XML обратно: байты между узлами берутся из исходного xml без изменений,
// сами узлы — как Open+Text+Close.
func Rebuild(xml string, nodes []LeafTextNode) string {
	if len(nodes) == 0 {
		return xml
	}
	var sb strings.Builder
	sb.Grow(len(xml))
	last := 0
	for _, n := range nodes {
		sb.WriteString(xml[last:n.Start])
		sb.WriteString(n.Open)
		sb.WriteString(n.Text)
		sb.WriteString(n.Close)
		last = n.End
	}
	sb.WriteString(xml[last:])
	return sb.String()
}
