package docxtemplar

import (
	_ "embed"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/goccy/go-yaml"
)

// FieldKind определяет способ нормализации значения поля.
type FieldKind string

const (
	KindText FieldKind = "text"
	KindDate FieldKind = "date"
)

// FieldRule — цепочка алиасов для одного идентификатора.
// Keys перебираются по порядку, берётся первое непустое значение.
// DateKeys — запасная цепочка дат для текстового поля (форматируется в DD-MM-YYYY).
type FieldRule struct {
	ID       string    `yaml:"id"`
	Kind     FieldKind `yaml:"kind,omitempty"`
	Keys     []string  `yaml:"keys"`
	DateKeys []string  `yaml:"date_keys,omitempty"`
}

// NameRule — разбиение полного имени, если имя и фамилия не заданы отдельно.
type NameRule struct {
	First    string   `yaml:"first"`
	Last     string   `yaml:"last"`
	FullKeys []string `yaml:"full_keys"`
}

// ChainRule — правило непрерывности: если дата ID не задана явно,
// она берётся из уже разрешённой даты From.
type ChainRule struct {
	ID   string `yaml:"id"`
	From string `yaml:"from"`
}

// DerivedRule — вычисляемая переменная (выражение expr-lang над разрешённым набором).
type DerivedRule struct {
	ID   string `yaml:"id"`
	Expr string `yaml:"expr"`
}

// Config — неизменяемая конфигурация движка: какие части пакета обрабатывать
// и как получать переменные из сырой записи.
type Config struct {
	PrimaryPart  string        `yaml:"primary_part"`
	Parts        []string      `yaml:"parts"`
	TextElement  string        `yaml:"text_element"`
	BlankUnknown bool          `yaml:"blank_unknown"`
	Fields       []FieldRule   `yaml:"fields"`
	Name         NameRule      `yaml:"name"`
	Chains       []ChainRule   `yaml:"chains"`
	Derived      []DerivedRule `yaml:"derived"`
}

//go:embed default_config.yaml
var defaultConfigYAML []byte

var defaultConfig = sync.OnceValues(func() (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		return Config{}, fmt.Errorf("конфигурация по умолчанию: %w", err)
	}
	return cfg, nil
})

// DefaultConfig возвращает копию встроенной конфигурации для шаблонов договоров.
func DefaultConfig() Config {
	cfg, err := defaultConfig()
	if err != nil {
		panic(err)
	}
	return cfg.clone()
}

// LoadConfig читает конфигурацию в YAML. Незаданные parts/primary_part/text_element
// берутся из конфигурации по умолчанию.
func LoadConfig(r io.Reader) (Config, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	def := DefaultConfig()
	if cfg.PrimaryPart == "" {
		cfg.PrimaryPart = def.PrimaryPart
	}
	if len(cfg.Parts) == 0 {
		cfg.Parts = def.Parts
	}
	if cfg.TextElement == "" {
		cfg.TextElement = def.TextElement
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность конфигурации и компилирует выражения.
func (c Config) Validate() error {
	if c.PrimaryPart == "" {
		return fmt.Errorf("%w: не задана primary_part", ErrInvalidConfig)
	}
	if !slices.Contains(c.Parts, c.PrimaryPart) {
		return fmt.Errorf("%w: primary_part %q отсутствует в parts", ErrInvalidConfig, c.PrimaryPart)
	}
	if c.TextElement == "" {
		return fmt.Errorf("%w: не задан text_element", ErrInvalidConfig)
	}
	kinds := make(map[string]FieldKind, len(c.Fields))
	for _, f := range c.Fields {
		if f.ID == "" {
			return fmt.Errorf("%w: поле без id", ErrInvalidConfig)
		}
		if _, dup := kinds[f.ID]; dup {
			return fmt.Errorf("%w: повторный id %q", ErrInvalidConfig, f.ID)
		}
		switch f.kind() {
		case KindText, KindDate:
		default:
			return fmt.Errorf("%w: поле %q: неизвестный kind %q", ErrInvalidConfig, f.ID, f.Kind)
		}
		kinds[f.ID] = f.kind()
	}
	for _, id := range []string{c.Name.First, c.Name.Last} {
		if id == "" {
			continue
		}
		if _, ok := kinds[id]; !ok {
			return fmt.Errorf("%w: name ссылается на неизвестное поле %q", ErrInvalidConfig, id)
		}
	}
	for _, ch := range c.Chains {
		if kinds[ch.ID] != KindDate {
			return fmt.Errorf("%w: chain %q: ожидается поле-дата", ErrInvalidConfig, ch.ID)
		}
		if kinds[ch.From] != KindDate {
			return fmt.Errorf("%w: chain %q: источник %q не является датой", ErrInvalidConfig, ch.ID, ch.From)
		}
	}
	_, err := compileDerived(c)
	return err
}

func (f FieldRule) kind() FieldKind {
	if f.Kind == "" {
		return KindText
	}
	return f.Kind
}

// identifiers возвращает все идентификаторы, которые гарантированно попадут в набор.
func (c Config) identifiers() []string {
	ids := make([]string, 0, len(c.Fields)+len(c.Derived))
	for _, f := range c.Fields {
		ids = append(ids, f.ID)
	}
	for _, d := range c.Derived {
		ids = append(ids, d.ID)
	}
	return ids
}

// dateKeys — множество сырых ключей, значения которых являются датами.
func (c Config) dateKeys() map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range c.Fields {
		if f.kind() == KindDate {
			for _, k := range f.Keys {
				out[k] = struct{}{}
			}
		}
		for _, k := range f.DateKeys {
			out[k] = struct{}{}
		}
	}
	return out
}

func (c Config) clone() Config {
	out := c
	out.Parts = slices.Clone(c.Parts)
	out.Fields = make([]FieldRule, len(c.Fields))
	for i, f := range c.Fields {
		f.Keys = slices.Clone(f.Keys)
		f.DateKeys = slices.Clone(f.DateKeys)
		out.Fields[i] = f
	}
	out.Name.FullKeys = slices.Clone(c.Name.FullKeys)
	out.Chains = slices.Clone(c.Chains)
	out.Derived = slices.Clone(c.Derived)
	return out
}
