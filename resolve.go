package docxtemplar

import (
	"fmt"
	"strings"
	"sync"

	expro "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Resolver превращает сырую запись в чистый набор переменных по правилам Config.
// Чистая функция: не пишет логов, не возвращает ошибок; отсутствие данных
// даёт пустые строки, чтобы неполная запись не блокировала генерацию документа.
type Resolver struct {
	cfg     Config
	derived []derivedProgram
}

type derivedProgram struct {
	id   string
	prog *vm.Program
}

// NewResolver проверяет конфигурацию и компилирует вычисляемые правила.
func NewResolver(cfg Config) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	progs, err := compileDerived(cfg)
	if err != nil {
		return nil, err
	}
	return &Resolver{cfg: cfg.clone(), derived: progs}, nil
}

var defaultResolver = sync.OnceValues(func() (*Resolver, error) {
	return NewResolver(DefaultConfig())
})

// Resolve разрешает запись по конфигурации по умолчанию.
func Resolve(raw Record) Variables {
	r, err := defaultResolver()
	if err != nil {
		panic(err)
	}
	return r.Resolve(raw)
}

// Resolve строит набор переменных. Порядок этапов фиксирован:
// цепочки алиасов, составное имя, непрерывность дат, вычисляемые правила.
func (r *Resolver) Resolve(raw Record) Variables {
	out := make(map[string]string, len(r.cfg.Fields)+len(r.derived))
	// сырые ISO-значения полей-дат, до форматирования
	iso := map[string]string{}

	for _, f := range r.cfg.Fields {
		v, _ := firstNonEmpty(raw, f.Keys)
		if f.kind() == KindDate {
			iso[f.ID] = v
			out[f.ID] = formatDate(v)
			continue
		}
		if v == "" && len(f.DateKeys) > 0 {
			d, _ := firstNonEmpty(raw, f.DateKeys)
			v = formatDate(d)
		}
		out[f.ID] = v
	}

	r.composeName(raw, out)

	// Начало периода N без явного значения = уже разрешённый конец периода N-1.
	for _, ch := range r.cfg.Chains {
		if iso[ch.ID] != "" {
			continue
		}
		iso[ch.ID] = iso[ch.From]
		out[ch.ID] = formatDate(iso[ch.ID])
	}

	if len(r.derived) > 0 {
		env := make(map[string]any, len(out)+len(r.derived))
		for k, v := range out {
			env[k] = v
		}
		for _, d := range r.derived {
			res, err := expro.Run(d.prog, env)
			s := ""
			if err == nil {
				s = toString(res)
			}
			out[d.id] = s
			env[d.id] = s
		}
	}
	return Variables{m: out}
}

// composeName заполняет пустые имя/фамилию из полного имени:
// первое слово становится именем, остальные фамилией; одно слово идёт в оба поля.
func (r *Resolver) composeName(raw Record, out map[string]string) {
	n := r.cfg.Name
	if n.First == "" || n.Last == "" {
		return
	}
	if out[n.First] != "" && out[n.Last] != "" {
		return
	}
	full, ok := firstNonEmpty(raw, n.FullKeys)
	if !ok {
		return
	}
	parts := strings.Fields(full)
	first, last := parts[0], parts[0]
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	if out[n.First] == "" {
		out[n.First] = first
	}
	if out[n.Last] == "" {
		out[n.Last] = last
	}
}

// firstNonEmpty возвращает первое непустое значение по цепочке ключей.
func firstNonEmpty(raw Record, keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := rawString(raw[k]); ok {
			return s, true
		}
	}
	return "", false
}

func compileDerived(c Config) ([]derivedProgram, error) {
	if len(c.Derived) == 0 {
		return nil, nil
	}
	env := map[string]any{}
	for _, f := range c.Fields {
		env[f.ID] = ""
	}
	progs := make([]derivedProgram, 0, len(c.Derived))
	for _, d := range c.Derived {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: derived без id", ErrInvalidConfig)
		}
		if _, dup := env[d.ID]; dup {
			return nil, fmt.Errorf("%w: повторный id %q", ErrInvalidConfig, d.ID)
		}
		prog, err := expro.Compile(d.Expr, expro.Env(env), expro.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("%w: derived %q: %v", ErrInvalidConfig, d.ID, err)
		}
		env[d.ID] = ""
		progs = append(progs, derivedProgram{id: d.ID, prog: prog})
	}
	return progs, nil
}
