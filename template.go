package docxtemplar

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Движок подстановки для шаблонов WordprocessingML (.docx) с токенами {{identifier}}.
// Поддержка:
// - токены, разбитые Word на несколько <w:t> (любое число фрагментов)
// - несколько токенов в одном узле
// - основная часть, до двух верхних и двух нижних колонтитулов
// Вся разметка вне текстовых узлов сохраняется байт в байт.

// Engine — сборщик пакета: разрешает переменные, обрабатывает целевые части
// и упаковывает архив обратно. Не хранит изменяемого состояния между вызовами,
// поэтому один Engine можно использовать из нескольких горутин.
type Engine struct {
	cfg      Config
	resolver *Resolver
	indexer  *Indexer
	log      *zap.Logger
	jobs     int
}

// Option настраивает Engine.
type Option func(*Engine)

// WithLogger задаёт логгер; по умолчанию zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithConcurrency ограничивает число параллельно рендерящихся записей в RenderBatch.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.jobs = n
		}
	}
}

// New создаёт движок по конфигурации.
func New(cfg Config, opts ...Option) (*Engine, error) {
	r, err := NewResolver(cfg)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      r.cfg,
		resolver: r,
		indexer:  NewIndexer(cfg.TextElement),
		log:      zap.NewNop(),
		jobs:     4,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Resolver возвращает резолвер переменных движка.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Render разрешает запись и рендерит шаблон.
func (e *Engine) Render(template []byte, raw Record) ([]byte, error) {
	return e.RenderVariables(template, e.resolver.Resolve(raw))
}

// RenderVariables рендерит шаблон готовым набором переменных.
// При любой фатальной ошибке возвращается nil: частично собранный документ наружу не попадает.
func (e *Engine) RenderVariables(template []byte, vars Variables) ([]byte, error) {
	start := time.Now()
	zr, err := openArchive(template)
	if err != nil {
		e.log.Error("❌ не удалось открыть шаблон", zap.Error(err))
		return nil, err
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	if _, ok := files[e.cfg.PrimaryPart]; !ok {
		return nil, &PackageError{Op: "open", Part: e.cfg.PrimaryPart, Err: ErrPrimaryPartMissing}
	}

	var targets []*zip.File
	for _, name := range e.cfg.Parts {
		if f, ok := files[name]; ok {
			targets = append(targets, f)
		}
	}
	e.log.Debug("📄 шаблон открыт",
		zap.Int("parts", len(zr.File)),
		zap.Int("targets", len(targets)),
		zap.Int("variables", vars.Len()))

	// Части независимы друг от друга: обрабатываем параллельно, пишем архив последовательно.
	rendered := make([][]byte, len(targets))
	var g errgroup.Group
	for i, f := range targets {
		g.Go(func() error {
			data, err := readPart(f)
			if err != nil {
				return err
			}
			out, n, err := e.renderPart(f.Name, string(data), vars)
			if err != nil {
				return err
			}
			e.log.Debug("🔄 часть обработана", zap.String("part", f.Name), zap.Int("replaced", n))
			if n > 0 {
				rendered[i] = []byte(out)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Error("❌ ошибка обработки части", zap.Error(err))
		return nil, err
	}
	updated := make(map[string][]byte, len(targets))
	for i, f := range targets {
		if rendered[i] != nil {
			updated[f.Name] = rendered[i]
		}
	}

	out, err := repack(zr, updated)
	if err != nil {
		return nil, err
	}
	if err := e.verify(out); err != nil {
		e.log.Error("❌ проверка целостности не пройдена", zap.Error(err))
		return nil, err
	}
	e.log.Info("✅ документ собран",
		zap.Int("updated_parts", len(updated)),
		zap.Int("bytes", len(out)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// renderPart индексирует одну часть, подставляет значения и собирает XML обратно.
func (e *Engine) renderPart(name, xml string, vars Variables) (string, int, error) {
	nodes := e.indexer.Index(xml)
	if len(nodes) == 0 {
		return xml, 0, nil
	}
	flat := Flatten(nodes)
	if e.cfg.BlankUnknown {
		if extra := unknownTokens(flat, vars); extra != nil {
			vars = vars.with(extra)
		}
	}
	out, n, err := splice(nodes, flat, vars, xmlEscaper.Replace)
	if err != nil {
		var v *SpliceInvariantViolation
		if errors.As(err, &v) {
			v.Part = name
		}
		return "", 0, err
	}
	if n == 0 {
		return xml, 0, nil
	}
	return Rebuild(xml, out), n, nil
}

// verify — последняя проверка перед отдачей байтов: архив не пуст,
// открывается и содержит основную часть.
func (e *Engine) verify(out []byte) error {
	if len(out) == 0 {
		return &PackageError{Op: "verify", Err: ErrEmptyOutput}
	}
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		return &PackageError{Op: "verify", Err: err}
	}
	for _, f := range zr.File {
		if f.Name == e.cfg.PrimaryPart {
			return nil
		}
	}
	return &PackageError{Op: "verify", Part: e.cfg.PrimaryPart, Err: ErrPrimaryPartMissing}
}

func openArchive(b []byte) (*zip.Reader, error) {
	if !isArchive(b) {
		return nil, &PackageError{Op: "open", Err: ErrNotArchive}
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, &PackageError{Op: "open", Err: err}
	}
	return zr, nil
}

// isArchive: docx определяется mimetype как потомок application/zip.
func isArchive(b []byte) bool {
	for m := mimetype.Detect(b); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &PackageError{Op: "read", Part: f.Name, Err: err}
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, &PackageError{Op: "read", Part: f.Name, Err: err}
	}
	return b, nil
}

// repack пишет архив в исходном порядке частей. Нетронутые части копируются
// в сжатом виде без перекодирования.
func repack(zr *zip.Reader, updated map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		data, ok := updated[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return nil, &PackageError{Op: "write", Part: f.Name, Err: err}
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:         f.Name,
			Comment:      f.Comment,
			Method:       f.Method,
			Modified:     f.Modified,
			ModifiedTime: f.ModifiedTime,
			ModifiedDate: f.ModifiedDate,
		})
		if err != nil {
			return nil, &PackageError{Op: "write", Part: f.Name, Err: err}
		}
		if _, err := w.Write(data); err != nil {
			return nil, &PackageError{Op: "write", Part: f.Name, Err: err}
		}
	}
	if zr.Comment != "" {
		if err := zw.SetComment(zr.Comment); err != nil {
			return nil, &PackageError{Op: "write", Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, &PackageError{Op: "write", Err: fmt.Errorf("закрытие архива: %w", err)}
	}
	return buf.Bytes(), nil
}
