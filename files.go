package docxtemplar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"
)

// ReadRecord читает сырую запись в JSON. Числа сохраняются как json.Number.
func ReadRecord(fsys billy.Filesystem, name string) (Record, error) {
	b, err := util.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("запись %s: %w", name, err)
	}
	return rec, nil
}

// RenderFile читает шаблон, рендерит его для записи и пишет результат в destPath.
func (e *Engine) RenderFile(fsys billy.Filesystem, templatePath, destPath string, rec Record) error {
	e.log.Info("📊 начинаем генерацию документа",
		zap.String("template", templatePath),
		zap.String("dest", destPath),
		zap.Int("fields", len(rec)))
	start := time.Now()

	tpl, err := util.ReadFile(fsys, templatePath)
	if err != nil {
		e.log.Error("❌ ошибка загрузки шаблона", zap.Error(err))
		return fmt.Errorf("шаблон %s: %w", templatePath, err)
	}
	out, err := e.Render(tpl, rec)
	if err != nil {
		return err
	}
	if err := writeFile(fsys, destPath, out); err != nil {
		e.log.Error("❌ ошибка сохранения", zap.Error(err))
		return err
	}
	e.log.Info("✅ документ сохранён", zap.String("dest", destPath), zap.Duration("took", time.Since(start)))
	return nil
}

// WriteDocuments сохраняет результаты RenderBatch в каталог dir.
func WriteDocuments(fsys billy.Filesystem, dir string, docs []Document) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, d := range docs {
		if err := writeFile(fsys, path.Join(dir, d.Name), d.Data); err != nil {
			return err
		}
	}
	return nil
}

// WriteContractWithTemplate — рендер с конфигурацией по умолчанию.
func WriteContractWithTemplate(fsys billy.Filesystem, templatePath, destPath string, rec Record) error {
	e, err := New(DefaultConfig())
	if err != nil {
		return err
	}
	return e.RenderFile(fsys, templatePath, destPath, rec)
}

func writeFile(fsys billy.Filesystem, name string, data []byte) error {
	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := util.WriteFile(fsys, name, data, 0o644); err != nil {
		return fmt.Errorf("запись %s: %w", name, err)
	}
	return nil
}
