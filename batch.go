package docxtemplar

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Document — результат рендера одной записи.
type Document struct {
	Name string
	Data []byte
}

// RenderBatch рендерит шаблон для каждой записи параллельно (не более WithConcurrency
// одновременно). Порядок результата совпадает с порядком records; первая ошибка
// отменяет оставшиеся записи. name получает номер записи и её переменные.
func (e *Engine) RenderBatch(ctx context.Context, template []byte, records []Record, name func(i int, vars Variables) string) ([]Document, error) {
	docs := make([]Document, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vars := e.resolver.Resolve(rec)
			data, err := e.RenderVariables(template, vars)
			if err != nil {
				return fmt.Errorf("запись %d: %w", i+1, err)
			}
			docs[i] = Document{Name: name(i, vars), Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.log.Info("✅ пакетный рендер завершён", zap.Int("documents", len(docs)))
	return docs, nil
}
