package main

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nikitaxru/docxtemplar"
)

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = io.WriteString(w, `<w:document><w:body><w:p><w:r><w:t>{{first_</w:t></w:r><w:r><w:t>name}} {{last_name}}</w:t></w:r></w:p></w:body></w:document>`)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	p := filepath.Join(dir, "template.docx")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

func documentText(t *testing.T, path string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		return docxtemplar.Flatten(docxtemplar.NewIndexer("w:t").Index(string(b)))
	}
	t.Fatalf("word/document.xml отсутствует в %s", path)
	return ""
}

func TestRunRender(t *testing.T) {
	dir := t.TempDir()
	tpl := writeTemplate(t, dir)
	rec := filepath.Join(dir, "record.json")
	require.NoError(t, os.WriteFile(rec, []byte(`{"full_name": "Jean Dupont", "salary": 2500}`), 0o644))
	out := filepath.Join(dir, "out", "jean.docx")

	err := run(context.Background(), func(int) {}, "--log-level=error", "render", "--template", tpl, "--record", rec, "-o", out)
	require.NoError(t, err)
	require.Equal(t, "Jean Dupont", documentText(t, out))
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	tpl := writeTemplate(t, dir)

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"prenom", "nom"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Jean", "Dupont"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Marie", "Curie"}))
	xlsx := filepath.Join(dir, "records.xlsx")
	require.NoError(t, f.SaveAs(xlsx))

	outDir := filepath.Join(dir, "lot")
	err := run(context.Background(), func(int) {}, "--log-level=error", "batch",
		"--template", tpl, "--records", xlsx, "--out-dir", outDir, "--name", "{{last_name}}.docx", "-j", "2")
	require.NoError(t, err)

	require.Equal(t, "Jean Dupont", documentText(t, filepath.Join(outDir, "001_Dupont.docx")))
	require.Equal(t, "Marie Curie", documentText(t, filepath.Join(outDir, "002_Curie.docx")))
}

func TestRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("primary_part: word/x.xml\nparts: [word/document.xml]\n"), 0o644))
	rec := filepath.Join(dir, "record.json")
	require.NoError(t, os.WriteFile(rec, []byte(`{}`), 0o644))

	err := run(context.Background(), func(int) {}, "--log-level=error", "--config", cfg, "vars", rec)
	require.ErrorIs(t, err, docxtemplar.ErrInvalidConfig)
}
