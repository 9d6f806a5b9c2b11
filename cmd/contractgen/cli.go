package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/nikitaxru/docxtemplar"
)

// CLI — интерфейс командной строки contractgen.
type CLI struct {
	Log    logConfig `embed:"" group:"log" prefix:"log-"`
	Config string    `help:"YAML-конфигурация (алиасы, части, правила)." type:"existingfile"`

	Render renderCmd `cmd:"" help:"Сгенерировать документ для одной записи."`
	Batch  batchCmd  `cmd:"" help:"Сгенерировать документы для всех строк книги Excel."`
	Vars   varsCmd   `cmd:"" help:"Показать разрешённые переменные записи."`
}

// env — зависимости, которые kong передаёт в Run команд.
type env struct {
	fs  billy.Filesystem
	cfg docxtemplar.Config
	log *zap.Logger
	out io.Writer
}

func (e *env) engine(opts ...docxtemplar.Option) (*docxtemplar.Engine, error) {
	return docxtemplar.New(e.cfg, append([]docxtemplar.Option{docxtemplar.WithLogger(e.log)}, opts...)...)
}

type renderCmd struct {
	Template string `help:"Шаблон .docx." required:"" type:"existingfile"`
	Record   string `help:"Запись в JSON." required:"" type:"existingfile"`
	Out      string `help:"Выходной файл." required:"" short:"o" type:"path"`
}

func (c *renderCmd) Run(e *env) error {
	rec, err := docxtemplar.ReadRecord(e.fs, c.Record)
	if err != nil {
		return err
	}
	eng, err := e.engine()
	if err != nil {
		return err
	}
	return eng.RenderFile(e.fs, c.Template, c.Out, rec)
}

type batchCmd struct {
	Template string `help:"Шаблон .docx." required:"" type:"existingfile"`
	Records  string `help:"Книга .xlsx: первая строка — ключи." required:"" type:"existingfile"`
	OutDir   string `help:"Каталог для документов." required:"" type:"path"`
	Name     string `default:"contrat_{{last_name}}_{{first_name}}.docx" help:"Шаблон имени файла."`
	Jobs     int    `default:"4" help:"Число параллельных рендеров." short:"j"`
}

func (c *batchCmd) Run(ctx context.Context, e *env) error {
	tpl, err := util.ReadFile(e.fs, c.Template)
	if err != nil {
		return err
	}
	xb, err := util.ReadFile(e.fs, c.Records)
	if err != nil {
		return err
	}
	records, err := docxtemplar.LoadRecords(bytes.NewReader(xb), e.cfg)
	if err != nil {
		return err
	}
	e.log.Info("📝 записи загружены", zap.Int("records", len(records)))

	eng, err := e.engine(docxtemplar.WithConcurrency(c.Jobs))
	if err != nil {
		return err
	}
	docs, err := eng.RenderBatch(ctx, tpl, records, func(i int, vars docxtemplar.Variables) string {
		name := strings.NewReplacer("/", "_", `\`, "_").Replace(docxtemplar.ExpandString(c.Name, vars))
		return fmt.Sprintf("%03d_%s", i+1, name)
	})
	if err != nil {
		return err
	}
	return docxtemplar.WriteDocuments(e.fs, c.OutDir, docs)
}

type varsCmd struct {
	Record string `arg:"" help:"Запись в JSON." type:"existingfile"`
}

func (c *varsCmd) Run(e *env) error {
	rec, err := docxtemplar.ReadRecord(e.fs, c.Record)
	if err != nil {
		return err
	}
	eng, err := e.engine()
	if err != nil {
		return err
	}
	vars := eng.Resolver().Resolve(rec)
	ms := make(yaml.MapSlice, 0, vars.Len())
	for _, k := range vars.Keys() {
		ms = append(ms, yaml.MapItem{Key: k, Value: vars.Get(k)})
	}
	b, err := yaml.Marshal(ms)
	if err != nil {
		return err
	}
	_, err = e.out.Write(b)
	return err
}

func run(ctx context.Context, exit func(int), args ...string) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("contractgen"),
		kong.Description("Генерация договоров из шаблонов .docx с токенами {{identifier}}."),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger, err := cli.Log.build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Пути уже абсолютные (kong type:"path"/"existingfile"), поэтому корень "/".
	fsys := osfs.New("/")
	cfg := docxtemplar.DefaultConfig()
	if cli.Config != "" {
		f, err := fsys.Open(cli.Config)
		if err != nil {
			return err
		}
		cfg, err = docxtemplar.LoadConfig(f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return kctx.Run(&env{fs: fsys, cfg: cfg, log: logger, out: os.Stdout})
}
