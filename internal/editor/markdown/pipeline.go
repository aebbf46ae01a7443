package markdown

import (
	"slices"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark-emoji/definition"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
	"go.uber.org/zap"
)

// inlinePriority puts text-match parsers ahead of goldmark's link parser
// so ![alt](src) reaches the image transformer first.
const inlinePriority = 99

type Config struct {
	// Emoji is the short code table. Defaults to the GitHub set.
	Emoji         definition.Emojis
	CaptionSyntax CaptionSyntax
	Logger        *zap.Logger
}

// Pipeline converts documents to and from Markdown with one ordered
// transformer list.
type Pipeline struct {
	cfg          Config
	transformers []Transformer
	md           goldmark.Markdown
	logger       *zap.Logger
}

// New builds a pipeline. Without transformers it uses DefaultTransformers.
func New(cfg Config, transformers ...Transformer) *Pipeline {
	if cfg.Emoji == nil {
		cfg.Emoji = definition.Github()
	}
	if cfg.CaptionSyntax == "" {
		cfg.CaptionSyntax = CaptionInline
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(transformers) == 0 {
		transformers = DefaultTransformers(cfg)
	}

	var inline []util.PrioritizedValue
	for _, t := range transformers {
		tm, ok := t.(*TextMatchTransformer)
		if !ok || tm.Trigger == 0 || tm.Import == nil || tm.Build == nil {
			continue
		}
		inline = append(inline, util.Prioritized(&matchParser{t: tm}, inlinePriority))
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough),
		goldmark.WithParserOptions(parser.WithInlineParsers(inline...)),
	)
	return &Pipeline{cfg: cfg, transformers: transformers, md: md, logger: cfg.Logger}
}

func (p *Pipeline) Transformers() []Transformer { return slices.Clone(p.transformers) }

func (p *Pipeline) CaptionSyntax() CaptionSyntax { return p.cfg.CaptionSyntax }
