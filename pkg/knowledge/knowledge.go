// Package knowledge turns course documents into knowledge points by asking a
// language model to read each document.
package knowledge

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/duynguyendang/kpextract/pkg/common/errors"
	"github.com/rs/zerolog/log"
)

// Config holds the extractor settings.
type Config struct {
	// Backend is one of "gemini", "openai" or "anthropic".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Model is the model location: a model name for hosted backends, or the
	// path a local OpenAI-compatible server serves the model under.
	Model string `mapstructure:"model" yaml:"model"`
	// APIKey falls back to the backend's usual environment variable.
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Temperature defaults to the prompt frontmatter when unset; an explicit
	// zero is kept. MaxTokens defaults to the frontmatter when zero.
	Temperature *float32 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	// PromptFile replaces the built-in prompt.
	PromptFile       string `mapstructure:"prompt_file" yaml:"prompt_file"`
	MaxDocumentChars int    `mapstructure:"max_document_chars" yaml:"max_document_chars"`
}

func (c Config) temperature() float32 {
	if c.Temperature == nil {
		return 0
	}
	return *c.Temperature
}

// KnowledgePoint is a concept taught by a document.
type KnowledgePoint struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Parent      string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Sources     []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// DocumentResult holds what was found in one document.
type DocumentResult struct {
	FilePath        string           `json:"file_path" yaml:"file_path"`
	Title           string           `json:"title,omitempty" yaml:"title,omitempty"`
	KnowledgePoints []KnowledgePoint `json:"knowledge_points" yaml:"knowledge_points"`
	References      []string         `json:"references,omitempty" yaml:"references,omitempty"`
}

// Result is returned by ProcessDocuments.
type Result struct {
	Documents       []DocumentResult `json:"documents" yaml:"documents"`
	KnowledgePoints []KnowledgePoint `json:"knowledge_points" yaml:"knowledge_points"`
}

// Extractor reads documents and extracts their knowledge points.
type Extractor struct {
	generator Generator
	prompt    *Prompt
	maxChars  int
}

// New loads the prompt and builds the configured backend. It is meant to be
// called once per process.
func New(ctx context.Context, cfg Config) (*Extractor, error) {
	prompt, err := LoadPrompt(cfg.PromptFile)
	if err != nil {
		return nil, err
	}
	if cfg.Temperature == nil {
		t := prompt.Config.Temperature
		cfg.Temperature = &t
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = prompt.Config.MaxTokens
	}

	gen, err := NewGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithGenerator(gen, prompt, cfg.MaxDocumentChars), nil
}

// NewWithGenerator assembles an Extractor from its parts.
func NewWithGenerator(gen Generator, prompt *Prompt, maxDocumentChars int) *Extractor {
	return &Extractor{generator: gen, prompt: prompt, maxChars: maxDocumentChars}
}

// ProcessDocuments loads every document before calling the model, so a bad
// path fails the batch without spending any model calls. The returned value
// is a *Result.
func (e *Extractor) ProcessDocuments(ctx context.Context, paths []string) (any, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		doc, err := LoadDocument(p, e.maxChars)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	result := &Result{
		Documents:       make([]DocumentResult, 0, len(docs)),
		KnowledgePoints: []KnowledgePoint{},
	}
	for _, doc := range docs {
		points, err := e.extractDocument(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.Path, err)
		}
		result.Documents = append(result.Documents, DocumentResult{
			FilePath:        doc.Path,
			Title:           doc.Title,
			KnowledgePoints: points,
			References:      findReferences(doc.Text),
		})
	}
	result.KnowledgePoints = Merge(result.Documents)
	return result, nil
}

func (e *Extractor) extractDocument(ctx context.Context, doc Document) ([]KnowledgePoint, error) {
	prompt, err := e.prompt.Execute(promptData{
		Path:      doc.Path,
		Title:     doc.Title,
		Text:      doc.Text,
		Truncated: doc.Truncated,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrExtraction, err)
	}

	points, err := parseKnowledgePoints(reply)
	if err != nil {
		log.Debug().Str("path", doc.Path).Str("reply", reply).Msg("unparseable model reply")
		return nil, err
	}

	log.Info().
		Str("path", doc.Path).
		Bool("truncated", doc.Truncated).
		Int("knowledge_points", len(points)).
		Dur("elapsed", time.Since(start)).
		Msg("document extracted")
	return points, nil
}

// Close releases backend resources when the backend holds any.
func (e *Extractor) Close() error {
	if c, ok := e.generator.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
