// Package answer turns retrieved chunks and a question into an LLM answer.
package answer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/tmc/langchaingo/llms"

	"pdfqa/src/log"
)

const (
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 500
)

var (
	ErrNoChunks     = errors.New("no chunks to ground the answer")
	ErrEmptyChoices = errors.New("completion returned no choices")
)

// Generator is the part of llms.Model the composer needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// TemplateData feeds GroundingPromptTmpl.
type TemplateData struct {
	Context  string
	Question string
}

// Composer sends one grounding prompt per question to a chat model.
type Composer struct {
	llm         Generator
	model       string
	temperature float64
	maxTokens   int
	prompt      *template.Template
}

// NewComposer creates a composer. model is only used for logging; the
// generator is already bound to its model.
func NewComposer(llm Generator, model string, temperature float64, maxTokens int) (*Composer, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm is required")
	}
	if temperature < 0 {
		temperature = DefaultTemperature
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	tmpl, err := template.New("grounding").Option("missingkey=error").Parse(GroundingPromptTmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	return &Composer{
		llm:         llm,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		prompt:      tmpl,
	}, nil
}

// BuildPrompt renders the user turn for question and chunks.
func (c *Composer) BuildPrompt(question string, chunks []string) (string, error) {
	var buf bytes.Buffer
	err := c.prompt.Execute(&buf, TemplateData{
		Context:  strings.Join(chunks, ChunkSeparator),
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// Compose asks the model to answer question from chunks. chunks must not be empty.
func (c *Composer) Compose(ctx context.Context, question string, chunks []string) (string, error) {
	if len(chunks) == 0 {
		return "", ErrNoChunks
	}

	prompt, err := c.BuildPrompt(question, chunks)
	if err != nil {
		return "", err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, SystemMessage),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		log.Error(err, "failed to generate completion", "model", c.model)
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyChoices
	}

	return resp.Choices[0].Content, nil
}
