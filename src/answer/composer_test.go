package answer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"pdfqa/src/answer"
)

type fakeGenerator struct {
	messages []llms.MessageContent
	options  llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	g.messages = messages
	for _, opt := range options {
		opt(&g.options)
	}
	return g.resp, g.err
}

func text(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestComposeSendsGroundingPrompt(t *testing.T) {
	gen := &fakeGenerator{resp: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "It is blue."}},
	}}
	c, err := answer.NewComposer(gen, "test-model", answer.DefaultTemperature, answer.DefaultMaxTokens)
	require.NoError(t, err)

	got, err := c.Compose(context.Background(), "What colour is the sky?", []string{"The sky is blue.", "Grass is green."})
	require.NoError(t, err)
	assert.Equal(t, "It is blue.", got)

	require.Len(t, gen.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, gen.messages[0].Role)
	assert.Equal(t, answer.SystemMessage, text(t, gen.messages[0]))
	assert.Equal(t, llms.ChatMessageTypeHuman, gen.messages[1].Role)

	prompt := text(t, gen.messages[1])
	assert.Contains(t, prompt, "The sky is blue."+answer.ChunkSeparator+"Grass is green.")
	assert.Contains(t, prompt, "Question:\nWhat colour is the sky?")
	assert.Less(t, strings.Index(prompt, "Chunks:"), strings.Index(prompt, "Question:"))

	assert.InDelta(t, 0.5, gen.options.Temperature, 1e-9)
	assert.Equal(t, 500, gen.options.MaxTokens)
}

func TestComposeErrors(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		chunks  []string
		wantErr error
	}{
		{
			name:    "no chunks",
			gen:     &fakeGenerator{},
			chunks:  nil,
			wantErr: answer.ErrNoChunks,
		},
		{
			name:    "empty choices",
			gen:     &fakeGenerator{resp: &llms.ContentResponse{}},
			chunks:  []string{"c"},
			wantErr: answer.ErrEmptyChoices,
		},
		{
			name:    "nil response",
			gen:     &fakeGenerator{},
			chunks:  []string{"c"},
			wantErr: answer.ErrEmptyChoices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := answer.NewComposer(tt.gen, "m", 0.5, 500)
			require.NoError(t, err)
			_, err = c.Compose(context.Background(), "q", tt.chunks)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComposeServiceFailure(t *testing.T) {
	boom := errors.New("503 service unavailable")
	c, err := answer.NewComposer(&fakeGenerator{err: boom}, "m", 0.5, 500)
	require.NoError(t, err)

	_, err = c.Compose(context.Background(), "q", []string{"c"})
	assert.ErrorIs(t, err, boom)
}

func TestNewComposerDefaults(t *testing.T) {
	gen := &fakeGenerator{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	c, err := answer.NewComposer(gen, "m", -1, 0)
	require.NoError(t, err)

	_, err = c.Compose(context.Background(), "q", []string{"c"})
	require.NoError(t, err)
	assert.InDelta(t, answer.DefaultTemperature, gen.options.Temperature, 1e-9)
	assert.Equal(t, answer.DefaultMaxTokens, gen.options.MaxTokens)

	_, err = answer.NewComposer(nil, "m", 0.5, 500)
	assert.Error(t, err)
}

func TestOpenAICompatibleGenerator(t *testing.T) {
	var gotAuth, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "grounded answer"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3}
		}`))
	}))
	t.Cleanup(srv.Close)

	gen, err := answer.NewGenerator(answer.ProviderConfig{
		Provider: answer.ProviderOpenAI,
		BaseURL:  srv.URL,
		Token:    "hf_test",
		Model:    "test-model",
	})
	require.NoError(t, err)

	c, err := answer.NewComposer(gen, "test-model", 0.5, 500)
	require.NoError(t, err)

	got, err := c.Compose(context.Background(), "q", []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", got)
	assert.Equal(t, "Bearer hf_test", gotAuth)
	assert.Equal(t, "test-model", gotModel)
}

func TestNewGeneratorUnknownProvider(t *testing.T) {
	_, err := answer.NewGenerator(answer.ProviderConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
