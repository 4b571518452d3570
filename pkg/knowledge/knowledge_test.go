package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/duynguyendang/kpextract/pkg/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGenerator records prompts and replays canned replies.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newTestExtractor(t *testing.T, gen Generator) *Extractor {
	t.Helper()
	prompt, err := LoadPrompt("")
	require.NoError(t, err)
	return NewWithGenerator(gen, prompt, 0)
}

func TestProcessDocuments(t *testing.T) {
	dir := t.TempDir()
	ch1 := writeFile(t, dir, "ch1.md", []byte("Stacks are LIFO. See https://example.org/stacks."))
	ch2 := writeFile(t, dir, "ch2.txt", []byte("Queues are FIFO; stacks return."))

	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool { return containsAll(p, "ch1.md", "Stacks are LIFO") })).
		Return("```json\n{\"knowledge_points\":[{\"name\":\"Stack\",\"description\":\"LIFO structure\"},{\"name\":\"Push\",\"parent\":\"Stack\"}]}\n```", nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool { return containsAll(p, "ch2.txt", "Queues are FIFO") })).
		Return(`[{"name":"Queue","description":"FIFO structure"},{"name":"stack  "}]`, nil).Once()

	out, err := newTestExtractor(t, gen).ProcessDocuments(context.Background(), []string{ch1, ch2})
	require.NoError(t, err)
	gen.AssertExpectations(t)

	result, ok := out.(*Result)
	require.True(t, ok)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, ch1, result.Documents[0].FilePath)
	assert.Equal(t, "ch1", result.Documents[0].Title)
	assert.Equal(t, []string{"https://example.org/stacks"}, result.Documents[0].References)
	assert.Len(t, result.Documents[0].KnowledgePoints, 2)
	assert.Nil(t, result.Documents[1].References)

	require.Len(t, result.KnowledgePoints, 3)
	assert.Equal(t, KnowledgePoint{Name: "Stack", Description: "LIFO structure", Sources: []string{ch1, ch2}}, result.KnowledgePoints[0])
	assert.Equal(t, "Stack", result.KnowledgePoints[1].Parent)
	assert.Equal(t, "Queue", result.KnowledgePoints[2].Name)
}

func TestProcessDocumentsEmptyBatch(t *testing.T) {
	gen := new(MockGenerator)

	out, err := newTestExtractor(t, gen).ProcessDocuments(context.Background(), []string{})
	require.NoError(t, err)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	result := out.(*Result)
	assert.Empty(t, result.Documents)
	assert.NotNil(t, result.KnowledgePoints)
}

func TestProcessDocumentsFailsBeforeCallingModel(t *testing.T) {
	dir := t.TempDir()
	ok := writeFile(t, dir, "ok.txt", []byte("content"))
	gen := new(MockGenerator)

	_, err := newTestExtractor(t, gen).ProcessDocuments(context.Background(), []string{ok, dir + "/gone.txt"})
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestProcessDocumentsBackendFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", []byte("content"))
	gen := new(MockGenerator)
	down := errors.New("connection refused")
	gen.On("Generate", mock.Anything, mock.Anything).Return("", down)

	_, err := newTestExtractor(t, gen).ProcessDocuments(context.Background(), []string{path})
	assert.ErrorIs(t, err, apperrors.ErrExtraction)
	assert.ErrorIs(t, err, down)
}

func TestProcessDocumentsUnparseableReply(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", []byte("content"))
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("I could not find anything.", nil)

	_, err := newTestExtractor(t, gen).ProcessDocuments(context.Background(), []string{path})
	assert.ErrorIs(t, err, apperrors.ErrExtraction)
}

func TestNewRequiresModelLocation(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: BackendOpenAI})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Backend: "mystery", Model: "m"})
	assert.Error(t, err)
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := New(context.Background(), Config{Backend: BackendAnthropic, Model: "claude-3-5-haiku-latest"})
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
