package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndExecutePrompt(t *testing.T) {
	content := `---
temperature: 0.5
max_tokens: 512
---
Summarize {{.Title}} at {{.Path}}:
{{.Text}}
`
	path := filepath.Join(t.TempDir(), "custom.prompt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadPrompt(path)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), p.Config.Temperature)
	assert.Equal(t, 512, p.Config.MaxTokens)

	out, err := p.Execute(promptData{Path: "a/b.md", Title: "b", Text: "body"})
	require.NoError(t, err)
	assert.Equal(t, "Summarize b at a/b.md:\nbody", out)
}

func TestDefaultPrompt(t *testing.T) {
	p, err := LoadPrompt("")
	require.NoError(t, err)
	assert.Equal(t, float32(0.2), p.Config.Temperature)

	out, err := p.Execute(promptData{Path: "c/d.txt", Title: "d", Text: "Linked lists", Truncated: true})
	require.NoError(t, err)
	assert.Contains(t, out, "Document: d (c/d.txt) [truncated]")
	assert.Contains(t, out, "Linked lists")
	assert.Contains(t, out, `"knowledge_points"`)
}

func TestLoadPromptErrors(t *testing.T) {
	_, err := LoadPrompt(filepath.Join(t.TempDir(), "missing.prompt"))
	assert.Error(t, err)

	_, err = ParsePrompt([]byte("no frontmatter"))
	assert.Error(t, err)

	_, err = ParsePrompt([]byte("---\ntemperature: [\n---\nbody"))
	assert.Error(t, err)

	_, err = ParsePrompt([]byte("---\n---\n{{.Broken"))
	assert.Error(t, err)
}
