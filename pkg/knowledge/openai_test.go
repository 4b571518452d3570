package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatServer answers /v1/chat/completions the way an OpenAI-compatible
// local model server does and records the requested model.
func fakeChatServer(t *testing.T, reply string, gotModel *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model          string `json:"model"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*gotModel = req.Model
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		writeChatReply(w, req.Model, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeChatReply(w http.ResponseWriter, model, reply string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   model,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": reply},
		}},
	})
}

func TestOpenAIGeneratorUsesModelLocation(t *testing.T) {
	var gotModel string
	srv := fakeChatServer(t, `{"knowledge_points":[{"name":"Hash table"}]}`, &gotModel)

	gen := NewOpenAIGenerator(Config{Model: "/models/DeepSeek-R1-Distill-Qwen-1.5B", BaseURL: srv.URL + "/v1"})
	reply, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "/models/DeepSeek-R1-Distill-Qwen-1.5B", gotModel)
	assert.Equal(t, `{"knowledge_points":[{"name":"Hash table"}]}`, reply)
}

func TestExtractorAgainstOpenAIServer(t *testing.T) {
	var gotModel string
	srv := fakeChatServer(t, `{"knowledge_points":[{"name":"Hash table","description":"Key lookup"}]}`, &gotModel)
	path := writeFile(t, t.TempDir(), "hashing.md", []byte("Hash tables map keys to buckets."))

	ex, err := New(context.Background(), Config{Backend: BackendOpenAI, Model: "local-model", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	defer ex.Close()

	out, err := ex.ProcessDocuments(context.Background(), []string{path})
	require.NoError(t, err)

	result := out.(*Result)
	require.Len(t, result.KnowledgePoints, 1)
	assert.Equal(t, "Hash table", result.KnowledgePoints[0].Name)
	assert.Equal(t, []string{path}, result.KnowledgePoints[0].Sources)
	assert.Equal(t, "local-model", gotModel)
}

func TestOpenAIGeneratorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(Config{Model: "m", BaseURL: srv.URL + "/v1"})
	_, err := gen.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestNewTemperature(t *testing.T) {
	var got []*float32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model       string   `json:"model"`
			Temperature *float32 `json:"temperature"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req.Temperature)
		writeChatReply(w, req.Model, `{"knowledge_points":[]}`)
	}))
	defer srv.Close()

	zero := float32(0)
	for _, temp := range []*float32{nil, &zero} {
		ex, err := New(context.Background(), Config{Backend: BackendOpenAI, Model: "local", BaseURL: srv.URL + "/v1", Temperature: temp})
		require.NoError(t, err)
		_, err = ex.generator.Generate(context.Background(), "prompt")
		require.NoError(t, err)
	}

	require.Len(t, got, 2)
	require.NotNil(t, got[0])
	assert.InDelta(t, 0.2, *got[0], 1e-6, "unset uses the prompt temperature")
	require.NotNil(t, got[1], "zero must still be sent")
	assert.InDelta(t, 0, *got[1], 1e-6)
}
