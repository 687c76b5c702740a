package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-geometry/pkg/types"
)

func TestSanitizeModelJSON(t *testing.T) {
	raw := "```json\n{\n  // subject\n  \"primary\": {\"label\": \"dog\", /* sure */ \"confidence\": 0.8,},\n  \"tags\": [\"dog\",],\n}\n```"

	got := sanitizeModelJSON(raw)

	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(got), &result))
	assert.Equal(t, "dog", result.Primary.Label)
	assert.Equal(t, []string{"dog"}, result.Tags)
}

func TestParseAnalysisResultFallbacks(t *testing.T) {
	got := parseAnalysisResult("I see a dog")
	assert.Equal(t, "unclear image", got.Primary.Label)
	assert.Equal(t, types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}, got.Primary.Box)
	assert.Contains(t, got.Tags, "fallback")

	got = parseAnalysisResult(`{"primary": {"label": 7}}`)
	assert.Equal(t, "parse error", got.Primary.Label)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://localhost", nil)
	assert.Error(t, err)

	_, err = NewClient("://", nil)
	assert.Error(t, err)
}

func TestAnalyzeImage(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Content string   `json:"content"`
			Images  []string `json:"images"`
		} `json:"messages"`
		Options map[string]any `json:"options"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		answer := `{"primary":{"label":"dog","confidence":0.9,"box":{"x":0.1,"y":0.2,"w":0.3,"h":0.4},"cx":0.25,"cy":0.4},"description":"a dog","tags":["dog"]}`
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "minicpm-v4.5",
			"message": map[string]string{"role": "assistant", "content": answer},
			"done":    true,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/api/chat", srv.Client())
	require.NoError(t, err)

	result, err := c.AnalyzeImage(context.Background(), "openbmb/minicpm-v4.5", "locate", "aW1n")
	require.NoError(t, err)

	assert.Equal(t, "openbmb/minicpm-v4.5", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "locate", got.Messages[0].Content)
	assert.Equal(t, []string{"aW1n"}, got.Messages[0].Images)
	assert.Equal(t, 0.7, got.Options["temperature"])

	assert.Equal(t, "dog", result.Primary.Label)
	assert.Equal(t, types.Box{X: 0.1, Y: 0.2, W: 0.3, H: 0.4}, result.Primary.Box)
}

func TestSimpleQueryRejectsBadBase64(t *testing.T) {
	c, err := NewClient("http://localhost:11434", nil)
	require.NoError(t, err)

	_, err = c.SimpleQuery(context.Background(), "m", "p", "not base64!")
	assert.Error(t, err)
}
