package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/papertrail/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUserPrompt(t *testing.T) {
	got := buildUserPrompt("What is SEI?", []string{"one", "two"})
	assert.Equal(t, `Relevant Documents: """one"""two""" `+"\n\nQuestion: What is SEI?", got)
}

func TestBuildUserPrompt_NoContexts(t *testing.T) {
	got := buildUserPrompt("q", nil)
	assert.Equal(t, `Relevant Documents: """""" `+"\n\nQuestion: q", got)
}

func TestGenerate(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  Graphite.  "},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`))
	}))
	defer server.Close()

	gen, err := NewGenerator(ai.NewConfig(ai.WithHost(server.URL), ai.WithAPIKey("test")))
	require.NoError(t, err)

	answer, err := gen.Generate(context.Background(), "What is the anode?", []string{"The anode is graphite."})
	require.NoError(t, err)
	assert.Equal(t, "Graphite.", answer)
	assert.Contains(t, body, "Virtual Factory Platform")
	assert.Contains(t, body, "The anode is graphite.")
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(&ai.Config{})
	assert.Error(t, err)
}
