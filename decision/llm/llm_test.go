package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const justificationPrompt = `Selected item details:
ID: SP-100
Vendor: Helios Dynamics
Price: 4800
Lead Time: 21 days
Reliability: 0.985

Request constraints:
Max Cost: 6000
Latest Delivery: 30 days

Please provide a brief justification (2-3 sentences) for why this item is the best choice.
`

func TestMockJustifiesSelectedItem(t *testing.T) {
	m := NewMock()

	out, err := m.Generate(context.Background(), justificationPrompt, 150)
	require.NoError(t, err)
	assert.Equal(t,
		"Selected SP-100 from Helios Dynamics. It balances cost (4800) and delivery (21 days) and strong reliability (0.985), making it the best fit for the request.",
		out)

	again, err := m.Generate(context.Background(), justificationPrompt, 150)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestMockPrefersBetterItem(t *testing.T) {
	prompt := `Choose between the following options:
ID: SP-200
Vendor: Astra Components
Price: 5200
Lead Time: 14 days
Reliability: 0.975

ID: BAT-50
Vendor: Helios Dynamics
Price: 2200
Lead Time: 18 days
Reliability: 0.97
`
	out, err := NewMock().Generate(context.Background(), prompt, 150)
	require.NoError(t, err)
	assert.Contains(t, out, "Selected BAT-50 from Helios Dynamics.")
}

func TestMockDefaultReply(t *testing.T) {
	out, err := NewMock().Generate(context.Background(), "Summarize the market.", 50)
	require.NoError(t, err)
	assert.Equal(t, defaultReply, out)

	out, err = NewMock().Generate(context.Background(), "Which one was selected?", 50)
	require.NoError(t, err)
	assert.Equal(t, "Unable to parse items from prompt.", out)
}

func TestMockVendorReplies(t *testing.T) {
	base := "Vendor negotiation for the item below.\nID: SP-100\nVendor: Helios Dynamics\nPrice: 4800\nLead Time: 21 days\n"

	opening, err := NewMock().Generate(context.Background(), base, 200)
	require.NoError(t, err)
	assert.Contains(t, opening, "SP-100 lists at $4800/unit with a 21-day lead time")

	price, err := NewMock().Generate(context.Background(), base+"Buyer's Latest Message: Can you do a discount?\n", 200)
	require.NoError(t, err)
	assert.Contains(t, price, "12% off")

	delivery, err := NewMock().Generate(context.Background(), base+"Buyer's Latest Message: We need faster delivery\n", 200)
	require.NoError(t, err)
	assert.Contains(t, delivery, "Standard lead time for SP-100 is 21 days")
}

func TestMockHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMock().Generate(ctx, justificationPrompt, 150)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelect(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "")

	g, err := Select("", "")
	require.NoError(t, err)
	assert.IsType(t, &Mock{}, g)

	g, err = Select("MOCK", "")
	require.NoError(t, err)
	assert.IsType(t, &Mock{}, g)

	g, err = Select("something-else", "")
	require.NoError(t, err)
	assert.IsType(t, &Mock{}, g)

	_, err = Select("openai", "")
	assert.ErrorIs(t, err, ErrCredentialRequired)

	g, err = Select("OpenAI", "sk-test")
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, g)

	t.Setenv(EnvOpenAIKey, "sk-env")
	g, err = Select("openai", "")
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, g)
}

func TestOpenAIGenerate(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-3.5-turbo",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  SP-100 is the best fit.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	out, err := g.Generate(context.Background(), justificationPrompt, 150)
	require.NoError(t, err)
	assert.Equal(t, "SP-100 is the best fit.", out)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 150, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, systemPrompt, got.Messages[0].Content)
	assert.Equal(t, justificationPrompt, got.Messages[1].Content)
}

func TestOpenAIFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
	}))
	defer srv.Close()

	g := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	_, err := g.Generate(context.Background(), "hello", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailure)
}
