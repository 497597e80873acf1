package llmclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/agentpipe/analysis"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"model": "deepseek-chat",
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"total_tokens": 42},
	})
	return string(b)
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse string
		status         int
		wantErr        string
		verifyFn       func(t *testing.T, issues []analysis.Issue)
	}{
		{
			name: "plain json",
			serverResponse: chatReply(`{"issues":[{"type":"weak-assertion","line":4,"severity":"warning",` +
				`"message":"too broad","suggestion":"compare exact length","example_code":"assert len(x) == 5"}],` +
				`"overall_quality":"fair","confidence":0.8}`),
			status: http.StatusOK,
			verifyFn: func(t *testing.T, issues []analysis.Issue) {
				require.Len(t, issues, 1)
				assert.Equal(t, analysis.Issue{
					File:       "tests/test_x.py",
					Line:       4,
					Severity:   analysis.SeverityWarning,
					Type:       "weak-assertion",
					Message:    "too broad",
					DetectedBy: analysis.DetectedByLLM,
					Suggestion: analysis.Suggestion{
						Action:      "replace",
						NewCode:     "assert len(x) == 5",
						Explanation: "compare exact length",
					},
				}, issues[0])
			},
		},
		{
			name:           "fenced json with unknown severity",
			serverResponse: chatReply("Here is the JSON:\n```json\n{\"issues\":[{\"type\":\"test-smell\",\"line\":2,\"severity\":\"critical\",\"message\":\"sleep\"},]}\n```"),
			status:         http.StatusOK,
			verifyFn: func(t *testing.T, issues []analysis.Issue) {
				require.Len(t, issues, 1)
				assert.Equal(t, analysis.SeverityInfo, issues[0].Severity)
				assert.Equal(t, "add", issues[0].Suggestion.Action)
			},
		},
		{
			name:           "no issues",
			serverResponse: chatReply(`{"issues":[]}`),
			status:         http.StatusOK,
			verifyFn: func(t *testing.T, issues []analysis.Issue) {
				assert.NotNil(t, issues)
				assert.Empty(t, issues)
			},
		},
		{
			name:           "not json",
			serverResponse: chatReply("I cannot help with that."),
			status:         http.StatusOK,
			wantErr:        "failed to parse review of tests/test_x.py",
		},
		{
			name:           "no choices",
			serverResponse: `{"choices":[]}`,
			status:         http.StatusOK,
			wantErr:        ErrNoChoices.Error(),
		},
		{
			name:           "http error",
			serverResponse: "rate limited",
			status:         http.StatusTooManyRequests,
			wantErr:        "unexpected status code: 429: rate limited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.serverResponse))
			}))
			defer ts.Close()

			client, err := New(ts.URL)
			require.NoError(t, err)
			issues, err := client.Analyze(context.Background(), analysis.File{Path: "tests/test_x.py", Content: "def test_a():\n    pass\n"})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				tt.verifyFn(t, issues)
			}
		})
	}
}

func TestComplete_Request(t *testing.T) {
	var got chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(chatReply("pong")))
	}))
	defer ts.Close()

	client, err := New(ts.URL, WithToken("sk-test"), WithModel("gpt-test"), WithTemperature(0.2))
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "ping"}})
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "ping"}}, got.Messages)
}

func TestComplete_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("late")))
	}))
	defer ts.Close()

	client, err := New(ts.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Complete(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAndOptions(t *testing.T) {
	t.Run("New with valid URL", func(t *testing.T) {
		client, err := New("https://llm.test")
		require.NoError(t, err)
		assert.Equal(t, "https://llm.test", client.baseURL.String())
		assert.Equal(t, defaultModel, client.Model())
		assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	})

	t.Run("New with invalid URL", func(t *testing.T) {
		client, err := New("::invalid")
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("WithTimeout and empty model", func(t *testing.T) {
		client, err := New("https://llm.test", WithTimeout(5*time.Second), WithModel(""))
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
		assert.Equal(t, defaultModel, client.model)
	})

	t.Run("WithLogger", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		client, err := New("https://llm.test", WithLogger(logger))
		require.NoError(t, err)
		assert.NotNil(t, client.logger)
	})
}

func TestDoRequest_Errors(t *testing.T) {
	t.Run("invalid method", func(t *testing.T) {
		client, _ := New("https://llm.test")
		resp, err := client.doRequest(context.Background(), " ", chatPath, nil)
		assert.Error(t, err)
		assert.Nil(t, resp)
		assert.Contains(t, err.Error(), "failed to create request")
	})

	t.Run("invalid path", func(t *testing.T) {
		client, _ := New("https://llm.test")
		resp, err := client.doRequest(context.Background(), http.MethodGet, ":%gh", nil)
		assert.Error(t, err)
		assert.Nil(t, resp)
		assert.Contains(t, err.Error(), "failed to build URL")
	})
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{"host without trailing slash", "https://llm.test", "https://llm.test/v1/chat/completions"},
		{"host with trailing slash", "https://llm.test/", "https://llm.test/v1/chat/completions"},
		{"host with port", "http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.host)
			require.NoError(t, err)
			got, err := client.buildURL(chatPath)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestClientSatisfiesAnalysis(t *testing.T) {
	var _ analysis.LLMClient = (*Client)(nil)
}
