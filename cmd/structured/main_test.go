package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dan-solli/llmflows/pkg/cli"
)

func newServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func testEnv(vars map[string]string) (cli.Env, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return cli.Env{
		Lookup: func(key string) (string, bool) {
			v, ok := vars[key]
			return v, ok
		},
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout, &stderr
}

func TestRun_Success(t *testing.T) {
	server, _ := newServer(t, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":"{\"name\":\"Meeting with John and Jane\",\"day\":\"Monday\",\"date\":\"2025-02-12\",\"participants\":[\"John\",\"Jane\"]}"},"finish_reason":"stop"}]}`)
	env, stdout, _ := testEnv(map[string]string{"OPENAI_API_KEY": "sk-test", "OPENAI_BASE_URL": server.URL})

	assert.Equal(t, 0, run(context.Background(), env, nil))
	assert.Equal(t, "Meeting with John and Jane\nMonday\n2025-02-12\n[John Jane]\n", stdout.String())
}

func TestRun_FailuresExitOne(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		key   string
		calls int32
	}{
		{"missing credential", `{}`, "", 0},
		{"refusal", `{"choices":[{"message":{"role":"assistant","content":null,"refusal":"I can't help with that."},"finish_reason":"stop"}]}`, "sk-test", 1},
		{"extra field", `{"choices":[{"message":{"role":"assistant","content":"{\"name\":\"n\",\"day\":\"d\",\"date\":\"x\",\"participants\":[],\"room\":\"A\"}"},"finish_reason":"stop"}]}`, "sk-test", 1},
		{"missing field", `{"choices":[{"message":{"role":"assistant","content":"{\"name\":\"n\",\"day\":\"d\",\"participants\":[]}"},"finish_reason":"stop"}]}`, "sk-test", 1},
		{"zero choices", `{"choices":[]}`, "sk-test", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, hits := newServer(t, http.StatusOK, tt.body)
			vars := map[string]string{"OPENAI_BASE_URL": server.URL}
			if tt.key != "" {
				vars["OPENAI_API_KEY"] = tt.key
			}
			env, stdout, stderr := testEnv(vars)

			assert.Equal(t, 1, run(context.Background(), env, nil))
			assert.Equal(t, tt.calls, atomic.LoadInt32(hits))
			assert.Empty(t, stdout.String())
			assert.Contains(t, stderr.String(), "Error:")
		})
	}
}
