package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/llm"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL + "/",
		Model:        "compare-model",
		SegmentModel: "segment-model",
		Timeout:      2 * time.Second,
	}, nil, nil)
}

func TestCompareReturnsContent(t *testing.T) {
	var gotAuth, gotModel, gotPath string
	var gotUser string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(b, &req)
		gotModel = req.Model
		for _, m := range req.Messages {
			if m.Role == "user" {
				gotUser = m.Content
			}
		}
		_, _ = io.WriteString(w, completion("  {\"changes\": []}  "))
	})

	out, err := c.Compare(context.Background(), llm.CompareRequest{
		BeforeText:  "[Page 1]\nold",
		AfterText:   "[Page 1]\nnew",
		BeforeRange: &entity.PageRange{Start: 1, End: 1},
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if string(out) != `{"changes": []}` {
		t.Errorf("content = %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotModel != "compare-model" {
		t.Errorf("model = %q", gotModel)
	}
	if !strings.Contains(gotUser, "pages 1-1") || !strings.Contains(gotUser, "[Page 1]\nnew") {
		t.Errorf("user prompt missing range or text:\n%s", gotUser)
	}
}

func TestSegmentUsesSegmentModel(t *testing.T) {
	var gotModel string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		_, _ = io.WriteString(w, completion(`{"enacting_terms":[2,3]}`))
	})
	if _, err := c.Segment(context.Background(), llm.SegmentRequest{DocumentText: "x", TotalPages: 3}); err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if gotModel != "segment-model" {
		t.Errorf("model = %q, want segment-model", gotModel)
	}
}

func TestProviderErrorIsOracleUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	_, err := c.Compare(context.Background(), llm.CompareRequest{})
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
	var se *llm.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status error not preserved: %v", err)
	}
}

func TestTimeoutIsOracleUnavailable(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Compare(ctx, llm.CompareRequest{})
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
}

func TestMalformedEnvelopeIsAnalysisOutput(t *testing.T) {
	cases := map[string]string{
		"not json":   "<html>oops</html>",
		"no choices": `{"choices": []}`,
		"empty":      completion("   "),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			_, err := c.Compare(context.Background(), llm.CompareRequest{})
			if !errors.Is(err, common.ErrAnalysisOutput) {
				t.Fatalf("err = %v, want ErrAnalysisOutput", err)
			}
			var ae *common.AnalysisOutputError
			if !errors.As(err, &ae) || len(ae.Raw) == 0 {
				t.Errorf("raw output not carried: %v", err)
			}
		})
	}
}
