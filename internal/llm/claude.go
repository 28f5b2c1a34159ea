package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chrissicool/lbc/internal/checker"
)

const apiURL = "https://api.anthropic.com/v1/messages"

// Explain sends findings to Claude and returns a plain-English explanation.
func Explain(diags []checker.Diagnostic, apiKey string) (string, error) {
	prompt := buildPrompt(diags)

	body, err := json.Marshal(map[string]any{
		"model":      "claude-sonnet-4-6",
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequest("POST", apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody map[string]any
		json.NewDecoder(resp.Body).Decode(&errBody)
		return "", fmt.Errorf("API returned %d: %v", resp.StatusCode, errBody)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(result.Content) > 0 {
		return result.Content[0].Text, nil
	}
	return "", fmt.Errorf("empty response from Claude")
}

func buildPrompt(diags []checker.Diagnostic) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("A lock-balance lint over C kernel sources found %d issue(s).\n", len(diags)))
	sb.WriteString("Each one is an execution path on which a function exits with a lock counter out of balance, or a lock operation in a loop/switch header.\n\n")

	for i, d := range diags {
		sb.WriteString(fmt.Sprintf("Issue %d: %s in %s() at %s\n", i+1, d.Kind, d.Function, d.Location()))
		if d.Reason != "" {
			sb.WriteString(fmt.Sprintf("  Reason: %s\n", d.Reason))
		}
		sb.WriteString(fmt.Sprintf("  Per-family lock counters on that path: %s\n", d.State))
		sb.WriteString("\n")
	}

	sb.WriteString("For each issue:\n")
	sb.WriteString("1. Explain the root cause in plain English (1-2 sentences)\n")
	sb.WriteString("2. Give a specific code fix a C kernel developer should apply\n")
	sb.WriteString("3. Keep explanations concise and actionable\n")

	return sb.String()
}
