package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/forPelevin/supercut/internal/types"
)

// Adapter answers part-of-speech and hypernym queries through an
// OpenRouter chat completion model. Answers are cached for the lifetime of
// the adapter.
type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client

	mu        sync.Mutex
	tags      map[string][]types.TaggedToken
	hypernyms map[string][]string
}

const (
	requestTimeout = 90 * time.Second
)

// New builds the lexicon client. model is used as given; its default lives
// in the config package.
func New(apiKey, model, baseURL string) *Adapter {
	baseURL = normalizeBaseURL(baseURL)
	return &Adapter{
		key:       apiKey,
		model:     model,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 5 * time.Minute},
		tags:      make(map[string][]types.TaggedToken),
		hypernyms: make(map[string][]string),
	}
}

var tagSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tokens": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{"type": "string"},
					"tag":  map[string]any{"type": "string"},
				},
				"required": []string{"text", "tag"},
			},
		},
	},
	"required": []string{"tokens"},
}

var hypernymSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"hypernyms": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"hypernyms"},
}

// Tag returns the Penn Treebank tagging of text. Punctuation tokens are
// dropped.
func (a *Adapter) Tag(ctx context.Context, text string) ([]types.TaggedToken, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	a.mu.Lock()
	cached, ok := a.tags[text]
	a.mu.Unlock()
	if ok {
		return cached, nil
	}

	var out struct {
		Tokens []types.TaggedToken `json:"tokens"`
	}
	if err := a.complete(ctx, "supercut_pos", buildTagPrompt(text), tagSchema, &out); err != nil {
		return nil, err
	}
	toks := make([]types.TaggedToken, 0, len(out.Tokens))
	for _, t := range out.Tokens {
		t.Text = strings.TrimSpace(t.Text)
		t.Tag = strings.ToUpper(strings.TrimSpace(t.Tag))
		if t.Text == "" || !isWordTag(t.Tag) {
			continue
		}
		toks = append(toks, t)
	}

	a.mu.Lock()
	a.tags[text] = toks
	a.mu.Unlock()
	return toks, nil
}

// Hypernyms returns the hypernym chain of word, most specific first, in
// lower case.
func (a *Adapter) Hypernyms(ctx context.Context, word string) ([]string, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, nil
	}
	a.mu.Lock()
	cached, ok := a.hypernyms[word]
	a.mu.Unlock()
	if ok {
		return cached, nil
	}

	var out struct {
		Hypernyms []string `json:"hypernyms"`
	}
	if err := a.complete(ctx, "supercut_hypernyms", buildHypernymPrompt(word), hypernymSchema, &out); err != nil {
		return nil, err
	}
	chain := make([]string, 0, len(out.Hypernyms))
	for _, h := range out.Hypernyms {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && h != word {
			chain = append(chain, h)
		}
	}

	a.mu.Lock()
	a.hypernyms[word] = chain
	a.mu.Unlock()
	return chain, nil
}

// complete sends one strict-schema chat completion and decodes the JSON
// answer into out.
func (a *Adapter) complete(ctx context.Context, name, prompt string, schema map[string]any, out any) error {
	payload := map[string]any{
		"model":       a.model,
		"stream":      false,
		"temperature": 0,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"schema": schema,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	url := a.baseURL + "/api/v1/chat/completions"

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("openrouter decode: %w", err)
	}
	if len(raw.Choices) == 0 {
		return errors.New("openrouter: no choices")
	}
	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return err
	}
	clean, err := extractJSONObject(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("openrouter answer: %w", err)
	}
	return nil
}

func buildTagPrompt(text string) string {
	return "Tag every token of the sentence below with its Penn Treebank part-of-speech tag " +
		"(NN, NNS, NNP, VB, VBD, VBG, VBN, VBP, VBZ, JJ, RB, DT, IN, PRP, CC, ...). " +
		"Keep the original token order and spelling. " +
		"Return strictly valid JSON (no markdown, no code fences) matching the provided schema." +
		"\n\nSentence:\n" + text
}

func buildHypernymPrompt(word string) string {
	return "List the WordNet hypernym chain of the most common noun or verb sense of the word below, " +
		"from the most specific parent up to the root (for example dog -> canine, carnivore, placental, mammal, " +
		"vertebrate, chordate, animal, organism, living thing, whole, object, physical entity, entity). " +
		"Use single lower case lemmas with spaces, no synset ids. Return an empty list when the word has none. " +
		"Return strictly valid JSON (no markdown, no code fences) matching the provided schema." +
		"\n\nWord:\n" + word
}

var reWordTag = regexp.MustCompile(`^[A-Z]+\$?$`)

func isWordTag(tag string) bool { return reWordTag.MatchString(tag) }

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}

	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
