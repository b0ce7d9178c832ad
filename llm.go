package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1"

	analyzeTimeout = 30 * time.Second

	spineSystemPrompt = "You are an assistant that reads book spines in a photo and extracts bibliographic information."
	spineUserPrompt   = "Extract the title, author and publisher of each book spine visible in the image. " +
		`Reply with JSON in the form [{"title": ..., "author": ..., "publisher": ...}, ...].`
)

var (
	jsonArrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

type analyzerConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// spineAnalyzer calls a chat-completions API to read book spines out of an
// uploaded photo. The zero API key disables it; uploads still succeed and the
// record carries a "skipped" analysis.
type spineAnalyzer struct {
	cfg    analyzerConfig
	client *http.Client
}

func newSpineAnalyzer(cfg analyzerConfig) *spineAnalyzer {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &spineAnalyzer{
		cfg:    cfg,
		client: &http.Client{Timeout: analyzeTimeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// Analyze sends the image to the chat-completions endpoint and normalizes
// whatever comes back. It never returns an error: failures are folded into
// the Analysis status so a flaky model API cannot break photo uploads.
func (a *spineAnalyzer) Analyze(ctx context.Context, image []byte) Analysis {
	if a.cfg.APIKey == "" {
		return Analysis{Status: "skipped", Reason: "OPENAI_API_KEY is not set"}
	}

	content, err := a.complete(ctx, image)
	if err != nil {
		return Analysis{Status: "error", Reason: err.Error()}
	}
	return Analysis{Status: "ok", Data: parseAnalysisContent(content)}
}

func (a *spineAnalyzer) complete(ctx context.Context, image []byte) (string, error) {
	payload := chatRequest{
		Model: a.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: spineSystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: spineUserPrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
				}},
			}},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshal chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(a.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build chat request")
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "chat completions request")
	}
	defer resp.Body.Close()

	respBody, err := readBodyLimited(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read chat response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completions returned status %d", resp.StatusCode)
	}

	content := gjson.GetBytes(respBody, "choices.0.message.content")
	if !content.Exists() {
		return "", errors.New("chat response missing message content")
	}
	return content.String(), nil
}

// readBodyLimited caps response body reads at 4 MiB.
func readBodyLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 4<<20))
}

// parseAnalysisContent shapes model output into book entries. Models do not
// always reply with clean JSON, so after a direct parse fails it hunts for an
// embedded JSON array or object; content that defies both is kept raw.
func parseAnalysisContent(content string) *AnalysisData {
	if gjson.Valid(content) {
		return normalizeAnalysis(gjson.Parse(content), content)
	}
	if m := jsonArrayPattern.FindString(content); m != "" && gjson.Valid(m) {
		return normalizeAnalysis(gjson.Parse(m), content)
	}
	if m := jsonObjectPattern.FindString(content); m != "" && gjson.Valid(m) {
		return normalizeAnalysis(gjson.Parse(m), content)
	}
	return &AnalysisData{Raw: content}
}

func normalizeAnalysis(parsed gjson.Result, original string) *AnalysisData {
	switch {
	case parsed.IsArray():
		return &AnalysisData{Books: booksFromArray(parsed)}
	case parsed.IsObject():
		if books := parsed.Get("books"); books.IsArray() {
			return &AnalysisData{Books: booksFromArray(books)}
		}
		if parsed.Get("title").Exists() || parsed.Get("author").Exists() || parsed.Get("publisher").Exists() {
			return &AnalysisData{Books: []Book{sanitizeBook(parsed)}}
		}
	}
	return &AnalysisData{Raw: original}
}

func booksFromArray(arr gjson.Result) []Book {
	var books []Book
	arr.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			books = append(books, sanitizeBook(item))
		}
		return true
	})
	return books
}

func sanitizeBook(item gjson.Result) Book {
	return Book{
		Title:     strings.TrimSpace(item.Get("title").String()),
		Author:    strings.TrimSpace(item.Get("author").String()),
		Publisher: strings.TrimSpace(item.Get("publisher").String()),
	}
}
