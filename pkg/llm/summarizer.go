// Package llm produces article summaries with an OpenAI-compatible chat completion API
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/umputun/feedflow/pkg/config"
)

// maxAttempts is the number of tries when the model returns unparsable JSON
const maxAttempts = 3

// contentLimit is the number of runes of article text sent to the model
const contentLimit = 4000

var errBadJSON = errors.New("invalid json in llm response")

// default system prompt for summarization
const defaultSystemPrompt = `You are an editor of a news digest. For every article you receive, write:
- summary: 2-4 sentences (250-400 chars) capturing the main story, findings and important details. Write directly about the subject matter. NEVER start with phrases like "The article discusses" or "This piece explores". Write in the same language as the article.
- key_points: 2-5 short bullet phrases (max 80 chars each) with the most important facts.
- topics: 1-3 topics for the article. Use names from the provided topic list when they apply; only propose a new topic when none fits.

Example of a good summary:
"Scientists found extensive water ice deposits near the Mars equator using orbital radar data. Layers reach 3.7km deep beneath the Medusae Fossae Formation. The discovery challenges models of Mars climate history and could support future crewed missions."

Respond with JSON only.`

// Request is an article to summarize
type Request struct {
	Title       string
	Description string
	Content     string
	Topics      []string // known topic names offered to the model
}

// Summary is the model output for one article
type Summary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Topics    []string `json:"topics"`
}

// Summarizer calls the LLM to summarize articles
type Summarizer struct {
	client    *openai.Client
	config    config.LLMConfig
	systemMsg string
}

// NewSummarizer makes a summarizer for the configured endpoint
func NewSummarizer(cfg config.LLMConfig) *Summarizer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}

	return &Summarizer{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		systemMsg: systemMsg,
	}
}

// Summarize asks the model for a summary, key points and topics of the article.
// Unparsable responses are retried up to three times, transport errors are returned at once.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (Summary, error) {
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.Description) == "" {
		return Summary{}, errors.New("nothing to summarize")
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	prompt := s.buildPrompt(req)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		chatReq := openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: float32(s.config.Temperature),
			MaxTokens:   s.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: s.systemMsg},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		}
		if s.config.UseJSONMode {
			chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}

		resp, err := s.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return Summary{}, fmt.Errorf("llm request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Summary{}, errors.New("no response from llm")
		}

		res, err := parseResponse(resp.Choices[0].Message.Content)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !errors.Is(err, errBadJSON) {
			return Summary{}, err
		}
	}

	return Summary{}, fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

// buildPrompt creates the user message for one article
func (s *Summarizer) buildPrompt(req Request) string {
	var sb strings.Builder

	if len(req.Topics) > 0 {
		sb.WriteString("Available topics (use one of these when applicable):\n")
		sb.WriteString(strings.Join(req.Topics, ", "))
		sb.WriteString("\n\n")
	}

	sb.WriteString("Summarize this article:\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", req.Title)
	if req.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", req.Description)
	}
	if req.Content != "" {
		content := []rune(req.Content)
		if len(content) > contentLimit {
			content = append(content[:contentLimit], []rune("...")...)
		}
		fmt.Fprintf(&sb, "Content: %s\n", string(content))
	}
	sb.WriteString("\nRespond with a JSON object with fields summary, key_points and topics.")
	return sb.String()
}

// parseResponse extracts the JSON object from the model output, tolerating surrounding text
func parseResponse(content string) (Summary, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || start >= end {
		return Summary{}, fmt.Errorf("%w: no json object found", errBadJSON)
	}

	var res Summary
	if err := json.Unmarshal([]byte(content[start:end+1]), &res); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", errBadJSON, err)
	}

	res.Summary = strings.TrimSpace(res.Summary)
	if res.Summary == "" {
		return Summary{}, errors.New("empty summary in llm response")
	}
	res.KeyPoints = compact(res.KeyPoints)
	res.Topics = compact(res.Topics)
	return res, nil
}

// compact trims entries and drops empty ones
func compact(items []string) []string {
	res := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}
