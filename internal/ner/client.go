// Package ner implements the Text-NER Client (spec.md §4.3): four
// synchronous chat-completion operations — ner, hide, pair, seek — against
// either an OpenAI-compatible or an Anthropic-shaped ModelEndpoint.
// Grounded on the teacher's internal/llm/client.go (functional-options
// client, ExtractJSON generalized into parseEntityMap's three strategies)
// and has_client.py (exact prompts, two/three-turn hide conversation,
// in-memory history mapping).
package ner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/rezonia/pii-redactor/internal/model"
)

// NEROperationTimeout is the per-operation deadline from spec.md §5.
const NEROperationTimeout = 120 * time.Second

// errNoChoices signals an upstream response with an empty choice/content
// list, distinct from a transport-level error.
var errNoChoices = errors.New("ner: model response had no content")

// Client talks to the Text-NER transport named by a ModelEndpoint.
type Client struct {
	endpoint model.ModelEndpoint
	cache    ResponseCache

	historyMu sync.Mutex
	history   map[string][]string
}

// ClientOption configures optional Client behavior.
type ClientOption func(*Client)

// WithResponseCache attaches a ResponseCache; without one, responses are
// never deduplicated across calls.
func WithResponseCache(c ResponseCache) ClientOption {
	return func(cl *Client) { cl.cache = c }
}

// NewClient builds a client bound to a single named model endpoint.
func NewClient(endpoint model.ModelEndpoint, opts ...ClientOption) *Client {
	cl := &Client{endpoint: endpoint, history: map[string][]string{}}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// ResetHistory clears the in-memory history mapping hide(use_history=true)
// relies on to keep the same tag for the same mention across chunks.
// Nothing in this module calls it: the server builds a new Client, with an
// empty history, for every detect request.
func (c *Client) ResetHistory() {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	c.history = map[string][]string{}
}

type chatMessage struct {
	role    string // "user" | "assistant"
	content string
}

// NER recognizes the given entity types in text, returning {type ->
// [mentions]}. Falls with ParseError if no JSON is recoverable.
func (c *Client) NER(ctx context.Context, text string, types []string) (map[string][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, NEROperationTimeout)
	defer cancel()

	key := CacheKey("ner", c.endpoint.Name, text, joinTypes(types))
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return parseEntityMap(cached)
		}
	}

	raw, err := c.chat(ctx, []chatMessage{{role: "user", content: nerPrompt(text, types)}})
	if err != nil {
		return nil, model.NewUpstreamUnavailableError(err, "ner call to %s failed", c.endpoint.Name)
	}

	if c.cache != nil {
		c.cache.Set(key, raw)
	}
	return parseEntityMap(raw)
}

// HideResult is hide's return value: the masked text plus the
// tag->originals mapping pair() recovered from it.
type HideResult struct {
	MaskedText string
	Mapping    map[string][]string
}

// Hide runs the two/three-turn hide conversation from has_client.py: an
// ner-shaped first turn, the model's own reply echoed back, then a
// follow-up turn instructing replacement (optionally seeded with the
// client's accumulated history mapping so the same mention gets the same
// tag across chunks).
func (c *Client) Hide(ctx context.Context, text string, types []string, useHistory bool) (HideResult, error) {
	ctx, cancel := context.WithTimeout(ctx, NEROperationTimeout)
	defer cancel()

	nerResult, err := c.NER(ctx, text, types)
	if err != nil {
		return HideResult{}, err
	}
	if allEmpty(nerResult) {
		return HideResult{MaskedText: text}, nil
	}

	nerJSON := mustMarshal(nerResult)

	messages := []chatMessage{
		{role: "user", content: nerPrompt(text, types)},
		{role: "assistant", content: nerJSON},
	}

	c.historyMu.Lock()
	hasHistory := useHistory && len(c.history) > 0
	historySnapshot := cloneHistory(c.history)
	c.historyMu.Unlock()

	if hasHistory {
		messages = append(messages, chatMessage{role: "user", content: hideFollowupWithHistoryPrompt(historySnapshot)})
	} else {
		messages = append(messages, chatMessage{role: "user", content: hideFollowupPrompt()})
	}

	maskedText, err := c.chat(ctx, messages)
	if err != nil {
		return HideResult{}, model.NewUpstreamUnavailableError(err, "hide call to %s failed", c.endpoint.Name)
	}

	mapping, err := c.Pair(ctx, text, maskedText)
	if err != nil {
		return HideResult{MaskedText: maskedText}, nil
	}

	c.historyMu.Lock()
	for tag, values := range mapping {
		for _, v := range values {
			if !contains(c.history[tag], v) {
				c.history[tag] = append(c.history[tag], v)
			}
		}
	}
	c.historyMu.Unlock()

	return HideResult{MaskedText: maskedText, Mapping: mapping}, nil
}

// Pair recovers {tag -> [originals]} from an (original, anonymized) pair,
// used to seed coreference for structured replacement.
func (c *Client) Pair(ctx context.Context, original, anonymized string) (map[string][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, NEROperationTimeout)
	defer cancel()

	raw, err := c.chat(ctx, []chatMessage{{role: "user", content: pairPrompt(original, anonymized)}})
	if err != nil {
		return nil, model.NewUpstreamUnavailableError(err, "pair call to %s failed", c.endpoint.Name)
	}
	return parseEntityMap(raw)
}

// Seek restores original text from a masked string and mapping. Not on
// the detection critical path; required for round-trip testing
// (testable property 8).
func (c *Client) Seek(ctx context.Context, maskedText string, mapping map[string][]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, NEROperationTimeout)
	defer cancel()

	raw, err := c.chat(ctx, []chatMessage{{role: "user", content: seekPrompt(maskedText, mapping)}})
	if err != nil {
		return maskedText, model.NewUpstreamUnavailableError(err, "seek call to %s failed", c.endpoint.Name)
	}
	return raw, nil
}

// chat dispatches to the OpenAI-compatible or Anthropic wire protocol
// based on the endpoint's Family.
func (c *Client) chat(ctx context.Context, messages []chatMessage) (string, error) {
	switch c.endpoint.Family {
	case model.ModelFamilyAnthropic:
		return c.chatAnthropic(ctx, messages)
	default:
		return c.chatOpenAI(ctx, messages)
	}
}

func (c *Client) chatOpenAI(ctx context.Context, messages []chatMessage) (string, error) {
	client := openai.NewClient(
		option.WithAPIKey(c.endpoint.APIKey),
		option.WithBaseURL(c.endpoint.BaseURL),
	)

	var params []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		if m.role == "assistant" {
			params = append(params, openai.AssistantMessage(m.content))
		} else {
			params = append(params, openai.UserMessage(m.content))
		}
	}

	maxTokens := c.endpoint.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.endpoint.ModelName,
		Messages:    params,
		MaxTokens:   param.NewOpt(maxTokens),
		Temperature: param.NewOpt(c.endpoint.Temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) chatAnthropic(ctx context.Context, messages []chatMessage) (string, error) {
	client := anthropic.NewClient(
		anthropicoption.WithAPIKey(c.endpoint.APIKey),
		anthropicoption.WithBaseURL(c.endpoint.BaseURL),
	)

	var blocks []anthropic.MessageParam
	for _, m := range messages {
		if m.role == "assistant" {
			blocks = append(blocks, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.content)))
		} else {
			blocks = append(blocks, anthropic.NewUserMessage(anthropic.NewTextBlock(m.content)))
		}
	}

	maxTokens := c.endpoint.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.endpoint.ModelName),
		MaxTokens: maxTokens,
		Messages:  blocks,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", errNoChoices
	}
	return resp.Content[0].Text, nil
}
