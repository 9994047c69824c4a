package core

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"fasoagent.bf/assistant/internal/store"
)

const (
	chatModelName  = "gemini-2.5-flash"
	imageModelName = "gemini-2.5-flash-image"

	headlineSeparator = "||"
)

// TurnResult is the normalized outcome of one conversational turn.
type TurnResult struct {
	Text    string
	Sources []store.Source
}

// Pharmacy is one on-duty pharmacy entry parsed out of a grounded search.
type Pharmacy struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Phone    string `json:"phone,omitempty"`
}

// AIClient is the slice of the backend adapter the orchestration engine
// depends on, so tests can substitute a deterministic fake.
type AIClient interface {
	SendTurn(ctx context.Context, text string) (*TurnResult, error)
	SynthesizeImage(ctx context.Context, description string) (string, error)
}

// GeminiClient wraps the genai SDK behind the three domain operations:
// conversational turns, image synthesis and headline aggregation. It owns
// exactly one mutable session handle and one headline cache; the two are
// resettable independently. A missing API key is not an error: every call
// path has a degraded-mode response.
type GeminiClient struct {
	apiKey string
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	client  *genai.Client
	session *genai.ChatSession

	headlines *HeadlineCache
}

func NewGeminiClient(apiKey string, logger *zap.Logger) *GeminiClient {
	c := &GeminiClient{
		apiKey: apiKey,
		logger: logger,
		now:    time.Now,
	}
	c.headlines = NewHeadlineCache(c.fetchLiveHeadlines, logger)
	return c
}

func (c *GeminiClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.Warn("error closing GenAI client", zap.Error(err))
		}
		c.client = nil
		c.session = nil
	}
}

// SendTurn sends one user message on the long-lived chat session,
// (re-)establishing the session first when needed. A call failure on an
// established session invalidates the handle so the next attempt starts
// fresh, and is returned to the caller.
func (c *GeminiClient) SendTurn(ctx context.Context, text string) (*TurnResult, error) {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &TurnResult{Text: degradedModeReply}, nil
	}

	resp, err := session.SendMessage(ctx, genai.Text(text))
	if err != nil {
		c.invalidateSession()
		return nil, fmt.Errorf("gemini turn failed: %w", err)
	}

	result := &TurnResult{
		Text:    extractText(resp),
		Sources: extractSources(resp),
	}
	if result.Text == "" {
		result.Text = emptyReplyText
	}
	return result, nil
}

// SynthesizeImage asks the image model for one illustration and returns it
// as a data URI. A missing API key or a reply without an image part yields
// ("", nil); any API failure is returned so the caller can degrade in
// whatever way its UI state requires.
func (c *GeminiClient) SynthesizeImage(ctx context.Context, description string) (string, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return "", err
	}
	if client == nil {
		return "", nil
	}

	model := client.GenerativeModel(imageModelName)
	prompt := imagePromptPrefix + description + imagePromptSuffix

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini image generation failed: %w", err)
	}

	for _, part := range candidateParts(resp) {
		if blob, ok := part.(genai.Blob); ok {
			return "data:" + blob.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), nil
		}
	}
	return "", nil
}

// FetchHeadlines serves the news ticker through the TTL cache. It never
// fails: fetch errors fall back to the fixed list inside the cache.
func (c *GeminiClient) FetchHeadlines(ctx context.Context, forceRefresh bool) []string {
	return c.headlines.Headlines(ctx, forceRefresh)
}

// Headlines exposes the cache for invalidation; resetting it does not touch
// the chat session and vice versa.
func (c *GeminiClient) Headlines() *HeadlineCache {
	return c.headlines
}

// ResetSession discards the chat session handle so the next turn
// re-establishes one with fresh context. The headline cache is untouched.
func (c *GeminiClient) ResetSession() {
	c.invalidateSession()
}

var pharmacyJSONRe = regexp.MustCompile(`(?s)\[.*\]`)

// FindPharmacies runs a grounded search for on-duty pharmacies in a city and
// parses the JSON array out of the reply. Degraded mode returns an empty
// list.
func (c *GeminiClient) FindPharmacies(ctx context.Context, city string) ([]Pharmacy, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return []Pharmacy{}, nil
	}

	model := client.GenerativeModel(chatModelName)
	model.Tools = []*genai.Tool{{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}}}

	resp, err := model.GenerateContent(ctx, genai.Text(pharmaciesPrompt(city, c.now())))
	if err != nil {
		return nil, fmt.Errorf("pharmacy search failed: %w", err)
	}

	raw := pharmacyJSONRe.FindString(extractText(resp))
	if raw == "" {
		return []Pharmacy{}, nil
	}

	var pharmacies []Pharmacy
	if err := json.Unmarshal([]byte(raw), &pharmacies); err != nil {
		c.logger.Warn("could not parse pharmacy reply", zap.Error(err))
		return []Pharmacy{}, nil
	}
	return pharmacies, nil
}

// fetchLiveHeadlines is the cache's fetch hook: a grounded single-shot
// request whose reply is one ' || '-delimited line of short titles.
func (c *GeminiClient) fetchLiveHeadlines(ctx context.Context) ([]string, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("no AI client available")
	}

	model := client.GenerativeModel(chatModelName)
	model.Tools = []*genai.Tool{{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}}}

	resp, err := model.GenerateContent(ctx, genai.Text(headlinesPrompt(c.now())))
	if err != nil {
		return nil, fmt.Errorf("headline fetch failed: %w", err)
	}

	headlines := parseHeadlines(extractText(resp))
	if len(headlines) == 0 {
		return nil, fmt.Errorf("no headlines found or invalid format")
	}
	return headlines, nil
}

func parseHeadlines(text string) []string {
	var out []string
	for _, h := range strings.Split(text, headlineSeparator) {
		h = strings.TrimSpace(h)
		if utf8.RuneCountInString(h) > minHeadlineLength {
			out = append(out, h)
		}
	}
	return out
}

// ensureClient returns the shared client, creating it on first use. A
// missing key yields (nil, nil): callers treat a nil client as degraded
// mode. A creation failure is logged and also degrades rather than raising,
// so the happy path never needs a "no backend" special case.
func (c *GeminiClient) ensureClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureClientLocked(ctx)
}

func (c *GeminiClient) ensureClientLocked(ctx context.Context) (*genai.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		c.logger.Warn("failed to create GenAI client, running degraded", zap.Error(err))
		return nil, nil
	}
	c.client = client
	return client, nil
}

// ensureSession returns the long-lived chat session, establishing it with
// the dated system instruction and the Google Search tool when absent. A nil
// session with nil error means degraded mode.
func (c *GeminiClient) ensureSession(ctx context.Context) (*genai.ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.session, nil
	}

	client, err := c.ensureClientLocked(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, nil
	}

	model := client.GenerativeModel(chatModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(dynamicSystemInstruction(c.now()))},
	}
	model.Tools = []*genai.Tool{{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}}}

	c.session = model.StartChat()
	c.logger.Info("chat session established", zap.String("model", chatModelName))
	return c.session, nil
}

func (c *GeminiClient) invalidateSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
}

func candidateParts(resp *genai.GenerateContentResponse) []genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, part := range candidateParts(resp) {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}

// extractSources normalizes citation metadata into {title, uri} pairs,
// preserving citation order. The service does not always name its sources,
// so the title falls back to the URI host.
func extractSources(resp *genai.GenerateContentResponse) []store.Source {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].CitationMetadata == nil {
		return nil
	}

	var sources []store.Source
	seen := make(map[string]bool)
	for _, cs := range resp.Candidates[0].CitationMetadata.CitationSources {
		if cs == nil || cs.URI == nil || *cs.URI == "" || seen[*cs.URI] {
			continue
		}
		seen[*cs.URI] = true
		sources = append(sources, store.Source{
			Title: sourceTitle(*cs.URI),
			URI:   *cs.URI,
		})
	}
	return sources
}

func sourceTitle(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return uri
	}
	return strings.TrimPrefix(u.Host, "www.")
}
