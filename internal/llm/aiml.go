package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// systemPrompt is the assistant persona sent with every exchange.
const systemPrompt = "You are a helpful assistant for the Smart Traffic application. " +
	"This application is designed to monitor traffic, detect violations such as speeding, " +
	"and provide a dashboard for reviewing and managing these violations. Users can upload " +
	"video footage for analysis, view a live feed of traffic, and browse a gallery of evidence " +
	"for each violation. Your role is to answer user questions about the application's features " +
	"and functionality."

// AIMLClient talks to the AIML API chat-completions endpoint. Single
// request/response, no retries, no streaming.
type AIMLClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

func NewAIMLClient(apiKey, model string) *AIMLClient {
	return &AIMLClient{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
		Model:      model,
	}
}

// Generate sends the user text and returns the reply string.
func (c *AIMLClient) Generate(ctx context.Context, text string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("aiml api key missing")
	}
	endpoint := "https://api.aimlapi.com/v1/chat/completions"

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: text},
	}

	reqBody, _ := json.Marshal(chatCompletionsRequest{Model: c.Model, Messages: messages})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("aiml chat error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("aiml chat: empty choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
