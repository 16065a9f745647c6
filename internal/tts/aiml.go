package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AIMLClient synthesizes speech through the AIML API TTS endpoint and returns
// the binary audio payload.
type AIMLClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	Voice      string
}

type ttsRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func NewAIMLClient(apiKey, model, voice string) *AIMLClient {
	if model == "" {
		model = "elevenlabs/v3_alpha"
	}
	if voice == "" {
		voice = "Alice"
	}
	return &AIMLClient{
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		APIKey:     apiKey,
		Model:      model,
		Voice:      voice,
	}
}

func (c *AIMLClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("aiml tts: api key missing")
	}
	if text == "" {
		return nil, fmt.Errorf("aiml tts: empty text")
	}
	endpoint := "https://api.aimlapi.com/v1/tts"

	reqBody, _ := json.Marshal(ttsRequest{Model: c.Model, Text: text, Voice: c.Voice})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aiml tts request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("aiml tts error: status=%d body=%s", resp.StatusCode, string(b))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("aiml tts read: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("aiml tts: empty audio payload")
	}
	return audio, nil
}
