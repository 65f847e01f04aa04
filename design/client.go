// Client for the generative design/content API (OpenAI-compatible chat
// endpoint). This is the only external call in the codebase with a retry
// policy: a single exponential-backoff wrapper.

package design

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	maxAttempts  = 4
	initialDelay = time.Second
)

type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	httpClient *http.Client
	sleep      func(time.Duration) // overridable in tests
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		sleep:      time.Sleep,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends one prompt and returns the completion text, retrying with
// exponential backoff on transport errors and 5xx/429 responses.
func (c *Client) Generate(system, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   500,
		Temperature: 0.9,
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.sleep(delay)
			delay *= 2
		}

		text, retryable, err := c.doRequest(body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		zap.L().Warn("generation attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doRequest(body []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequest("POST", c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("generation api returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", false, fmt.Errorf("generation api returned %s: %s", resp.Status, raw)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("parse generation response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("generation response had no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

// MarketingCopy generates promo copy for a product.
func (c *Client) MarketingCopy(productName, audience string) (string, error) {
	prompt := fmt.Sprintf("Write a short, high-energy marketing post for %q aimed at %s. Include a clear call to action.", productName, audience)
	return c.Generate("You are a marketing copywriter for a design studio.", prompt)
}

// DesignBrief turns a client's design specs into a working brief for the
// assigned design agent.
func (c *Client) DesignBrief(specs string) (string, error) {
	prompt := fmt.Sprintf("Turn these client design specifications into a concise design brief:\n\n%s", specs)
	return c.Generate("You are a senior design director.", prompt)
}
