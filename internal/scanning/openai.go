package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OpenAI implements the Scanner interface against an OpenAI-compatible
// chat completions endpoint
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

const defaultOpenAIURL = "https://api.openai.com/v1"

// NewOpenAI creates a new OpenAI Scanner instance. The key may be empty for
// self-hosted compatible servers, but api.openai.com always needs one.
func NewOpenAI(baseURL string, apiKey string, modelName string) (*OpenAI, error) {
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing openai base url: %w", err)
	}
	if apiKey == "" && strings.EqualFold(u.Hostname(), "api.openai.com") {
		return nil, fmt.Errorf("openai api key is required")
	}
	if modelName == "" {
		modelName = "gpt-4o"
	}

	return &OpenAI{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ScanDocument analyzes a document and extracts its structured record
func (o *OpenAI) ScanDocument(imageData []byte, contentType string) (Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	finalImageData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(finalImageData)
	reqBody := openAIChatRequest{
		Model:       o.model,
		MaxTokens:   4096,
		Temperature: 0,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt + "\n\n" + documentScanPrompt},
			{Role: "user", Content: []openAIContentPart{
				{Type: "text", Text: "Analyze this document. Identify the client and the type, and extract all data as JSON."},
				{Type: "image_url", ImageURL: &openAIImageURL{URL: dataURL, Detail: "high"}},
			}},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling openai API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusError("openai", resp.StatusCode, body)
	}

	var chatResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	record, err := parseDocumentJSON(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing document data: %w", err)
	}

	return record, nil
}

// Close is a no-op for the HTTP client
func (o *OpenAI) Close() error {
	return nil
}
