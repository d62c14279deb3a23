package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/kestrelsec/mailgate/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// AnomalyClient scores messages using the OpenAI chat completion API. It
// implements the AnomalyScorer interface.
type AnomalyClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	promptFormat  string
	textProcessor *utils.TextProcessor
}

type anomalyResponse struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

const anomalyPrompt = `You are the anomaly scoring component of an email security gateway.
Rate how anomalous the following message is compared to legitimate business email.
Respond with a JSON object containing:
- score: number between 0 and 1 (higher means more anomalous)
- rationale: string (brief explanation of the score)

Message:
From: %s
To: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// NewAnomalyClient creates a new OpenAI anomaly client
func NewAnomalyClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *AnomalyClient {
	return &AnomalyClient{
		client:        openai.NewClient(apiKey),
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat:  anomalyPrompt,
	}
}

// Score asks the model for an anomaly verdict on the message.
func (c *AnomalyClient) Score(ctx context.Context, raw *core.RawMessage) (*core.AnomalyScore, error) {
	body := raw.BodyText
	if body == "" {
		body = raw.BodyHTML
	}
	processedBody := c.textProcessor.PrepareBody(body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, raw.FromAddress, raw.ToAddress, raw.Subject, processedBody)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email anomaly scoring system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: "json",
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	verdict, err := parseAnomalyResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return &core.AnomalyScore{
		Score:     clampScore(verdict.Score),
		Rationale: verdict.Rationale,
		Provider:  "openai:" + c.modelName,
	}, nil
}

func parseAnomalyResponse(responseText string) (*anomalyResponse, error) {
	var verdict anomalyResponse
	if err := json.Unmarshal([]byte(responseText), &verdict); err == nil {
		return &verdict, nil
	}

	jsonStart := strings.Index(responseText, "{")
	jsonEnd := strings.LastIndex(responseText, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return &verdict, nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
