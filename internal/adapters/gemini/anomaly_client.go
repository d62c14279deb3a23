package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/kestrelsec/mailgate/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// AnomalyClient scores messages using Google Gemini. It implements the
// AnomalyScorer interface.
type AnomalyClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
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

// NewAnomalyClient creates a new Gemini anomaly client
func NewAnomalyClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*AnomalyClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &AnomalyClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat:  anomalyPrompt,
	}, nil
}

// Close closes the Gemini client
func (c *AnomalyClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Score asks the model for an anomaly verdict on the message.
func (c *AnomalyClient) Score(ctx context.Context, raw *core.RawMessage) (*core.AnomalyScore, error) {
	body := raw.BodyText
	if body == "" {
		body = raw.BodyHTML
	}
	processedBody := c.textProcessor.PrepareBody(body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, raw.FromAddress, raw.ToAddress, raw.Subject, processedBody)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	verdict, err := parseAnomalyResponse(responseText)
	if err != nil {
		return nil, err
	}

	return &core.AnomalyScore{
		Score:     clampScore(verdict.Score),
		Rationale: verdict.Rationale,
		Provider:  "gemini:" + c.modelName,
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
