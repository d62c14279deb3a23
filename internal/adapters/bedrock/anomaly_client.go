package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/kestrelsec/mailgate/internal/core"
	"github.com/kestrelsec/mailgate/internal/utils"
	"go.uber.org/zap"
)

// AnomalyClient scores messages with a model hosted on Amazon Bedrock. It
// implements the AnomalyScorer interface for deployments without an
// upstream scoring stage.
type AnomalyClient struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	promptFormat  string
	textProcessor *utils.TextProcessor
}

// anomalyResponse is the structured verdict the model is asked to return.
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

// NewAnomalyClient creates a new Bedrock anomaly client
func NewAnomalyClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *AnomalyClient {
	return &AnomalyClient{
		client:        client,
		modelID:       modelID,
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

	var payload []byte
	var err error

	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := c.responseText(resp.Body)
	if err != nil {
		return nil, err
	}

	verdict, err := parseAnomalyResponse(responseText)
	if err != nil {
		return nil, err
	}

	return &core.AnomalyScore{
		Score:     clampScore(verdict.Score),
		Rationale: verdict.Rationale,
		Provider:  "bedrock:" + c.modelID,
	}, nil
}

func (c *AnomalyClient) responseText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	if genericResp.Output != "" {
		return genericResp.Output, nil
	}
	if genericResp.Text != "" {
		return genericResp.Text, nil
	}
	if genericResp.Response != "" {
		return genericResp.Response, nil
	}
	return string(body), nil
}

// parseAnomalyResponse parses the model's JSON verdict, tolerating prose
// around the JSON object.
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

func (c *AnomalyClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

func (c *AnomalyClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
