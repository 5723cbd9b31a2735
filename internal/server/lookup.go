// internal/server/lookup.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"mcp-nutrition-tracker/internal/models"
	"mcp-nutrition-tracker/internal/nutrition"
	"mcp-nutrition-tracker/internal/storage"
)

// ProfileLookup fetches reference nutrition data for a food label.
type ProfileLookup interface {
	LookupProfile(ctx context.Context, name string) (*models.NutritionProfile, error)
}

// ProfileClient asks the LLM gateway for a food's nutrition normalized to 100 g.
type ProfileClient struct {
	httpClient *http.Client
	proxyURL   string
	apiKey     string
	model      string
}

func NewProfileClient() *ProfileClient {
	proxyURL := os.Getenv("MCP_PROXY_URL")
	if proxyURL == "" {
		proxyURL = "http://mcp-compose-http-proxy:9876"
	}

	apiKey := os.Getenv("MCP_PROXY_API_KEY")
	if apiKey == "" {
		apiKey = "myapikey"
	}

	model := os.Getenv("OPENROUTER_MODEL")
	if model == "" {
		model = "openai/gpt-4.1-mini"
	}

	return &ProfileClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		proxyURL: proxyURL,
		apiKey:   apiKey,
		model:    model,
	}
}

const profileSystemPrompt = `You are a registered nutritionist.

Given a food name, provide its nutritional values normalized to 100 g. Ignore other serving sizes; scaling is done by the caller.

IMPORTANT: Respond with a single valid JSON object and nothing else, in this exact format:
{
  "name": "<the food name>",
  "unit": "piece" or "gram",
  "piece_avg_weight": <grams in one piece, or null if unit is gram>,
  "avg_gram": <typical serving size in grams, or null if unit is piece>,
  "cal": <kcal per 100 g>,
  "protein": <g protein per 100 g>,
  "fat": <g fat per 100 g>,
  "carbohydrates": <g carbs per 100 g>
}`

func (c *ProfileClient) LookupProfile(ctx context.Context, name string) (*models.NutritionProfile, error) {
	completionRequest := map[string]interface{}{
		"model":         c.model,
		"system_prompt": profileSystemPrompt,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": fmt.Sprintf("Food name: %q", name),
			},
		},
		"max_tokens":  300,
		"temperature": 0,
	}

	gatewayResponse, err := c.callGateway(ctx, "create_completion", completionRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to get AI completion: %w", err)
	}

	profile, err := parseProfile(gatewayResponse)
	if err != nil {
		return nil, err
	}
	if profile.Name == "" {
		profile.Name = name
	}
	return profile, nil
}

func (c *ProfileClient) callGateway(ctx context.Context, toolName string, args interface{}) (string, error) {
	url := fmt.Sprintf("%s/openrouter-gateway", c.proxyURL)

	requestData := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      toolName,
			"arguments": args,
		},
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("request failed with status %d and couldn't read body: %v", resp.StatusCode, err)
		}
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var mcpResponse struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&mcpResponse); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(mcpResponse.Result.Content) == 0 || mcpResponse.Result.Content[0].Text == "" {
		return "", fmt.Errorf("unexpected response format")
	}

	return mcpResponse.Result.Content[0].Text, nil
}

// parseProfile pulls the profile JSON out of a completion. The gateway may wrap
// the model output in {"content": "..."} and the model may surround the
// object with prose.
func parseProfile(output string) (*models.NutritionProfile, error) {
	content := output
	var completion struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(output), &completion); err == nil && completion.Content != "" {
		content = completion.Content
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in completion")
	}

	var p models.NutritionProfile
	if err := json.Unmarshal([]byte(content[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("failed to parse nutrition profile: %w", err)
	}
	if err := validateProfile(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func validateProfile(p *models.NutritionProfile) error {
	p.Unit = models.Unit(strings.ToLower(strings.TrimSpace(string(p.Unit))))
	if p.Unit != models.UnitPiece && p.Unit != models.UnitGram {
		return fmt.Errorf("invalid unit %q", p.Unit)
	}
	for _, v := range []float64{p.Calories, p.Protein, p.Fat, p.Carbs, p.PieceAvgWeight, p.AvgGram} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("invalid nutrition value %v", v)
		}
	}
	return nil
}

// resolveProfiles loads profiles from the local cache, falling back to the
// lookup client and caching what it returns. Labels that cannot be resolved
// are left out; they count as zero in the totals.
func (s *NutritionServer) resolveProfiles(ctx context.Context, labels []string) nutrition.Profiles {
	profiles := make(nutrition.Profiles, len(labels))
	for _, label := range labels {
		if _, ok := profiles[label]; ok {
			continue
		}

		p, err := s.storage.GetProfile(ctx, label)
		if err == nil {
			profiles[label] = *p
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("failed to read cached profile", "label", label, "error", err)
			continue
		}
		if s.lookup == nil {
			continue
		}

		p, err = s.lookup.LookupProfile(ctx, label)
		if err != nil {
			s.logger.Warn("nutrition lookup failed", "label", label, "error", err)
			continue
		}
		p.Name = label
		if err := s.storage.SaveProfile(ctx, *p); err != nil {
			s.logger.Warn("failed to cache profile", "label", label, "error", err)
		}
		profiles[label] = *p
	}
	return profiles
}
