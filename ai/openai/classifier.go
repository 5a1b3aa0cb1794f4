// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/researchgraph/ai"
	"github.com/poiesic/researchgraph/core"
)

// StanceClassifier implements ai.StanceClassifier using OpenAI-compatible chat APIs.
type StanceClassifier struct {
	client llms.Model
	logger *slog.Logger
}

// judgment is an internal type used for JSON unmarshaling.
// It matches the structure requested from the LLM.
type judgment struct {
	Stance     string  `json:"stance"`
	Confidence float64 `json:"confidence"`
}

// newStanceClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newStanceClassifier(config *ai.Config) (*StanceClassifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken("none"),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &StanceClassifier{
		client: client,
		logger: slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewStanceClassifier creates a new stance classifier using the provided configuration.
//
// Returns ai.StanceClassifier interface to enforce abstraction.
func NewStanceClassifier(config *ai.Config) (ai.StanceClassifier, error) {
	return newStanceClassifier(config)
}

// ClassifyStance asks the model whether one artifact's findings support
// or contradict the given theory.
func (c *StanceClassifier) ClassifyStance(ctx context.Context, theory string, evidence ai.Evidence) (core.Stance, float64, error) {
	findings := strings.Join(evidence.KeyFindings, "\n- ")
	if findings != "" {
		findings = "- " + findings
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(stanceSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf(stanceUserPrompt, theory, evidence.Title, evidence.Summary, findings)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result judgment
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return core.StanceUncertain, 0, wrapUpstreamErr(err)
		}

		if len(response.Choices) < 1 {
			c.logger.Debug("no choices returned from model")
			return core.StanceUncertain, 0, ai.ErrMalformedResponse
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		c.logger.Error("failed to parse classifier response after retries", "err", lastErr)
		return core.StanceUncertain, 0, errors.Join(ai.ErrMalformedResponse, lastErr)
	}

	stance := parseStance(result.Stance)
	confidence := clampConfidence(result.Confidence)

	c.logger.Debug("classified stance",
		"stance", stance,
		"confidence", confidence)

	return stance, confidence, nil
}

// parseStance maps the model's answer onto a stance, defaulting to
// uncertain for anything unrecognized.
func parseStance(s string) core.Stance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agree":
		return core.StanceAgree
	case "disagree":
		return core.StanceDisagree
	default:
		return core.StanceUncertain
	}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
