package gemini

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"explainergo/pkg/llm"
)

// resolveModel picks the model for req's profile and builds its config.
func (c *Client) resolveModel(req llm.Request) (string, *genai.GenerateContentConfig, error) {
	model := c.modelName
	if m := c.profiles[req.Profile]; m != "" {
		model = m
	}

	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.JSON || req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Schema != nil {
		doc, err := req.Schema.JSON()
		if err != nil {
			return "", nil, err
		}
		cfg.ResponseJsonSchema = doc
	}
	return model, cfg, nil
}

// responseText joins the text parts of the first candidate, leaving out
// thought summaries. Blocked prompts and safety stops are errors.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini returned no response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked the prompt: %s %s", fb.BlockReason, fb.BlockReasonMessage)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", errors.New("gemini stopped the response for safety reasons")
	}
	if cand.Content == nil {
		return "", errors.New("candidate has no content")
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func modelPath(name string) string {
	if strings.HasPrefix(name, "models/") {
		return name
	}
	return "models/" + name
}
