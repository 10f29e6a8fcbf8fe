package prompt

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// ComposerAgent turns research into the final image-editing prompt.
type ComposerAgent struct {
	model       TextModel
	promptModel string
	logger      zerolog.Logger
}

func NewComposerAgent(model TextModel, promptModel string, logger zerolog.Logger) *ComposerAgent {
	return &ComposerAgent{model: model, promptModel: promptModel, logger: logger}
}

// Compose returns nil when the model output has no usable prompt.
func (a *ComposerAgent) Compose(ctx context.Context, payload agentPayload, image *InlineImage) *ComposedPrompt {
	text, err := buildAgentText(composerInstruction, payload)
	if err != nil {
		a.logger.Warn().Err(err).Msg("composer payload encoding failed")
		return nil
	}
	resp, err := a.model.GenerateText(ctx, TextRequest{Model: a.promptModel, Text: text, Image: image})
	if err != nil {
		a.logger.Warn().Err(err).Str("model", a.promptModel).Msg("composer failed")
		return nil
	}
	composed := parseComposed(resp.Text)
	if composed == nil {
		a.logger.Warn().Str("model", a.promptModel).Msg("composer returned unusable output")
	}
	return composed
}

type composedWire struct {
	Prompt              any `json:"prompt"`
	ProductRequirements any `json:"productRequirements"`
}

func parseComposed(text string) *ComposedPrompt {
	wire, err := parseModelPayload[composedWire](text)
	if err != nil {
		return nil
	}
	prompt, ok := wire.Prompt.(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		return nil
	}
	out := &ComposedPrompt{Prompt: sanitizeMultilineBlock(prompt)}
	if prd, ok := wire.ProductRequirements.(string); ok && strings.TrimSpace(prd) != "" {
		out.ProductRequirements = sanitizeMultilineBlock(prd)
	}
	return out
}

// mergeDetails orders input details, composer segments and research details, dropping repeats.
func mergeDetails(composed *ComposedPrompt, research *ResearchResult, fromInput []string) []string {
	all := append([]string{}, fromInput...)
	if composed != nil {
		all = append(all, extractHairOnlySegments(composed.Prompt)...)
	}
	all = append(all, detailsFromResearch(research)...)
	return dedupe(all)
}

// appendMissingDetails lists the merged details the composed prompt does not already mention.
// Required details are always listed; the rest fill up to maxPromptDetails.
func appendMissingDetails(prompt string, details, required []string) string {
	lower := strings.ToLower(cleanText(prompt))
	var missing []string
	for _, d := range details {
		if !strings.Contains(lower, strings.ToLower(d)) {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		return prompt
	}
	lines := append([]string{prompt, "", "Required Hairstyle Details:"}, bullets(capDetails(missing, required, maxPromptDetails), "- ")...)
	return sanitizeMultilineBlock(strings.Join(lines, "\n"))
}
