package prompt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

const maxGroundedReferences = 12

// agentPayload is serialized under "Input JSON:" for both agents.
type agentPayload struct {
	UserInput          string          `json:"userInput"`
	StyleOptions       StyleOptions    `json:"styleOptions"`
	DeepResearch       *ResearchResult `json:"deepResearch,omitempty"`
	DeepResearchReport string          `json:"deepResearchReport,omitempty"`
	ImageContext       ImageContext    `json:"imageContext"`
	LockIdentity       bool            `json:"lockIdentity"`
	Constraints        []string        `json:"constraints"`
}

func buildAgentText(instruction string, payload agentPayload) (string, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode agent payload: %w", err)
	}
	return instruction + "\n\nInput JSON:\n" + string(raw), nil
}

// ResearchAgent runs the deep-research step. Grounded search is attempted first when enabled.
type ResearchAgent struct {
	model         TextModel
	promptModel   string
	researchModel string
	grounding     bool
	logger        zerolog.Logger
}

func NewResearchAgent(model TextModel, promptModel, researchModel string, grounding bool, logger zerolog.Logger) *ResearchAgent {
	if researchModel == "" {
		researchModel = promptModel
	}
	return &ResearchAgent{
		model:         model,
		promptModel:   promptModel,
		researchModel: researchModel,
		grounding:     grounding,
		logger:        logger,
	}
}

// Research returns nil when no usable research could be produced.
func (a *ResearchAgent) Research(ctx context.Context, payload agentPayload, image *InlineImage) *ResearchResult {
	text, err := buildAgentText(researchInstruction, payload)
	if err != nil {
		a.logger.Warn().Err(err).Msg("research payload encoding failed")
		return nil
	}

	if a.grounding {
		resp, err := a.model.GenerateText(ctx, TextRequest{Model: a.researchModel, Text: text, Image: image, Grounded: true})
		if err != nil {
			a.logger.Warn().Err(err).Str("model", a.researchModel).Msg("grounded research failed; retrying without search")
		} else if parsed := parseResearch(resp.Text); parsed != nil {
			refs := firstN(dedupeExact(resp.References), maxGroundedReferences)
			if len(refs) > 0 {
				parsed.References = dedupeExact(append(parsed.References, refs...))
			}
			parsed.Grounded = true
			return parsed
		} else {
			a.logger.Warn().Str("model", a.researchModel).Msg("grounded research returned unusable output")
		}
	}

	resp, err := a.model.GenerateText(ctx, TextRequest{Model: a.promptModel, Text: text, Image: image})
	if err != nil {
		a.logger.Warn().Err(err).Str("model", a.promptModel).Msg("research failed")
		return nil
	}
	parsed := parseResearch(resp.Text)
	if parsed == nil {
		a.logger.Warn().Str("model", a.promptModel).Msg("research returned unusable output")
		return nil
	}
	parsed.Grounded = false
	if parsed.References == nil {
		parsed.References = []string{}
	}
	return parsed
}

type researchWire struct {
	Report           any   `json:"report"`
	Summary          any   `json:"summary"`
	HairstyleDetails []any `json:"hairstyleDetails"`
	ColorDirection   any   `json:"colorDirection"`
	TextureDirection any   `json:"textureDirection"`
	StructureNotes   []any `json:"structureNotes"`
	RiskNotes        []any `json:"riskNotes"`
	References       []any `json:"references"`
}

// parseResearch returns nil unless the output names at least one hairstyle detail.
func parseResearch(text string) *ResearchResult {
	wire, err := parseModelPayload[researchWire](text)
	if err != nil {
		return nil
	}
	details := stringList(wire.HairstyleDetails)
	if len(details) == 0 {
		return nil
	}
	out := &ResearchResult{
		HairstyleDetails: details,
		StructureNotes:   stringList(wire.StructureNotes),
		RiskNotes:        stringList(wire.RiskNotes),
		References:       stringList(wire.References),
	}
	if s, ok := wire.Report.(string); ok {
		out.Report = sanitizeMultilineBlock(s)
	}
	if s, ok := wire.Summary.(string); ok {
		out.Summary = cleanText(s)
	}
	if s, ok := wire.ColorDirection.(string); ok {
		out.ColorDirection = cleanText(s)
	}
	if s, ok := wire.TextureDirection.(string); ok {
		out.TextureDirection = cleanText(s)
	}
	return out
}

func dedupeExact(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = cleanText(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
