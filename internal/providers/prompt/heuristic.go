package prompt

import (
	"strings"
)

func normalizeOptions(opts *StyleOptions) StyleOptions {
	if opts == nil {
		return StyleOptions{}
	}
	var out StyleOptions
	switch opts.Gender {
	case "female", "male", "unisex":
		out.Gender = opts.Gender
	}
	switch opts.Length {
	case "short", "medium", "long":
		out.Length = opts.Length
	}
	if strings.TrimSpace(opts.Style) != "" {
		out.Style = cleanText(strings.ToLower(opts.Style))
	}
	if strings.TrimSpace(opts.Color) != "" {
		out.Color = cleanText(strings.ToLower(opts.Color))
	}
	return out
}

// lockIdentity is true unless the caller explicitly reports that no reference image exists.
func lockIdentity(ctx ImageContext) bool {
	if ctx.HasReferenceImage != nil {
		return *ctx.HasReferenceImage
	}
	return true
}

// detailsFromInput derives hairstyle phrases from the structured options and request keywords.
func detailsFromInput(normalizedInput string, opts StyleOptions) []string {
	lower := strings.ToLower(normalizedInput)
	var details []string
	if v, ok := lengthOptions[opts.Length]; ok {
		details = append(details, v)
	}
	if opts.Style != "" {
		details = append(details, opts.Style+" hairstyle")
		if v, ok := styleOptions[opts.Style]; ok {
			details = append(details, v)
		}
	}
	if opts.Color != "" {
		details = append(details, opts.Color+" hair color")
		if v, ok := colorOptions[opts.Color]; ok {
			details = append(details, v)
		}
	}
	details = append(details, findMappedValues(lower, styleKeywords)...)
	details = append(details, findMappedValues(lower, colorKeywords)...)
	return dedupe(details)
}

func detailsFromResearch(r *ResearchResult) []string {
	if r == nil {
		return nil
	}
	details := append([]string{}, r.HairstyleDetails...)
	if r.ColorDirection != "" {
		details = append(details, r.ColorDirection)
	}
	if r.TextureDirection != "" {
		details = append(details, r.TextureDirection)
	}
	details = append(details, r.StructureNotes...)
	return dedupe(details)
}

func bullets(items []string, prefix string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = prefix + item
	}
	return out
}

func buildResearchReport(userInput string, research *ResearchResult, fallback []string) string {
	details := detailsFromResearch(research)
	if len(details) == 0 {
		details = fallback
	}
	lines := []string{
		"Deep Research Report",
		"",
		"User Request: " + cleanText(userInput),
		"",
		"Findings:",
	}
	if len(details) > 0 {
		lines = append(lines, bullets(firstN(details, 18), "- ")...)
	} else {
		lines = append(lines, "- No explicit detail extracted")
	}
	if research != nil {
		if len(research.StructureNotes) > 0 {
			lines = append(lines, "", "Structure Notes:")
			lines = append(lines, bullets(firstN(research.StructureNotes, 10), "- ")...)
		}
		if len(research.RiskNotes) > 0 {
			lines = append(lines, "", "Risk Notes:")
			lines = append(lines, bullets(firstN(research.RiskNotes, 10), "- ")...)
		}
		if len(research.References) > 0 {
			lines = append(lines, "", "References:")
			lines = append(lines, bullets(firstN(research.References, 10), "- ")...)
		}
		if research.Summary != "" {
			lines = append(lines, "", "Summary: "+research.Summary)
		}
	}
	return sanitizeMultilineBlock(strings.Join(lines, "\n"))
}

func buildProductRequirements(report string, details []string, lock bool) string {
	lines := []string{
		"Product Requirements Document (PRD) - Hairstyle Edit",
		"",
		"Goal:",
		"- Modify only hairstyle and hair color from the reference image.",
		"",
		"Input Requirements:",
		"- Use the provided reference image as identity source.",
		"- Use the deep research report below as mandatory context.",
		"",
		"Acceptance Criteria:",
	}
	if len(details) > 0 {
		lines = append(lines, bullets(firstN(details, 16), "- Must reflect: ")...)
	} else {
		lines = append(lines, "- Must reflect the user's requested hairstyle intent.")
	}
	if lock {
		lines = append(lines,
			"- Must keep the same person identity.",
			"- Must not change ethnicity, age, gender, skin tone, or face geometry.",
			"- Must keep frontal composition and white background.",
		)
	}
	lines = append(lines, "", "Deep Research Report:", report)
	return sanitizeMultilineBlock(strings.Join(lines, "\n"))
}

func composeStructuredPrompt(details, required []string, lock bool, report, prd string) string {
	cleaned := capDetails(dedupe(details), required, maxPromptDetails)
	lines := []string{
		"Image Editing Prompt",
		"",
		"Quality Anchor: " + qualityAnchor,
		"",
		"Hairstyle Direction:",
	}
	if len(cleaned) > 0 {
		lines = append(lines, bullets(cleaned, "- ")...)
	} else {
		lines = append(lines, "- natural clean hairstyle refinement")
	}
	lines = append(lines,
		"",
		"Identity and Scene Constraints:",
		"- Use the same person as the reference image.",
		"- Change only hairstyle and hair color.",
		"- Keep frontal portrait and white background.",
	)
	if lock {
		lines = append(lines,
			"- Do not change ethnicity, skin tone, age, gender, or face geometry.",
			"- Keep expression, pose, camera angle, framing, clothing, and background unchanged.",
		)
	}
	lines = append(lines,
		"",
		"Product Requirements Document:",
		prd,
		"",
		"Deep Research Report:",
		report,
	)
	return sanitizeMultilineBlock(strings.Join(lines, "\n"))
}

// ensureMultiline wraps a single-line prompt so the result always spans several lines.
func ensureMultiline(prompt string) string {
	normalized := sanitizeMultilineBlock(prompt)
	if strings.Contains(normalized, "\n") {
		return normalized
	}
	return sanitizeMultilineBlock("Image Editing Prompt\n\nInstruction: " + normalized)
}

// Heuristic builds a complete result from the keyword tables alone.
func Heuristic(in Input) *Result {
	normalizedInput := cleanText(in.UserInput)
	opts := normalizeOptions(in.StyleOptions)
	lock := lockIdentity(in.ImageContext)
	details := detailsFromInput(normalizedInput, opts)
	report := buildResearchReport(normalizedInput, nil, details)
	prd := buildProductRequirements(report, details, lock)
	return &Result{
		Prompt:              composeStructuredPrompt(details, details, lock, report, prd),
		ResearchReport:      report,
		ProductRequirements: prd,
		NormalizedOptions:   opts,
		PromptVersion:       Version,
		Model:               HeuristicModel,
	}
}
