package prompt

// Version is stamped on every generated prompt and stored in generation options.
const Version = "v10"

// HeuristicModel identifies results built without any language model.
const HeuristicModel = "heuristic-agent-fallback-v1"

// StyleOptions are the optional structured hints sent with a request.
type StyleOptions struct {
	Gender string `json:"gender,omitempty"`
	Length string `json:"length,omitempty"`
	Style  string `json:"style,omitempty"`
	Color  string `json:"color,omitempty"`
}

// ImageContext describes the photo the prompt will be applied to.
type ImageContext struct {
	OriginalImagePath     *string `json:"originalImagePath"`
	HasReferenceImage     *bool   `json:"hasReferenceImage,omitempty"`
	ReferenceImageDataURL string  `json:"-"`
}

type Input struct {
	UserInput    string
	StyleOptions *StyleOptions
	ImageContext ImageContext
}

// ResearchResult is the structured output of the deep-research agent.
type ResearchResult struct {
	Report           string   `json:"report,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	HairstyleDetails []string `json:"hairstyleDetails"`
	ColorDirection   string   `json:"colorDirection,omitempty"`
	TextureDirection string   `json:"textureDirection,omitempty"`
	StructureNotes   []string `json:"structureNotes,omitempty"`
	RiskNotes        []string `json:"riskNotes,omitempty"`
	References       []string `json:"references,omitempty"`
	Grounded         bool     `json:"grounded"`
}

// ComposedPrompt is the structured output of the composer agent.
type ComposedPrompt struct {
	Prompt              string
	ProductRequirements string
}

// DeepResearchInfo summarizes the research step for API clients.
type DeepResearchInfo struct {
	Summary    string   `json:"summary,omitempty"`
	References []string `json:"references"`
	Grounded   bool     `json:"grounded"`
	Model      string   `json:"model,omitempty"`
}

// Result is a generated prompt with its supporting documents.
type Result struct {
	Prompt              string            `json:"prompt"`
	ResearchReport      string            `json:"researchReport"`
	ProductRequirements string            `json:"productRequirements"`
	NormalizedOptions   StyleOptions      `json:"normalizedOptions"`
	PromptVersion       string            `json:"promptVersion"`
	Model               string            `json:"model"`
	DeepResearch        *DeepResearchInfo `json:"deepResearch,omitempty"`
}
