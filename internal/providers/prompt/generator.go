package prompt

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

var (
	ErrInputTooShort = errors.New("userInput must be at least 2 characters")
	ErrInputTooLong  = errors.New("userInput must be 500 characters or less")
)

type GeneratorOptions struct {
	Model         TextModel
	PromptModel   string
	ResearchModel string
	Grounding     bool
	AgentTimeout  time.Duration
	Logger        zerolog.Logger
}

// Generator runs research and composition, falling back to the heuristic composer.
type Generator struct {
	research      *ResearchAgent
	composer      *ComposerAgent
	promptModel   string
	researchModel string
	timeout       time.Duration
	logger        zerolog.Logger
}

func NewGenerator(opts GeneratorOptions) *Generator {
	g := &Generator{
		promptModel:   opts.PromptModel,
		researchModel: opts.ResearchModel,
		timeout:       opts.AgentTimeout,
		logger:        opts.Logger,
	}
	if g.researchModel == "" {
		g.researchModel = g.promptModel
	}
	if opts.Model != nil && opts.PromptModel != "" {
		g.research = NewResearchAgent(opts.Model, opts.PromptModel, g.researchModel, opts.Grounding, opts.Logger)
		g.composer = NewComposerAgent(opts.Model, opts.PromptModel, opts.Logger)
	}
	return g
}

// Generate validates the request and returns a multi-line prompt with its supporting documents.
func (g *Generator) Generate(ctx context.Context, in Input) (*Result, error) {
	in.UserInput = cleanText(in.UserInput)
	switch n := utf8.RuneCountInString(in.UserInput); {
	case n < 2:
		return nil, ErrInputTooShort
	case n > 500:
		return nil, ErrInputTooLong
	}

	if g.research == nil {
		return Heuristic(in), nil
	}
	if res := g.withModels(ctx, in); res != nil {
		return res, nil
	}
	g.logger.Info().Msg("prompt agents produced nothing; using heuristic composer")
	return Heuristic(in), nil
}

func (g *Generator) withModels(ctx context.Context, in Input) *Result {
	opts := normalizeOptions(in.StyleOptions)
	lock := lockIdentity(in.ImageContext)
	var image *InlineImage
	if in.ImageContext.ReferenceImageDataURL != "" {
		parsed, err := ParseDataURL(in.ImageContext.ReferenceImageDataURL)
		if err != nil {
			g.logger.Warn().Err(err).Msg("reference image ignored")
		} else {
			image = parsed
		}
	}
	payload := agentPayload{
		UserInput:    in.UserInput,
		StyleOptions: opts,
		ImageContext: in.ImageContext,
		LockIdentity: lock,
		Constraints:  hairOnlyConstraints,
	}

	researchCtx, cancel := g.agentContext(ctx)
	research := g.research.Research(researchCtx, payload, image)
	cancel()

	fromInput := detailsFromInput(in.UserInput, opts)
	var report string
	if research != nil && research.Report != "" {
		report = sanitizeMultilineBlock(research.Report)
	} else {
		report = buildResearchReport(in.UserInput, research, fromInput)
	}

	payload.DeepResearch = research
	payload.DeepResearchReport = report
	composeCtx, cancel := g.agentContext(ctx)
	composed := g.composer.Compose(composeCtx, payload, image)
	cancel()

	if research == nil && composed == nil {
		return nil
	}

	merged := mergeDetails(composed, research, fromInput)
	var prd string
	if composed != nil && composed.ProductRequirements != "" {
		prd = composed.ProductRequirements
	} else {
		prd = buildProductRequirements(report, merged, lock)
	}
	var prompt string
	if composed != nil {
		prompt = appendMissingDetails(ensureMultiline(composed.Prompt), merged, fromInput)
	} else {
		prompt = composeStructuredPrompt(merged, fromInput, lock, report, prd)
	}

	res := &Result{
		Prompt:              prompt,
		ResearchReport:      report,
		ProductRequirements: prd,
		NormalizedOptions:   opts,
		PromptVersion:       Version,
		Model:               g.promptModel + "-deep-research-agent",
	}
	if research != nil {
		info := &DeepResearchInfo{
			Summary:    research.Summary,
			References: research.References,
			Grounded:   research.Grounded,
			Model:      g.promptModel,
		}
		if info.References == nil {
			info.References = []string{}
		}
		if research.Grounded {
			info.Model = g.researchModel
		}
		res.DeepResearch = info
	}
	return res
}

func (g *Generator) agentContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
