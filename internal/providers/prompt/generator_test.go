package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeTextModel struct {
	calls []TextRequest
	reply func(req TextRequest) (*TextResponse, error)
}

func (f *fakeTextModel) GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error) {
	f.calls = append(f.calls, req)
	return f.reply(req)
}

func isComposer(req TextRequest) bool {
	return strings.HasPrefix(req.Text, "You are the hairstyle prompt-composer agent.")
}

func newTestGenerator(model TextModel) *Generator {
	return NewGenerator(GeneratorOptions{
		Model:         model,
		PromptModel:   "gemini-2.5-pro",
		ResearchModel: "gemini-2.5-flash",
		Grounding:     true,
		Logger:        zerolog.Nop(),
	})
}

func TestHeuristicKoreanBobAshBrown(t *testing.T) {
	res, err := NewGenerator(GeneratorOptions{Logger: zerolog.Nop()}).Generate(context.Background(), Input{UserInput: "짧은 단발 애쉬브라운으로"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Model != HeuristicModel || res.PromptVersion != "v10" {
		t.Fatalf("model/version = %q/%q", res.Model, res.PromptVersion)
	}
	for _, want := range []string{"precise chin-length bob cut", "cool ash brown hair color"} {
		if !strings.Contains(res.Prompt, "- "+want) {
			t.Fatalf("prompt missing %q:\n%s", want, res.Prompt)
		}
	}
	if !strings.Contains(res.Prompt, "\n") {
		t.Fatalf("prompt must be multi-line")
	}
	if res.DeepResearch != nil {
		t.Fatalf("heuristic result must not carry research info")
	}
	if !strings.Contains(res.ProductRequirements, "- Must keep the same person identity.") {
		t.Fatalf("identity lock missing from PRD:\n%s", res.ProductRequirements)
	}
}

func TestGenerateValidatesLength(t *testing.T) {
	g := NewGenerator(GeneratorOptions{Logger: zerolog.Nop()})
	if _, err := g.Generate(context.Background(), Input{UserInput: "  a  "}); !errors.Is(err, ErrInputTooShort) {
		t.Fatalf("err = %v, want ErrInputTooShort", err)
	}
	if _, err := g.Generate(context.Background(), Input{UserInput: strings.Repeat("단", 501)}); !errors.Is(err, ErrInputTooLong) {
		t.Fatalf("err = %v, want ErrInputTooLong", err)
	}
}

func TestHeuristicWithoutReferenceImageSkipsLock(t *testing.T) {
	no := false
	res := Heuristic(Input{UserInput: "long layered", ImageContext: ImageContext{HasReferenceImage: &no}})
	if strings.Contains(res.Prompt, "Do not change ethnicity") {
		t.Fatalf("identity lock should be off when no reference image is present")
	}
	if !strings.Contains(res.Prompt, "layered cut with textured ends and movement") {
		t.Fatalf("layer keyword not mapped:\n%s", res.Prompt)
	}
}

func TestGenerateFallsBackWhenAgentsFail(t *testing.T) {
	model := &fakeTextModel{reply: func(TextRequest) (*TextResponse, error) {
		return nil, errors.New("unavailable")
	}}
	res, err := newTestGenerator(model).Generate(context.Background(), Input{UserInput: "bob cut"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.Model != HeuristicModel {
		t.Fatalf("Model = %q, want heuristic", res.Model)
	}
	// grounded research, plain research, composer
	if len(model.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(model.calls))
	}
	if !model.calls[0].Grounded || model.calls[0].Model != "gemini-2.5-flash" || model.calls[1].Grounded {
		t.Fatalf("unexpected research chain: %+v", model.calls[:2])
	}
}

func TestGenerateWrapsSingleLineComposerPrompt(t *testing.T) {
	model := &fakeTextModel{reply: func(req TextRequest) (*TextResponse, error) {
		if isComposer(req) {
			return &TextResponse{Text: "```json\n{\"prompt\":\"bob cut, keep face\"}\n```"}, nil
		}
		return nil, errors.New("no research")
	}}
	res, err := newTestGenerator(model).Generate(context.Background(), Input{UserInput: "단발 블랙"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !strings.HasPrefix(res.Prompt, "Image Editing Prompt\n\nInstruction: bob cut, keep face") {
		t.Fatalf("single-line prompt not wrapped:\n%s", res.Prompt)
	}
	if res.Model != "gemini-2.5-pro-deep-research-agent" {
		t.Fatalf("Model = %q", res.Model)
	}
	if !strings.Contains(res.ProductRequirements, "Product Requirements Document (PRD)") {
		t.Fatalf("PRD should be built when composer omits it")
	}
}

func TestGenerateKeepsEveryMergedDetail(t *testing.T) {
	model := &fakeTextModel{reply: func(req TextRequest) (*TextResponse, error) {
		if isComposer(req) {
			return &TextResponse{Text: `{"prompt":"Hairstyle:\n- soft see-through bangs","productRequirements":"PRD"}`}, nil
		}
		return &TextResponse{
			Text:       `{"report":"R","summary":" short  summary ","hairstyleDetails":["airy hush cut"],"colorDirection":"Ash Brown tone","references":["a.com"]}`,
			References: []string{" https://x.test ", "https://x.test", ""},
		}, nil
	}}
	res, err := newTestGenerator(model).Generate(context.Background(), Input{UserInput: "허쉬컷 애쉬"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	for _, want := range []string{"airy hush cut", "Ash Brown tone", "korean hush cut silhouette", "soft see-through bangs"} {
		if !strings.Contains(strings.ToLower(res.Prompt), strings.ToLower(want)) {
			t.Fatalf("prompt missing %q:\n%s", want, res.Prompt)
		}
	}
	if !strings.Contains(res.Prompt, "Required Hairstyle Details:") {
		t.Fatalf("missing details section not appended:\n%s", res.Prompt)
	}
	if strings.Count(strings.ToLower(res.Prompt), "cool ash brown hair color") != 1 {
		t.Fatalf("details must not repeat:\n%s", res.Prompt)
	}
	info := res.DeepResearch
	if info == nil || !info.Grounded || info.Model != "gemini-2.5-flash" || info.Summary != "short summary" {
		t.Fatalf("unexpected research info: %+v", info)
	}
	if len(info.References) != 2 || info.References[1] != "https://x.test" {
		t.Fatalf("references = %#v", info.References)
	}
	if res.ProductRequirements != "PRD" || res.ResearchReport != "R" {
		t.Fatalf("composer and research documents should be kept verbatim")
	}
}

func TestGenerateKeepsInputDetailsWithVerboseResearch(t *testing.T) {
	variants := make([]string, 20)
	for i := range variants {
		variants[i] = fmt.Sprintf("%q", fmt.Sprintf("research variant %d", i))
	}
	model := &fakeTextModel{reply: func(req TextRequest) (*TextResponse, error) {
		if isComposer(req) {
			return &TextResponse{Text: `{"prompt":"Edit photo\nKeep the face unchanged"}`}, nil
		}
		return &TextResponse{Text: `{"report":"R","hairstyleDetails":[` + strings.Join(variants, ",") + `]}`}, nil
	}}
	res, err := newTestGenerator(model).Generate(context.Background(), Input{UserInput: "bob please"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !strings.Contains(res.Prompt, "- precise chin-length bob cut") {
		t.Fatalf("input detail dropped:\n%s", res.Prompt)
	}
	if got := strings.Count(res.Prompt, "- research variant"); got != maxPromptDetails-1 {
		t.Fatalf("research details listed = %d, want %d", got, maxPromptDetails-1)
	}
}

func TestComposeStructuredPromptKeepsRequiredDetails(t *testing.T) {
	var details []string
	for i := 0; i < 25; i++ {
		details = append(details, fmt.Sprintf("extra detail %d", i))
	}
	details = append(details, "precise chin-length bob cut")
	prompt := composeStructuredPrompt(details, []string{"precise chin-length bob cut"}, true, "R", "PRD")
	if !strings.Contains(prompt, "- precise chin-length bob cut") {
		t.Fatalf("required detail dropped:\n%s", prompt)
	}
	if strings.Contains(prompt, "extra detail 17") {
		t.Fatalf("optional details should be capped:\n%s", prompt)
	}
}

func TestParseResearchRequiresDetails(t *testing.T) {
	if parseResearch(`{"report":"x","hairstyleDetails":[]}`) != nil {
		t.Fatalf("research without details must be rejected")
	}
	if parseResearch("not json") != nil {
		t.Fatalf("garbage must be rejected")
	}
	got := parseResearch("```json\n{\"hairstyleDetails\":[\"  wavy   lob \", 3]}\n```")
	if got == nil || len(got.HairstyleDetails) != 1 || got.HairstyleDetails[0] != "wavy lob" {
		t.Fatalf("unexpected parse: %+v", got)
	}
}
