package image

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// wireInline accepts both camelCase and snake_case inline image fields.
type wireInline struct {
	MimeType      string `json:"mimeType"`
	MimeTypeSnake string `json:"mime_type"`
	Data          string `json:"data"`
}

type wirePart struct {
	InlineData      *wireInline `json:"inlineData"`
	InlineDataSnake *wireInline `json:"inline_data"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []wirePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata      map[string]any `json:"usageMetadata"`
	UsageMetadataSnake map[string]any `json:"usage_metadata"`
}

type normalizedResponse struct {
	OutputURL string
	Usage     *Usage
}

func normalizeResponse(raw []byte) (*normalizedResponse, error) {
	var wire wireResponse
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
	}
	out := &normalizedResponse{Usage: normalizeUsage(wire)}
	if len(wire.Candidates) == 0 {
		return out, nil
	}
	for _, part := range wire.Candidates[0].Content.Parts {
		inline := part.InlineData
		if inline == nil || inline.Data == "" {
			inline = part.InlineDataSnake
		}
		if inline == nil || inline.Data == "" {
			continue
		}
		mime := inline.MimeType
		if mime == "" {
			mime = inline.MimeTypeSnake
		}
		if mime == "" {
			mime = "image/png"
		}
		out.OutputURL = "data:" + mime + ";base64," + inline.Data
		break
	}
	return out, nil
}

func normalizeUsage(wire wireResponse) *Usage {
	src := wire.UsageMetadata
	if src == nil {
		src = wire.UsageMetadataSnake
	}
	if src == nil {
		return nil
	}
	pick := func(camel, snake string) *int {
		if v, ok := src[camel]; ok && v != nil {
			return nonNegativeInt(v)
		}
		return nonNegativeInt(src[snake])
	}
	u := &Usage{
		PromptTokenCount:        pick("promptTokenCount", "prompt_token_count"),
		CandidatesTokenCount:    pick("candidatesTokenCount", "candidates_token_count"),
		TotalTokenCount:         pick("totalTokenCount", "total_token_count"),
		ThoughtsTokenCount:      pick("thoughtsTokenCount", "thoughts_token_count"),
		CachedContentTokenCount: pick("cachedContentTokenCount", "cached_content_token_count"),
	}
	if u.PromptTokenCount == nil && u.CandidatesTokenCount == nil && u.TotalTokenCount == nil &&
		u.ThoughtsTokenCount == nil && u.CachedContentTokenCount == nil {
		return nil
	}
	return u
}

// nonNegativeInt rounds numbers and numeric strings, rejecting negatives and non-finite values.
func nonNegativeInt(v any) *int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	rounded := int(math.Round(f))
	if rounded < 0 {
		return nil
	}
	return &rounded
}
