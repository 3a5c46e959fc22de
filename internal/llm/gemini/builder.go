package gemini

import (
	"strings"

	"github.com/baodaydungsone/chai/internal/llm"
	"github.com/pkg/errors"
	"google.golang.org/genai"
)

func toParts(parts []llm.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			out = append(out, &genai.Part{Text: p.Text})
		}
		if p.Image != nil {
			out = append(out, &genai.Part{InlineData: &genai.Blob{
				MIMEType: p.Image.MIMEType,
				Data:     p.Image.Data,
			}})
		}
	}
	return out
}

func toContents(turns []llm.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == llm.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{Role: role, Parts: toParts(t.Parts)})
	}
	return contents
}

func toConfig(req llm.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: req.Temperature,
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = toSchema(req.Schema)
	}
	if req.WebSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return config
}

func toSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Enum:             s.Enum,
		Required:         s.Required,
		PropertyOrdering: s.PropertyOrdering,
		Items:            toSchema(s.Items),
	}
	switch strings.ToLower(s.Type) {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	return out
}

func fromResponse(res *genai.GenerateContentResponse) (*llm.Response, error) {
	// "Inappropriate" message sent
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		reason := "no candidates"
		if res != nil && res.PromptFeedback != nil && res.PromptFeedback.BlockReason != "" {
			reason = "blocked: " + string(res.PromptFeedback.BlockReason)
		}
		return nil, &llm.ProviderError{Kind: llm.KindTransient, Err: errors.Errorf("empty response (%s)", reason)}
	}

	candidate := res.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}

	out := &llm.Response{Text: text.String()}
	if gm := candidate.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			out.Attributions = append(out.Attributions, llm.Attribution{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return out, nil
}
