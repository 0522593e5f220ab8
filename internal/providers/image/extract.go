package image

import (
	"encoding/json"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// dataURLPattern matches inline base64 image payloads embedded in text.
var dataURLPattern = regexp.MustCompile(`data:(image/(?:png|jpeg|jpg));base64,([A-Za-z0-9+/=]+)`)

// Extract pulls normalized image results out of a provider response. It
// never fails: an unexpected or unparseable shape yields an empty list,
// which callers treat as "no usable image".
func Extract(provider string, resp *Response) []Result {
	if resp == nil || len(resp.Body) == 0 {
		return nil
	}
	switch provider {
	case ProviderGemini:
		return extractGemini(resp.Body)
	case ProviderOpenRouter:
		return extractOpenRouter(resp.Body)
	case ProviderRunware:
		return extractRunware(resp.Body)
	default:
		return nil
	}
}

// Gemini has shipped both snake_case and camelCase part keys over time; both
// variants must be accepted.
type geminiInline struct {
	MimeTypeSnake string `json:"mime_type"`
	MimeTypeCamel string `json:"mimeType"`
	Data          string `json:"data"`
	BytesBase64   string `json:"bytesBase64"`
}

type geminiPart struct {
	InlineSnake *geminiInline `json:"inline_data"`
	InlineCamel *geminiInline `json:"inlineData"`
	Text        string        `json:"text"`
	RawText     string        `json:"rawText"`
}

type geminiBody struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func extractGemini(body json.RawMessage) []Result {
	var decoded geminiBody
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}
	var results []Result
	for _, cand := range decoded.Candidates {
		for _, part := range cand.Content.Parts {
			inline := part.InlineSnake
			if inline == nil {
				inline = part.InlineCamel
			}
			if inline != nil {
				data := inline.Data
				if data == "" {
					data = inline.BytesBase64
				}
				if data != "" {
					mimeType := inline.MimeTypeSnake
					if mimeType == "" {
						mimeType = inline.MimeTypeCamel
					}
					if mimeType == "" {
						mimeType = "image/png"
					}
					results = append(results, Result{
						MimeType: mimeType,
						B64:      data,
						Filename: "result.png",
					})
					continue
				}
			}
			// Some models return the image as a data URL inside a text part.
			text := part.Text
			if text == "" {
				text = part.RawText
			}
			for _, match := range dataURLPattern.FindAllStringSubmatch(text, -1) {
				results = append(results, Result{
					MimeType: match[1],
					B64:      match[2],
					Filename: "result.png",
				})
			}
		}
	}
	return results
}

type openRouterBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func extractOpenRouter(body json.RawMessage) []Result {
	var decoded openRouterBody
	if err := json.Unmarshal(body, &decoded); err != nil || len(decoded.Choices) == 0 {
		return nil
	}
	match := dataURLPattern.FindStringSubmatch(decoded.Choices[0].Message.Content)
	if match == nil {
		return nil
	}
	return []Result{{
		MimeType: match[1],
		B64:      match[2],
		Filename: "result.png",
	}}
}

type runwareBody struct {
	Data []struct {
		ImageURL  string  `json:"imageURL"`
		ImageUUID string  `json:"imageUUID"`
		Cost      float64 `json:"cost"`
		Seed      int64   `json:"seed"`
	} `json:"data"`
}

func extractRunware(body json.RawMessage) []Result {
	var decoded runwareBody
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}
	var results []Result
	for _, entry := range decoded.Data {
		if entry.ImageURL == "" {
			continue
		}
		results = append(results, Result{
			MimeType: "image/jpeg",
			ImageURL: entry.ImageURL,
			Filename: runwareFilename(entry.ImageURL),
			Cost:     entry.Cost,
			Seed:     entry.Seed,
			ImageID:  entry.ImageUUID,
		})
	}
	return results
}

func runwareFilename(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return "result.jpg"
	}
	base := path.Base(parsed.Path)
	if base == "" || base == "." || base == "/" || !strings.Contains(base, ".") {
		return "result.jpg"
	}
	return base
}
