package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ykurilov/banana-editor/internal/formdata"
	"github.com/ykurilov/banana-editor/internal/infra"
	"github.com/ykurilov/banana-editor/internal/providers/image"
	"github.com/ykurilov/banana-editor/internal/retry"
)

// attempt is one step of the fallback chain: which provider and model to
// call, with what retry budget, and whether input images are withheld.
// onErrorOnly steps run only when the preceding attempt failed outright
// (transport/auth error), not when it merely produced no image — providers
// signal content refusal and transport trouble differently and the two
// chains must not be unified.
type attempt struct {
	provider    string
	model       string
	stripImages bool
	maxRetries  int
	onErrorOnly bool
}

// planOutcome accumulates what happened across the chain for diagnostics.
type planOutcome struct {
	results     []image.Result
	lastResp    *image.Response
	lastErr     error
	modelsTried []string
	failures    []string
}

// Edit handles POST /api/edit: decode the multipart body, validate it, then
// walk the fallback plan until some attempt yields at least one image.
func (a *App) Edit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.Cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			a.error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		a.error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	form, err := formdata.Decode(r.Header.Get("Content-Type"), body)
	if err != nil {
		a.error(w, http.StatusBadRequest, "malformed multipart body")
		return
	}

	prompt := strings.TrimSpace(form.Fields["prompt"])
	if prompt == "" {
		a.error(w, http.StatusBadRequest, "prompt is required")
		return
	}
	textOnly := form.Fields["textOnly"] == "1"
	if !textOnly && len(form.Files) == 0 {
		a.error(w, http.StatusBadRequest, "at least one image is required unless textOnly is enabled")
		return
	}

	resultsCount := a.Cfg.ResultsCount
	if v := strings.TrimSpace(form.Fields["resultsCount"]); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			resultsCount = n
		}
	}
	resultsCount = clampCount(resultsCount)

	var inputs []image.Input
	if !textOnly {
		for i, f := range form.Files {
			filename := f.Filename
			if filename == "" {
				filename = fmt.Sprintf("image_%d", i+1)
			}
			inputs = append(inputs, image.Input{
				MimeType: image.CoerceMimeType(f.MimeType),
				Base64:   base64.StdEncoding.EncodeToString(f.Data),
				Filename: filename,
			})
		}
	}

	plan, err := a.buildPlan(len(inputs) > 0)
	if err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome := a.runPlan(r.Context(), plan, prompt, inputs, resultsCount)
	if len(outcome.results) > 0 {
		a.json(w, http.StatusOK, map[string]any{"results": outcome.results})
		return
	}
	a.respondExhausted(w, outcome)
}

// buildPlan assembles the ordered fallback chain for the active provider.
// A missing credential for that provider is a configuration error.
func (a *App) buildPlan(hasImages bool) ([]attempt, error) {
	cfg := a.Cfg
	switch cfg.Provider {
	case infra.ProviderOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return nil, errors.New("OPENROUTER_API_KEY is not set")
		}
		return []attempt{
			{provider: image.ProviderOpenRouter, model: cfg.OpenRouterModel, maxRetries: 2},
		}, nil
	case infra.ProviderRunware:
		if cfg.RunwareAPIKey == "" {
			return nil, errors.New("RUNWARE_API_KEY is not set")
		}
		plan := []attempt{
			{provider: image.ProviderRunware, model: cfg.RunwareModel, maxRetries: 2},
		}
		if hasImages {
			plan = append(plan, attempt{
				provider:    image.ProviderRunware,
				model:       cfg.RunwareModel,
				stripImages: true,
				onErrorOnly: true,
			})
		}
		if cfg.GeminiAPIKey != "" {
			plan = append(plan, attempt{
				provider:    image.ProviderGemini,
				model:       cfg.GeminiModel,
				onErrorOnly: true,
			})
		}
		return plan, nil
	default:
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is not set")
		}
		plan := []attempt{
			{provider: image.ProviderGemini, model: cfg.GeminiModel, maxRetries: 2},
		}
		if fb := cfg.GeminiFallbackModel; fb != "" && fb != cfg.GeminiModel {
			plan = append(plan, attempt{provider: image.ProviderGemini, model: fb, maxRetries: 1})
		}
		return plan, nil
	}
}

func (a *App) runPlan(ctx context.Context, plan []attempt, prompt string, inputs []image.Input, resultsCount int) planOutcome {
	var out planOutcome
	errored := false
	for _, at := range plan {
		if at.onErrorOnly && !errored {
			continue
		}
		caller := a.Providers[at.provider]
		if caller == nil {
			out.failures = append(out.failures, at.provider+": not configured")
			continue
		}

		req := image.Request{Prompt: prompt, Model: at.model, Images: inputs, ResultsCount: resultsCount}
		if at.stripImages {
			req.Images = nil
			req.Prompt = prompt + " (based on the uploaded image)"
		}
		out.modelsTried = append(out.modelsTried, at.model)

		resp, err := retry.Do(ctx, func(callCtx context.Context) (*image.Response, error) {
			return caller.Generate(callCtx, req)
		}, retry.DefaultOptions(at.maxRetries))
		if err != nil {
			errored = true
			out.lastErr = err
			out.failures = append(out.failures, fmt.Sprintf("%s: %v", at.provider, err))
			a.Log.Warn().Err(err).
				Str("provider", at.provider).
				Str("model", at.model).
				Msg("edit: provider call failed")
			continue
		}
		errored = false
		out.lastErr = nil
		out.lastResp = resp

		if results := image.Extract(at.provider, resp); len(results) > 0 {
			out.results = results
			return out
		}
		out.failures = append(out.failures, fmt.Sprintf("%s (%s): no image in response", at.provider, at.model))
		a.Log.Warn().
			Str("provider", at.provider).
			Str("model", at.model).
			Int("status", resp.StatusCode).
			Msg("edit: provider returned no image")
	}
	return out
}

// respondExhausted reports a fully exhausted fallback chain with enough
// structure for the UI to explain what happened.
func (a *App) respondExhausted(w http.ResponseWriter, out planOutcome) {
	body := map[string]any{}
	switch a.Cfg.Provider {
	case infra.ProviderRunware:
		body["error"] = "all providers failed: " + strings.Join(out.failures, "; ")
	default:
		switch {
		case out.lastErr != nil:
			body["error"] = "provider call failed"
			body["details"] = out.lastErr.Error()
		case out.lastResp.ErrorPayload() != nil:
			body["error"] = "provider returned an error"
			body["upstream"] = out.lastResp.ErrorPayload()
		default:
			body["error"] = "model returned no image"
		}
	}
	if out.lastResp != nil {
		body["raw"] = out.lastResp.Body
	}
	if a.Cfg.Provider == infra.ProviderGemini && len(out.modelsTried) > 0 {
		body["modelTried"] = out.modelsTried
	}
	a.json(w, http.StatusBadGateway, body)
}

func clampCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > 4 {
		return 4
	}
	return n
}
