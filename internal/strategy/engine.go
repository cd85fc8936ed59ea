package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"viralforge/internal/models"
)

const defaultEndpoint = "https://api.groq.com/openai/v1/chat/completions"

const systemPrompt = "You are a professional social media editor. Output JSON."

// Engine derives a data-driven editing strategy from the transcript via the
// Groq chat completions API. Unavailability is never an error: every failure
// path resolves to the neutral default strategy, because the pipeline must
// not block on this collaborator.
type Engine struct {
	logger     zerolog.Logger
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
}

// New creates an Engine. An empty apiKey puts the engine permanently in
// default-strategy mode.
func New(logger zerolog.Logger, apiKey, model string) *Engine {
	return &Engine{
		logger:     logger.With().Str("component", "strategy").Logger(),
		httpClient: &http.Client{Timeout: 45 * time.Second},
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
		model:      model,
	}
}

// WithEndpoint overrides the API endpoint. Used by tests.
func (e *Engine) WithEndpoint(url string) *Engine {
	e.endpoint = url
	return e
}

// GenerateVisualStrategy analyzes transcript, niche, and requested style and
// returns an editing strategy. Never returns an error.
func (e *Engine) GenerateVisualStrategy(ctx context.Context, transcript []models.TranscriptSegment, niche, style string) models.Strategy {
	if e.apiKey == "" {
		e.logger.Info().Msg("no strategy credentials, using neutral default")
		return models.DefaultStrategy()
	}

	strat, err := e.call(ctx, transcript, niche, style)
	if err != nil {
		e.logger.Warn().Err(err).Msg("strategy collaborator unavailable, using neutral default")
		return models.DefaultStrategy()
	}
	e.logger.Info().Str("vibe", strat.Vibe).
		Floats64("speed_range", strat.SpeedRange[:]).
		Float64("jitter", strat.JitterIntensity).
		Msg("strategy generated")
	return strat
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat respFormat    `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// strategyJSON is the structured output schema required from the model.
type strategyJSON struct {
	SpeedRange         []float64   `json:"speed_range"`
	JitterIntensity    float64     `json:"jitter_intensity"`
	RecommendedFilters []string    `json:"recommended_filters"`
	HookPoints         [][]float64 `json:"hook_points"`
	BRollKeywords      []string    `json:"b_roll_keywords"`
	Vibe               string      `json:"vibe"`
	Explanation        string      `json:"explanation"`
}

func (e *Engine) call(ctx context.Context, transcript []models.TranscriptSegment, niche, style string) (models.Strategy, error) {
	var zero models.Strategy

	reqBody := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(transcript, niche, style)},
		},
		ResponseFormat: respFormat{Type: "json_object"},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return zero, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return zero, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("strategy request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, err
	}

	var chat chatResponse
	if err := json.Unmarshal(respBytes, &chat); err != nil {
		return zero, fmt.Errorf("parse response: %w", err)
	}
	if chat.Error != nil {
		return zero, fmt.Errorf("api error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return zero, fmt.Errorf("no choices returned")
	}

	var raw strategyJSON
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &raw); err != nil {
		return zero, fmt.Errorf("parse strategy JSON: %w", err)
	}
	return convert(raw), nil
}

// convert validates the model output against the Strategy invariants,
// falling back to neutral values field by field rather than wholesale.
func convert(raw strategyJSON) models.Strategy {
	strat := models.DefaultStrategy()

	if len(raw.SpeedRange) == 2 && raw.SpeedRange[0] > 0 && raw.SpeedRange[0] <= raw.SpeedRange[1] {
		strat.SpeedRange = [2]float64{raw.SpeedRange[0], raw.SpeedRange[1]}
	}
	if raw.JitterIntensity >= 0 {
		strat.JitterIntensity = raw.JitterIntensity
	}
	for _, token := range raw.RecommendedFilters {
		if kind, ok := models.ParseFilter(token); ok {
			strat.RecommendedFilters = append(strat.RecommendedFilters, kind)
		}
	}
	for _, hp := range raw.HookPoints {
		if len(hp) == 2 && hp[0] >= 0 && hp[0] < hp[1] {
			strat.HookPoints = append(strat.HookPoints, models.HookWindow{Start: hp[0], End: hp[1]})
		}
	}
	strat.BRollKeywords = raw.BRollKeywords
	if raw.Vibe != "" {
		strat.Vibe = raw.Vibe
	}
	strat.Explanation = raw.Explanation
	return strat
}

func buildPrompt(transcript []models.TranscriptSegment, niche, style string) string {
	var text strings.Builder
	for _, seg := range transcript {
		text.WriteString(seg.Text)
		text.WriteString(" ")
	}
	full := text.String()
	if len(full) > 2000 {
		full = full[:2000]
	}

	var sb strings.Builder
	sb.WriteString("You are an elite AI Video Editor. Analyze the following video transcript, niche, and user-selected STYLE to decide the visual strategy.\n\n")
	sb.WriteString(fmt.Sprintf("NICHE: %s\nSELECTED STYLE: %s\nTRANSCRIPT: %q\n\n", niche, style, full))
	sb.WriteString(`DECISION CRITERIA:
1. STYLE OVERRIDE:
   - 'Cinematic': f7 (Overlays), f9 (Glow), Speed 0.98x.
   - 'ASMR/Calm': No Jitter, Speed 0.95x, f9 (Glow).
   - 'Glitch/High-Art': f8 (High Jitter), f12 (Glitch), Speed 1.05x.
   - 'Noir/Classic': f11 (Grayscale), f10 (Grain), Speed 1.0x.
2. SPEED: High energy needs 1.02-1.1x speed ramping. Relaxed needs 0.95-1.0x.
3. JITTER: Intense/Action needs 2.0-3.0 intensity. Calm needs 0.0-0.5.
4. FILTERS: 'f6' (Speed Ramping), 'f7' (Cinematic), 'f8' (Jitter), 'f9' (Glow), 'f10' (Grain), 'f11' (Grayscale), 'f12' (Glitch).
5. HOOKS: Identify 1-3 specific segments (start/end in seconds) that are the most viral, emotional, or high-energy parts of the transcript.
6. B-ROLL: Provide 3-5 search keywords for stock footage.

OUTPUT FORMAT (JSON ONLY):
{
    "speed_range": [min, max],
    "jitter_intensity": float,
    "recommended_filters": ["f6", "f7", "f8"],
    "hook_points": [[start, end], ...],
    "b_roll_keywords": ["keyword1", "keyword2"],
    "vibe": "Energetic" | "Calm" | "Educational" | "Dramatic",
    "explanation": "Why this strategy?"
}`)
	return sb.String()
}
