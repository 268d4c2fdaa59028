package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"concierge/internal/logger"
	"concierge/internal/metrics"
	"concierge/internal/model"
	"concierge/internal/utils"
)

// Tool names declared to the language model.
const (
	ToolSaveLead   = "save_lead"
	ToolOpenCanvas = "open_canvas"
)

// FailureReason classifies a failed generation.
type FailureReason string

const (
	ReasonAuth                FailureReason = "auth_error"
	ReasonRateLimited         FailureReason = "rate_limited"
	ReasonUpstreamUnavailable FailureReason = "upstream_unavailable"
	ReasonTransport           FailureReason = "transport_error"
	ReasonDisabled            FailureReason = "disabled"
	ReasonInvalidResponse     FailureReason = "invalid_response"
)

// GenerationResult is one of TextAnswer, ToolInvocation or GenerationFailure.
type GenerationResult interface {
	isGenerationResult()
}

// TextAnswer is a natural-language reply.
type TextAnswer struct {
	Content string
	Model   string
}

// ToolInvocation is a declared tool the model chose to call. Exactly one of
// Lead or Canvas is set, matching Name.
type ToolInvocation struct {
	Name       string
	Arguments  string // raw arguments JSON
	RawContent string // text the model sent alongside the call, if any
	Model      string
	Lead       *model.Lead
	Canvas     *model.CanvasAction
}

// GenerationFailure reports why no answer was produced.
type GenerationFailure struct {
	Reason FailureReason
	Err    error
}

func (TextAnswer) isGenerationResult()        {}
func (ToolInvocation) isGenerationResult()    {}
func (GenerationFailure) isGenerationResult() {}

// GeneratorConfig holds sampling and history settings
type GeneratorConfig struct {
	HistoryWindow int
	Temperature   float64
	MaxTokens     int
}

// ResponseGenerator sends a grounding payload to the language model and
// interprets the reply.
type ResponseGenerator struct {
	llm LLMClient
	cfg GeneratorConfig
	log logger.Logger
}

// NewResponseGenerator creates a generator. llm may be nil, in which case
// every call fails with ReasonDisabled.
func NewResponseGenerator(llm LLMClient, cfg GeneratorConfig, log logger.Logger) *ResponseGenerator {
	return &ResponseGenerator{llm: llm, cfg: cfg, log: log}
}

// Generate issues exactly one completion call. It never retries.
func (g *ResponseGenerator) Generate(ctx context.Context, payload *model.GroundingPayload, toolsEnabled bool) GenerationResult {
	if g.llm == nil || !g.llm.IsEnabled() {
		return g.fail(ReasonDisabled, errors.New("language model is not configured"))
	}

	req := CompletionRequest{
		Messages:    toChatMessages(trimHistory(payload.Messages, g.cfg.HistoryWindow)),
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	if toolsEnabled {
		req.Tools = declaredTools()
	}

	completion, err := g.llm.Complete(ctx, req)
	if err != nil {
		return g.fail(classifyFailure(err), err)
	}

	if len(completion.ToolCalls) > 0 {
		if !toolsEnabled {
			g.log.Warn("Model returned a tool call although no tools were declared", nil)
		} else {
			return g.interpretToolCall(completion)
		}
	}

	if completion.Content == "" {
		return g.fail(ReasonInvalidResponse, errors.New("completion carried neither content nor a tool call"))
	}
	return TextAnswer{Content: completion.Content, Model: completion.Model}
}

func (g *ResponseGenerator) interpretToolCall(c *Completion) GenerationResult {
	call := c.ToolCalls[0]
	inv := ToolInvocation{
		Name:       call.Function.Name,
		Arguments:  call.Function.Arguments,
		RawContent: c.Content,
		Model:      c.Model,
	}

	switch call.Function.Name {
	case ToolSaveLead:
		var lead model.Lead
		if err := utils.DecodeToolArguments(call.Function.Arguments, &lead); err != nil {
			return g.fail(ReasonInvalidResponse, err)
		}
		inv.Lead = &lead
	case ToolOpenCanvas:
		var args struct {
			CanvasType  string `json:"canvas_type"`
			ProjectID   string `json:"project_id"`
			ProjectName string `json:"project_name"`
		}
		if err := utils.DecodeToolArguments(call.Function.Arguments, &args); err != nil {
			return g.fail(ReasonInvalidResponse, err)
		}
		ct := model.CanvasType(args.CanvasType)
		if !ct.Valid() {
			return g.fail(ReasonInvalidResponse, errors.New("unknown canvas_type "+args.CanvasType))
		}
		inv.Canvas = &model.CanvasAction{Type: ct, ProjectID: args.ProjectID, ProjectName: args.ProjectName}
	default:
		return g.fail(ReasonInvalidResponse, errors.New("undeclared tool "+call.Function.Name))
	}
	return inv
}

func (g *ResponseGenerator) fail(reason FailureReason, err error) GenerationFailure {
	metrics.GenerationFailures.WithLabelValues(string(reason)).Inc()
	g.log.WithError(err).Warn("Generation failed", map[string]interface{}{"reason": string(reason)})
	return GenerationFailure{Reason: reason, Err: err}
}

// classifyFailure maps a collaborator error onto a FailureReason.
func classifyFailure(err error) FailureReason {
	if errors.Is(err, ErrClientDisabled) {
		return ReasonDisabled
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return ReasonAuth
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return ReasonRateLimited
		default:
			return ReasonUpstreamUnavailable
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonTransport
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ReasonTransport
	}
	return ReasonInvalidResponse
}

// trimHistory keeps the leading system message, the final user turn and at
// most window turns of history between them. A negative window keeps all.
func trimHistory(messages []model.ConversationTurn, window int) []model.ConversationTurn {
	if window < 0 || len(messages) < 2 {
		return messages
	}

	var head []model.ConversationTurn
	body := messages
	if body[0].Role == model.RoleSystem {
		head, body = body[:1], body[1:]
	}
	last := body[len(body)-1]
	history := body[:len(body)-1]
	if len(history) <= window {
		return messages
	}
	history = history[len(history)-window:]

	out := make([]model.ConversationTurn, 0, len(head)+len(history)+1)
	out = append(out, head...)
	out = append(out, history...)
	return append(out, last)
}

func toChatMessages(turns []model.ConversationTurn) []ChatMessage {
	out := make([]ChatMessage, len(turns))
	for i, t := range turns {
		out[i] = ChatMessage{Role: t.Role, Content: t.Content}
	}
	return out
}

func canvasTypeNames() []any {
	out := make([]any, len(model.CanvasTypes))
	for i, c := range model.CanvasTypes {
		out[i] = string(c)
	}
	return out
}

func declaredTools() []Tool {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return []Tool{
		{
			Type: "function",
			Function: FunctionDef{
				Name:        ToolSaveLead,
				Description: "Save the user's contact details so a consultant can follow up. Only call this once the user has given a phone number or an email and wants to be contacted.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":               str("Full name"),
						"phone":              str("Phone number including country code"),
						"email":              str("Email address"),
						"budget":             str("Budget as stated by the user"),
						"interested_project": str("Project the user is interested in"),
						"preferred_area":     str("Preferred area or community"),
						"bedrooms":           str("Desired number of bedrooms"),
						"timeline":           str("When the user intends to buy"),
						"investment_purpose": str("End use or investment"),
						"notes":              str("Anything else worth passing on"),
					},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDef{
				Name:        ToolOpenCanvas,
				Description: "Open an interactive panel in the website chat for the user.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"canvas_type": map[string]any{
							"type":        "string",
							"enum":        canvasTypeNames(),
							"description": "Panel to open",
						},
						"project_id":   str("Catalogue id of the project the panel is about, if any"),
						"project_name": str("Name of the project the panel is about, if any"),
					},
					"required": []string{"canvas_type"},
				},
			},
		},
	}
}
