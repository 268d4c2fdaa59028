package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "concierge/internal/errors"
	"concierge/internal/logger"
	"concierge/internal/metrics"
	"concierge/internal/model"
)

const (
	leadAcknowledgement   = "Thank you! A property consultant will contact you shortly."
	canvasAcknowledgement = "I have opened that for you."
	fallbackNote          = "The assistant is temporarily offline; this reply was generated from the catalogue."
)

// Stream events emitted by ChatStream, in order.
const (
	EventIntent     = "intent"
	EventCandidates = "candidates"
	EventAnswer     = "answer"
)

// ChatEventCallback is called for streaming chat events
type ChatEventCallback func(event string, data any) error

// ChatServiceConfig holds the per-turn strategy and timeouts
type ChatServiceConfig struct {
	RetrievalMode     model.RetrievalMethod
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
	ToolsEnabled      bool
}

// ChatService answers one conversational turn:
// extract, retrieve, ground, generate and, on failure, fall back.
type ChatService struct {
	intent    *IntentExtractor
	retriever *CandidateRetriever
	builder   *ContextBuilder
	generator *ResponseGenerator
	fallback  *FallbackResponder
	leads     LeadSink
	cfg       ChatServiceConfig
	log       logger.Logger
	now       func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(
	intent *IntentExtractor,
	retriever *CandidateRetriever,
	builder *ContextBuilder,
	generator *ResponseGenerator,
	fallback *FallbackResponder,
	leads LeadSink,
	cfg ChatServiceConfig,
	log logger.Logger,
) *ChatService {
	return &ChatService{
		intent:    intent,
		retriever: retriever,
		builder:   builder,
		generator: generator,
		fallback:  fallback,
		leads:     leads,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// CandidateSummary is the payload of the candidates stream event.
type CandidateSummary struct {
	Method   model.RetrievalMethod `json:"method"`
	Count    int                   `json:"count"`
	Degraded bool                  `json:"degraded,omitempty"`
	Projects []string              `json:"projects"`
}

// Chat answers one turn. Generation failures are answered by the fallback
// responder; the only errors returned are validation and internal errors.
func (s *ChatService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	return s.turn(ctx, req, nil)
}

// ChatStream answers one turn and reports progress through callback. A
// callback error aborts the turn and is returned.
func (s *ChatService) ChatStream(ctx context.Context, req *model.ChatRequest, callback ChatEventCallback) (*model.ChatResponse, error) {
	return s.turn(ctx, req, callback)
}

func (s *ChatService) turn(ctx context.Context, req *model.ChatRequest, callback ChatEventCallback) (*model.ChatResponse, error) {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.Validation("message is required")
	}
	emit := func(event string, data any) error {
		if callback == nil {
			return nil
		}
		return callback(event, data)
	}

	filter := s.intent.Extract(req.Message)
	if err := emit(EventIntent, filter); err != nil {
		return nil, err
	}

	retrieval := s.retrieve(ctx, filter)
	if err := emit(EventCandidates, summarize(retrieval)); err != nil {
		return nil, err
	}

	payload := s.builder.Build(req.History, req.Message, retrieval)
	result := s.generate(ctx, payload)

	resp, err := s.respond(ctx, req, retrieval, result)
	if err != nil {
		return nil, err
	}
	if err := emit(EventAnswer, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ChatService) retrieve(ctx context.Context, filter *model.StructuredFilter) *model.RetrievalResult {
	if s.cfg.RetrievalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RetrievalTimeout)
		defer cancel()
	}
	return s.retriever.Retrieve(ctx, filter, RetrieveOptions{Mode: s.cfg.RetrievalMode})
}

func (s *ChatService) generate(ctx context.Context, payload *model.GroundingPayload) GenerationResult {
	if s.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer cancel()
	}
	return s.generator.Generate(ctx, payload, s.cfg.ToolsEnabled)
}

func (s *ChatService) respond(ctx context.Context, req *model.ChatRequest, retrieval *model.RetrievalResult, result GenerationResult) (*model.ChatResponse, error) {
	resp := &model.ChatResponse{Timestamp: s.now().UTC()}

	switch r := result.(type) {
	case TextAnswer:
		resp.Message = r.Content
		resp.Model = r.Model
		metrics.ChatTurns.WithLabelValues("answer").Inc()

	case ToolInvocation:
		resp.Model = r.Model
		switch {
		case r.Lead != nil:
			resp.Message = leadAcknowledgement
			if err := s.leads.CaptureLead(ctx, *r.Lead); err != nil {
				s.log.WithError(err).Warn("Lead not captured", nil)
			} else {
				resp.LeadCaptured = true
			}
		case r.Canvas != nil:
			resp.Message = canvasAcknowledgement
			resp.Canvas = r.Canvas
		}
		if r.RawContent != "" {
			resp.Message = r.RawContent
		}
		metrics.ChatTurns.WithLabelValues("tool").Inc()

	case GenerationFailure:
		resp.Message = s.fallback.Respond(req.Message, retrieval.Projects())
		resp.Model = model.FallbackModel
		resp.Note = fallbackNote
		metrics.ChatTurns.WithLabelValues("fallback").Inc()
		s.log.Info("Answered with fallback", map[string]interface{}{
			"reason":     string(r.Reason),
			"candidates": retrieval.Len(),
		})

	default:
		return nil, apperrors.Internal(fmt.Errorf("unexpected generation result %T", result))
	}
	return resp, nil
}

func summarize(r *model.RetrievalResult) CandidateSummary {
	names := make([]string, 0, r.Len())
	for _, p := range r.Projects() {
		names = append(names, p.Name)
	}
	sum := CandidateSummary{Count: r.Len(), Projects: names}
	if r != nil {
		sum.Method = r.Method
		sum.Degraded = r.Degraded
	}
	return sum
}
