package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/domain/match"
	"github.com/sophialabs/mockdeck/internal/domain/rules"
	"github.com/sophialabs/mockdeck/internal/domain/sequence"
	"github.com/sophialabs/mockdeck/internal/domain/trace"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
	"github.com/sophialabs/mockdeck/internal/infrastructure/services"
)

// Response is what the transport writes back to the client.
type Response struct {
	Status      int
	Body        []byte
	ContentType string
	Headers     map[string]string
}

// ResolveRequestUseCase turns an incoming request into a mock response.
type ResolveRequestUseCase struct {
	store     ports.DefinitionStore
	matcher   *match.Matcher
	evaluator *rules.Evaluator
	sequences *sequence.Tracker
	renderer  ports.Renderer
	recorder  ports.OutcomeRecorder
	clock     ports.Clock
	logger    ports.Logger
}

// NewResolveRequestUseCase creates a new use case.
func NewResolveRequestUseCase(
	store ports.DefinitionStore,
	matcher *match.Matcher,
	evaluator *rules.Evaluator,
	sequences *sequence.Tracker,
	renderer ports.Renderer,
	recorder ports.OutcomeRecorder,
	clock ports.Clock,
	logger ports.Logger,
) *ResolveRequestUseCase {
	return &ResolveRequestUseCase{
		store:     store,
		matcher:   matcher,
		evaluator: evaluator,
		sequences: sequences,
		renderer:  renderer,
		recorder:  recorder,
		clock:     clock,
		logger:    logger,
	}
}

// branch is the response source chosen for a matched definition.
type branch struct {
	mode        trace.Mode
	status      int
	body        string
	contentType string
	headers     map[string]string
	delay       time.Duration

	stepIndex *int
	rule      *definition.Rule
}

// noMatchBody is the diagnostic payload returned with a 404.
type noMatchBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Query   string `json:"query"`
	Body    string `json:"body"`
}

// Execute resolves req. The only error returned is a store failure; every
// other outcome, including no match, is a response.
func (uc *ResolveRequestUseCase) Execute(ctx context.Context, req *match.IncomingRequest) (*Response, error) {
	start := uc.clock.Now()

	candidates, err := uc.store.ListActiveDefinitions(ctx, req.Method, req.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}

	result := uc.matcher.Match(req, candidates)
	if !result.Matched() {
		resp := uc.noMatch(req)
		uc.done(ctx, start, req, result, &branch{mode: trace.ModeUnmatched}, resp.Status)
		return resp, nil
	}

	d := result.Definition

	buckets, err := uc.store.LoadDataBuckets(ctx, d.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("load data buckets for %q: %w", d.CollectionID, err)
	}

	rc := uc.renderContext(req, d, buckets)
	b := uc.choose(req, d)

	if b.delay > 0 {
		if err := uc.clock.SleepContext(ctx, b.delay); err != nil {
			uc.logger.Debug("delay interrupted", "id", d.ID, "error", err)
		}
	}

	render := uc.renderer.Bind(rc)
	headers := make(map[string]string, len(b.headers))
	for name, value := range b.headers {
		headers[name] = render(value)
	}

	body := render(b.body)
	contentType := b.contentType
	if contentType == "" {
		contentType = services.InferContentType("", "", []byte(body))
	}

	resp := &Response{
		Status:      b.status,
		Body:        []byte(body),
		ContentType: contentType,
		Headers:     headers,
	}
	uc.done(ctx, start, req, result, b, resp.Status)
	return resp, nil
}

// choose picks the sequential, rule or default branch for d.
func (uc *ResolveRequestUseCase) choose(req *match.IncomingRequest, d *definition.Definition) *branch {
	headers := maps.Clone(d.Headers)
	if headers == nil {
		headers = map[string]string{}
	}

	if d.IsSequential() {
		idx := uc.sequences.NextIndex(d.ID, len(d.Steps))
		step := &d.Steps[idx]
		maps.Copy(headers, step.Headers)
		return &branch{
			mode:        trace.ModeSequential,
			status:      step.Status,
			body:        step.Body,
			contentType: step.ContentType,
			headers:     headers,
			delay:       d.StepDelay(step),
			stepIndex:   &idx,
		}
	}

	if len(d.Rules) > 0 {
		res := uc.evaluator.Evaluate(d.Rules, req, d.Route)
		for _, rerr := range res.Errors {
			uc.logger.Warn("rule evaluation failed", "id", d.ID, "error", rerr)
		}
		if r := res.Rule; r != nil {
			maps.Copy(headers, r.Headers)
			return &branch{
				mode:        trace.ModeRule,
				status:      r.Status,
				body:        r.Body,
				contentType: r.ContentType,
				headers:     headers,
				delay:       d.Delay(),
				rule:        r,
			}
		}
	}

	return &branch{
		mode:        trace.ModeDefault,
		status:      d.Status,
		body:        d.Body,
		contentType: d.ContentType,
		headers:     headers,
		delay:       d.Delay(),
	}
}

func (uc *ResolveRequestUseCase) renderContext(req *match.IncomingRequest, d *definition.Definition, buckets map[string]any) match.RenderContext {
	route := map[string]string{}
	if match.HasPlaceholders(d.Route) {
		if params, ok := match.ExtractRouteParams(d.Route, req.Path); ok {
			route = params
		}
	}

	var parsed any
	if len(req.Body) > 0 {
		if err := json.Unmarshal(req.Body, &parsed); err != nil {
			parsed = nil
		}
	}

	return match.RenderContext{
		Method:  req.Method,
		Path:    req.Path,
		Body:    req.Body,
		JSON:    parsed,
		Query:   req.Query,
		Headers: req.Headers,
		Cookies: req.Cookies,
		Route:   route,
		Buckets: buckets,
	}
}

func (uc *ResolveRequestUseCase) noMatch(req *match.IncomingRequest) *Response {
	payload, err := json.Marshal(noMatchBody{
		Error:   "no_match",
		Message: fmt.Sprintf("no mock definition matches %s %s", req.Method, req.Path),
		Method:  req.Method,
		Path:    req.Path,
		Query:   req.RawQuery,
		Body:    string(req.Body),
	})
	if err != nil {
		payload = []byte(`{"error":"no_match"}`)
	}
	return &Response{
		Status:      http.StatusNotFound,
		Body:        payload,
		ContentType: "application/json",
		Headers:     map[string]string{},
	}
}

// done logs the request and hands its outcome to the recorder. Recorder
// failures never reach the caller.
func (uc *ResolveRequestUseCase) done(ctx context.Context, start time.Time, req *match.IncomingRequest, result match.Result, b *branch, status int) {
	elapsed := uc.clock.Now().Sub(start)

	entry := trace.Entry{
		Timestamp: start,
		Method:    req.Method,
		Path:      req.Path,
		Query:     req.RawQuery,
		Body:      string(req.Body),
		Headers:   maps.Clone(req.Headers),
		Matched:   result.Matched(),
		Mode:      b.mode,
		StepIndex: b.stepIndex,
		Status:    status,
		ElapsedMs: elapsed.Milliseconds(),
	}
	if d := result.Definition; d != nil {
		entry.DefinitionID = d.ID
		entry.Description = d.Description
		entry.CollectionID = d.CollectionID
		entry.Tier = result.Tier.String()
	}
	if b.rule != nil {
		priority := b.rule.Priority
		entry.RulePriority = &priority
		entry.RuleField = b.rule.Field
	}

	uc.logger.Info("request resolved",
		"method", req.Method,
		"path", req.Path,
		"id", entry.DefinitionID,
		"mode", string(entry.Mode),
		"status", status,
		"elapsed", elapsed,
	)

	uc.record(ctx, entry)
}

func (uc *ResolveRequestUseCase) record(ctx context.Context, entry trace.Entry) {
	if uc.recorder == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			uc.logger.Error("outcome recorder panicked", "panic", p)
		}
	}()
	if err := uc.recorder.Record(ctx, entry); err != nil {
		uc.logger.Warn("failed to record outcome", "error", err)
	}
}
