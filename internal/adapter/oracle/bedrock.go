package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
	"switchboard/internal/infra/tracer"
)

// converseAPI abstracts the Bedrock runtime method for testability.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockOracle classifies requests against the persona catalog with the
// AWS Bedrock Converse API. Every failure mode surfaces as
// ErrOracleUnavailable so the routing engine can fall back uniformly.
type BedrockOracle struct {
	model     string
	maxTokens int
	timeout   time.Duration
	client    converseAPI
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewBedrockOracle creates an oracle using the default AWS credential chain.
func NewBedrockOracle(cfg config.OracleConfig, logger *slog.Logger) (*BedrockOracle, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newBedrockOracleWithClient(cfg, bedrockruntime.NewFromConfig(awsCfg), logger), nil
}

// newBedrockOracleWithClient creates an oracle with an injected client (for testing).
func newBedrockOracleWithClient(cfg config.OracleConfig, client converseAPI, logger *slog.Logger) *BedrockOracle {
	if logger == nil {
		logger = slog.Default()
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	return &BedrockOracle{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		client:    client,
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		logger:    logger,
	}
}

// Classify implements domain.ClassificationOracle.
func (o *BedrockOracle) Classify(ctx context.Context, request string, catalog []domain.Persona) (*domain.RoutingDecision, error) {
	ctx, span := tracer.StartSpan(ctx, "oracle.classify",
		trace.WithAttributes(tracer.StringAttr("oracle.model", o.model)),
	)
	defer span.End()

	if err := o.limiter.Wait(ctx); err != nil {
		tracer.RecordError(span, err)
		return nil, domain.NewDomainError("BedrockOracle.Classify", domain.ErrOracleUnavailable,
			"rate limit wait: "+err.Error())
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	prompt := buildPrompt(request, catalog)
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(o.model),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(o.maxTokens)),
			Temperature: aws.Float32(0),
		},
	}

	output, err := o.client.Converse(ctx, input)
	if err != nil {
		tracer.RecordError(span, err)
		detail := err.Error()
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			detail = apiErr.ErrorCode() + ": " + apiErr.ErrorMessage()
			o.logger.Warn("bedrock call failed", "code", apiErr.ErrorCode(), "model", o.model)
		}
		return nil, domain.NewDomainError("BedrockOracle.Classify", domain.ErrOracleUnavailable, detail)
	}

	text := extractText(output)
	decision, err := parseDecision(text, catalog)
	if err != nil {
		tracer.RecordError(span, err)
		o.logger.Warn("oracle response unparseable", "error", err)
		return nil, err
	}

	span.SetAttributes(
		tracer.StringAttr("oracle.persona", decision.Persona),
		tracer.FloatAttr("oracle.confidence", decision.Confidence),
	)
	tracer.SetOK(span)
	return decision, nil
}

// buildPrompt renders the catalog and the request into a classification
// instruction that demands JSON-only output.
func buildPrompt(request string, catalog []domain.Persona) string {
	var b strings.Builder
	b.WriteString("You route user requests to the best persona and mode.\n")
	b.WriteString("Available personas and modes:\n\n")
	for _, p := range catalog {
		fmt.Fprintf(&b, "persona: %s\n  description: %s\n", p.Name, p.Description)
		for _, m := range p.Modes {
			fmt.Fprintf(&b, "  mode: %s\n    description: %s\n    when to use: %s\n",
				m.Slug, m.Description, m.WhenToUse)
		}
		b.WriteString("\n")
	}
	b.WriteString("If the request contains multiple distinct pieces of work, " +
		"decompose it into sub_tasks; depends_on holds zero-based indices of " +
		"strictly earlier sub_tasks a task needs the output of.\n\n")
	b.WriteString("Respond with JSON only, no prose, matching:\n")
	b.WriteString(`{"persona": "...", "mode": "...", "confidence": 0.0, "reasoning": "...", ` +
		`"sub_tasks": [{"description": "...", "persona": "...", "mode": "...", "query": "...", "depends_on": []}]}` + "\n\n")
	b.WriteString("Request:\n")
	b.WriteString(request)
	return b.String()
}

func extractText(output *bedrockruntime.ConverseOutput) string {
	msg, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	return b.String()
}

// rawDecision mirrors the JSON shape the oracle is asked to produce.
type rawDecision struct {
	Persona    string    `json:"persona"`
	Mode       string    `json:"mode"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
	SubTasks   []rawTask `json:"sub_tasks"`
}

type rawTask struct {
	Description string `json:"description"`
	Persona     string `json:"persona"`
	Mode        string `json:"mode"`
	Query       string `json:"query"`
	DependsOn   []int  `json:"depends_on"`
}

// parseDecision validates and converts oracle output. Sub-tasks naming an
// unknown persona are dropped; a known persona with an unknown mode falls
// back to that persona's default mode.
func parseDecision(text string, catalog []domain.Persona) (*domain.RoutingDecision, error) {
	raw := stripCodeFences(text)
	if raw == "" {
		return nil, domain.NewDomainError("parseDecision", domain.ErrOracleUnavailable, "empty response")
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, domain.NewDomainError("parseDecision", domain.ErrOracleUnavailable,
			"invalid JSON: "+err.Error())
	}
	if err := validateDecisionJSON(parsed); err != nil {
		return nil, domain.NewDomainError("parseDecision", domain.ErrOracleUnavailable,
			"schema violation: "+err.Error())
	}

	var rd rawDecision
	if err := json.Unmarshal([]byte(raw), &rd); err != nil {
		return nil, domain.NewDomainError("parseDecision", domain.ErrOracleUnavailable, err.Error())
	}

	personas := make(map[string]domain.Persona, len(catalog))
	for _, p := range catalog {
		personas[p.Name] = p
	}

	decision := &domain.RoutingDecision{
		Persona:    rd.Persona,
		Mode:       rd.Mode,
		Confidence: rd.Confidence,
		Reasoning:  rd.Reasoning,
	}

	// Tasks naming an unknown persona are dropped, and tasks depending on a
	// dropped task go with them. Surviving dependency indices are remapped
	// to the compacted list.
	remap := make(map[int]int, len(rd.SubTasks))
	for i, t := range rd.SubTasks {
		p, ok := personas[t.Persona]
		if !ok {
			continue
		}
		deps := make([]int, 0, len(t.DependsOn))
		dropped := false
		for _, dep := range t.DependsOn {
			ni, ok := remap[dep]
			if !ok {
				dropped = true
				break
			}
			deps = append(deps, ni)
		}
		if dropped {
			continue
		}
		mode := t.Mode
		if _, ok := p.Mode(mode); !ok {
			mode = p.Default().Slug
		}
		remap[i] = len(decision.SubTasks)
		if len(deps) == 0 {
			deps = nil
		}
		decision.SubTasks = append(decision.SubTasks, domain.SubTask{
			Description: t.Description,
			Persona:     t.Persona,
			Mode:        mode,
			Query:       t.Query,
			DependsOn:   deps,
		})
	}

	return decision, nil
}

// codeFenceRe matches markdown code fences wrapping JSON.
var codeFenceRe = regexp.MustCompile(`(?si)^` + "```" + `(?:json)?\s*(.*?)\s*` + "```" + `$`)

// stripCodeFences removes markdown code fences if the model wrapped its output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}
