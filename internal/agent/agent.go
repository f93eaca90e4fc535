// Package agent runs the research loop: it forwards the conversation to
// the model, executes any tools the model requests, feeds the results
// back, and repeats until the model produces a final answer or the tool
// round budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/verity0/verity/internal/llm"
	"github.com/verity0/verity/internal/log"
	"github.com/verity0/verity/internal/tools"
)

// DefaultMaxToolRounds bounds how many tool rounds one question may use.
const DefaultMaxToolRounds = 8

// runState is the phase of one question's research loop.
type runState int

const (
	// awaitingModel means the next step is a model call.
	awaitingModel runState = iota
	// awaitingTool means the model requested tools and they must run
	// before the loop continues.
	awaitingTool
	// done means a final answer (or fallback) has been produced.
	done
)

// exhaustedAnswer is returned when the model keeps requesting tools past
// the round budget.
const exhaustedAnswer = "I was unable to complete the research for this question within " +
	"the allowed number of tool lookups. Try narrowing the question or asking again."

// Model is the slice of the llm client the orchestrator needs.
type Model interface {
	Generate(ctx context.Context, req *llm.Request, stream llm.StreamFunc) (*llm.Reply, error)
}

// Events carries optional callbacks fired as a question progresses.
// Nil callbacks are skipped.
type Events struct {
	// OnChunk receives answer text deltas as the model streams them.
	OnChunk func(text string)
	// OnTool fires when a requested tool starts executing.
	OnTool func(name string)
}

// Config configures the orchestrator.
type Config struct {
	Model         Model
	Tools         []tools.Tool
	MaxToolRounds int // zero uses DefaultMaxToolRounds
	Logger        log.Logger
}

// Orchestrator drives the model/tool loop for one question at a time.
// It is stateless between questions and safe for concurrent use.
type Orchestrator struct {
	model        Model
	tools        map[string]tools.Tool
	declarations []*genai.FunctionDeclaration
	maxRounds    int
	logger       log.Logger
	tracer       trace.Tracer
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}

	byName := make(map[string]tools.Tool, len(cfg.Tools))
	declarations := make([]*genai.FunctionDeclaration, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		byName[t.Name()] = t
		declarations = append(declarations, t.Declaration())
	}

	return &Orchestrator{
		model:        cfg.Model,
		tools:        byName,
		declarations: declarations,
		maxRounds:    maxRounds,
		logger:       cfg.Logger,
		tracer:       otel.Tracer("verity/agent"),
	}, nil
}

// Answer runs the research loop for one question. history is the prior
// conversation, oldest first, excluding the system prompt and the question
// itself.
//
// The returned answer is always non-empty and suitable for showing to the
// user. A non-nil error reports what went wrong upstream; the answer then
// carries a user-facing description of the failure.
func (o *Orchestrator) Answer(ctx context.Context, system string, history []llm.Message, question string, ev Events) (string, error) {
	ctx, span := o.tracer.Start(ctx, "agent.answer",
		trace.WithAttributes(attribute.Int("history_turns", len(history))))
	defer span.End()

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Text: question})

	var (
		state   = awaitingModel
		round   = 0
		answer  string
		pending []llm.ToolCall
	)

	for state != done {
		switch state {
		case awaitingModel:
			reply, err := o.model.Generate(ctx, &llm.Request{
				System:   system,
				Messages: messages,
				Tools:    o.declarations,
			}, streamFunc(ev))
			if err != nil {
				o.logger.Error("model call failed", "error", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, "model call failed")
				return userFacingFailure(err), err
			}

			if len(reply.Calls) > 0 {
				if round >= o.maxRounds {
					o.logger.Warn("tool round budget exhausted", "rounds", round)
					answer = exhaustedAnswer
					state = done
					break
				}
				round++
				messages = append(messages, llm.Message{
					Role:  llm.RoleModel,
					Text:  reply.Text,
					Calls: reply.Calls,
				})
				pending = reply.Calls
				state = awaitingTool
				break
			}

			answer = reply.Text
			if answer == "" {
				answer = "I could not produce an answer for that question. Please try rephrasing it."
			}
			state = done

		case awaitingTool:
			results := o.runTools(ctx, pending, ev)
			messages = append(messages, llm.Message{
				Role:    llm.RoleUser,
				Results: results,
			})
			pending = nil
			state = awaitingModel
		}
	}

	span.SetAttributes(attribute.Int("tool_rounds", round))
	return answer, nil
}

// runTools executes the model's requested calls in order. A tool failure
// becomes result text so the model can react to it instead of the whole
// question failing.
func (o *Orchestrator) runTools(ctx context.Context, calls []llm.ToolCall, ev Events) []llm.ToolResult {
	results := make([]llm.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, llm.ToolResult{
			Name:    call.Name,
			Content: o.runTool(ctx, call, ev),
		})
	}
	return results
}

func (o *Orchestrator) runTool(ctx context.Context, call llm.ToolCall, ev Events) string {
	ctx, span := o.tracer.Start(ctx, "agent.tool",
		trace.WithAttributes(attribute.String("tool", call.Name)))
	defer span.End()

	if ev.OnTool != nil {
		ev.OnTool(call.Name)
	}

	tool, ok := o.tools[call.Name]
	if !ok {
		o.logger.Warn("model requested unknown tool", "tool", call.Name)
		span.SetStatus(codes.Error, "unknown tool")
		return fmt.Sprintf("Error: unknown tool %q.", call.Name)
	}

	o.logger.Info("running tool", "tool", call.Name)
	out, err := tool.Call(ctx, call.Args)
	if err != nil {
		o.logger.Warn("tool failed", "tool", call.Name, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool failed")
		return fmt.Sprintf("Error: the %s tool failed: %v. Answer from what you already know, or tell the user the lookup failed.", call.Name, err)
	}
	return out
}

// streamFunc adapts the chunk callback for the model client.
func streamFunc(ev Events) llm.StreamFunc {
	if ev.OnChunk == nil {
		return nil
	}
	return func(chunk string) { ev.OnChunk(chunk) }
}

// userFacingFailure converts an upstream failure into an assistant
// message.
func userFacingFailure(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The request was interrupted before I could finish. Please try again."
	}
	if errors.Is(err, llm.ErrCircuitOpen) {
		return "The model service is having trouble right now. Please wait a moment and try again."
	}
	return "I ran into a problem reaching the model service. Please try again in a moment."
}
