// Package tools provides the web capabilities the assistant can invoke
// during a conversational turn: web search and content extraction.
//
// Each tool validates its own input, caps its own output, and reports
// failures as ordinary errors. The orchestrator converts those errors into
// tool results the model can react to; a tool error never aborts a turn.
package tools

import (
	"context"

	"google.golang.org/genai"
)

// Tool is a single capability exposed to the language model.
type Tool interface {
	// Name returns the function name the model calls.
	Name() string

	// Declaration returns the function declaration advertised to the model.
	Declaration() *genai.FunctionDeclaration

	// Call invokes the tool with the model-provided arguments and returns
	// the textual result fed back into the working context.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// maxOutputSize caps any single tool result fed back to the model.
const maxOutputSize = 64 * 1024

// capOutput bounds a tool result, marking the cut so the model knows
// content was dropped.
func capOutput(s string) string {
	if len(s) <= maxOutputSize {
		return s
	}
	return s[:maxOutputSize] + "\n[content truncated]"
}

// stringArg extracts a string argument by key. Missing or non-string
// values return the empty string; validation happens in the caller.
func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
