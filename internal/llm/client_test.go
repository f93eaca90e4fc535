package llm

import (
	"testing"
)

func TestToContents(t *testing.T) {
	t.Parallel()

	messages := []Message{
		{Role: RoleUser, Text: "What is the weather in Paris?"},
		{Role: RoleModel, Calls: []ToolCall{
			{Name: "web_search", Args: map[string]any{"query": "Paris weather"}},
		}},
		{Role: RoleUser, Results: []ToolResult{
			{Name: "web_search", Content: "18C and cloudy"},
		}},
		{Role: RoleModel, Text: "It is 18C and cloudy in Paris."},
	}

	contents := toContents(messages)
	if len(contents) != 4 {
		t.Fatalf("got %d contents, want 4", len(contents))
	}

	if contents[0].Role != "user" || contents[0].Parts[0].Text != "What is the weather in Paris?" {
		t.Error("user text turn not converted")
	}

	fc := contents[1].Parts[0].FunctionCall
	if fc == nil || fc.Name != "web_search" {
		t.Fatal("model tool call not converted")
	}
	if fc.Args["query"] != "Paris weather" {
		t.Errorf("call args = %v", fc.Args)
	}

	fr := contents[2].Parts[0].FunctionResponse
	if fr == nil || fr.Name != "web_search" {
		t.Fatal("tool result not converted")
	}
	if fr.Response["output"] != "18C and cloudy" {
		t.Errorf("result payload = %v", fr.Response)
	}

	if contents[3].Role != "model" || contents[3].Parts[0].Text == "" {
		t.Error("model text turn not converted")
	}
}

func TestToContentsSkipsEmptyMessages(t *testing.T) {
	t.Parallel()

	contents := toContents([]Message{
		{Role: RoleUser, Text: "hello"},
		{Role: RoleModel}, // nothing to send
	})
	if len(contents) != 1 {
		t.Errorf("got %d contents, want 1", len(contents))
	}
}
