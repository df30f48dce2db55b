package arbor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/zyn"
)

// GenerateResult is the tool-aware generation output: the final text plus
// the ordered list of tool calls performed along the way.
type GenerateResult struct {
	Text           string
	ToolExecutions []ToolExecution
}

// toolRequest is the directive shape a model emits to request a tool call.
type toolRequest struct {
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

// DefaultToolRounds bounds the generate/execute loop so a model that keeps
// requesting tools cannot spin forever.
const DefaultToolRounds = 4

// GenerateWithTools runs the tool-aware generation loop: the registry
// catalogue is rendered into the prompt, tool requests parsed from model
// output are executed through their resilient wrappers, and observations
// are fed back until the model produces plain text or the round budget is
// spent.
func GenerateWithTools(ctx context.Context, p Provider, registry *ToolRegistry, prompt string, temperature float32, maxRounds int) Outcome[GenerateResult] {
	if maxRounds <= 0 {
		maxRounds = DefaultToolRounds
	}

	catalog := ""
	if registry != nil && registry.Len() > 0 {
		rendered, err := registry.Catalog()
		if err != nil {
			return Failure[GenerateResult](FaultFrom("generate-with-tools", err))
		}
		catalog = rendered
	}

	messages := []zyn.Message{
		{Role: "system", Content: renderToolSystemPrompt(catalog)},
		{Role: "user", Content: prompt},
	}

	var executions []ToolExecution

	for round := 0; round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return Failure[GenerateResult](FaultFrom("generate-with-tools", err))
		}

		resp, err := p.Call(ctx, messages, temperature)
		if err != nil {
			return Failure[GenerateResult](FaultFrom(p.Name(), err))
		}

		req, ok := parseToolRequest(resp.Content)
		if !ok || registry == nil {
			return Success(GenerateResult{Text: resp.Content, ToolExecutions: executions})
		}

		tool, found := registry.Lookup(req.Tool)
		observation := ""
		exec := ToolExecution{Tool: req.Tool, Input: req.Input}

		if !found {
			observation = fmt.Sprintf("tool %q is not registered", req.Tool)
			exec.Failed = true
			exec.Output = observation
		} else {
			start := time.Now()
			out := tool.Invoke(ctx, req.Input)
			exec.Elapsed = time.Since(start)

			out.Match(
				func(result string) {
					exec.Output = result
					observation = result
				},
				func(f *Fault) {
					exec.Failed = true
					exec.Output = f.Error()
					observation = fmt.Sprintf("tool %q failed: %v", req.Tool, f)
				},
			)
		}

		executions = append(executions, exec)
		messages = append(messages,
			zyn.Message{Role: "assistant", Content: resp.Content},
			zyn.Message{Role: "user", Content: "Tool result for " + req.Tool + ":\n" + observation},
		)
	}

	return Failure[GenerateResult](Faultf(KindValidation, "generate-with-tools",
		"tool round budget of %d exhausted without a final answer", maxRounds))
}

// renderToolSystemPrompt builds the system message, embedding the tool
// catalogue when tools are available. The catalogue ordering is stable so
// prompts are reproducible.
func renderToolSystemPrompt(catalog string) string {
	var builder strings.Builder
	builder.WriteString("You are a reasoning assistant.")
	if catalog == "" {
		return builder.String()
	}
	builder.WriteString(" You may call the following tools by replying with ")
	builder.WriteString(`a single JSON object {"tool": "<name>", "input": "<input>"} and nothing else. `)
	builder.WriteString("Reply with plain text when you have the final answer.\n\nTools:\n")
	builder.WriteString(catalog)
	return builder.String()
}

// parseToolRequest recognizes a tool directive in model output. Directives
// are a bare JSON object, optionally inside a fenced code block.
func parseToolRequest(content string) (toolRequest, bool) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if !strings.HasPrefix(trimmed, "{") {
		return toolRequest{}, false
	}

	var req toolRequest
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil || req.Tool == "" {
		return toolRequest{}, false
	}
	return req, true
}
