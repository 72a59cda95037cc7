// Package stream defines the event protocol used to relay planner activity
// to clients. Events arrive from heterogeneous upstream payloads; Normalize
// is the single place those shapes are converted, so nothing downstream
// branches on payload shape.
package stream

// EventType discriminates the Event union.
type EventType string

const (
	// EventTextDelta carries an incremental chunk of assistant text.
	EventTextDelta EventType = "text_delta"

	// EventToolCalled announces a tool invocation before it runs.
	EventToolCalled EventType = "tool_called"

	// EventToolOutput carries the result of a completed tool invocation.
	EventToolOutput EventType = "tool_output"

	// EventReasoning carries a summarized reasoning step.
	EventReasoning EventType = "reasoning"

	// EventDone terminates a turn. Exactly one is emitted per turn, last.
	EventDone EventType = "done"
)

// Event is the tagged union relayed to clients in strict arrival order.
// Only the fields relevant to Type are populated.
type Event struct {
	Type EventType `json:"type"`

	TextDelta string `json:"text_delta,omitempty"`

	ToolName   string `json:"tool_name,omitempty"`
	ToolInput  string `json:"tool_input,omitempty"`
	ToolOutput string `json:"tool_output,omitempty"`

	Summary string `json:"summary,omitempty"`

	FinalText         string `json:"final_text,omitempty"`
	ContinuationToken string `json:"continuation_token,omitempty"`
	Diff              string `json:"diff,omitempty"`
}

// Terminal reports whether the event ends a turn.
func (e Event) Terminal() bool { return e.Type == EventDone }

// TextDelta builds an incremental text event.
func TextDelta(text string) Event {
	return Event{Type: EventTextDelta, TextDelta: text}
}

// ToolCalled builds a tool invocation event.
func ToolCalled(name, input string) Event {
	return Event{Type: EventToolCalled, ToolName: name, ToolInput: input}
}

// ToolOutput builds a tool completion event.
func ToolOutput(name, output string) Event {
	return Event{Type: EventToolOutput, ToolName: name, ToolOutput: output}
}

// Reasoning builds a reasoning summary event.
func Reasoning(summary string) Event {
	return Event{Type: EventReasoning, Summary: summary}
}

// Done builds the terminal event for a turn.
func Done(finalText, continuationToken, diff string) Event {
	return Event{Type: EventDone, FinalText: finalText, ContinuationToken: continuationToken, Diff: diff}
}

// Eventer is implemented by upstream payloads that can convert themselves.
type Eventer interface {
	StreamEvent() Event
}

// Normalize converts an upstream payload into an Event. It accepts Event
// values, Eventer implementations, and map[string]any payloads keyed by
// "type". The second return is false for shapes or types that do not map to
// a known event.
func Normalize(raw any) (Event, bool) {
	switch v := raw.(type) {
	case Event:
		return v, knownType(v.Type)
	case *Event:
		if v == nil {
			return Event{}, false
		}
		return *v, knownType(v.Type)
	case Eventer:
		ev := v.StreamEvent()
		return ev, knownType(ev.Type)
	case map[string]any:
		return fromMap(v)
	default:
		return Event{}, false
	}
}

func knownType(t EventType) bool {
	switch t {
	case EventTextDelta, EventToolCalled, EventToolOutput, EventReasoning, EventDone:
		return true
	}
	return false
}

func fromMap(m map[string]any) (Event, bool) {
	t := EventType(str(m["type"]))
	if !knownType(t) {
		return Event{}, false
	}

	ev := Event{Type: t}
	switch t {
	case EventTextDelta:
		ev.TextDelta = firstStr(m, "text_delta", "text", "delta")
	case EventToolCalled:
		ev.ToolName = firstStr(m, "tool_name", "name")
		ev.ToolInput = firstStr(m, "tool_input", "input", "args")
	case EventToolOutput:
		ev.ToolName = firstStr(m, "tool_name", "name")
		ev.ToolOutput = firstStr(m, "tool_output", "output", "result")
	case EventReasoning:
		ev.Summary = firstStr(m, "summary", "text")
	case EventDone:
		ev.FinalText = firstStr(m, "final_text", "text")
		ev.ContinuationToken = firstStr(m, "continuation_token", "token")
		ev.Diff = str(m["diff"])
	}
	return ev, true
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
