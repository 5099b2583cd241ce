// Package llm provides a structured chat invoker for the analysis and
// research pipelines.
//
// The invoker sends role-tagged messages plus an optional strict JSON-schema
// response format and returns the raw content of the first completion
// choice. It performs no schema validation itself: conformance is a
// best-effort contract with the model, and callers must treat unparseable
// output as a failure of their own stage.
package llm

import (
	"context"
	"errors"
	"sort"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrNoMessages indicates an empty message list.
	ErrNoMessages = errors.New("no messages")

	// ErrEmptyCompletion indicates the model returned no usable choice.
	ErrEmptyCompletion = errors.New("empty completion")
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string
	Content string
}

// Schema is a minimal JSON-schema node for structured response formats.
// Under strict semantics every property is required and additional
// properties are rejected, so builders list all properties in Required.
type Schema struct {
	Type        string
	Description string
	Enum        []string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
}

// ResponseFormat asks the model for output conforming to a named JSON
// schema with strict semantics.
type ResponseFormat struct {
	Name   string
	Schema *Schema
}

// Invoker sends messages to a language model and returns the first choice's
// raw content.
type Invoker interface {
	Invoke(ctx context.Context, messages []Message, format *ResponseFormat) (string, error)
}

// Object builds an object schema node with all properties required.
func Object(properties map[string]*Schema) *Schema {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	sort.Strings(required)
	return &Schema{Type: "object", Properties: properties, Required: required}
}

// Array builds an array schema node.
func Array(items *Schema) *Schema {
	return &Schema{Type: "array", Items: items}
}

// String builds a string schema node.
func String() *Schema {
	return &Schema{Type: "string"}
}

// StringEnum builds a string schema node restricted to the given values.
func StringEnum(values ...string) *Schema {
	return &Schema{Type: "string", Enum: values}
}

// Number builds a number schema node.
func Number() *Schema {
	return &Schema{Type: "number"}
}
