package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIConfigValidate(t *testing.T) {
	valid := OpenAIConfig{Model: "gpt-4o-mini", Timeout: time.Minute}
	assert.NoError(t, valid.Validate())

	missing := OpenAIConfig{Timeout: time.Minute}
	assert.Error(t, missing.Validate())

	zeroTimeout := OpenAIConfig{Model: "gpt-4o-mini"}
	assert.Error(t, zeroTimeout.Validate())
}

func TestNewOpenAI(t *testing.T) {
	inv, err := NewOpenAI(OpenAIConfig{Model: "gpt-4o-mini", Timeout: time.Minute}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, inv)

	_, err = NewOpenAI(OpenAIConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestObjectSchema(t *testing.T) {
	s := Object(map[string]*Schema{
		"title":    String(),
		"priority": StringEnum("critical", "high", "medium", "low"),
		"count":    Number(),
	})

	assert.Equal(t, "object", s.Type)
	// Strict semantics: every property is required.
	assert.Equal(t, []string{"count", "priority", "title"}, s.Required)
	assert.Equal(t, []string{"critical", "high", "medium", "low"}, s.Properties["priority"].Enum)
}

func TestArraySchema(t *testing.T) {
	s := Array(Object(map[string]*Schema{"name": String()}))
	assert.Equal(t, "array", s.Type)
	require.NotNil(t, s.Items)
	assert.Equal(t, "object", s.Items.Type)
}

func TestConvertFormat(t *testing.T) {
	format := &ResponseFormat{
		Name: "task_breakdown",
		Schema: Object(map[string]*Schema{
			"tasks": Array(Object(map[string]*Schema{
				"title":          String(),
				"estimatedHours": Number(),
			})),
		}),
	}

	out := convertFormat(format)
	assert.Equal(t, "json_schema", out.Type)
	require.NotNil(t, out.JSONSchema)
	assert.Equal(t, "task_breakdown", out.JSONSchema.Name)
	assert.True(t, out.JSONSchema.Strict)

	root := out.JSONSchema.Schema
	require.NotNil(t, root)
	assert.Equal(t, []string{"tasks"}, root.Required)

	items := root.Properties["tasks"].Items
	require.NotNil(t, items)
	assert.ElementsMatch(t, []string{"title", "estimatedHours"}, items.Required)
}

func TestRoleMapping(t *testing.T) {
	assert.NotEqual(t, roleFor(RoleSystem), roleFor(RoleUser))
	assert.NotEqual(t, roleFor(RoleAssistant), roleFor(RoleUser))
	// Unknown roles fall back to user.
	assert.Equal(t, roleFor("other"), roleFor(RoleUser))
}
