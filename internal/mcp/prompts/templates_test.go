package prompts

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetArgString(t *testing.T) {
	assert.Equal(t, "", getArgString(nil, "any"))
	assert.Equal(t, "", getArgString(map[string]string{}, "missing"))
	assert.Equal(t, "value", getArgString(map[string]string{"key": " value "}, "key"))
}

func TestFindParkingNearPrompt(t *testing.T) {
	p := NewPromptTemplates()
	prompt := p.FindParkingNearPrompt()
	assert.Equal(t, findParkingNearPrompt, prompt.Name)
	require.Len(t, prompt.Arguments, 2)
	assert.True(t, prompt.Arguments[0].Required)
}

func TestFindParkingNearHandler(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]string
		wantErr  bool
		contains []string
	}{
		{name: "defaults", args: map[string]string{"destination": "Melbourne Museum"}, contains: []string{"Melbourne Museum", "within 500 m", "find_parking"}},
		{name: "custom walk", args: map[string]string{"destination": "MCG", "max_walk_meters": "200"}, contains: []string{"within 200 m"}},
		{name: "missing destination", args: map[string]string{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewPromptTemplates().FindParkingNearHandler(context.Background(), mcp.GetPromptRequest{
				Params: mcp.GetPromptParams{Name: findParkingNearPrompt, Arguments: tt.args},
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, result.Messages, 1)
			assert.Equal(t, mcp.RoleUser, result.Messages[0].Role)
			text, ok := mcp.AsTextContent(result.Messages[0].Content)
			require.True(t, ok)
			for _, s := range tt.contains {
				assert.Contains(t, text.Text, s)
			}
		})
	}
}
