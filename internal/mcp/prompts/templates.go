// Package prompts holds MCP prompt templates for common parking questions.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const findParkingNearPrompt = "find_parking_near"

type PromptTemplates struct{}

func NewPromptTemplates() *PromptTemplates {
	return &PromptTemplates{}
}

func (p *PromptTemplates) FindParkingNearPrompt() mcp.Prompt {
	return mcp.NewPrompt(
		findParkingNearPrompt,
		mcp.WithPromptDescription("Find free on-street parking close to a destination in Melbourne"),
		mcp.WithArgument("destination", mcp.ArgumentDescription("Where the driver is going"), mcp.RequiredArgument()),
		mcp.WithArgument("max_walk_meters", mcp.ArgumentDescription("Longest acceptable walk (default 500)")),
	)
}

func (p *PromptTemplates) FindParkingNearHandler(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	destination := getArgString(args, "destination")
	if destination == "" {
		return nil, fmt.Errorf("destination argument is required")
	}
	maxWalk := getArgString(args, "max_walk_meters")
	if maxWalk == "" {
		maxWalk = "500"
	}

	text := fmt.Sprintf("I am driving to %s. Use suggest_locations to pin down the destination, then find_parking "+
		"with its coordinates. List unoccupied bays within %s m, nearest first, with the street, the time limit "+
		"and the walking distance. If none are free, say so and name the closest band that has bays.", destination, maxWalk)

	return &mcp.GetPromptResult{
		Description: "Find parking near a destination",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}

func getArgString(args map[string]string, key string) string {
	if args == nil {
		return ""
	}
	return strings.TrimSpace(args[key])
}
