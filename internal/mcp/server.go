// Package mcp exposes parking search to MCP clients such as coding agents and
// desktop assistants.
package mcp

import (
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/placxborcx/Onboarding-MainPage/internal/mcp/prompts"
	"github.com/placxborcx/Onboarding-MainPage/internal/mcp/resources"
	"github.com/placxborcx/Onboarding-MainPage/internal/mcp/tools"
)

// Server wraps the MCP server with parkfinder's services.
type Server struct {
	mcp       *mcpserver.MCPServer
	parking   *tools.ParkingTools
	geocoding *tools.GeocodingTools
}

// Config holds configuration for the MCP server.
type Config struct {
	Name    string
	Version string
}

// Services are the domain services the tools call. Either may be nil, in
// which case its tools report that they are not configured.
type Services struct {
	Parking  tools.BandsFinder
	Geocoder tools.Geocoder
}

// NewServer creates the MCP server and registers every tool, resource and
// prompt.
func NewServer(cfg Config, svc Services) *Server {
	mcpServer := mcpserver.NewMCPServer(
		cfg.Name,
		cfg.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions("Find on-street parking in the City of Melbourne. "+
			"Use suggest_locations to resolve a place, then find_parking for bays grouped by walking distance."),
	)

	srv := &Server{
		mcp:       mcpServer,
		parking:   tools.NewParkingTools(svc.Parking),
		geocoding: tools.NewGeocodingTools(svc.Geocoder),
	}
	srv.registerTools()
	srv.registerResources()
	srv.registerPrompts()
	return srv
}

// MCPServer returns the underlying MCP server for use with transports.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(s.parking.FindParkingTool(), s.parking.FindParkingHandler)
	s.mcp.AddTool(s.parking.NormalizeResultsTool(), s.parking.NormalizeResultsHandler)
	s.mcp.AddTool(s.geocoding.SuggestLocationsTool(), s.geocoding.SuggestLocationsHandler)
	s.mcp.AddTool(s.geocoding.GeocodeAddressTool(), s.geocoding.GeocodeAddressHandler)
	s.mcp.AddTool(s.geocoding.ReverseGeocodeTool(), s.geocoding.ReverseGeocodeHandler)
}

func (s *Server) registerResources() {
	bandResources := resources.NewBandResources()
	s.mcp.AddResource(bandResources.Resource(), bandResources.ReadHandler)
}

func (s *Server) registerPrompts() {
	templates := prompts.NewPromptTemplates()
	s.mcp.AddPrompt(templates.FindParkingNearPrompt(), templates.FindParkingNearHandler)
}
