// Package internal documents the parkfinder server internals.
//
// The internal tree is organized by responsibility:
// - bands, geo, suggest: pure result normalization, distance and ranking logic
// - parking, geocoding, signup, email: services and their upstream clients
// - api: HTTP handlers, middleware, problem responses, and routing
// - mcp: tools, resources and prompts for MCP clients
// - storage, jobs: Postgres and Redis stores, River cleanup jobs
// - config, metrics, telemetry, upstream, supersede, sanitize, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
