// Package mcp provides an MCP (Model Context Protocol) server adapter for sanad.
// It lets chat front ends ask evidence-grounded questions and retrieve
// evidence over stdio or HTTP.
package mcp

import "errors"

// ErrMissingAskService is returned when the ask service is not provided.
var ErrMissingAskService = errors.New("mcp: ask service is required")
