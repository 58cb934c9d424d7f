// Package tools defines the tools served by the MCP demo server.
// A tool has a name, a description and an input schema built from its typed request,
// and is called with a JSON object of arguments.
package tools
