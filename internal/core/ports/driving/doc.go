// Package driving provides interfaces for use-case entry points
// (primary/inbound ports). The CLI and MCP surfaces depend on these
// interfaces; core services implement them.
package driving
