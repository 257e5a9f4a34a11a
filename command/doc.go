// Package command exposes go-command compatible handlers for the review
// assignment engine (assignment requests, responses, profile administration
// and backlog re-evaluation). Commands are wired by the service layer and can
// be invoked by any transport.
package command
