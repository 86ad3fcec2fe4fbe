// Package core is the orchestration layer.  It composes transports
// and capabilities into complete operational modes and provides
// builders that assemble a mode from a Config.
//
// Architecture layers (bottom → top):
//
//	wire/transport  →  protocol  →  session  →  capability  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of wxcipher (serve or
// connect).  Each mode owns its full lifecycle from connection
// establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}

var (
	_ Mode = (*ListenMode)(nil)
	_ Mode = (*ConnectMode)(nil)
)
