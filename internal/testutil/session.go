package testutil

// FixedSessionGenerator returns the same session id every time.
//
// Connections opened with it log and trace under one id, so scenario runs
// produce identical output.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id.
// If id is empty, Generate() returns "test-session".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session id.
//
// Implements engine.IDGenerator interface.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
