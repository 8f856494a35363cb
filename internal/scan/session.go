package scan

import (
	"github.com/tmarcus/lookalike/internal/method"
)

// session is the ephemeral state of one scan: the candidate list in
// enumeration order and the signature cache. It is owned by the orchestrator
// goroutine for the call's lifetime and discarded afterwards; nothing
// survives across invocations.
type session struct {
	order []string
	cache map[string]method.Signature
}

func newSession(candidates []string) *session {
	return &session{
		order: candidates,
		cache: make(map[string]method.Signature, len(candidates)),
	}
}

// put records a signature. Entries are write-once: a second write for the
// same path is dropped.
func (s *session) put(path string, sig method.Signature) {
	if _, ok := s.cache[path]; ok {
		return
	}
	s.cache[path] = sig
}
