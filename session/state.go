package session

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PageState is the state shared by every module loaded into one top-level
// host page. Its lifetime is the page's lifetime; nothing tears it down.
type PageState struct {
	source    Source
	scripts   *Registry
	styles    *Registry
	claimed   map[string]struct{}
	sessionID string
	moduleSeq int
	pageID    uuid.UUID
	mu        sync.Mutex
}

// NewPageState creates the state for a new page. A nil src uses crypto/rand
// for the session identity.
func NewPageState(src Source) *PageState {
	if src == nil {
		src = NewSecureSource()
	}
	return &PageState{
		source:  src,
		scripts: newRegistry(ResourceScript),
		styles:  newRegistry(ResourceStyle),
		claimed: make(map[string]struct{}),
		pageID:  uuid.New(),
	}
}

// PageID identifies the page in logs.
func (s *PageState) PageID() uuid.UUID {
	return s.pageID
}

// SessionID returns the page's session identity, generating it on the first
// call. Later calls, from any module on the page, return the same value.
func (s *PageState) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID == "" {
		s.sessionID = GenerateID(s.source)
		Logger().Debug("session identity created",
			zap.String("page", s.pageID.String()))
	}
	return s.sessionID
}

// HasSessionID reports whether an identity was already generated.
func (s *PageState) HasSessionID() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID != ""
}

// Scripts returns the registry of injected scripts.
func (s *PageState) Scripts() *Registry {
	return s.scripts
}

// Styles returns the registry of injected stylesheets.
func (s *PageState) Styles() *Registry {
	return s.styles
}

// NextModuleID hands out sequential module ids starting at 1.
func (s *PageState) NextModuleID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moduleSeq++
	return s.moduleSeq
}

// Claim reports whether key is claimed for the first time on this page. It
// guards page-wide one-time setup shared by several modules.
func (s *PageState) Claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claimed[key]; ok {
		return false
	}
	s.claimed[key] = struct{}{}
	return true
}
