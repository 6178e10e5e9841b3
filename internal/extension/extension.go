// Package extension defines the message envelope exchanged with the browser
// extension and tracks in-flight form-filling sessions per browser tab.
package extension

import (
	"encoding/json"
	"sync"
	"time"
)

// Actions recognized in the extension message envelope.
const (
	ActionPing              = "ping"
	ActionStartFormFilling  = "startFormFilling"
	ActionOpenFormFillPage  = "openFormFillPage"
	ActionGetFormData       = "getFormData"
	ActionFormFilled        = "formFilled"
	ActionUpdateFormStatus  = "updateFormStatus"
	ActionAnalyzeForm       = "analyzeForm"
	ActionGetActiveSessions = "getActiveSessions"
	ActionStoreFormSession  = "storeFormSession"
)

// Message is the envelope for all extension traffic. Data is left raw so
// each action can decode its own payload shape.
type Message struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// FormStatus tracks one webform submission attempt.
type FormStatus string

const (
	FormPending   FormStatus = "pending"
	FormFilling   FormStatus = "filling"
	FormSubmitted FormStatus = "submitted"
	FormFailed    FormStatus = "failed"
)

// FormSession is the state for one webform being filled in one browser tab.
type FormSession struct {
	TabID     int               `json:"tabId"`
	PageURL   string            `json:"pageUrl"`
	UserData  map[string]string `json:"userData,omitempty"`
	Status    FormStatus        `json:"status"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// SessionRegistry keeps form sessions keyed by tab ID. Tabs are closed and
// reused by the browser, so storing under an existing tab ID replaces the
// previous session.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[int]*FormSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: map[int]*FormSession{}}
}

// Store registers or replaces the session for a tab.
func (r *SessionRegistry) Store(s FormSession) {
	s.UpdatedAt = time.Now().UTC()
	r.mu.Lock()
	r.sessions[s.TabID] = &s
	r.mu.Unlock()
}

// Get returns the session for a tab, if any.
func (r *SessionRegistry) Get(tabID int) (*FormSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[tabID]
	if !ok {
		return nil, false
	}
	copied := *s
	return &copied, true
}

// SetStatus updates the status for a tab's session. Unknown tabs are
// ignored; the extension can report status for tabs the server never saw.
func (r *SessionRegistry) SetStatus(tabID int, status FormStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[tabID]; ok {
		s.Status = status
		s.UpdatedAt = time.Now().UTC()
	}
}

// DropTab removes the session for a closed tab.
func (r *SessionRegistry) DropTab(tabID int) {
	r.mu.Lock()
	delete(r.sessions, tabID)
	r.mu.Unlock()
}

// Active returns all sessions not yet submitted or failed.
func (r *SessionRegistry) Active() []FormSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []FormSession
	for _, s := range r.sessions {
		if s.Status == FormPending || s.Status == FormFilling {
			out = append(out, *s)
		}
	}
	return out
}
