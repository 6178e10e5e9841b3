// Package model defines the core types shared across the outreach workflow.
package model

import "time"

// Level is the jurisdiction level of an elected official.
type Level string

const (
	LevelCountry Level = "country"
	LevelState   Level = "state"
	LevelLocal   Level = "local"
)

// ContactType identifies a contact channel.
type ContactType string

const (
	ContactEmail   ContactType = "email"
	ContactWebform ContactType = "webform"
)

// Contact is a single channel for reaching a representative.
type Contact struct {
	Type        ContactType `json:"type"`
	Value       string      `json:"value"`
	Description string      `json:"description,omitempty"`
}

// Representative is an elected official returned by an address lookup,
// annotated with jurisdiction level and contact channels. Instances are
// never mutated after a lookup completes, only filtered and selected.
type Representative struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Office   string    `json:"office"`
	Party    string    `json:"party,omitempty"`
	PhotoURL string    `json:"photoUrl,omitempty"`
	Level    Level     `json:"level"`
	Contacts []Contact `json:"contacts"`
}

// Reachable reports whether the representative has at least one contact
// channel. Unreachable representatives stay visible in pick lists but are
// excluded from AI selection candidates.
func (r Representative) Reachable() bool {
	return len(r.Contacts) > 0
}

// PersonalInfo is the optional sender identity attached to drafts.
type PersonalInfo struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Empty reports whether no personal info fields are set.
func (p PersonalInfo) Empty() bool {
	return p.Name == "" && p.Email == "" && p.Address == "" && p.Phone == ""
}

// DraftStatus tracks the lifecycle of one generated draft.
type DraftStatus string

const (
	DraftLoading  DraftStatus = "loading"
	DraftComplete DraftStatus = "complete"
	DraftError    DraftStatus = "error"
)

// Draft is a generated subject/body message addressed to one representative.
type Draft struct {
	Subject string      `json:"subject"`
	Content string      `json:"content"`
	Status  DraftStatus `json:"status"`
	Error   string      `json:"error,omitempty"`
}

// Campaign is a persisted, shareable, pre-seeded demand bundle other users
// can join. Counters are incremented through dedicated endpoints and are
// independent of the draft workflow.
type Campaign struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	Demands           []string  `json:"demands,omitempty"`
	RepresentativeIDs []string  `json:"representativeIds,omitempty"`
	City              string    `json:"city,omitempty"`
	State             string    `json:"state,omitempty"`
	MessageSentCount  int       `json:"message_sent_count"`
	ViewCount         int       `json:"view_count"`
	CreatedAt         time.Time `json:"created_at"`
}
