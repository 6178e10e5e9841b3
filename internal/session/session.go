// Package session models the draft-session blob and the routing rules
// derived from it. The blob is the sole source of truth for which page a
// returning user lands on, so everything here is pure and idempotent.
package session

import (
	"strings"

	"github.com/outrage-civic/outrage-api/internal/model"
)

// SchemaVersion is bumped on any shape change to the blob so stale client
// copies can be detected instead of silently misread.
const SchemaVersion = 1

// PickMode selects which representative set is active.
type PickMode string

const (
	PickModeAI     PickMode = "ai"
	PickModeManual PickMode = "manual"
)

// Blob is the serialized draft-session state a client carries between
// pages. It aggregates demands, personal info, the looked-up
// representatives, and the selection sets.
type Blob struct {
	SchemaVersion int    `json:"schemaVersion"`
	Address       string `json:"address,omitempty"`

	Demands []string `json:"demands,omitempty"`

	PersonalInfo model.PersonalInfo `json:"personalInfo"`
	// PersonalInfoDone is an explicit step-completion flag, deliberately
	// distinct from "any personal info text entered": the step must be
	// passed through even when left blank.
	PersonalInfoDone bool `json:"personalInfoDone"`

	Representatives []model.Representative `json:"representatives,omitempty"`

	PickMode PickMode `json:"pickMode,omitempty"`
	// ManualIDs is the user's direct selection; AIIDs is the model's
	// original pick; RefinedIDs is the user's narrowing of the AI pick.
	ManualIDs  []string `json:"manualIds,omitempty"`
	AIIDs      []string `json:"aiIds,omitempty"`
	RefinedIDs []string `json:"refinedIds,omitempty"`

	ActiveCampaignID string `json:"activeCampaignId,omitempty"`
}

// New returns an empty blob at the current schema version.
func New() Blob {
	return Blob{SchemaVersion: SchemaVersion}
}

// ActiveSelection returns the representative IDs of the selection set the
// pick mode makes active. In AI mode a user refinement shadows the model's
// original pick.
func (b Blob) ActiveSelection() []string {
	if b.PickMode == PickModeManual {
		return b.ManualIDs
	}
	if len(b.RefinedIDs) > 0 {
		return b.RefinedIDs
	}
	return b.AIIDs
}

// Progress is the computed step-completion state. It is derived from the
// blob on every read, never stored.
type Progress struct {
	Demands         bool `json:"demands"`
	Representatives bool `json:"representatives"`
	PersonalInfo    bool `json:"personalInfo"`
}

// ComputeProgress derives completion flags from a blob: demands complete
// iff at least one non-blank demand exists, representatives complete iff
// the active selection is non-empty, personal info complete iff the
// explicit flag is set.
func ComputeProgress(b Blob) Progress {
	var p Progress

	for _, d := range b.Demands {
		if strings.TrimSpace(d) != "" {
			p.Demands = true
			break
		}
	}

	p.Representatives = len(b.ActiveSelection()) > 0
	p.PersonalInfo = b.PersonalInfoDone

	return p
}

// Page routes for the workflow steps.
const (
	PageDemands      = "/demands"
	PagePickReps     = "/pick-representatives"
	PagePersonalInfo = "/personal-info"
	PagePreview      = "/preview"
)

// NextPage returns the page a user with the given progress should land on.
// Strict priority chain; pure and idempotent.
func NextPage(p Progress) string {
	switch {
	case p.PersonalInfo:
		return PagePreview
	case p.Representatives:
		return PagePersonalInfo
	case p.Demands:
		return PagePickReps
	default:
		return PageDemands
	}
}
