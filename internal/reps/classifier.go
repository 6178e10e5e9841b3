package reps

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/outrage-civic/outrage-api/internal/model"
	"github.com/outrage-civic/outrage-api/pkg/cicero"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// Classify assigns a jurisdiction level to one provider official record.
// It is total: every input produces a level, defaulting to local.
//
// Precedence: explicit national markers win over state markers, which win
// over local markers.
func Classify(o cicero.Official) model.Level {
	districtType := strings.ToUpper(o.Office.District.DistrictType)
	chamber := strings.ToUpper(o.Office.Chamber.NameFormal)
	title := strings.ToLower(o.Office.Title)

	switch {
	case strings.HasPrefix(districtType, "NATIONAL"),
		strings.Contains(chamber, "UNITED STATES"),
		strings.Contains(title, "president"):
		return model.LevelCountry
	case strings.HasPrefix(districtType, "STATE"),
		o.Office.RepresentingState != "" && o.Office.RepresentingCity == "":
		return model.LevelState
	case strings.HasPrefix(districtType, "LOCAL"),
		o.Office.RepresentingCity != "":
		return model.LevelLocal
	default:
		return model.LevelLocal
	}
}

// OfficeTitle builds the displayable office title for an official at the
// given level. Generic legislative titles get a "U.S."/"State" prefix so
// a federal senator and a state senator are distinguishable, and the
// represented city/state is appended when the provider supplies one
// ("State Representative of Austin, TX").
func OfficeTitle(o cicero.Official, level model.Level) string {
	title := strings.TrimSpace(o.Office.Title)
	if title == "" {
		title = o.Office.Chamber.NameFormal
	}
	// Some provider records carry shouted titles ("COUNCIL MEMBER").
	if title != "" && title == strings.ToUpper(title) {
		title = titleCaser.String(strings.ToLower(title))
	}

	switch title {
	case "Senator", "Representative", "Assembly Member":
		switch level {
		case model.LevelCountry:
			title = "U.S. " + title
		case model.LevelState:
			title = "State " + title
		}
	}

	city := strings.TrimSpace(o.Office.RepresentingCity)
	state := strings.TrimSpace(o.Office.RepresentingState)
	switch {
	case city != "" && state != "":
		title += " of " + city + ", " + state
	case city != "":
		title += " of " + city
	case state != "":
		title += " of " + state
	}

	return title
}
