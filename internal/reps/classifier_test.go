package reps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/outrage-civic/outrage-api/internal/model"
	"github.com/outrage-civic/outrage-api/pkg/cicero"
)

func official(mutate func(*cicero.Official)) cicero.Official {
	o := cicero.Official{
		FirstName: "Jane",
		LastName:  "Doe",
	}
	mutate(&o)
	return o
}

func TestClassifyLevelPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		o     cicero.Official
		level model.Level
	}{
		{
			"national district type",
			official(func(o *cicero.Official) { o.Office.District.DistrictType = "NATIONAL_UPPER" }),
			model.LevelCountry,
		},
		{
			"national chamber",
			official(func(o *cicero.Official) { o.Office.Chamber.NameFormal = "United States Senate" }),
			model.LevelCountry,
		},
		{
			"president title",
			official(func(o *cicero.Official) { o.Office.Title = "Vice President" }),
			model.LevelCountry,
		},
		{
			"national beats representing_city",
			official(func(o *cicero.Official) {
				o.Office.District.DistrictType = "NATIONAL_LOWER"
				o.Office.RepresentingCity = "Austin"
			}),
			model.LevelCountry,
		},
		{
			"state district type",
			official(func(o *cicero.Official) { o.Office.District.DistrictType = "STATE_LOWER" }),
			model.LevelState,
		},
		{
			"state inferred from representing fields",
			official(func(o *cicero.Official) { o.Office.RepresentingState = "TX" }),
			model.LevelState,
		},
		{
			"city present means local",
			official(func(o *cicero.Official) {
				o.Office.RepresentingCity = "Austin"
				o.Office.RepresentingState = "TX"
			}),
			model.LevelLocal,
		},
		{
			"local district type",
			official(func(o *cicero.Official) { o.Office.District.DistrictType = "LOCAL_EXEC" }),
			model.LevelLocal,
		},
		{
			"bare record defaults to local",
			official(func(o *cicero.Official) {}),
			model.LevelLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.level, Classify(tt.o))
		})
	}
}

func TestOfficeTitleGenericRewrite(t *testing.T) {
	senator := official(func(o *cicero.Official) {
		o.Office.Title = "Senator"
		o.Office.District.DistrictType = "NATIONAL_UPPER"
		o.Office.RepresentingState = "TX"
	})
	assert.Equal(t, "U.S. Senator of TX", OfficeTitle(senator, Classify(senator)))

	stateRep := official(func(o *cicero.Official) {
		o.Office.Title = "Representative"
		o.Office.District.DistrictType = "STATE_LOWER"
		o.Office.RepresentingState = "TX"
	})
	assert.Equal(t, "State Representative of TX", OfficeTitle(stateRep, Classify(stateRep)))

	assembly := official(func(o *cicero.Official) {
		o.Office.Title = "Assembly Member"
		o.Office.District.DistrictType = "STATE_LOWER"
	})
	assert.Equal(t, "State Assembly Member", OfficeTitle(assembly, Classify(assembly)))
}

func TestOfficeTitleCitySuffix(t *testing.T) {
	council := official(func(o *cicero.Official) {
		o.Office.Title = "Council Member"
		o.Office.RepresentingCity = "Austin"
		o.Office.RepresentingState = "TX"
	})
	assert.Equal(t, "Council Member of Austin, TX", OfficeTitle(council, Classify(council)))
}

func TestOfficeTitleShoutedProviderTitle(t *testing.T) {
	mayor := official(func(o *cicero.Official) {
		o.Office.Title = "MAYOR"
		o.Office.RepresentingCity = "Houston"
	})
	assert.Equal(t, "Mayor of Houston", OfficeTitle(mayor, Classify(mayor)))
}

func TestOfficeTitleNonGenericUntouched(t *testing.T) {
	gov := official(func(o *cicero.Official) {
		o.Office.Title = "Governor"
		o.Office.District.DistrictType = "STATE_EXEC"
	})
	assert.Equal(t, "Governor", OfficeTitle(gov, Classify(gov)))
}
