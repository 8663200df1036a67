package benchmark

import (
	"fmt"
	"strings"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
)

// Unspecified stands in for a null cohort attribute.
const Unspecified = "UNSPECIFIED"

// AgeBand is a two-year age window [Min, Max].
type AgeBand struct {
	Min int
	Max int
}

// BandFor returns the band containing age; nil age has no band.
func BandFor(age *int) *AgeBand {
	if age == nil {
		return nil
	}
	lo := (*age / 2) * 2
	if *age < 0 && *age%2 != 0 {
		lo -= 2
	}
	return &AgeBand{Min: lo, Max: lo + 1}
}

func (b *AgeBand) String() string {
	if b == nil {
		return Unspecified
	}
	return fmt.Sprintf("%d-%d", b.Min, b.Max)
}

// CohortQuery selects the comparison population of a submission. Nil
// attributes match athletes whose attribute is also null.
type CohortQuery struct {
	DrillType        string
	AgeBand          *AgeBand
	Position         *string
	CompetitionLevel *string
	Gender           *string
}

// QueryFor builds the cohort query for a drill type and athlete. Empty
// attributes are treated as null.
func QueryFor(drillType string, a *model.Athlete) CohortQuery {
	return CohortQuery{
		DrillType:        drillType,
		AgeBand:          BandFor(a.Age),
		Position:         nonEmpty(a.Position),
		CompetitionLevel: nonEmpty(a.CompetitionLevel),
		Gender:           nonEmpty(a.Gender),
	}
}

// Key renders the cohort key drill|band|position|level|gender.
func (q CohortQuery) Key() string {
	return strings.Join([]string{
		q.DrillType,
		q.AgeBand.String(),
		orUnspecified(q.Position),
		orUnspecified(q.CompetitionLevel),
		orUnspecified(q.Gender),
	}, "|")
}

// CohortKey is a shorthand for QueryFor(drillType, a).Key().
func CohortKey(drillType string, a *model.Athlete) string {
	return QueryFor(drillType, a).Key()
}

func orUnspecified(s *string) string {
	if s == nil || *s == "" {
		return Unspecified
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
