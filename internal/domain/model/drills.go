package model

// Drill slugs of the built-in catalog.
const (
	DrillSprint20m        = "sprint-20m"
	DrillAgility5105      = "agility-5-10-5"
	DrillShootingAccuracy = "shooting-accuracy"
	DrillConeDribble      = "cone-dribble"
	DrillShuttleEndurance = "shuttle-endurance"
)

// Positions accepted on athlete profiles.
var Positions = []string{"GK", "DEF", "MID", "FWD", "UTIL"}

// CompetitionLevels accepted on athlete profiles.
var CompetitionLevels = []string{"recreational", "academy", "elite", "school"}

// AllowedVideoMimeTypes lists upload content types the intake accepts.
var AllowedVideoMimeTypes = []string{"video/mp4", "video/quicktime", "video/webm", "video/x-matroska"}

// DrillCatalog returns the built-in drill definitions.
func DrillCatalog() []DrillDefinition {
	return []DrillDefinition{
		{
			Slug: DrillSprint20m, Name: "20m Sprint", Sport: "football",
			Description:      "Straight-line 20 metre sprint from a standing start.",
			Guidelines:       "Film side-on with start and finish cones in frame.",
			MetricPrimaryKey: MetricSprintTime, LowerIsBetter: true, IsActive: true,
		},
		{
			Slug: DrillAgility5105, Name: "5-10-5 Agility", Sport: "football",
			Description:      "Pro-agility shuttle with two changes of direction.",
			Guidelines:       "Keep all three lines visible for the full run.",
			MetricPrimaryKey: MetricChangeOfDirectionMeasurement, LowerIsBetter: true, IsActive: true,
		},
		{
			Slug: DrillShootingAccuracy, Name: "Shooting Accuracy", Sport: "football",
			Description:      "Ten shots at target zones from the edge of the box.",
			Guidelines:       "Film from behind the shooter with the goal in frame.",
			MetricPrimaryKey: MetricShotTiming, LowerIsBetter: true, IsActive: true,
		},
		{
			Slug: DrillConeDribble, Name: "Cone Dribble", Sport: "football",
			Description:      "Slalom dribble through eight cones and back.",
			Guidelines:       "Film from an elevated angle covering every cone.",
			MetricPrimaryKey: MetricConsistencyScore, LowerIsBetter: false, IsActive: true,
		},
		{
			Slug: DrillShuttleEndurance, Name: "Shuttle Endurance", Sport: "football",
			Description:      "Repeated 20 metre shuttles until exhaustion.",
			Guidelines:       "Film the whole course and call out each repetition.",
			MetricPrimaryKey: MetricRepetitionCount, LowerIsBetter: false, IsActive: true,
		},
	}
}
