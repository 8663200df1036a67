package loadtest

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
)

// randomFloatDivisor sets the resolution of randomFloat.
const randomFloatDivisor = 1000000

// Sprint time bands in seconds for a 20m sprint. Lower is faster.
const (
	eliteSprintMin    = 2.8
	eliteSprintRange  = 0.3
	fastSprintMin     = 3.1
	fastSprintRange   = 0.4
	avgSprintMin      = 3.5
	avgSprintRange    = 0.6
	slowSprintMin     = 4.1
	slowSprintRange   = 0.7
	wideSprintMin     = 2.8
	wideSprintRange   = 2.2
	performerVariants = 6
)

// Performer bands.
const (
	caseAveragePerformer = iota
	caseAveragePerformer2
	caseFastPerformer
	caseElitePerformer
	caseSlowPerformer
	caseWideRange
)

var (
	positions = []string{"GK", "DEF", "MID", "FWD", "UTIL"}
	levels    = []string{"recreational", "academy", "elite", "school"}
)

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// randomFloat returns a value in [0, 1).
func randomFloat() float64 {
	return float64(randomInt(randomFloatDivisor)) / randomFloatDivisor
}

// generateAthletes creates n profiles. Ages span 12 to 21 so both the consent
// path and the adult path are exercised; positions and levels are drawn from
// small sets so cohorts fill up.
func generateAthletes(n int) []AthleteProfile {
	out := make([]AthleteProfile, n)
	for i := range out {
		out[i] = AthleteProfile{
			Name:             fmt.Sprintf("Load Athlete %04d", i+1),
			Age:              12 + randomInt(10),
			Position:         positions[randomInt(len(positions))],
			CompetitionLevel: levels[randomInt(2)],
		}
	}
	return out
}

// generateUpload creates one sprint video whose frame markers encode a sprint
// time drawn from a varied distribution.
func generateUpload(athleteID string) Upload {
	sprint := generateSprintTime()
	finish := int(math.Round(sprint * SprintFrameRate))
	return Upload{
		AthleteID:  athleteID,
		SprintTime: math.Round(float64(finish)/SprintFrameRate*1000) / 1000,
		FrameRate:  SprintFrameRate,
		Finish:     finish,
		Size:       syntheticVideoBytes + randomInt(syntheticVideoBytes),
	}
}

// generateSprintTime draws from weighted performer bands; average athletes are
// the most common.
func generateSprintTime() float64 {
	switch randomInt(performerVariants) {
	case caseAveragePerformer, caseAveragePerformer2:
		return avgSprintMin + randomFloat()*avgSprintRange
	case caseFastPerformer:
		return fastSprintMin + randomFloat()*fastSprintRange
	case caseElitePerformer:
		return eliteSprintMin + randomFloat()*eliteSprintRange
	case caseSlowPerformer:
		return slowSprintMin + randomFloat()*slowSprintRange
	default:
		return wideSprintMin + randomFloat()*wideSprintRange
	}
}

// syntheticVideo returns size bytes of random content.
func syntheticVideo(size int) []byte {
	body := make([]byte, size)
	if _, err := rand.Read(body); err != nil {
		for i := range body {
			body[i] = byte(i)
		}
	}
	return body
}
