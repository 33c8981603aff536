package seed

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/pkg/logger"
)

// Categorical answers accepted by the scoring tables.
var (
	weightLevels   = []string{"light", "moderate", "heavy", "crushing"}
	affectedAreas  = []string{"nothing", "focus", "mood", "relationships", "sleep", "everything"}
	goalsMet       = []string{"fully", "mostly", "partially", "not_at_all"}
	collaboration  = []string{"excellent", "good", "fair", "poor"}
	handoffs       = []string{"seamless", "minor_issues", "major_issues"}
	resolutions    = []string{"fully", "partially", "unresolved"}
	sleepQuality   = []string{"excellent", "good", "fair", "poor"}
	difficulties   = []string{"easy", "moderate", "challenging", "overwhelming"}
	impacts        = []string{"minimal", "moderate", "significant", "severe"}
	assignments    = []string{"medical", "legal", "educational", "community", "conference"}
	reasons        = []string{"none", "choice", "policy", "pressure"}
	coreValues     = []string{"accuracy", "impartiality", "confidentiality", "respect", "advocacy"}
	emotionalNotes = []string{
		"Feeling calm and rested after a light week.",
		"Exhausted and drained, running on empty.",
		"Anxious before the deposition but grateful for the team.",
		"Proud of how I handled the terminology, feeling confident.",
		"Overwhelmed by back to back sessions, need a break.",
		"",
	}
)

type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *generator) pick(options []string) string {
	return options[g.rng.IntN(len(options))]
}

func (g *generator) pickSome(options []string) []string {
	var out []string
	for _, o := range options {
		if g.rng.IntN(2) == 0 {
			out = append(out, o)
		}
	}
	return out
}

// scale returns a value in [1,10].
func (g *generator) scale() int {
	return 1 + g.rng.IntN(10)
}

func (g *generator) fields(kind model.Kind) map[string]any {
	switch kind {
	case model.KindCompassCheck:
		return map[string]any{
			"weightLevel":        g.pick(weightLevels),
			"affecting":          g.pick(affectedAreas),
			"valuesInConflict":   g.pickSome(coreValues),
			"selfCompassionNote": g.pick(emotionalNotes),
			"nextStep":           "Talk it through with a colleague.",
			"needsSupport":       g.rng.IntN(4) == 0,
		}
	case model.KindMentoringReflection:
		before := g.scale()
		return map[string]any{
			"goalsMet":         g.pick(goalsMet),
			"keyInsights":      "Slow down on numbers and dates.",
			"feedbackReceived": g.rng.IntN(2) == 0,
			"confidenceBefore": before,
			"confidenceAfter":  min(10, before+g.rng.IntN(3)),
		}
	case model.KindTeamingReflection:
		conflict := g.rng.IntN(3) == 0
		f := map[string]any{
			"teamSize":             2 + g.rng.IntN(3),
			"collaborationQuality": g.pick(collaboration),
			"communicationRating":  g.scale(),
			"handoffSmoothness":    g.pick(handoffs),
			"conflictsArose":       conflict,
		}
		if conflict {
			f["conflictDescription"] = "Disagreed on turn length."
			f["conflictResolved"] = g.pick(resolutions)
		}
		return f
	case model.KindWellnessCheckIn:
		return map[string]any{
			"stressLevel":        g.scale(),
			"energyLevel":        g.scale(),
			"sleepQuality":       g.pick(sleepQuality),
			"selfCareActivities": g.pickSome([]string{"walk", "meditation", "reading", "exercise"}),
			"notes":              g.pick(emotionalNotes),
		}
	case model.KindPostAssignmentDebrief:
		return map[string]any{
			"assignmentType":     g.pick(assignments),
			"difficulty":         g.pick(difficulties),
			"performanceRating":  g.scale(),
			"emotionalImpact":    g.pick(impacts),
			"stressLevel":        g.scale(),
			"contentDistressing": g.rng.IntN(3) == 0,
			"challenges":         g.pick(emotionalNotes),
		}
	case model.KindValuesAlignment:
		values := g.pickSome(coreValues)
		return map[string]any{
			"coreValues":       values,
			"valuesHonored":    values,
			"alignmentRating":  g.scale(),
			"compromiseReason": g.pick(reasons),
			"reflection":       g.pick(emotionalNotes),
		}
	default:
		return map[string]any{}
	}
}

// generateSubmissions creates PerUser submissions for each of Users
// synthetic users. A DuplicateRate share is repeated with the same
// Idempotency-Key right after the original.
func generateSubmissions(ctx context.Context, config *Config, stats *Stats) ([]Submission, error) {
	if config.Users <= 0 || config.PerUser <= 0 {
		return nil, fmt.Errorf("users and per-user counts must be positive")
	}
	logger.Get().Info(ctx, "generating submissions",
		logger.Int("users", config.Users), logger.Int("perUser", config.PerUser))

	g := newGenerator(config.Seed)
	subs := make([]Submission, 0, config.Users*config.PerUser)
	for u := 0; u < config.Users; u++ {
		userID := uuid.NewString()
		for i := 0; i < config.PerUser; i++ {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled during generation: %w", err)
			}
			kind := model.KnownKinds[g.rng.IntN(len(model.KnownKinds))]
			sub := Submission{
				UserID:         userID,
				Kind:           string(kind),
				Fields:         g.fields(kind),
				IdempotencyKey: uuid.NewString(),
			}
			subs = append(subs, sub)
			if g.rng.Float64() < config.DuplicateRate {
				dup := sub
				dup.Resend = true
				subs = append(subs, dup)
			}
		}
	}

	stats.Generated = len(subs)
	logger.Get().Info(ctx, "generated submissions", logger.Int("count", len(subs)))
	return subs, nil
}
