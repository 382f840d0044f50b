package rules

import (
	"strings"

	"github.com/skillbridge/backend/internal/domain/enums"
)

// Weights splits the mentor match score between its four components.
// Values are fractions of 1; the default split is 40/30/20/10.
type Weights struct {
	Skill      float64
	Focus      float64
	Experience float64
	Rating     float64
}

func DefaultWeights() Weights {
	return Weights{
		Skill:      0.40,
		Focus:      0.30,
		Experience: 0.20,
		Rating:     0.10,
	}
}

const (
	exactMatchValue     = 1.0
	substringMatchValue = 0.5

	maxRating = 5.0
)

// SkillMatch scores mentee skills against mentor expertise areas on a
// 0..100 scale. Each mentee skill contributes its best match among the
// expertise areas: 1 for an exact case-insensitive match, 0.5 for a
// substring containment either way.
func SkillMatch(menteeSkills, mentorExpertise []string) float64 {
	if len(menteeSkills) == 0 || len(mentorExpertise) == 0 {
		return 0
	}

	total := 0.0
	for _, skill := range menteeSkills {
		total += bestMatch(skill, mentorExpertise)
	}

	score := total / float64(len(menteeSkills)) * 100
	if score > 100 {
		score = 100
	}
	return score
}

// FocusMatch applies the skill-match algorithm to focus areas.
func FocusMatch(focusAreas, mentorExpertise []string) float64 {
	return SkillMatch(focusAreas, mentorExpertise)
}

// ExperienceMatch scores a mentor's years of experience against the
// mentee's level band (beginner 0-2, intermediate 2-5, advanced 5+).
// The ideal mentor sits two years past the band maximum.
func ExperienceMatch(mentorYears int, level enums.ExperienceLevel) float64 {
	var bandMin, bandMax int
	switch level {
	case enums.ExperienceBeginner:
		bandMin, bandMax = 0, 2
	case enums.ExperienceIntermediate:
		bandMin, bandMax = 2, 5
	case enums.ExperienceAdvanced:
		bandMin, bandMax = 5, 8
	default:
		return 50
	}

	switch {
	case mentorYears >= bandMax+2:
		return 100
	case mentorYears >= bandMax:
		return 80
	case mentorYears >= bandMin:
		return 60
	default:
		return 20
	}
}

// RatingBonus maps a 0..5 mentor rating onto a 0..100 scale.
func RatingBonus(rating float64) float64 {
	if rating < 0 {
		rating = 0
	}
	if rating > maxRating {
		rating = maxRating
	}
	return rating / maxRating * 100
}

// MatchScore combines the weighted components into a 0..100 score.
func MatchScore(skillScore, focusScore, experienceScore, ratingScore float64, w Weights) float64 {
	score := skillScore*w.Skill + focusScore*w.Focus + experienceScore*w.Experience + ratingScore*w.Rating
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func bestMatch(skill string, expertise []string) float64 {
	needle := normalizeSkill(skill)
	if needle == "" {
		return 0
	}

	best := 0.0
	for _, area := range expertise {
		candidate := normalizeSkill(area)
		if candidate == "" {
			continue
		}
		if candidate == needle {
			return exactMatchValue
		}
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			best = substringMatchValue
		}
	}
	return best
}

func normalizeSkill(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
