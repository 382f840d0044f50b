package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/skillbridge/backend/internal/domain/enums"
	"github.com/skillbridge/backend/internal/domain/rules"
	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

type MentorStore interface {
	ListActiveMentors(ctx context.Context) ([]pgrepo.MentorRecord, error)
}

type MentorshipStore interface {
	CountActiveForMentor(ctx context.Context, mentorID int64) (int, error)
}

type Service struct {
	mentors     MentorStore
	mentorships MentorshipStore
	weights     rules.Weights
	maxResults  int
}

type Dependencies struct {
	Mentors     MentorStore
	Mentorships MentorshipStore
	Weights     rules.Weights
	MaxResults  int
}

// Request is the mentee's matching profile.
type Request struct {
	Skills          []string
	FocusAreas      []string
	ExperienceLevel string
}

type Match struct {
	MentorID        int64
	DisplayName     string
	Score           float64
	SkillScore      float64
	FocusScore      float64
	ExperienceScore float64
	RatingScore     float64
	ExpertiseAreas  []string
	ExperienceYears int
	Rating          float64
	OpenSlots       int
}

func NewService(deps Dependencies) *Service {
	weights := deps.Weights
	if weights.Skill <= 0 && weights.Focus <= 0 && weights.Experience <= 0 && weights.Rating <= 0 {
		weights = rules.DefaultWeights()
	}
	maxResults := deps.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	return &Service{
		mentors:     deps.Mentors,
		mentorships: deps.Mentorships,
		weights:     weights,
		maxResults:  maxResults,
	}
}

// FindMatches scores every available mentor against the mentee profile
// and returns the best candidates, highest score first. Mentors with no
// open capacity never appear in the result.
func (s *Service) FindMatches(ctx context.Context, req Request) ([]Match, error) {
	if s.mentors == nil || s.mentorships == nil {
		return nil, fmt.Errorf("matching dependencies are not configured")
	}
	if len(cleanList(req.Skills)) == 0 && len(cleanList(req.FocusAreas)) == 0 {
		return nil, ErrValidation
	}
	if req.ExperienceLevel != "" && !enums.IsValidExperienceLevel(req.ExperienceLevel) {
		return nil, ErrValidation
	}

	mentors, err := s.mentors.ListActiveMentors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}

	skills := cleanList(req.Skills)
	focus := cleanList(req.FocusAreas)

	matches := make([]Match, 0, len(mentors))
	for _, mentor := range mentors {
		if mentor.Capacity <= 0 {
			continue
		}

		active, err := s.mentorships.CountActiveForMentor(ctx, mentor.UserID)
		if err != nil {
			return nil, fmt.Errorf("count active mentorships for mentor %d: %w", mentor.UserID, err)
		}
		openSlots := mentor.Capacity - active
		if openSlots <= 0 {
			continue
		}

		skillScore := rules.SkillMatch(skills, mentor.ExpertiseAreas)
		focusScore := rules.FocusMatch(focus, mentor.ExpertiseAreas)
		experienceScore := rules.ExperienceMatch(mentor.ExperienceYears, enums.ExperienceLevel(req.ExperienceLevel))
		ratingScore := rules.RatingBonus(mentor.Rating)
		total := rules.MatchScore(skillScore, focusScore, experienceScore, ratingScore, s.weights)
		if total <= 0 {
			continue
		}

		matches = append(matches, Match{
			MentorID:        mentor.UserID,
			DisplayName:     mentor.DisplayName,
			Score:           total,
			SkillScore:      skillScore,
			FocusScore:      focusScore,
			ExperienceScore: experienceScore,
			RatingScore:     ratingScore,
			ExpertiseAreas:  mentor.ExpertiseAreas,
			ExperienceYears: mentor.ExperienceYears,
			Rating:          mentor.Rating,
			OpenSlots:       openSlots,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Rating > matches[j].Rating
	})

	if len(matches) > s.maxResults {
		matches = matches[:s.maxResults]
	}
	return matches, nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
