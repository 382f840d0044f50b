package dto

type MatchRequest struct {
	Skills          []string `json:"skills"`
	FocusAreas      []string `json:"focus_areas"`
	ExperienceLevel string   `json:"experience_level"`
}

type MatchItemResponse struct {
	MentorID        int64    `json:"mentor_id"`
	DisplayName     string   `json:"display_name"`
	Score           float64  `json:"score"`
	SkillScore      float64  `json:"skill_score"`
	FocusScore      float64  `json:"focus_score"`
	ExperienceScore float64  `json:"experience_score"`
	RatingScore     float64  `json:"rating_score"`
	ExpertiseAreas  []string `json:"expertise_areas"`
	ExperienceYears int      `json:"experience_years"`
	Rating          float64  `json:"rating"`
	OpenSlots       int      `json:"open_slots"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}
