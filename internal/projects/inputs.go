package projects

import (
	"math"
	"strings"
	"time"

	"devcollab/platform-backend/pkg/apperr"
)

// Field limits shared by the HTTP request structs and the engine inputs.
const (
	MinShortlist      = 1
	MaxShortlistLimit = 50
	maxTitleLen       = 200
	maxTextLen        = 10000
	maxURLLen         = 500

	// MaxReward is the exclusive upper bound of a NUMERIC(12,2) reward column.
	MaxReward = 1e10
)

// CreateProjectInput describes a new project.
type CreateProjectInput struct {
	Title               string
	Description         string
	RequiredSkills      []string
	Deadline            *time.Time
	WinnerReward        float64
	ParticipationReward float64
	MaxShortlist        int
}

func (in CreateProjectInput) Validate() error {
	fields := map[string]string{}
	if title := strings.TrimSpace(in.Title); title == "" {
		fields["title"] = "is required"
	} else if len(title) > maxTitleLen {
		fields["title"] = "must be at most 200 characters"
	}
	if desc := strings.TrimSpace(in.Description); desc == "" {
		fields["description"] = "is required"
	} else if len(desc) > maxTextLen {
		fields["description"] = "is too long"
	}
	if in.Deadline == nil || in.Deadline.IsZero() {
		fields["deadline"] = "is required"
	}
	if msg := checkReward(in.WinnerReward); msg != "" {
		fields["winner_reward"] = msg
	}
	if msg := checkReward(in.ParticipationReward); msg != "" {
		fields["participation_reward"] = msg
	}
	if in.MaxShortlist < MinShortlist || in.MaxShortlist > MaxShortlistLimit {
		fields["max_shortlist"] = "must be between 1 and 50"
	}
	return validationResult(fields)
}

// ApplyInput is a developer's application.
type ApplyInput struct {
	CoverLetter string
}

func (in ApplyInput) Validate() error {
	fields := map[string]string{}
	if len(in.CoverLetter) > maxTextLen {
		fields["cover_letter"] = "is too long"
	}
	return validationResult(fields)
}

// SubmitWorkInput carries the links and notes of a submission.
type SubmitWorkInput struct {
	GithubURL   string
	DemoURL     string
	FigmaURL    string
	Description string
}

func (in SubmitWorkInput) Validate() error {
	fields := map[string]string{}
	for name, v := range map[string]string{"github_url": in.GithubURL, "demo_url": in.DemoURL, "figma_url": in.FigmaURL} {
		if len(v) > maxURLLen {
			fields[name] = "must be at most 500 characters"
		}
	}
	if len(in.Description) > maxTextLen {
		fields["description"] = "is too long"
	}
	if strings.TrimSpace(in.GithubURL+in.DemoURL+in.FigmaURL+in.Description) == "" {
		fields["github_url"] = "a link or description is required"
	}
	return validationResult(fields)
}

// FeedbackInput is the owner's review of a submission.
type FeedbackInput struct {
	Score    int
	Feedback string
}

func (in FeedbackInput) Validate() error {
	fields := map[string]string{}
	if in.Score < 1 || in.Score > 10 {
		fields["score"] = "must be between 1 and 10"
	}
	if len(strings.TrimSpace(in.Feedback)) > maxTextLen {
		fields["feedback"] = "is too long"
	}
	return validationResult(fields)
}

// checkReward returns a message when v cannot be stored exactly as NUMERIC(12,2).
func checkReward(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "must be a number"
	case v < 0:
		return "must not be negative"
	case v >= MaxReward:
		return "must be less than 10000000000"
	case math.Round(v*100)/100 != v:
		return "must have at most 2 decimal places"
	}
	return ""
}

func validationResult(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation("invalid input", fields)
}
