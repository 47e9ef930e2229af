package view

import (
	"testing"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/users"
)

func TestProjectFromProgress(t *testing.T) {
	tests := []struct {
		name      string
		goal      int64
		collected int64
		want      int
	}{
		{"empty", 10000, 0, 0},
		{"partial", 10000, 9000, 90},
		{"over goal is capped", 10000, 10500, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProjectFrom(projects.Project{GoalCents: tt.goal, CollectedCents: tt.collected, Currency: "usd"})
			if p.Progress.Percent != tt.want {
				t.Errorf("Percent = %d, want %d", p.Progress.Percent, tt.want)
			}
		})
	}
}

func TestProjectFromAmountsAndMedia(t *testing.T) {
	p := ProjectFrom(projects.Project{
		ID:             "p1",
		GoalCents:      10050,
		CollectedCents: 2500,
		Currency:       "usd",
		Media: []projects.Media{
			{Kind: projects.MediaVideo, URL: "/uploads/v.mp4"},
			{Kind: projects.MediaImage, URL: "/uploads/a.png"},
		},
	})

	if p.Goal != 100.5 || p.Collected != 25 {
		t.Errorf("Goal/Collected = %v/%v, want 100.5/25", p.Goal, p.Collected)
	}
	if p.Progress.Goal.Formatted != "$100.50" {
		t.Errorf("Formatted goal = %q", p.Progress.Goal.Formatted)
	}
	if len(p.Images) != 1 || p.Images[0] != "/uploads/a.png" {
		t.Errorf("Images = %v", p.Images)
	}
	if len(p.Videos) != 1 || p.Videos[0] != "/uploads/v.mp4" {
		t.Errorf("Videos = %v", p.Videos)
	}
	if p.Owner != nil {
		t.Errorf("Owner = %+v, want nil when not loaded", p.Owner)
	}
}

func TestUserFromHidesEmailFromOthers(t *testing.T) {
	u := users.User{ID: "u1", Username: "ada", Email: "ada@example.com"}

	if got := UserFrom(u, false).Email; got != "" {
		t.Errorf("public Email = %q, want empty", got)
	}
	if got := UserFrom(u, true).Email; got != "ada@example.com" {
		t.Errorf("self Email = %q", got)
	}
}
