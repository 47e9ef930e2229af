package view

import "github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/projects"

type Owner struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	Region    string `json:"region"`
}

type Project struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Goal         float64  `json:"goal"`
	Collected    float64  `json:"collected"`
	Currency     string   `json:"currency"`
	Progress     Progress `json:"progress"`
	IsFunded     bool     `json:"isFunded"`
	Region       string   `json:"region"`
	CallToAction string   `json:"callToAction"`
	Images       []string `json:"images"`
	Videos       []string `json:"videos"`
	Owner        *Owner   `json:"owner,omitempty"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

type Progress struct {
	Goal      Amount `json:"goal"`
	Collected Amount `json:"collected"`
	Percent   int    `json:"percent"`
}

type Update struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"projectId"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Images    []string `json:"images"`
	Videos    []string `json:"videos"`
	Author    *Owner   `json:"author,omitempty"`
	CreatedAt string   `json:"createdAt"`
}

type ProjectDetail struct {
	Project Project  `json:"project"`
	Updates []Update `json:"updates"`
}

func ProjectFrom(p projects.Project) Project {
	return Project{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Goal:         amountOf(p.GoalCents, p.Currency).Value,
		Collected:    amountOf(p.CollectedCents, p.Currency).Value,
		Currency:     p.Currency,
		Progress:     progressOf(p),
		IsFunded:     p.IsFunded,
		Region:       p.Region,
		CallToAction: p.CallToAction,
		Images:       p.Images(),
		Videos:       p.Videos(),
		Owner:        ownerFrom(p.Owner),
		CreatedAt:    timestamp(p.CreatedAt),
		UpdatedAt:    timestamp(p.UpdatedAt),
	}
}

func ProjectsFrom(ps []projects.Project) []Project {
	out := make([]Project, 0, len(ps))
	for _, p := range ps {
		out = append(out, ProjectFrom(p))
	}
	return out
}

func UpdateFrom(u projects.Update) Update {
	return Update{
		ID:        u.ID,
		ProjectID: u.ProjectID,
		Title:     u.Title,
		Message:   u.Message,
		Images:    u.Images(),
		Videos:    u.Videos(),
		Author:    ownerFrom(u.Author),
		CreatedAt: timestamp(u.CreatedAt),
	}
}

func DetailFrom(d projects.Detail) ProjectDetail {
	out := ProjectDetail{Project: ProjectFrom(d.Project), Updates: make([]Update, 0, len(d.Updates))}
	for _, u := range d.Updates {
		out.Updates = append(out.Updates, UpdateFrom(u))
	}
	return out
}

func progressOf(p projects.Project) Progress {
	pct := 0
	if p.GoalCents > 0 {
		pct = int(p.CollectedCents * 100 / p.GoalCents)
	}
	if pct > 100 {
		pct = 100
	}
	return Progress{
		Goal:      amountOf(p.GoalCents, p.Currency),
		Collected: amountOf(p.CollectedCents, p.Currency),
		Percent:   pct,
	}
}

func ownerFrom(o *projects.Owner) *Owner {
	if o == nil {
		return nil
	}
	return &Owner{ID: o.ID, Username: o.Username, AvatarURL: o.AvatarURL, Region: o.Region}
}
