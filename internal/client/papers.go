package client

import (
	"context"
	"net/url"
	"strconv"

	"shodh/internal/api"
)

// Feed returns the paper feed.
func (c *Client) Feed(ctx context.Context, limit int) ([]api.Paper, error) {
	query := map[string]string{}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	var papers []api.Paper
	if err := c.getJSON(ctx, "/feed", query, &papers); err != nil {
		return nil, err
	}
	return papers, nil
}

// SearchPapers searches papers by free-text query.
func (c *Client) SearchPapers(ctx context.Context, query string, limit int) ([]api.Paper, error) {
	params := map[string]string{"query": query}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var papers []api.Paper
	if err := c.getJSON(ctx, "/search", params, &papers); err != nil {
		return nil, err
	}
	return papers, nil
}

// SavedPapers returns the saved library.
func (c *Client) SavedPapers(ctx context.Context) ([]api.Paper, error) {
	var papers []api.Paper
	if err := c.getJSON(ctx, "/library/saved", nil, &papers); err != nil {
		return nil, err
	}
	return papers, nil
}

// FavoritePapers returns the favorites library.
func (c *Client) FavoritePapers(ctx context.Context) ([]api.Paper, error) {
	var papers []api.Paper
	if err := c.getJSON(ctx, "/library/favorites", nil, &papers); err != nil {
		return nil, err
	}
	return papers, nil
}

// PaperAction carries the metadata sent when saving or favoriting a paper.
type PaperAction struct {
	PaperID       string `json:"paper_id"`
	Title         string `json:"title,omitempty"`
	Summary       string `json:"summary,omitempty"`
	Authors       string `json:"authors,omitempty"`
	URL           string `json:"url,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// SavePaper saves a paper to the library. Saving queues ingestion
// server-side, so the paper's status should start showing up on the push
// channel shortly after.
func (c *Client) SavePaper(ctx context.Context, action PaperAction) error {
	return c.postJSON(ctx, "/save", action, nil)
}

// FavoritePaper toggles a paper's favorite flag.
func (c *Client) FavoritePaper(ctx context.Context, action PaperAction) error {
	return c.postJSON(ctx, "/favorite", action, nil)
}

// Projects lists all projects.
func (c *Client) Projects(ctx context.Context) ([]api.Project, error) {
	var projects []api.Project
	if err := c.getJSON(ctx, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name, description, dimensions string) (*api.Project, error) {
	body := map[string]any{"name": name}
	if description != "" {
		body["description"] = description
	}
	if dimensions != "" {
		body["research_dimensions"] = dimensions
	}
	var project api.Project
	if err := c.postJSON(ctx, "/projects", body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, id api.ID) error {
	return c.deleteJSON(ctx, "/projects/"+url.PathEscape(string(id)), nil)
}

// AddPaperToProject attaches a paper to a project.
func (c *Client) AddPaperToProject(ctx context.Context, projectID api.ID, action PaperAction) error {
	return c.postJSON(ctx, "/projects/"+url.PathEscape(string(projectID))+"/papers", action, nil)
}

// RemovePaperFromProject detaches a paper from a project.
func (c *Client) RemovePaperFromProject(ctx context.Context, projectID api.ID, paperID string) error {
	return c.deleteJSON(ctx,
		"/projects/"+url.PathEscape(string(projectID))+"/papers/"+url.PathEscape(paperID), nil)
}
