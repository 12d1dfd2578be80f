package roboflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lewtec/labelsync/internal/domain"
)

type workspaceResponse struct {
	Workspace struct {
		Name     string `json:"name"`
		URL      string `json:"url"`
		Projects []struct {
			ID      string  `json:"id"`
			Name    string  `json:"name"`
			Type    string  `json:"type"`
			Images  int     `json:"images"`
			Created float64 `json:"created"`
			Updated float64 `json:"updated"`
		} `json:"projects"`
	} `json:"workspace"`
}

// ListProjects lists the projects of the configured workspace, resolving
// the workspace from the API key when none is configured
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	workspace := c.workspace
	if workspace == "" {
		ws, err := c.resolveWorkspace(ctx)
		if err != nil {
			return nil, err
		}
		workspace = ws
	}

	status, body, err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(workspace), nil, "", nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status, body); err != nil {
		return nil, err
	}

	var resp workspaceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("while decoding workspace %s: %w", workspace, err)
	}
	projects := make([]domain.Project, 0, len(resp.Workspace.Projects))
	for _, p := range resp.Workspace.Projects {
		projects = append(projects, domain.Project{
			ID:      p.ID,
			Name:    p.Name,
			Type:    p.Type,
			Images:  p.Images,
			Created: int64(p.Created),
			Updated: int64(p.Updated),
		})
	}
	c.logger.Debug("listed projects", "workspace", workspace, "count", len(projects))
	return projects, nil
}

func (c *Client) resolveWorkspace(ctx context.Context) (string, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/", nil, "", nil)
	if err != nil {
		return "", err
	}
	if err := checkStatus(status, body); err != nil {
		return "", err
	}
	var resp struct {
		Workspace string `json:"workspace"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("while decoding api key info: %w", err)
	}
	if resp.Workspace == "" {
		return "", fmt.Errorf("roboflow: api key is not bound to a workspace")
	}
	return resp.Workspace, nil
}

func checkStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status >= 400:
		var resp apiResponse
		if err := json.Unmarshal(body, &resp); err == nil && resp.failure() != "" {
			return fmt.Errorf("roboflow: HTTP %d: %s", status, resp.failure())
		}
		return fmt.Errorf("roboflow: HTTP %d", status)
	}
	return nil
}

var _ domain.ProjectLister = (*Client)(nil)
