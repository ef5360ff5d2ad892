package api

import (
	"context"
	"net/http"
)

func (c *Client) ListTeams(ctx context.Context) ([]TeamRecord, error) {
	var out []TeamRecord
	if err := c.do(ctx, http.MethodGet, "/teams", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTeam(ctx context.Context, req TeamRequest) (*TeamRecord, error) {
	var out TeamRecord
	if err := c.do(ctx, http.MethodPost, "/teams", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) JoinTeam(ctx context.Context, teamID, message string) (*JoinRequestRecord, error) {
	var out JoinRequestRecord
	req := JoinTeamRequest{Message: message}
	if err := c.do(ctx, http.MethodPost, "/teams/:id/join", []string{teamID}, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJoinRequests returns the join requests of a team the caller leads.
func (c *Client) ListJoinRequests(ctx context.Context, teamID string) ([]JoinRequestRecord, error) {
	var out []JoinRequestRecord
	if err := c.do(ctx, http.MethodGet, "/teams/:id/requests", []string{teamID}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ApproveJoinRequest(ctx context.Context, teamID, requestID string) (*JoinRequestRecord, error) {
	var out JoinRequestRecord
	params := []string{teamID, requestID}
	if err := c.do(ctx, http.MethodPost, "/teams/:id/requests/:id/approve", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RejectJoinRequest(ctx context.Context, teamID, requestID string) (*JoinRequestRecord, error) {
	var out JoinRequestRecord
	params := []string{teamID, requestID}
	if err := c.do(ctx, http.MethodPost, "/teams/:id/requests/:id/reject", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTeamMessages(ctx context.Context, teamID string) ([]TeamMessageRecord, error) {
	var out []TeamMessageRecord
	if err := c.do(ctx, http.MethodGet, "/teams/:id/messages", []string{teamID}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SendTeamMessage(ctx context.Context, teamID, text string) (*TeamMessageRecord, error) {
	var out TeamMessageRecord
	req := TeamMessageRequest{Text: text}
	if err := c.do(ctx, http.MethodPost, "/teams/:id/messages", []string{teamID}, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTeamResources(ctx context.Context, teamID string) ([]ResourceRecord, error) {
	var out []ResourceRecord
	if err := c.do(ctx, http.MethodGet, "/teams/:id/resources", []string{teamID}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddTeamResource(ctx context.Context, teamID string, req ResourceRequest) (*ResourceRecord, error) {
	var out ResourceRecord
	if err := c.do(ctx, http.MethodPost, "/teams/:id/resources", []string{teamID}, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveTeamMember removes a member and returns the updated team.
func (c *Client) RemoveTeamMember(ctx context.Context, teamID, memberID string) (*TeamRecord, error) {
	var out TeamRecord
	params := []string{teamID, memberID}
	if err := c.do(ctx, http.MethodDelete, "/teams/:id/members/:id", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTeamLeader hands leadership to another member and returns the updated team.
func (c *Client) SetTeamLeader(ctx context.Context, teamID, userID string) (*TeamRecord, error) {
	var out TeamRecord
	req := LeaderRequest{UserID: userID}
	if err := c.do(ctx, http.MethodPut, "/teams/:id/leader", []string{teamID}, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
