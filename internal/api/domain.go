package api

import (
	"context"
	"net/http"
)

func (c *Client) ListCompetitions(ctx context.Context) ([]CompetitionRecord, error) {
	var out []CompetitionRecord
	if err := c.do(ctx, http.MethodGet, "/competitions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCompetition(ctx context.Context, req CompetitionRequest) (*CompetitionRecord, error) {
	var out CompetitionRecord
	if err := c.do(ctx, http.MethodPost, "/competitions", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListNotifications(ctx context.Context) ([]NotificationRecord, error) {
	var out []NotificationRecord
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSubmissions returns every submission of the school (admin only).
func (c *Client) ListSubmissions(ctx context.Context) ([]SubmissionRecord, error) {
	var out []SubmissionRecord
	if err := c.do(ctx, http.MethodGet, "/submissions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMySubmissions returns the caller's own submissions.
func (c *Client) ListMySubmissions(ctx context.Context) ([]SubmissionRecord, error) {
	var out []SubmissionRecord
	if err := c.do(ctx, http.MethodGet, "/submissions/my", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSubmission(ctx context.Context, req SubmissionRequest) (*SubmissionRecord, error) {
	var out SubmissionRecord
	if err := c.do(ctx, http.MethodPost, "/submissions", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSubmission(ctx context.Context, id string, req SubmissionUpdate) (*SubmissionRecord, error) {
	var out SubmissionRecord
	if err := c.do(ctx, http.MethodPut, "/submissions/:id", []string{id}, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCertificates(ctx context.Context) ([]CertificateRecord, error) {
	var out []CertificateRecord
	if err := c.do(ctx, http.MethodGet, "/certificates", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMyCertificates(ctx context.Context) ([]CertificateRecord, error) {
	var out []CertificateRecord
	if err := c.do(ctx, http.MethodGet, "/certificates/my", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) IssueCertificate(ctx context.Context, req CertificateRequest) (*CertificateRecord, error) {
	var out CertificateRecord
	if err := c.do(ctx, http.MethodPost, "/certificates", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListStudents returns the roster of the caller's school.
func (c *Client) ListStudents(ctx context.Context) ([]UserRecord, error) {
	var out []UserRecord
	if err := c.do(ctx, http.MethodGet, "/schools/students", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
