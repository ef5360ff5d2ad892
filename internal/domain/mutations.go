package domain

import (
	"context"
	"strings"
	"time"

	"contesthub/internal/api"
	"contesthub/internal/model"
	"contesthub/internal/validation"
)

// Every mutation pushes exactly one notification: success, or "<action> failed".

func (s *Store) succeeded(text string) {
	s.AddNotification(text, model.NotifySuccess, "")
}

func (s *Store) failed(action string, err error) error {
	s.log.Warn(strings.ToLower(action)+" failed", "err", err)
	s.AddNotification(action+" failed", model.NotifyError, "")
	return err
}

// CompetitionForm is the admin's new-competition form.
type CompetitionForm struct {
	Name            string                `json:"name" validate:"required,max=120"`
	Description     string                `json:"description" validate:"max=2000"`
	Stages          []string              `json:"stages" validate:"dive,required"`
	Type            model.CompetitionType `json:"type" validate:"omitempty,oneof=internal external"`
	StartDate       time.Time             `json:"startDate"`
	EndDate         time.Time             `json:"endDate"`
	MaxParticipants int                   `json:"maxParticipants" validate:"min=0"`
}

// CreateCompetition creates a competition and appends it to the cache.
func (s *Store) CreateCompetition(ctx context.Context, form CompetitionForm) (model.Competition, error) {
	const action = "Create competition"
	if err := validation.Struct(form); err != nil {
		return model.Competition{}, s.failed(action, err)
	}
	if !form.StartDate.IsZero() && !form.EndDate.IsZero() && form.EndDate.Before(form.StartDate) {
		return model.Competition{}, s.failed(action, &validation.Error{
			Fields: validation.FieldErrors{"endDate": "endDate must not be before startDate"},
		})
	}

	rec, err := s.backend.CreateCompetition(ctx, api.CompetitionRequest{
		Title:           form.Name,
		Description:     form.Description,
		Stages:          form.Stages,
		Type:            string(form.Type),
		StartDate:       form.StartDate,
		EndDate:         form.EndDate,
		MaxParticipants: form.MaxParticipants,
	})
	if err != nil {
		return model.Competition{}, s.failed(action, err)
	}

	comp := api.MapCompetition(*rec)
	s.mu.Lock()
	s.competitions = append(s.competitions, comp)
	s.mu.Unlock()
	s.succeeded("Competition created: " + comp.Name)
	return comp, nil
}

// RegistrationForm registers the current student for a competition.
// Competition may be the competition's id or its name.
type RegistrationForm struct {
	Name        string `json:"name" validate:"required,max=80"`
	Grade       string `json:"grade" validate:"required,max=20"`
	Competition string `json:"competition" validate:"required"`
}

// RegisterForCompetition creates a pending submission for the current student.
func (s *Store) RegisterForCompetition(ctx context.Context, form RegistrationForm) (model.Submission, error) {
	const action = "Registration"
	if err := validation.Struct(form); err != nil {
		return model.Submission{}, s.failed(action, err)
	}
	comp, ok := s.Competition(form.Competition)
	if !ok {
		return model.Submission{}, s.failed(action, &validation.Error{
			Fields: validation.FieldErrors{"competition": "Unknown competition " + form.Competition},
		})
	}

	rec, err := s.backend.CreateSubmission(ctx, api.SubmissionRequest{
		Competition: comp.ID,
		StudentName: form.Name,
		Grade:       form.Grade,
	})
	if err != nil {
		return model.Submission{}, s.failed(action, err)
	}

	sub := s.mergeSubmission(*rec)
	s.succeeded("Registered " + sub.StudentName + " for " + comp.Name)
	return sub, nil
}

// ProjectForm submits a project for a competition the student entered.
type ProjectForm struct {
	CompetitionID string `json:"competition" validate:"required"`
	ProjectLink   string `json:"projectLink" validate:"required,url"`
	Description   string `json:"description" validate:"max=2000"`
}

// AddSubmission attaches a project to the student's registration for the
// competition. Without a registration a new submission is created.
func (s *Store) AddSubmission(ctx context.Context, form ProjectForm) (model.Submission, error) {
	const action = "Project submission"
	id := s.ids.Identity()
	if id == nil {
		return model.Submission{}, s.failed(action, ErrNoIdentity)
	}
	if err := validation.Struct(form); err != nil {
		return model.Submission{}, s.failed(action, err)
	}

	var (
		rec *api.SubmissionRecord
		err error
	)
	if existing, ok := s.registration(id.ID, form.CompetitionID); ok {
		rec, err = s.backend.UpdateSubmission(ctx, existing.ID, api.SubmissionUpdate{
			ProjectLink: form.ProjectLink,
			Description: form.Description,
		})
	} else {
		rec, err = s.backend.CreateSubmission(ctx, api.SubmissionRequest{
			Competition: form.CompetitionID,
			StudentName: id.Name,
			ProjectLink: form.ProjectLink,
			Description: form.Description,
		})
	}
	if err != nil {
		return model.Submission{}, s.failed(action, err)
	}

	sub := s.mergeSubmission(*rec)
	s.succeeded("Project submitted for " + sub.CompetitionName)
	return sub, nil
}

// UpdateStudentStatus sets a submission's review status. status accepts any
// casing, e.g. "Approved".
func (s *Store) UpdateStudentStatus(ctx context.Context, submissionID, status string) (model.Submission, error) {
	const action = "Status update"
	st, ok := model.ParseSubmissionStatus(status)
	if !ok {
		return model.Submission{}, s.failed(action, &validation.Error{
			Fields: validation.FieldErrors{"status": "status must be one of pending approved rejected"},
		})
	}
	return s.update(ctx, action, submissionID, api.SubmissionUpdate{Status: string(st)},
		func(sub model.Submission) string { return sub.StudentName + " is now " + sub.Status.Display() })
}

// UpdateSubmissionStage moves a submission to another competition stage.
func (s *Store) UpdateSubmissionStage(ctx context.Context, submissionID, stage string) (model.Submission, error) {
	const action = "Stage update"
	if strings.TrimSpace(stage) == "" {
		return model.Submission{}, s.failed(action, &validation.Error{
			Fields: validation.FieldErrors{"stage": "stage is required"},
		})
	}
	return s.update(ctx, action, submissionID, api.SubmissionUpdate{Stage: stage},
		func(sub model.Submission) string { return sub.StudentName + " moved to " + sub.Stage })
}

// UpdateSubmissionResult records the outcome of the current stage.
func (s *Store) UpdateSubmissionResult(ctx context.Context, submissionID string, result model.Outcome) (model.Submission, error) {
	const action = "Result update"
	switch result {
	case model.OutcomePending, model.OutcomePassed, model.OutcomeFailed:
	default:
		return model.Submission{}, s.failed(action, &validation.Error{
			Fields: validation.FieldErrors{"result": "result must be one of pending passed failed"},
		})
	}
	return s.update(ctx, action, submissionID, api.SubmissionUpdate{Result: string(result)},
		func(sub model.Submission) string { return "Result recorded for " + sub.StudentName })
}

// AddFeedback stores reviewer feedback on a submission.
func (s *Store) AddFeedback(ctx context.Context, submissionID, feedback string) (model.Submission, error) {
	const action = "Feedback"
	if strings.TrimSpace(feedback) == "" {
		return model.Submission{}, s.failed(action, &validation.Error{
			Fields: validation.FieldErrors{"feedback": "feedback is required"},
		})
	}
	return s.update(ctx, action, submissionID, api.SubmissionUpdate{Feedback: feedback},
		func(sub model.Submission) string { return "Feedback sent to " + sub.StudentName })
}

func (s *Store) update(ctx context.Context, action, id string, req api.SubmissionUpdate, describe func(model.Submission) string) (model.Submission, error) {
	rec, err := s.backend.UpdateSubmission(ctx, id, req)
	if err != nil {
		return model.Submission{}, s.failed(action, err)
	}
	sub := s.mergeSubmission(*rec)
	s.succeeded(describe(sub))
	return sub, nil
}

// mergeSubmission maps a mutation echo and replaces or appends it in the
// cache, marked optimistic until the next authoritative fetch.
func (s *Store) mergeSubmission(rec api.SubmissionRecord) model.Submission {
	sub := api.MapSubmission(rec)
	sub.Optimistic = true

	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.StudentID == "" {
		if id := s.ids.Identity(); id != nil && !id.IsAdmin() {
			sub.StudentID = id.ID
		}
	}
	if sub.CompetitionName == "" {
		sub.CompetitionName = s.competitionNameLocked(sub.CompetitionID)
	}
	for i := range s.submissions {
		if s.submissions[i].ID == sub.ID {
			s.submissions[i] = sub
			return sub
		}
	}
	s.submissions = append(s.submissions, sub)
	return sub
}

// CertificateForm issues a certificate to a student.
type CertificateForm struct {
	StudentID     string `json:"student" validate:"required"`
	CompetitionID string `json:"competition" validate:"required"`
	Achievement   string `json:"achievement" validate:"required,max=120"`
}

// IssueCertificate issues a certificate and appends it to the cache, so
// GetStudentCertificates includes it without a refetch.
func (s *Store) IssueCertificate(ctx context.Context, form CertificateForm) (model.Certificate, error) {
	const action = "Certificate issue"
	if err := validation.Struct(form); err != nil {
		return model.Certificate{}, s.failed(action, err)
	}

	rec, err := s.backend.IssueCertificate(ctx, api.CertificateRequest{
		Student:     form.StudentID,
		Competition: form.CompetitionID,
		Achievement: form.Achievement,
	})
	if err != nil {
		return model.Certificate{}, s.failed(action, err)
	}

	cert := api.MapCertificate(*rec)
	s.mu.Lock()
	if cert.CompetitionName == "" {
		cert.CompetitionName = s.competitionNameLocked(cert.CompetitionID)
	}
	if cert.StudentName == "" {
		for _, st := range s.roster {
			if st.ID == cert.StudentID {
				cert.StudentName = st.Name
			}
		}
	}
	s.certificates = append(s.certificates, cert)
	s.mu.Unlock()

	s.succeeded("Certificate issued: " + cert.Achievement)
	return cert, nil
}
