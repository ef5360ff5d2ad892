package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"contesthub/internal/api"
	"contesthub/internal/validation"
)

func (s *Server) findCompetition(id string) *api.CompetitionRecord {
	for i := range s.competitions {
		if s.competitions[i].ID == id {
			return &s.competitions[i]
		}
	}
	return nil
}

func (s *Server) findSubmission(id string) *api.SubmissionRecord {
	for i := range s.submissions {
		if s.submissions[i].ID == id {
			return &s.submissions[i]
		}
	}
	return nil
}

func (s *Server) notify(studentID, typ, msg string) {
	s.notifications = append(s.notifications, api.NotificationRecord{
		ID:        s.newID(),
		Message:   msg,
		Type:      typ,
		CreatedAt: s.now(),
		Student:   studentID,
	})
}

func (s *Server) listCompetitions(c *gin.Context) {
	s.mu.Lock()
	out := append([]api.CompetitionRecord{}, s.competitions...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

type competitionRequest struct {
	Title           string    `json:"title" validate:"required,max=120"`
	Description     string    `json:"description" validate:"max=2000"`
	Stages          []string  `json:"stages" validate:"dive,required"`
	Type            string    `json:"type" validate:"omitempty,oneof=internal external"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	MaxParticipants int       `json:"maxParticipants" validate:"min=0"`
}

func (s *Server) createCompetition(c *gin.Context) {
	var req competitionRequest
	if !bind(c, &req) {
		return
	}
	if !req.StartDate.IsZero() && !req.EndDate.IsZero() && req.EndDate.Before(req.StartDate) {
		failFields(c, validation.FieldErrors{"endDate": "endDate must not be before startDate"})
		return
	}
	if req.Type == "" {
		req.Type = "internal"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := api.CompetitionRecord{
		ID:              s.newID(),
		Title:           req.Title,
		Description:     req.Description,
		Stages:          req.Stages,
		Type:            req.Type,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		MaxParticipants: req.MaxParticipants,
	}
	s.competitions = append(s.competitions, rec)
	s.notify("", "info", "New competition: "+rec.Title)
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listNotifications(c *gin.Context) {
	who := caller(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.NotificationRecord{}
	for _, n := range s.notifications {
		if n.Student == "" || n.Student == who.Subject || who.Role == "admin" {
			out = append(out, n)
		}
	}
	c.JSON(http.StatusOK, out)
}

// populate fills the reference names the real backend populates.
func (s *Server) populate(rec api.SubmissionRecord) api.SubmissionRecord {
	if u, ok := s.users[rec.Student.ID]; ok {
		rec.Student.Name = u.Name
	}
	if comp := s.findCompetition(rec.Competition.ID); comp != nil {
		rec.Competition.Name = comp.Title
	}
	return rec
}

func (s *Server) listSubmissions(c *gin.Context) {
	school := caller(c).School
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.SubmissionRecord{}
	for _, sub := range s.submissions {
		if u, ok := s.users[sub.Student.ID]; ok && u.School == school {
			out = append(out, s.populate(sub))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listMySubmissions(c *gin.Context) {
	me := caller(c).Subject
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.SubmissionRecord{}
	for _, sub := range s.submissions {
		if sub.Student.ID == me {
			out = append(out, s.populate(sub))
		}
	}
	c.JSON(http.StatusOK, out)
}

type submissionRequest struct {
	Competition string `json:"competition" validate:"required"`
	StudentName string `json:"studentName" validate:"max=80"`
	Grade       string `json:"grade" validate:"max=20"`
	ProjectLink string `json:"projectLink" validate:"omitempty,url"`
	Description string `json:"description" validate:"max=2000"`
}

func (s *Server) createSubmission(c *gin.Context) {
	var req submissionRequest
	if !bind(c, &req) {
		return
	}
	me := caller(c).Subject

	s.mu.Lock()
	defer s.mu.Unlock()

	comp := s.findCompetition(req.Competition)
	if comp == nil {
		failFields(c, validation.FieldErrors{"competition": "Competition not found"})
		return
	}
	entries := 0
	for _, sub := range s.submissions {
		if sub.Competition.ID != comp.ID {
			continue
		}
		if sub.Student.ID == me {
			fail(c, http.StatusConflict, "Already registered for "+comp.Title)
			return
		}
		entries++
	}
	if comp.MaxParticipants > 0 && entries >= comp.MaxParticipants {
		fail(c, http.StatusConflict, comp.Title+" is full")
		return
	}

	stage := ""
	if len(comp.Stages) > 0 {
		stage = comp.Stages[0]
	}
	rec := api.SubmissionRecord{
		ID:          s.newID(),
		Student:     api.Ref{ID: me},
		StudentName: req.StudentName,
		Grade:       req.Grade,
		Competition: api.Ref{ID: comp.ID},
		Status:      "pending",
		Stage:       stage,
		Result:      "pending",
		ProjectLink: req.ProjectLink,
		Description: req.Description,
		SubmittedAt: s.now(),
	}
	s.submissions = append(s.submissions, rec)
	c.JSON(http.StatusCreated, s.populate(rec))
}

type submissionUpdate struct {
	Status      string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	Stage       string `json:"stage" validate:"max=80"`
	Result      string `json:"result" validate:"omitempty,oneof=pending passed failed"`
	Feedback    string `json:"feedback" validate:"max=2000"`
	ProjectLink string `json:"projectLink" validate:"omitempty,url"`
	Description string `json:"description" validate:"max=2000"`
}

func (s *Server) updateSubmission(c *gin.Context) {
	var req submissionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Status = strings.ToLower(req.Status)
	req.Result = strings.ToLower(req.Result)
	if err := validation.Struct(req); err != nil {
		failFields(c, validation.Fields(err))
		return
	}
	who := caller(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := s.findSubmission(c.Param("id"))
	if sub == nil {
		fail(c, http.StatusNotFound, "Submission not found")
		return
	}

	isAdmin := who.Role == "admin"
	if !isAdmin {
		if sub.Student.ID != who.Subject {
			fail(c, http.StatusForbidden, "forbidden")
			return
		}
		if req.Status != "" || req.Stage != "" || req.Result != "" || req.Feedback != "" {
			fail(c, http.StatusForbidden, "Only administrators can review submissions")
			return
		}
	}

	comp := s.findCompetition(sub.Competition.ID)
	if req.Stage != "" && comp != nil && len(comp.Stages) > 0 && !contains(comp.Stages, req.Stage) {
		failFields(c, validation.FieldErrors{"stage": "Unknown stage for " + comp.Title})
		return
	}

	if req.Status != "" && req.Status != sub.Status {
		sub.Status = req.Status
		typ := "info"
		switch req.Status {
		case "approved":
			typ = "success"
		case "rejected":
			typ = "warning"
		}
		title := sub.Competition.ID
		if comp != nil {
			title = comp.Title
		}
		s.notify(sub.Student.ID, typ, "Your registration for "+title+" is now "+req.Status)
	}
	if req.Stage != "" {
		sub.Stage = req.Stage
	}
	if req.Result != "" {
		sub.Result = req.Result
	}
	if req.Feedback != "" {
		sub.Feedback = req.Feedback
	}
	if req.ProjectLink != "" {
		sub.ProjectLink = req.ProjectLink
	}
	if req.Description != "" {
		sub.Description = req.Description
	}
	c.JSON(http.StatusOK, s.populate(*sub))
}

func (s *Server) populateCertificate(rec api.CertificateRecord) api.CertificateRecord {
	if u, ok := s.users[rec.Student.ID]; ok {
		rec.Student.Name = u.Name
	}
	if comp := s.findCompetition(rec.Competition.ID); comp != nil {
		rec.Competition.Name = comp.Title
	}
	return rec
}

func (s *Server) listCertificates(c *gin.Context) {
	school := caller(c).School
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.CertificateRecord{}
	for _, cert := range s.certificates {
		if u, ok := s.users[cert.Student.ID]; ok && u.School == school {
			out = append(out, s.populateCertificate(cert))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listMyCertificates(c *gin.Context) {
	me := caller(c).Subject
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.CertificateRecord{}
	for _, cert := range s.certificates {
		if cert.Student.ID == me {
			out = append(out, s.populateCertificate(cert))
		}
	}
	c.JSON(http.StatusOK, out)
}

type certificateRequest struct {
	Student     string `json:"student" validate:"required"`
	Competition string `json:"competition" validate:"required"`
	Achievement string `json:"achievement" validate:"required,max=120"`
}

func (s *Server) issueCertificate(c *gin.Context) {
	var req certificateRequest
	if !bind(c, &req) {
		return
	}
	who := caller(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.users[req.Student]
	if !ok || student.Role != "student" || student.School != who.School {
		failFields(c, validation.FieldErrors{"student": "Student not found"})
		return
	}
	comp := s.findCompetition(req.Competition)
	if comp == nil {
		failFields(c, validation.FieldErrors{"competition": "Competition not found"})
		return
	}
	issuer := who.Subject
	if admin, ok := s.users[who.Subject]; ok {
		issuer = admin.Name
	}

	rec := api.CertificateRecord{
		ID:          s.newID(),
		Student:     api.Ref{ID: student.ID},
		Competition: api.Ref{ID: comp.ID},
		Achievement: req.Achievement,
		IssuedBy:    issuer,
		IssueDate:   s.now(),
	}
	s.certificates = append(s.certificates, rec)
	s.notify(student.ID, "success", "Certificate issued: "+req.Achievement+" in "+comp.Title)
	c.JSON(http.StatusCreated, s.populateCertificate(rec))
}

func (s *Server) listStudents(c *gin.Context) {
	school := caller(c).School
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.UserRecord{}
	for _, u := range s.users {
		if u.Role == "student" && u.School == school {
			out = append(out, u.UserRecord)
		}
	}
	sortUsers(out)
	c.JSON(http.StatusOK, out)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
