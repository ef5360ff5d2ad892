package api

import (
	"bytes"
	"encoding/json"
	"time"
)

// Ref is a reference to another record. The backend sends either the bare
// id or the populated record ({"_id", "name"} or {"_id", "title"}).
type Ref struct {
	ID   string
	Name string
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if b[0] == '"' {
		*r = Ref{}
		return json.Unmarshal(b, &r.ID)
	}

	var obj struct {
		ID    string `json:"_id"`
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	r.Name = obj.Name
	if r.Name == "" {
		r.Name = obj.Title
	}
	return nil
}

// MarshalJSON writes a populated object when the name is known, the bare id otherwise.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Name == "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal(struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}{r.ID, r.Name})
}

// UserRecord is the server shape of an account, used for the session
// identity and the school roster.
type UserRecord struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	School string `json:"school,omitempty"`
	Grade  string `json:"grade,omitempty"`
}

// AuthResponse is returned by every /auth endpoint.
type AuthResponse struct {
	Token      string      `json:"token,omitempty"`
	User       *UserRecord `json:"user,omitempty"`
	Message    string      `json:"message,omitempty"`
	SchoolCode string      `json:"schoolCode,omitempty"`
}

type CompetitionRecord struct {
	ID              string    `json:"_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Stages          []string  `json:"stages"`
	Type            string    `json:"type"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	MaxParticipants int       `json:"maxParticipants"`
}

type SubmissionRecord struct {
	ID          string    `json:"_id"`
	Student     Ref       `json:"student"`
	StudentName string    `json:"studentName,omitempty"`
	Grade       string    `json:"grade,omitempty"`
	Competition Ref       `json:"competition"`
	Status      string    `json:"status"`
	Stage       string    `json:"stage,omitempty"`
	Result      string    `json:"result,omitempty"`
	Feedback    string    `json:"feedback,omitempty"`
	ProjectLink string    `json:"projectLink,omitempty"`
	Description string    `json:"description,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type CertificateRecord struct {
	ID          string    `json:"_id"`
	Student     Ref       `json:"student"`
	Competition Ref       `json:"competition"`
	Achievement string    `json:"achievement"`
	IssuedBy    string    `json:"issuedBy"`
	IssueDate   time.Time `json:"issueDate"`
}

type NotificationRecord struct {
	ID        string    `json:"_id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	Student   string    `json:"student,omitempty"`
}

type MemberRecord struct {
	User Ref    `json:"user"`
	Role string `json:"role"`
}

type TeamRecord struct {
	ID           string         `json:"_id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Competition  Ref            `json:"competition"`
	Leader       Ref            `json:"leader"`
	Members      []MemberRecord `json:"members"`
	Score        int            `json:"score"`
	Rank         int            `json:"rank"`
	Achievements []string       `json:"achievements"`
}

type JoinRequestRecord struct {
	ID      string `json:"_id"`
	Team    string `json:"team"`
	User    Ref    `json:"user"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type TeamMessageRecord struct {
	ID        string    `json:"_id"`
	Team      string    `json:"team"`
	Sender    Ref       `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type ResourceRecord struct {
	ID        string    `json:"_id"`
	Team      string    `json:"team"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	AddedBy   Ref       `json:"addedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Request bodies.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	School   string `json:"school"`
	OTP      string `json:"otp"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type CompetitionRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Stages          []string  `json:"stages"`
	Type            string    `json:"type"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	MaxParticipants int       `json:"maxParticipants"`
}

type SubmissionRequest struct {
	Competition string `json:"competition"`
	StudentName string `json:"studentName,omitempty"`
	Grade       string `json:"grade,omitempty"`
	ProjectLink string `json:"projectLink,omitempty"`
	Description string `json:"description,omitempty"`
}

// SubmissionUpdate is a partial update; empty fields are left untouched.
type SubmissionUpdate struct {
	Status      string `json:"status,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Result      string `json:"result,omitempty"`
	Feedback    string `json:"feedback,omitempty"`
	ProjectLink string `json:"projectLink,omitempty"`
	Description string `json:"description,omitempty"`
}

type CertificateRequest struct {
	Student     string `json:"student"`
	Competition string `json:"competition"`
	Achievement string `json:"achievement"`
}

type TeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Competition string `json:"competition"`
}

type JoinTeamRequest struct {
	Message string `json:"message"`
}

type TeamMessageRequest struct {
	Text string `json:"text"`
}

type ResourceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type LeaderRequest struct {
	UserID string `json:"userId"`
}
