// Package model holds the view records every store hands to callers.
// Wire records live in internal/api and are mapped into these types at the API boundary.
package model

import (
	"strings"
	"time"
)

// Role of an authenticated principal.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Identity is the logged-in principal.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	School string `json:"school,omitempty"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// CompetitionType distinguishes school-run contests from external ones.
type CompetitionType string

const (
	CompetitionInternal CompetitionType = "internal"
	CompetitionExternal CompetitionType = "external"
)

// Competition is a contest definition.
type Competition struct {
	ID              string
	Name            string
	Description     string
	Stages          []string
	Type            CompetitionType
	StartDate       time.Time
	EndDate         time.Time
	MaxParticipants int
}

// SubmissionStatus is the admin decision on a registration.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// ParseSubmissionStatus accepts any casing ("Approved", "approved").
func ParseSubmissionStatus(s string) (SubmissionStatus, bool) {
	switch st := SubmissionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, true
	}
	return "", false
}

// Display returns the title-cased label used by the admin students list.
func (s SubmissionStatus) Display() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Outcome is the result of a submission at its current stage.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
)

// Submission is a student's registration and/or project entry for a competition.
type Submission struct {
	ID              string
	StudentID       string
	StudentName     string
	Grade           string
	CompetitionID   string
	CompetitionName string
	Status          SubmissionStatus
	Stage           string
	Result          Outcome
	Feedback        string
	ProjectLink     string
	Description     string
	SubmittedAt     time.Time
	// Optimistic marks an entry merged from a mutation response and not yet
	// confirmed by an authoritative fetch.
	Optimistic bool
}

// StudentEntry is one row of the admin students list.
type StudentEntry struct {
	ID          string
	StudentID   string
	Name        string
	Grade       string
	Competition string
	Status      string
}

// Student is a roster record of the admin's school.
type Student struct {
	ID     string
	Name   string
	Email  string
	Grade  string
	School string
}

// Certificate is an awarded credential. Immutable once issued.
type Certificate struct {
	ID              string
	StudentID       string
	StudentName     string
	CompetitionID   string
	CompetitionName string
	Achievement     string
	Issuer          string
	Date            time.Time
}

// NotificationType drives how a notification is rendered.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is a transient informational message. An empty StudentID
// means the notification is global.
type Notification struct {
	ID        string
	Text      string
	Type      NotificationType
	Date      time.Time
	StudentID string
}

// VisibleTo reports whether a notification is shown to the identity.
func (n Notification) VisibleTo(id *Identity) bool {
	if n.StudentID == "" || id.IsAdmin() {
		return true
	}
	return id != nil && id.ID == n.StudentID
}

// MemberRole is the role of a user inside a team.
type MemberRole string

const (
	MemberLeader MemberRole = "leader"
	MemberMember MemberRole = "member"
)

// Member is one entry of a team's ordered member list.
type Member struct {
	ID   string
	Name string
	Role MemberRole
}

// Team is a group of students collaborating on a competition.
type Team struct {
	ID            string
	Name          string
	Description   string
	CompetitionID string
	LeaderID      string
	Members       []Member
	Score         int
	Rank          int
	Achievements  []string
	Optimistic    bool
}

// HasMember reports whether userID is in the member list.
func (t Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// RequestStatus is the state of a join request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// JoinRequest is an application by a non-member to join a team.
type JoinRequest struct {
	ID       string
	TeamID   string
	UserID   string
	UserName string
	Message  string
	Status   RequestStatus
}

// TeamMessage is one line of a team chat.
type TeamMessage struct {
	ID         string
	TeamID     string
	SenderID   string
	SenderName string
	Text       string
	Timestamp  time.Time
}

// ResourceType tells a link from an uploaded file.
type ResourceType string

const (
	ResourceLink ResourceType = "link"
	ResourceFile ResourceType = "file"
)

// TeamResource is a shared link or file reference.
type TeamResource struct {
	ID        string
	TeamID    string
	Name      string
	Type      ResourceType
	URL       string
	AddedBy   string
	Timestamp time.Time
}

// LeaderboardEntry is one ranked team of a competition.
type LeaderboardEntry struct {
	Rank     int
	TeamID   string
	TeamName string
	Score    int
}

// AdminParty is the recipient id used for the admin pool in direct messages.
const AdminParty = "admin"

// ConversationMessage is a direct message between a student and the admin pool.
type ConversationMessage struct {
	ID          string
	SenderID    string
	SenderName  string
	SenderRole  Role
	RecipientID string
	Text        string
	Timestamp   time.Time
	Read        bool
}

// StudentSide returns the id of the student party of the message.
func (m ConversationMessage) StudentSide() string {
	if m.SenderRole == RoleStudent {
		return m.SenderID
	}
	return m.RecipientID
}

// Thread groups every message exchanged with one student.
type Thread struct {
	StudentID   string
	StudentName string
	Messages    []ConversationMessage
	UnreadCount int
	LastMessage ConversationMessage
}
