package api

import (
	"contesthub/internal/model"
)

// The Map functions translate server records into view records. They are
// pure and cover every field the server sends.

// MapIdentity converts a user record into the logged-in identity.
func MapIdentity(r UserRecord) model.Identity {
	return model.Identity{
		ID:     r.ID,
		Name:   r.Name,
		Email:  r.Email,
		Role:   model.Role(r.Role),
		School: r.School,
	}
}

// MapStudent converts a user record into a roster entry.
func MapStudent(r UserRecord) model.Student {
	return model.Student{
		ID:     r.ID,
		Name:   r.Name,
		Email:  r.Email,
		Grade:  r.Grade,
		School: r.School,
	}
}

// MapCompetition converts a competition record. A missing type means internal.
func MapCompetition(r CompetitionRecord) model.Competition {
	ctype := model.CompetitionType(r.Type)
	if ctype == "" {
		ctype = model.CompetitionInternal
	}
	return model.Competition{
		ID:              r.ID,
		Name:            r.Title,
		Description:     r.Description,
		Stages:          append([]string(nil), r.Stages...),
		Type:            ctype,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		MaxParticipants: r.MaxParticipants,
	}
}

// MapSubmission converts a submission record. Unknown statuses read as pending.
func MapSubmission(r SubmissionRecord) model.Submission {
	status, ok := model.ParseSubmissionStatus(r.Status)
	if !ok {
		status = model.StatusPending
	}
	result := model.Outcome(r.Result)
	if result == "" {
		result = model.OutcomePending
	}
	name := r.StudentName
	if name == "" {
		name = r.Student.Name
	}
	return model.Submission{
		ID:              r.ID,
		StudentID:       r.Student.ID,
		StudentName:     name,
		Grade:           r.Grade,
		CompetitionID:   r.Competition.ID,
		CompetitionName: r.Competition.Name,
		Status:          status,
		Stage:           r.Stage,
		Result:          result,
		Feedback:        r.Feedback,
		ProjectLink:     r.ProjectLink,
		Description:     r.Description,
		SubmittedAt:     r.SubmittedAt,
	}
}

// MapCertificate converts a certificate record.
func MapCertificate(r CertificateRecord) model.Certificate {
	return model.Certificate{
		ID:              r.ID,
		StudentID:       r.Student.ID,
		StudentName:     r.Student.Name,
		CompetitionID:   r.Competition.ID,
		CompetitionName: r.Competition.Name,
		Achievement:     r.Achievement,
		Issuer:          r.IssuedBy,
		Date:            r.IssueDate,
	}
}

// MapNotification converts a notification record.
func MapNotification(r NotificationRecord) model.Notification {
	ntype := model.NotificationType(r.Type)
	if ntype == "" {
		ntype = model.NotifyInfo
	}
	return model.Notification{
		ID:        r.ID,
		Text:      r.Message,
		Type:      ntype,
		Date:      r.CreatedAt,
		StudentID: r.Student,
	}
}

// MapTeam keeps the leader inside the member list: a leader the server did
// not list as a member is prepended.
func MapTeam(r TeamRecord) model.Team {
	members := make([]model.Member, 0, len(r.Members)+1)
	leaderListed := false
	for _, m := range r.Members {
		role := model.MemberRole(m.Role)
		if m.User.ID == r.Leader.ID {
			role = model.MemberLeader
			leaderListed = true
		} else if role == "" || role == model.MemberLeader {
			role = model.MemberMember
		}
		members = append(members, model.Member{ID: m.User.ID, Name: m.User.Name, Role: role})
	}
	if !leaderListed && r.Leader.ID != "" {
		members = append([]model.Member{{ID: r.Leader.ID, Name: r.Leader.Name, Role: model.MemberLeader}}, members...)
	}

	return model.Team{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		CompetitionID: r.Competition.ID,
		LeaderID:      r.Leader.ID,
		Members:       members,
		Score:         r.Score,
		Rank:          r.Rank,
		Achievements:  append([]string(nil), r.Achievements...),
	}
}

// MapJoinRequest converts a join request record. A missing status means pending.
func MapJoinRequest(r JoinRequestRecord) model.JoinRequest {
	status := model.RequestStatus(r.Status)
	if status == "" {
		status = model.RequestPending
	}
	return model.JoinRequest{
		ID:       r.ID,
		TeamID:   r.Team,
		UserID:   r.User.ID,
		UserName: r.User.Name,
		Message:  r.Message,
		Status:   status,
	}
}

// MapTeamMessage converts a team chat record.
func MapTeamMessage(r TeamMessageRecord) model.TeamMessage {
	return model.TeamMessage{
		ID:         r.ID,
		TeamID:     r.Team,
		SenderID:   r.Sender.ID,
		SenderName: r.Sender.Name,
		Text:       r.Text,
		Timestamp:  r.CreatedAt,
	}
}

// MapTeamResource converts a resource record. A missing type means link.
func MapTeamResource(r ResourceRecord) model.TeamResource {
	rtype := model.ResourceType(r.Type)
	if rtype == "" {
		rtype = model.ResourceLink
	}
	addedBy := r.AddedBy.Name
	if addedBy == "" {
		addedBy = r.AddedBy.ID
	}
	return model.TeamResource{
		ID:        r.ID,
		TeamID:    r.Team,
		Name:      r.Name,
		Type:      rtype,
		URL:       r.URL,
		AddedBy:   addedBy,
		Timestamp: r.CreatedAt,
	}
}

// MapAll applies fn to every record.
func MapAll[R, V any](records []R, fn func(R) V) []V {
	out := make([]V, 0, len(records))
	for _, r := range records {
		out = append(out, fn(r))
	}
	return out
}
