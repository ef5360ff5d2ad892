package team

import (
	"context"
	"fmt"
	"path/filepath"

	"contesthub/internal/api"
	"contesthub/internal/model"
	"contesthub/internal/validation"
)

// TeamForm creates a team for a competition.
type TeamForm struct {
	Name          string `json:"name" validate:"required,min=2,max=60"`
	Description   string `json:"description" validate:"max=500"`
	CompetitionID string `json:"competitionId" validate:"required"`
}

// CreateTeam creates the team on the server and caches a local copy with
// the creator as sole member and leader. The copy is optimistic until the
// next Refresh replaces it with the server's record.
func (s *Store) CreateTeam(ctx context.Context, form TeamForm) (model.Team, error) {
	id := s.ids.Identity()
	if id == nil {
		return model.Team{}, ErrNoIdentity
	}
	if err := validation.Struct(form); err != nil {
		return model.Team{}, err
	}

	rec, err := s.backend.CreateTeam(ctx, api.TeamRequest{
		Name:        form.Name,
		Description: form.Description,
		Competition: form.CompetitionID,
	})
	if err != nil {
		s.log.Warn("create team failed", "err", err)
		return model.Team{}, err
	}

	t := model.Team{
		ID:            rec.ID,
		Name:          form.Name,
		Description:   form.Description,
		CompetitionID: form.CompetitionID,
		LeaderID:      id.ID,
		Members:       []model.Member{{ID: id.ID, Name: id.Name, Role: model.MemberLeader}},
		Optimistic:    true,
	}
	s.replaceTeam(t)
	s.log.Info("team created", "team", t.ID, "name", t.Name)
	return t, nil
}

// RequestToJoinTeam asks to join a team. The request is remembered in
// GetUserRequests.
func (s *Store) RequestToJoinTeam(ctx context.Context, teamID, message string) (model.JoinRequest, error) {
	if s.ids.Identity() == nil {
		return model.JoinRequest{}, ErrNoIdentity
	}
	rec, err := s.backend.JoinTeam(ctx, teamID, message)
	if err != nil {
		s.log.Warn("join request failed", "team", teamID, "err", err)
		return model.JoinRequest{}, err
	}
	req := api.MapJoinRequest(*rec)
	if req.TeamID == "" {
		req.TeamID = teamID
	}

	s.mu.Lock()
	s.outgoing = append(s.outgoing, req)
	s.mu.Unlock()
	return req, nil
}

// ApproveJoinRequest approves a loaded pending request and refetches teams,
// since membership changed on the server.
func (s *Store) ApproveJoinRequest(ctx context.Context, requestID string) (model.JoinRequest, error) {
	req, err := s.resolve(ctx, requestID, s.backend.ApproveJoinRequest)
	if err != nil {
		return req, err
	}
	if err := s.fetchTeams(ctx); err != nil {
		s.log.Warn("refetch teams after approval failed", "err", err)
	}
	return req, nil
}

// RejectJoinRequest rejects a loaded pending request.
func (s *Store) RejectJoinRequest(ctx context.Context, requestID string) (model.JoinRequest, error) {
	return s.resolve(ctx, requestID, s.backend.RejectJoinRequest)
}

func (s *Store) resolve(ctx context.Context, requestID string, call func(context.Context, string, string) (*api.JoinRequestRecord, error)) (model.JoinRequest, error) {
	s.mu.RLock()
	var req model.JoinRequest
	found := false
	for _, r := range s.incoming {
		if r.ID == requestID {
			req, found = r, true
			break
		}
	}
	s.mu.RUnlock()

	if !found {
		return model.JoinRequest{}, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if req.Status != model.RequestPending {
		return req, fmt.Errorf("%w: %s is %s", ErrRequestResolved, requestID, req.Status)
	}

	rec, err := call(ctx, req.TeamID, req.ID)
	if err != nil {
		s.log.Warn("resolve join request failed", "request", requestID, "err", err)
		return req, err
	}
	resolved := api.MapJoinRequest(*rec)
	if resolved.TeamID == "" {
		resolved.TeamID = req.TeamID
	}

	s.mu.Lock()
	for i := range s.incoming {
		if s.incoming[i].ID == requestID {
			s.incoming[i] = resolved
		}
	}
	s.mu.Unlock()
	return resolved, nil
}

// LoadMessages fetches a team's chat and replaces its cached copy.
func (s *Store) LoadMessages(ctx context.Context, teamID string) ([]model.TeamMessage, error) {
	recs, err := s.backend.ListTeamMessages(ctx, teamID)
	if err != nil {
		s.log.Warn("load messages failed", "team", teamID, "err", err)
		return nil, err
	}
	msgs := api.MapAll(recs, api.MapTeamMessage)
	s.mu.Lock()
	s.messages[teamID] = msgs
	s.mu.Unlock()
	return append([]model.TeamMessage(nil), msgs...), nil
}

type messageForm struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// SendMessage posts to a team's chat and appends the echo to that team only.
func (s *Store) SendMessage(ctx context.Context, teamID, text string) (model.TeamMessage, error) {
	if err := validation.Struct(messageForm{Text: text}); err != nil {
		return model.TeamMessage{}, err
	}
	rec, err := s.backend.SendTeamMessage(ctx, teamID, text)
	if err != nil {
		s.log.Warn("send message failed", "team", teamID, "err", err)
		return model.TeamMessage{}, err
	}
	msg := api.MapTeamMessage(*rec)
	if msg.TeamID == "" {
		msg.TeamID = teamID
	}
	s.mu.Lock()
	s.messages[teamID] = append(s.messages[teamID], msg)
	s.mu.Unlock()
	return msg, nil
}

// LoadResources fetches a team's shared resources and replaces its cached copy.
func (s *Store) LoadResources(ctx context.Context, teamID string) ([]model.TeamResource, error) {
	recs, err := s.backend.ListTeamResources(ctx, teamID)
	if err != nil {
		s.log.Warn("load resources failed", "team", teamID, "err", err)
		return nil, err
	}
	res := api.MapAll(recs, api.MapTeamResource)
	s.mu.Lock()
	s.resources[teamID] = res
	s.mu.Unlock()
	return append([]model.TeamResource(nil), res...), nil
}

// ResourceForm shares a link, or a file when Data is set. Files are
// uploaded first and shared by their URL.
type ResourceForm struct {
	Name string             `json:"name" validate:"required,max=120"`
	Type model.ResourceType `json:"type" validate:"omitempty,oneof=link file"`
	URL  string             `json:"url" validate:"omitempty,url"`
	Data []byte             `json:"-"`
	// Filename defaults to Name.
	Filename string `json:"-"`
}

// AddResource shares a resource with a team.
func (s *Store) AddResource(ctx context.Context, teamID string, form ResourceForm) (model.TeamResource, error) {
	if err := validation.Struct(form); err != nil {
		return model.TeamResource{}, err
	}
	if form.URL == "" && len(form.Data) == 0 {
		return model.TeamResource{}, &validation.Error{Fields: validation.FieldErrors{"url": "url is required"}}
	}

	req := api.ResourceRequest{Name: form.Name, Type: string(form.Type), URL: form.URL}
	if req.Type == "" {
		req.Type = string(model.ResourceLink)
	}
	if len(form.Data) > 0 {
		if s.uploader == nil {
			return model.TeamResource{}, ErrUploadsDisabled
		}
		name := form.Filename
		if name == "" {
			name = filepath.Base(form.Name)
		}
		up, err := s.uploader.Upload(ctx, form.Data, name)
		if err != nil {
			s.log.Warn("upload failed", "team", teamID, "file", name, "err", err)
			return model.TeamResource{}, err
		}
		req.URL = up.SecureURL
		req.Type = string(model.ResourceFile)
	}

	rec, err := s.backend.AddTeamResource(ctx, teamID, req)
	if err != nil {
		s.log.Warn("add resource failed", "team", teamID, "err", err)
		return model.TeamResource{}, err
	}
	res := api.MapTeamResource(*rec)
	if res.TeamID == "" {
		res.TeamID = teamID
	}
	s.mu.Lock()
	s.resources[teamID] = append(s.resources[teamID], res)
	s.mu.Unlock()
	return res, nil
}

// RemoveMember removes a member and caches the server's updated team.
func (s *Store) RemoveMember(ctx context.Context, teamID, memberID string) (model.Team, error) {
	rec, err := s.backend.RemoveTeamMember(ctx, teamID, memberID)
	if err != nil {
		s.log.Warn("remove member failed", "team", teamID, "member", memberID, "err", err)
		return model.Team{}, err
	}
	t := api.MapTeam(*rec)
	s.replaceTeam(t)
	return t, nil
}

// TransferLeadership hands the team to another member. The old leader stops
// seeing the team's join requests.
func (s *Store) TransferLeadership(ctx context.Context, teamID, userID string) (model.Team, error) {
	rec, err := s.backend.SetTeamLeader(ctx, teamID, userID)
	if err != nil {
		s.log.Warn("transfer leadership failed", "team", teamID, "err", err)
		return model.Team{}, err
	}
	t := api.MapTeam(*rec)
	s.replaceTeam(t)

	if id := s.ids.Identity(); id != nil && t.LeaderID != id.ID {
		s.mu.Lock()
		kept := s.incoming[:0]
		for _, r := range s.incoming {
			if r.TeamID != teamID {
				kept = append(kept, r)
			}
		}
		s.incoming = kept
		s.mu.Unlock()
	}
	return t, nil
}
