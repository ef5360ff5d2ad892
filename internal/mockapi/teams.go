package mockapi

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"contesthub/internal/api"
	"contesthub/internal/validation"
)

func (s *Server) findTeam(id string) *api.TeamRecord {
	for i := range s.teams {
		if s.teams[i].ID == id {
			return &s.teams[i]
		}
	}
	return nil
}

func isMember(t *api.TeamRecord, userID string) bool {
	for _, m := range t.Members {
		if m.User.ID == userID {
			return true
		}
	}
	return false
}

func (s *Server) ref(userID string) api.Ref {
	r := api.Ref{ID: userID}
	if u, ok := s.users[userID]; ok {
		r.Name = u.Name
	}
	return r
}

func (s *Server) populateTeam(t api.TeamRecord) api.TeamRecord {
	t.Leader = s.ref(t.Leader.ID)
	members := make([]api.MemberRecord, len(t.Members))
	for i, m := range t.Members {
		members[i] = api.MemberRecord{User: s.ref(m.User.ID), Role: m.Role}
	}
	t.Members = members
	if comp := s.findCompetition(t.Competition.ID); comp != nil {
		t.Competition = api.Ref{ID: comp.ID, Name: comp.Title}
	}
	return t
}

// teamFor loads the team in :id and checks the caller against it. It writes
// the error response and returns nil when the check fails. Caller holds s.mu.
func (s *Server) teamFor(c *gin.Context, leaderOnly, memberOnly bool) *api.TeamRecord {
	t := s.findTeam(c.Param("id"))
	if t == nil {
		fail(c, http.StatusNotFound, "Team not found")
		return nil
	}
	me := caller(c).Subject
	if leaderOnly && t.Leader.ID != me {
		fail(c, http.StatusForbidden, "Only the team leader can do that")
		return nil
	}
	if memberOnly && !isMember(t, me) {
		fail(c, http.StatusForbidden, "You are not a member of this team")
		return nil
	}
	return t
}

func (s *Server) listTeams(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.TeamRecord, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, s.populateTeam(t))
	}
	c.JSON(http.StatusOK, out)
}

type teamRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=60"`
	Description string `json:"description" validate:"max=500"`
	Competition string `json:"competition" validate:"required"`
}

func (s *Server) createTeam(c *gin.Context) {
	var req teamRequest
	if !bind(c, &req) {
		return
	}
	me := caller(c).Subject

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findCompetition(req.Competition) == nil {
		failFields(c, validation.FieldErrors{"competition": "Competition not found"})
		return
	}
	for _, t := range s.teams {
		if t.Competition.ID == req.Competition && t.Name == req.Name {
			failFields(c, validation.FieldErrors{"name": "A team with that name already exists"})
			return
		}
	}

	t := api.TeamRecord{
		ID:           s.newID(),
		Name:         req.Name,
		Description:  req.Description,
		Competition:  api.Ref{ID: req.Competition},
		Leader:       api.Ref{ID: me},
		Members:      []api.MemberRecord{{User: api.Ref{ID: me}, Role: "leader"}},
		Achievements: []string{},
	}
	s.teams = append(s.teams, t)
	c.JSON(http.StatusCreated, s.populateTeam(t))
}

type joinRequest struct {
	Message string `json:"message" validate:"max=500"`
}

func (s *Server) joinTeam(c *gin.Context) {
	var req joinRequest
	if !bind(c, &req) {
		return
	}
	me := caller(c).Subject

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teamFor(c, false, false)
	if t == nil {
		return
	}
	if isMember(t, me) {
		fail(c, http.StatusConflict, "You are already a member of this team")
		return
	}
	for _, r := range s.joinRequests {
		if r.Team == t.ID && r.User.ID == me && r.Status == "pending" {
			fail(c, http.StatusConflict, "You already have a pending request for this team")
			return
		}
	}

	rec := api.JoinRequestRecord{
		ID:      s.newID(),
		Team:    t.ID,
		User:    s.ref(me),
		Message: req.Message,
		Status:  "pending",
	}
	s.joinRequests = append(s.joinRequests, rec)
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listJoinRequests(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teamFor(c, true, false)
	if t == nil {
		return
	}
	out := []api.JoinRequestRecord{}
	for _, r := range s.joinRequests {
		if r.Team == t.ID {
			r.User = s.ref(r.User.ID)
			out = append(out, r)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) resolveJoinRequest(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		t := s.teamFor(c, true, false)
		if t == nil {
			return
		}

		var req *api.JoinRequestRecord
		for i := range s.joinRequests {
			if s.joinRequests[i].ID == c.Param("rid") && s.joinRequests[i].Team == t.ID {
				req = &s.joinRequests[i]
			}
		}
		if req == nil {
			fail(c, http.StatusNotFound, "Join request not found")
			return
		}
		if req.Status != "pending" {
			fail(c, http.StatusConflict, "Join request already "+req.Status)
			return
		}

		if approve {
			req.Status = "approved"
			if !isMember(t, req.User.ID) {
				t.Members = append(t.Members, api.MemberRecord{User: api.Ref{ID: req.User.ID}, Role: "member"})
			}
			s.notify(req.User.ID, "success", "You joined "+t.Name)
		} else {
			req.Status = "rejected"
			s.notify(req.User.ID, "warning", "Your request to join "+t.Name+" was declined")
		}
		out := *req
		out.User = s.ref(out.User.ID)
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) listTeamMessages(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teamFor(c, false, true)
	if t == nil {
		return
	}
	out := []api.TeamMessageRecord{}
	for _, m := range s.messages[t.ID] {
		m.Sender = s.ref(m.Sender.ID)
		out = append(out, m)
	}
	c.JSON(http.StatusOK, out)
}

type teamMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

func (s *Server) sendTeamMessage(c *gin.Context) {
	var req teamMessageRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teamFor(c, false, true)
	if t == nil {
		return
	}
	rec := api.TeamMessageRecord{
		ID:        s.newID(),
		Team:      t.ID,
		Sender:    api.Ref{ID: caller(c).Subject},
		Text:      req.Text,
		CreatedAt: s.now(),
	}
	s.messages[t.ID] = append(s.messages[t.ID], rec)
	rec.Sender = s.ref(rec.Sender.ID)
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listTeamResources(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teamFor(c, false, true)
	if t == nil {
		return
	}
	out := []api.ResourceRecord{}
	for _, r := range s.resources[t.ID] {
		r.AddedBy = s.ref(r.AddedBy.ID)
		out = append(out, r)
	}
	c.JSON(http.StatusOK, out)
}

type resourceRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Type string `json:"type" validate:"required,oneof=link file"`
	URL  string `json:"url" validate:"required,url"`
}

func (s *Server) addTeamResource(c *gin.Context) {
	var req resourceRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teamFor(c, false, true)
	if t == nil {
		return
	}
	rec := api.ResourceRecord{
		ID:        s.newID(),
		Team:      t.ID,
		Name:      req.Name,
		Type:      req.Type,
		URL:       req.URL,
		AddedBy:   api.Ref{ID: caller(c).Subject},
		CreatedAt: s.now(),
	}
	s.resources[t.ID] = append(s.resources[t.ID], rec)
	rec.AddedBy = s.ref(rec.AddedBy.ID)
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) removeTeamMember(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teamFor(c, true, false)
	if t == nil {
		return
	}
	target := c.Param("mid")
	if target == t.Leader.ID {
		fail(c, http.StatusBadRequest, "Transfer leadership before leaving the team")
		return
	}
	kept := t.Members[:0]
	found := false
	for _, m := range t.Members {
		if m.User.ID == target {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		fail(c, http.StatusNotFound, "Member not found")
		return
	}
	t.Members = kept
	s.notify(target, "warning", "You were removed from "+t.Name)
	c.JSON(http.StatusOK, s.populateTeam(*t))
}

type leaderRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (s *Server) setTeamLeader(c *gin.Context) {
	var req leaderRequest
	if !bind(c, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teamFor(c, true, false)
	if t == nil {
		return
	}
	if !isMember(t, req.UserID) {
		failFields(c, validation.FieldErrors{"userId": "New leader must be a team member"})
		return
	}
	for i := range t.Members {
		switch t.Members[i].User.ID {
		case req.UserID:
			t.Members[i].Role = "leader"
		case t.Leader.ID:
			t.Members[i].Role = "member"
		}
	}
	t.Leader = api.Ref{ID: req.UserID}
	c.JSON(http.StatusOK, s.populateTeam(*t))
}

func sortUsers(users []api.UserRecord) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
}
