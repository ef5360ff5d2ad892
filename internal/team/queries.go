package team

import (
	"sort"

	"contesthub/internal/model"
)

// Teams returns every cached team.
func (s *Store) Teams() []model.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Team(nil), s.teams...)
}

// Team returns a cached team by id.
func (s *Store) Team(teamID string) (model.Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if t.ID == teamID {
			return t, true
		}
	}
	return model.Team{}, false
}

// IsTeamMember reports whether the current user is on the team.
func (s *Store) IsTeamMember(teamID string) bool {
	id := s.ids.Identity()
	if id == nil {
		return false
	}
	t, ok := s.Team(teamID)
	return ok && t.HasMember(id.ID)
}

// IsTeamLeader reports whether the current user leads the team.
func (s *Store) IsTeamLeader(teamID string) bool {
	id := s.ids.Identity()
	if id == nil {
		return false
	}
	t, ok := s.Team(teamID)
	return ok && t.LeaderID == id.ID
}

// GetUserTeams returns the teams the current user belongs to.
func (s *Store) GetUserTeams() []model.Team {
	id := s.ids.Identity()
	out := []model.Team{}
	if id == nil {
		return out
	}
	for _, t := range s.Teams() {
		if t.HasMember(id.ID) {
			out = append(out, t)
		}
	}
	return out
}

// GetMyTeamRequests returns the pending requests for teams the user leads.
// Resolved requests are never included.
func (s *Store) GetMyTeamRequests() []model.JoinRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.JoinRequest{}
	for _, r := range s.incoming {
		if r.Status == model.RequestPending {
			out = append(out, r)
		}
	}
	return out
}

// GetUserRequests returns the join requests the user sent this session.
func (s *Store) GetUserRequests() []model.JoinRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.JoinRequest{}, s.outgoing...)
}

// Messages returns the cached chat of a team. Call LoadMessages first.
func (s *Store) Messages(teamID string) []model.TeamMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TeamMessage{}, s.messages[teamID]...)
}

// Resources returns the cached resources of a team. Call LoadResources first.
func (s *Store) Resources(teamID string) []model.TeamResource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TeamResource{}, s.resources[teamID]...)
}

// Leaderboard ranks the teams of a competition by score, highest first.
// Ties are ordered by name and still get distinct ranks.
func (s *Store) Leaderboard(competitionID string) []model.LeaderboardEntry {
	var teams []model.Team
	for _, t := range s.Teams() {
		if t.CompetitionID == competitionID {
			teams = append(teams, t)
		}
	}
	sort.SliceStable(teams, func(i, j int) bool {
		if teams[i].Score != teams[j].Score {
			return teams[i].Score > teams[j].Score
		}
		return teams[i].Name < teams[j].Name
	})

	out := make([]model.LeaderboardEntry, len(teams))
	for i, t := range teams {
		out[i] = model.LeaderboardEntry{Rank: i + 1, TeamID: t.ID, TeamName: t.Name, Score: t.Score}
	}
	return out
}
