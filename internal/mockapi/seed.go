package mockapi

import (
	"fmt"
	"strings"
	"time"

	"contesthub/internal/api"
)

// UserSeed describes an account created without the OTP flow.
type UserSeed struct {
	Name     string
	Email    string
	Password string
	Role     string
	School   string
	Grade    string
}

// AddSchool registers a school and returns its code.
func (s *Server) AddSchool(name, code string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schools[strings.ToLower(name)] = schoolInfo{name: name, code: code}
	return code
}

// AddUser creates an account directly and returns its id. The school is
// created when unknown.
func (s *Server) AddUser(u UserSeed) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByEmail(u.Email) != nil {
		return "", fmt.Errorf("mockapi: %s already registered", u.Email)
	}
	school, ok := s.schoolName(u.School)
	if !ok {
		school = u.School
		s.schools[strings.ToLower(school)] = schoolInfo{name: school, code: strings.ToUpper(school)}
	}
	acc, err := s.addAccount(u.Name, u.Email, u.Password, u.Role, school, u.Grade)
	if err != nil {
		return "", err
	}
	return acc.ID, nil
}

// AddCompetition stores a competition and returns its id.
func (s *Server) AddCompetition(rec api.CompetitionRecord) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	if rec.Type == "" {
		rec.Type = "internal"
	}
	s.competitions = append(s.competitions, rec)
	return rec.ID
}

// SetTeamScore sets a team's leaderboard score.
func (s *Server) SetTeamScore(teamID string, score int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findTeam(teamID)
	if t == nil {
		return false
	}
	t.Score = score
	return true
}

// Broadcast adds a server-side notification. An empty studentID is global.
func (s *Server) Broadcast(studentID, typ, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify(studentID, typ, msg)
}

// Seed loads a demo school. Every seeded account uses the password "password123".
func (s *Server) Seed() error {
	const pw = "password123"
	s.AddSchool("Riverside High", "RIV-2024")

	users := []UserSeed{
		{Name: "Grace Hopper", Email: "admin@riverside.test", Role: "admin"},
		{Name: "Alice Martin", Email: "alice@riverside.test", Role: "student", Grade: "10"},
		{Name: "Ben Okafor", Email: "ben@riverside.test", Role: "student", Grade: "11"},
		{Name: "Chloe Tan", Email: "chloe@riverside.test", Role: "student", Grade: "10"},
	}
	ids := make([]string, len(users))
	for i, u := range users {
		u.Password, u.School = pw, "Riverside High"
		id, err := s.AddUser(u)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	start := s.now().Truncate(24 * time.Hour).Add(14 * 24 * time.Hour)
	fair := s.AddCompetition(api.CompetitionRecord{
		Title:           "Science Fair",
		Description:     "Annual school science fair.",
		Stages:          []string{"Registration", "Qualifier", "Finals"},
		Type:            "internal",
		StartDate:       start,
		EndDate:         start.Add(30 * 24 * time.Hour),
		MaxParticipants: 100,
	})
	s.AddCompetition(api.CompetitionRecord{
		Title:     "Regional Robotics Challenge",
		Stages:    []string{"Design Review", "Build", "Tournament"},
		Type:      "external",
		StartDate: start.Add(7 * 24 * time.Hour),
		EndDate:   start.Add(60 * 24 * time.Hour),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	team := api.TeamRecord{
		ID:          s.newID(),
		Name:        "Circuit Breakers",
		Description: "Solar-powered water purifier.",
		Competition: api.Ref{ID: fair},
		Leader:      api.Ref{ID: ids[2]},
		Members: []api.MemberRecord{
			{User: api.Ref{ID: ids[2]}, Role: "leader"},
			{User: api.Ref{ID: ids[3]}, Role: "member"},
		},
		Score:        120,
		Achievements: []string{"Best Prototype"},
	}
	s.teams = append(s.teams, team)
	s.notify("", "info", "Welcome to the Riverside High competition hub")
	return nil
}
