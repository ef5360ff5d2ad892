package domain

import (
	"strings"

	"contesthub/internal/model"
)

// The getters below are pure filters over the cache. They never fetch and
// always return fresh slices the caller may modify.

// Competitions returns every cached competition.
func (s *Store) Competitions() []model.Competition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Competition(nil), s.competitions...)
}

// Competition finds a competition by id, then by case-insensitive name.
func (s *Store) Competition(idOrName string) (model.Competition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.competitions {
		if c.ID == idOrName {
			return c, true
		}
	}
	for _, c := range s.competitions {
		if strings.EqualFold(c.Name, strings.TrimSpace(idOrName)) {
			return c, true
		}
	}
	return model.Competition{}, false
}

func (s *Store) competitionNameLocked(id string) string {
	for _, c := range s.competitions {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// Submissions returns every cached submission.
func (s *Store) Submissions() []model.Submission {
	return s.filterSubmissions(func(model.Submission) bool { return true })
}

// GetStudentSubmissions returns the cached submissions of one student.
func (s *Store) GetStudentSubmissions(studentID string) []model.Submission {
	return s.filterSubmissions(func(sub model.Submission) bool { return sub.StudentID == studentID })
}

// GetCompetitionSubmissions returns the cached submissions for one competition.
func (s *Store) GetCompetitionSubmissions(competitionID string) []model.Submission {
	return s.filterSubmissions(func(sub model.Submission) bool { return sub.CompetitionID == competitionID })
}

func (s *Store) filterSubmissions(keep func(model.Submission) bool) []model.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Submission{}
	for _, sub := range s.submissions {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	return out
}

func (s *Store) registration(studentID, competitionID string) (model.Submission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.StudentID == studentID && sub.CompetitionID == competitionID {
			return sub, true
		}
	}
	return model.Submission{}, false
}

// Certificates returns every cached certificate.
func (s *Store) Certificates() []model.Certificate {
	return s.filterCertificates(func(model.Certificate) bool { return true })
}

// GetStudentCertificates returns the cached certificates of one student.
func (s *Store) GetStudentCertificates(studentID string) []model.Certificate {
	return s.filterCertificates(func(c model.Certificate) bool { return c.StudentID == studentID })
}

// GetCompetitionCertificates returns the cached certificates for one competition.
func (s *Store) GetCompetitionCertificates(competitionID string) []model.Certificate {
	return s.filterCertificates(func(c model.Certificate) bool { return c.CompetitionID == competitionID })
}

func (s *Store) filterCertificates(keep func(model.Certificate) bool) []model.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Certificate{}
	for _, c := range s.certificates {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Students is the admin students list: one row per submission, with the
// status title-cased for display.
func (s *Store) Students() []model.StudentEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.StudentEntry, 0, len(s.submissions))
	for _, sub := range s.submissions {
		comp := sub.CompetitionName
		if comp == "" {
			comp = s.competitionNameLocked(sub.CompetitionID)
		}
		out = append(out, model.StudentEntry{
			ID:          sub.ID,
			StudentID:   sub.StudentID,
			Name:        sub.StudentName,
			Grade:       sub.Grade,
			Competition: comp,
			Status:      sub.Status.Display(),
		})
	}
	return out
}

// Roster returns the students of the admin's school.
func (s *Store) Roster() []model.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Student(nil), s.roster...)
}
