// Package domain caches competitions, submissions, certificates, the school
// roster and notifications for the current identity.
package domain

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"contesthub/internal/api"
	"contesthub/internal/model"
)

// ErrNoIdentity is returned by operations that need a logged-in user.
var ErrNoIdentity = errors.New("domain: not logged in")

// Backend is the subset of the REST client the store calls.
type Backend interface {
	ListCompetitions(ctx context.Context) ([]api.CompetitionRecord, error)
	CreateCompetition(ctx context.Context, req api.CompetitionRequest) (*api.CompetitionRecord, error)
	ListNotifications(ctx context.Context) ([]api.NotificationRecord, error)
	ListSubmissions(ctx context.Context) ([]api.SubmissionRecord, error)
	ListMySubmissions(ctx context.Context) ([]api.SubmissionRecord, error)
	CreateSubmission(ctx context.Context, req api.SubmissionRequest) (*api.SubmissionRecord, error)
	UpdateSubmission(ctx context.Context, id string, req api.SubmissionUpdate) (*api.SubmissionRecord, error)
	ListCertificates(ctx context.Context) ([]api.CertificateRecord, error)
	ListMyCertificates(ctx context.Context) ([]api.CertificateRecord, error)
	IssueCertificate(ctx context.Context, req api.CertificateRequest) (*api.CertificateRecord, error)
	ListStudents(ctx context.Context) ([]api.UserRecord, error)
}

// Identities reports who is asking.
type Identities interface {
	Identity() *model.Identity
}

// Store is the domain store. Reads are served from the cache; network calls
// happen outside the lock and their results are merged in arrival order.
type Store struct {
	backend Backend
	ids     Identities
	log     *slog.Logger
	now     func() time.Time
	newID   func() string

	mu           sync.RWMutex
	competitions []model.Competition
	submissions  []model.Submission
	certificates []model.Certificate
	roster       []model.Student
	serverNotes  []model.Notification
	localNotes   []model.Notification
	dismissed    map[string]bool
	loadedFor    string // identity id the cached collections belong to
}

// New creates an empty store.
func New(backend Backend, ids Identities, log *slog.Logger) *Store {
	return &Store{
		backend:   backend,
		ids:       ids,
		log:       log.With("store", "domain"),
		now:       time.Now,
		newID:     uuid.NewString,
		dismissed: make(map[string]bool),
	}
}

// Refresh refetches every collection the current identity may see. Each
// fetch runs concurrently and is isolated: a failure is logged and leaves
// that collection as it was. Refresh never returns a fetch error.
func (s *Store) Refresh(ctx context.Context) {
	id := s.ids.Identity()
	if id == nil {
		s.mu.Lock()
		s.resetLocked("")
		s.mu.Unlock()
		s.log.Debug("identity cleared, role-scoped data dropped")
		return
	}
	s.mu.Lock()
	if s.loadedFor != "" && s.loadedFor != id.ID {
		s.resetLocked("")
		s.log.Debug("identity changed, user-scoped data dropped", "to", id.ID)
	}
	s.loadedFor = id.ID
	s.mu.Unlock()

	var g errgroup.Group
	fetch := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(ctx); err != nil {
				s.log.Warn("fetch failed", "collection", name, "err", err)
			}
			return nil
		})
	}

	fetch("competitions", s.fetchCompetitions)
	fetch("notifications", s.fetchNotifications)
	if id.IsAdmin() {
		fetch("submissions", s.fetchSubmissions(s.backend.ListSubmissions))
		fetch("certificates", s.fetchCertificates(s.backend.ListCertificates))
		fetch("roster", s.fetchRoster)
	} else {
		fetch("submissions", s.fetchSubmissions(s.backend.ListMySubmissions))
		fetch("certificates", s.fetchCertificates(s.backend.ListMyCertificates))
	}
	_ = g.Wait()
}

// resetLocked drops everything scoped to the previous identity. Competitions
// are public and stay cached.
func (s *Store) resetLocked(owner string) {
	s.submissions, s.certificates, s.roster = nil, nil, nil
	s.serverNotes, s.localNotes = nil, nil
	s.dismissed = make(map[string]bool)
	s.loadedFor = owner
}

func (s *Store) fetchCompetitions(ctx context.Context) error {
	recs, err := s.backend.ListCompetitions(ctx)
	if err != nil {
		return err
	}
	comps := api.MapAll(recs, api.MapCompetition)
	s.mu.Lock()
	s.competitions = comps
	s.mu.Unlock()
	return nil
}

func (s *Store) fetchNotifications(ctx context.Context) error {
	recs, err := s.backend.ListNotifications(ctx)
	if err != nil {
		return err
	}
	notes := api.MapAll(recs, api.MapNotification)
	s.mu.Lock()
	s.serverNotes = notes
	s.mu.Unlock()
	return nil
}

func (s *Store) fetchSubmissions(list func(context.Context) ([]api.SubmissionRecord, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		recs, err := list(ctx)
		if err != nil {
			return err
		}
		subs := api.MapAll(recs, api.MapSubmission)
		s.mu.Lock()
		dropped := reconcile(s.submissions, subs,
			func(v model.Submission) string { return v.ID },
			func(v model.Submission) bool { return v.Optimistic })
		s.submissions = subs
		s.mu.Unlock()
		if dropped > 0 {
			s.log.Warn("optimistic submissions not confirmed by server", "dropped", dropped)
		}
		return nil
	}
}

func (s *Store) fetchCertificates(list func(context.Context) ([]api.CertificateRecord, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		recs, err := list(ctx)
		if err != nil {
			return err
		}
		certs := api.MapAll(recs, api.MapCertificate)
		s.mu.Lock()
		s.certificates = certs
		s.mu.Unlock()
		return nil
	}
}

func (s *Store) fetchRoster(ctx context.Context) error {
	recs, err := s.backend.ListStudents(ctx)
	if err != nil {
		return err
	}
	students := api.MapAll(recs, api.MapStudent)
	s.mu.Lock()
	s.roster = students
	s.mu.Unlock()
	return nil
}

// reconcile counts optimistic entries of cached that the authoritative
// server list does not contain. The server list replaces the cache, so
// confirmed entries lose their optimistic flag and the rest are dropped.
func reconcile[T any](cached, server []T, id func(T) string, optimistic func(T) bool) int {
	seen := make(map[string]bool, len(server))
	for _, v := range server {
		seen[id(v)] = true
	}
	dropped := 0
	for _, v := range cached {
		if optimistic(v) && !seen[id(v)] {
			dropped++
		}
	}
	return dropped
}

// AddNotification pushes a local notification. An empty studentID makes it global.
func (s *Store) AddNotification(text string, typ model.NotificationType, studentID string) model.Notification {
	n := model.Notification{
		ID:        s.newID(),
		Text:      text,
		Type:      typ,
		Date:      s.now(),
		StudentID: studentID,
	}
	s.mu.Lock()
	s.localNotes = append(s.localNotes, n)
	s.mu.Unlock()
	return n
}

// RemoveNotification dismisses a notification. A dismissed server
// notification stays hidden across refetches for this identity.
func (s *Store) RemoveNotification(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.localNotes {
		if n.ID == id {
			s.localNotes = append(s.localNotes[:i:i], s.localNotes[i+1:]...)
			return true
		}
	}
	for _, n := range s.serverNotes {
		if n.ID == id && !s.dismissed[id] {
			s.dismissed[id] = true
			return true
		}
	}
	return false
}

// Notifications returns every notification, newest first.
func (s *Store) Notifications() []model.Notification {
	s.mu.RLock()
	out := make([]model.Notification, 0, len(s.serverNotes)+len(s.localNotes))
	for _, n := range s.serverNotes {
		if !s.dismissed[n.ID] {
			out = append(out, n)
		}
	}
	out = append(out, s.localNotes...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// VisibleNotifications returns the notifications the current identity may see.
func (s *Store) VisibleNotifications() []model.Notification {
	id := s.ids.Identity()
	all := s.Notifications()
	out := all[:0]
	for _, n := range all {
		if n.VisibleTo(id) {
			out = append(out, n)
		}
	}
	return out
}
