// Package team caches teams, the join requests of teams the user leads, and
// per-team chat messages and resources loaded on demand.
package team

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"contesthub/internal/api"
	"contesthub/internal/cloudinary"
	"contesthub/internal/model"
)

var (
	ErrNoIdentity      = errors.New("team: not logged in")
	ErrRequestNotFound = errors.New("team: join request not loaded")
	ErrRequestResolved = errors.New("team: join request already resolved")
	ErrUploadsDisabled = errors.New("team: file uploads are not configured")
)

// Backend is the subset of the REST client the store calls.
type Backend interface {
	ListTeams(ctx context.Context) ([]api.TeamRecord, error)
	CreateTeam(ctx context.Context, req api.TeamRequest) (*api.TeamRecord, error)
	JoinTeam(ctx context.Context, teamID, message string) (*api.JoinRequestRecord, error)
	ListJoinRequests(ctx context.Context, teamID string) ([]api.JoinRequestRecord, error)
	ApproveJoinRequest(ctx context.Context, teamID, requestID string) (*api.JoinRequestRecord, error)
	RejectJoinRequest(ctx context.Context, teamID, requestID string) (*api.JoinRequestRecord, error)
	ListTeamMessages(ctx context.Context, teamID string) ([]api.TeamMessageRecord, error)
	SendTeamMessage(ctx context.Context, teamID, text string) (*api.TeamMessageRecord, error)
	ListTeamResources(ctx context.Context, teamID string) ([]api.ResourceRecord, error)
	AddTeamResource(ctx context.Context, teamID string, req api.ResourceRequest) (*api.ResourceRecord, error)
	RemoveTeamMember(ctx context.Context, teamID, memberID string) (*api.TeamRecord, error)
	SetTeamLeader(ctx context.Context, teamID, userID string) (*api.TeamRecord, error)
}

// Uploader stores a file and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
}

// Identities reports who is asking.
type Identities interface {
	Identity() *model.Identity
}

// Store is the team store. Every mutation returns an error; nothing fails silently.
type Store struct {
	backend  Backend
	ids      Identities
	uploader Uploader
	log      *slog.Logger

	mu        sync.RWMutex
	teams     []model.Team
	incoming  []model.JoinRequest // requests for teams the user leads
	outgoing  []model.JoinRequest // requests the user sent
	messages  map[string][]model.TeamMessage
	resources map[string][]model.TeamResource
	loadedFor string // identity id the cached requests belong to
}

// New creates an empty store. uploader may be nil, which disables file resources.
func New(backend Backend, ids Identities, uploader Uploader, log *slog.Logger) *Store {
	return &Store{
		backend:   backend,
		ids:       ids,
		uploader:  uploader,
		log:       log.With("store", "team"),
		messages:  make(map[string][]model.TeamMessage),
		resources: make(map[string][]model.TeamResource),
	}
}

// Refresh refetches teams, then the join requests of every team the user
// leads. Each request fetch is isolated; failures are logged only.
func (s *Store) Refresh(ctx context.Context) {
	id := s.ids.Identity()
	if id == nil {
		s.mu.Lock()
		s.teams = nil
		s.resetLocked("")
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	if s.loadedFor != "" && s.loadedFor != id.ID {
		s.resetLocked("")
	}
	s.loadedFor = id.ID
	s.mu.Unlock()

	if err := s.fetchTeams(ctx); err != nil {
		s.log.Warn("fetch failed", "collection", "teams", "err", err)
		return
	}

	led := s.ledTeamIDs(id.ID)
	results := make([][]model.JoinRequest, len(led))
	fetched := make([]bool, len(led))
	var g errgroup.Group
	for i, teamID := range led {
		g.Go(func() error {
			recs, err := s.backend.ListJoinRequests(ctx, teamID)
			if err != nil {
				s.log.Warn("fetch failed", "collection", "join requests", "team", teamID, "err", err)
				return nil
			}
			results[i] = api.MapAll(recs, api.MapJoinRequest)
			fetched[i] = true
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	var incoming []model.JoinRequest
	for i, teamID := range led {
		if fetched[i] {
			incoming = append(incoming, results[i]...)
			continue
		}
		for _, r := range s.incoming {
			if r.TeamID == teamID {
				incoming = append(incoming, r)
			}
		}
	}
	s.incoming = incoming
}

// resetLocked drops the requests, messages and resources loaded for the
// previous identity.
func (s *Store) resetLocked(owner string) {
	s.incoming, s.outgoing = nil, nil
	s.messages = make(map[string][]model.TeamMessage)
	s.resources = make(map[string][]model.TeamResource)
	s.loadedFor = owner
}

func (s *Store) fetchTeams(ctx context.Context) error {
	recs, err := s.backend.ListTeams(ctx)
	if err != nil {
		return err
	}
	teams := api.MapAll(recs, api.MapTeam)

	s.mu.Lock()
	seen := make(map[string]bool, len(teams))
	for _, t := range teams {
		seen[t.ID] = true
	}
	dropped := 0
	for _, t := range s.teams {
		if t.Optimistic && !seen[t.ID] {
			dropped++
		}
	}
	s.teams = teams
	s.mu.Unlock()

	if dropped > 0 {
		s.log.Warn("optimistic teams not confirmed by server", "dropped", dropped)
	}
	return nil
}

func (s *Store) ledTeamIDs(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, t := range s.teams {
		if t.LeaderID == userID {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func (s *Store) replaceTeam(t model.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.teams {
		if s.teams[i].ID == t.ID {
			s.teams[i] = t
			return
		}
	}
	s.teams = append(s.teams, t)
}
