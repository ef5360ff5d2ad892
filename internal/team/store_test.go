package team

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"contesthub/internal/cloudinary"
	"contesthub/internal/logging"
	"contesthub/internal/mockapi/mockapitest"
	"contesthub/internal/model"
	"contesthub/internal/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixedIdentity struct{ id *model.Identity }

func (f *fixedIdentity) Identity() *model.Identity { return f.id }

type fakeUploader struct {
	got  []byte
	name string
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, data []byte, filename string) (*cloudinary.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.got, f.name = data, filename
	return &cloudinary.UploadResult{SecureURL: "https://cdn.test/" + filename}, nil
}

type club struct {
	env       *mockapitest.Env
	umaID     string
	vicID     string
	contestID string
}

func newClub(t *testing.T) club {
	env := mockapitest.Start(t)
	return club{
		env:       env,
		umaID:     env.User(t, "Uma", "uma@r.test", "student", "Riverside"),
		vicID:     env.User(t, "Vic", "vic@r.test", "student", "Riverside"),
		contestID: env.Competition("Robotics", "Qualifier", "Final"),
	}
}

func (c club) store(t *testing.T, userID, name, email string, up Uploader) *Store {
	id := &model.Identity{ID: userID, Name: name, Role: model.RoleStudent}
	s := New(c.env.Login(t, email), &fixedIdentity{id}, up, logging.Discard())
	s.Refresh(context.Background())
	return s
}

func TestCreateTeam_CreatorIsLeader(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	uma := c.store(t, c.umaID, "Uma", "uma@r.test", nil)

	team, err := uma.CreateTeam(ctx, TeamForm{Name: "Byte Builders", CompetitionID: c.contestID})
	require.NoError(t, err)
	assert.True(t, team.Optimistic)
	assert.True(t, uma.IsTeamLeader(team.ID))
	assert.True(t, uma.IsTeamMember(team.ID))
	require.Len(t, uma.GetUserTeams(), 1)

	uma.Refresh(ctx)
	got, ok := uma.Team(team.ID)
	require.True(t, ok)
	assert.False(t, got.Optimistic)
	assert.Equal(t, []model.Member{{ID: c.umaID, Name: "Uma", Role: model.MemberLeader}}, got.Members)
}

func TestCreateTeam_InvalidForm(t *testing.T) {
	c := newClub(t)
	uma := c.store(t, c.umaID, "Uma", "uma@r.test", nil)

	_, err := uma.CreateTeam(context.Background(), TeamForm{Name: "B"})
	require.Error(t, err)
	fields := validation.Fields(err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "competitionId")
	assert.Empty(t, uma.Teams())
}

func TestJoinRequest_ApproveOnce(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	uma := c.store(t, c.umaID, "Uma", "uma@r.test", nil)
	vic := c.store(t, c.vicID, "Vic", "vic@r.test", nil)

	team, err := uma.CreateTeam(ctx, TeamForm{Name: "Byte Builders", CompetitionID: c.contestID})
	require.NoError(t, err)

	vic.Refresh(ctx)
	assert.False(t, vic.IsTeamMember(team.ID))
	sent, err := vic.RequestToJoinTeam(ctx, team.ID, "I can solder")
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, sent.Status)
	require.Len(t, vic.GetUserRequests(), 1)

	uma.Refresh(ctx)
	pending := uma.GetMyTeamRequests()
	require.Len(t, pending, 1)
	assert.Equal(t, "Vic", pending[0].UserName)

	approved, err := uma.ApproveJoinRequest(ctx, pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestApproved, approved.Status)
	assert.Empty(t, uma.GetMyTeamRequests())

	got, _ := uma.Team(team.ID)
	assert.True(t, got.HasMember(c.vicID))

	_, err = uma.ApproveJoinRequest(ctx, pending[0].ID)
	assert.ErrorIs(t, err, ErrRequestResolved)
	_, err = uma.RejectJoinRequest(ctx, "missing")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	vic.Refresh(ctx)
	assert.True(t, vic.IsTeamMember(team.ID))
	assert.False(t, vic.IsTeamLeader(team.ID))
}

func TestJoinRequest_Reject(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	uma := c.store(t, c.umaID, "Uma", "uma@r.test", nil)
	vic := c.store(t, c.vicID, "Vic", "vic@r.test", nil)

	team, err := uma.CreateTeam(ctx, TeamForm{Name: "Byte Builders", CompetitionID: c.contestID})
	require.NoError(t, err)
	_, err = vic.RequestToJoinTeam(ctx, team.ID, "")
	require.NoError(t, err)

	uma.Refresh(ctx)
	req := uma.GetMyTeamRequests()[0]
	rejected, err := uma.RejectJoinRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, rejected.Status)

	got, _ := uma.Team(team.ID)
	assert.False(t, got.HasMember(c.vicID))
}

func TestTransferLeadershipThenRemoveOldLeader(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	uma := c.store(t, c.umaID, "Uma", "uma@r.test", nil)
	vic := c.store(t, c.vicID, "Vic", "vic@r.test", nil)

	team, err := uma.CreateTeam(ctx, TeamForm{Name: "Byte Builders", CompetitionID: c.contestID})
	require.NoError(t, err)
	_, err = vic.RequestToJoinTeam(ctx, team.ID, "")
	require.NoError(t, err)
	uma.Refresh(ctx)
	_, err = uma.ApproveJoinRequest(ctx, uma.GetMyTeamRequests()[0].ID)
	require.NoError(t, err)

	got, err := uma.TransferLeadership(ctx, team.ID, c.vicID)
	require.NoError(t, err)
	assert.Equal(t, c.vicID, got.LeaderID)
	assert.False(t, uma.IsTeamLeader(team.ID))
	assert.True(t, uma.IsTeamMember(team.ID))

	vic.Refresh(ctx)
	after, err := vic.RemoveMember(ctx, team.ID, c.umaID)
	require.NoError(t, err)
	assert.False(t, after.HasMember(c.umaID))
}

func TestMessagesStayPerTeam(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	uma := c.store(t, c.umaID, "Uma", "uma@r.test", nil)

	a, err := uma.CreateTeam(ctx, TeamForm{Name: "Alpha", CompetitionID: c.contestID})
	require.NoError(t, err)
	b, err := uma.CreateTeam(ctx, TeamForm{Name: "Beta", CompetitionID: c.contestID})
	require.NoError(t, err)

	_, err = uma.SendMessage(ctx, a.ID, "kickoff at noon")
	require.NoError(t, err)
	assert.Len(t, uma.Messages(a.ID), 1)
	assert.Empty(t, uma.Messages(b.ID))

	_, err = uma.SendMessage(ctx, a.ID, "")
	require.Error(t, err)

	loaded, err := uma.LoadMessages(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Uma", loaded[0].SenderName)
	assert.Equal(t, "kickoff at noon", loaded[0].Text)
}

func TestAddResource(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	up := &fakeUploader{}
	uma := c.store(t, c.umaID, "Uma", "uma@r.test", up)

	team, err := uma.CreateTeam(ctx, TeamForm{Name: "Byte Builders", CompetitionID: c.contestID})
	require.NoError(t, err)

	link, err := uma.AddResource(ctx, team.ID, ResourceForm{Name: "Repo", URL: "https://git.test/bb"})
	require.NoError(t, err)
	assert.Equal(t, model.ResourceLink, link.Type)

	file, err := uma.AddResource(ctx, team.ID, ResourceForm{Name: "Schematic", Data: []byte("pdf"), Filename: "schematic.pdf"})
	require.NoError(t, err)
	assert.Equal(t, model.ResourceFile, file.Type)
	assert.Equal(t, "https://cdn.test/schematic.pdf", file.URL)
	assert.Equal(t, []byte("pdf"), up.got)

	_, err = uma.AddResource(ctx, team.ID, ResourceForm{Name: "Nothing"})
	assert.Contains(t, validation.Fields(err), "url")

	loaded, err := uma.LoadResources(ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Len(t, uma.Resources(team.ID), 2)
}

func TestAddResource_UploadsDisabled(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	uma := c.store(t, c.umaID, "Uma", "uma@r.test", nil)
	team, err := uma.CreateTeam(ctx, TeamForm{Name: "Byte Builders", CompetitionID: c.contestID})
	require.NoError(t, err)

	_, err = uma.AddResource(ctx, team.ID, ResourceForm{Name: "Schematic", Data: []byte("pdf")})
	assert.ErrorIs(t, err, ErrUploadsDisabled)

	_, err = New(c.env.Login(t, "uma@r.test"), &fixedIdentity{}, &fakeUploader{err: errors.New("boom")}, logging.Discard()).
		AddResource(ctx, team.ID, ResourceForm{Name: "Schematic", Data: []byte("pdf")})
	assert.EqualError(t, err, "boom")
}

func TestLeaderboard(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	uma := c.store(t, c.umaID, "Uma", "uma@r.test", nil)
	other := c.env.Competition("Chess")

	ids := map[string]string{}
	for _, name := range []string{"Gamma", "Alpha", "Beta"} {
		team, err := uma.CreateTeam(ctx, TeamForm{Name: name, CompetitionID: c.contestID})
		require.NoError(t, err)
		ids[name] = team.ID
	}
	_, err := uma.CreateTeam(ctx, TeamForm{Name: "Rooks", CompetitionID: other})
	require.NoError(t, err)

	c.env.Server.SetTeamScore(ids["Alpha"], 50)
	c.env.Server.SetTeamScore(ids["Beta"], 80)
	c.env.Server.SetTeamScore(ids["Gamma"], 50)
	uma.Refresh(ctx)

	board := uma.Leaderboard(c.contestID)
	require.Len(t, board, 3)
	assert.Equal(t, []model.LeaderboardEntry{
		{Rank: 1, TeamID: ids["Beta"], TeamName: "Beta", Score: 80},
		{Rank: 2, TeamID: ids["Alpha"], TeamName: "Alpha", Score: 50},
		{Rank: 3, TeamID: ids["Gamma"], TeamName: "Gamma", Score: 50},
	}, board)
	assert.Empty(t, uma.Leaderboard("nope"))
}

func TestRefresh_NoIdentityClears(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	ids := &fixedIdentity{id: &model.Identity{ID: c.umaID, Name: "Uma", Role: model.RoleStudent}}
	s := New(c.env.Login(t, "uma@r.test"), ids, nil, logging.Discard())

	_, err := s.CreateTeam(ctx, TeamForm{Name: "Byte Builders", CompetitionID: c.contestID})
	require.NoError(t, err)
	require.Len(t, s.Teams(), 1)

	ids.id = nil
	s.Refresh(ctx)
	assert.Empty(t, s.Teams())
	assert.Empty(t, s.GetUserTeams())

	_, err = s.CreateTeam(ctx, TeamForm{Name: "Again", CompetitionID: c.contestID})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestRefresh_IdentitySwitchDropsPreviousUserState(t *testing.T) {
	c := newClub(t)
	ctx := context.Background()
	vic := c.store(t, c.vicID, "Vic", "vic@r.test", nil)
	team, err := vic.CreateTeam(ctx, TeamForm{Name: "Gearheads", CompetitionID: c.contestID})
	require.NoError(t, err)

	ids := &fixedIdentity{&model.Identity{ID: c.umaID, Name: "Uma", Role: model.RoleStudent}}
	s := New(c.env.Login(t, "uma@r.test"), ids, nil, logging.Discard())
	s.Refresh(ctx)
	_, err = s.RequestToJoinTeam(ctx, team.ID, "let me in")
	require.NoError(t, err)
	own, err := s.CreateTeam(ctx, TeamForm{Name: "Byte Builders", CompetitionID: c.contestID})
	require.NoError(t, err)
	s.Refresh(ctx)
	_, err = s.SendMessage(ctx, own.ID, "first!")
	require.NoError(t, err)
	require.Len(t, s.GetUserRequests(), 1)
	require.Len(t, s.Messages(own.ID), 1)

	ids.id = &model.Identity{ID: c.vicID, Name: "Vic", Role: model.RoleStudent}
	s.backend = c.env.Login(t, "vic@r.test")
	s.Refresh(ctx)

	assert.Empty(t, s.GetUserRequests())
	assert.Empty(t, s.Messages(own.ID))
	pending := s.GetMyTeamRequests()
	require.Len(t, pending, 1)
	assert.Equal(t, c.umaID, pending[0].UserID)
}
