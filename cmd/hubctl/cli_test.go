package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contesthub/internal/config"
	"contesthub/internal/localstore"
	"contesthub/internal/mockapi/mockapitest"
	"contesthub/internal/team"
)

type harness struct {
	env     *mockapitest.Env
	storage localstore.Storage
}

func newHarness(t *testing.T) *harness {
	color.NoColor = true
	return &harness{env: mockapitest.Start(t), storage: localstore.NewMemory()}
}

// run executes one hubctl invocation; the session persists between runs
// like it does between processes.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return h.runWith(t, strings.NewReader(stdin), args...)
}

func (h *harness) runWith(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	c := &cli{
		storage: h.storage,
		configure: func(cfg *config.App) {
			cfg.APIBaseURL = h.env.BaseURL
			cfg.RequestTimeout = 5 * time.Second
			cfg.CloudinaryCloudName = ""
		},
	}
	root := newRootCmd(c)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(stdin)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)
	h.env.User(t, "Alice", "alice@r.test", "student", "Riverside")

	_, err := h.run(t, "", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out, err := h.run(t, "", "login", "--email", "alice@r.test", "--password", mockapitest.Password)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Alice (student)")

	out, err = h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice <alice@r.test>")

	_, err = h.run(t, "", "logout")
	require.NoError(t, err)
	_, err = h.run(t, "", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLoginFailurePrintsNothingPersisted(t *testing.T) {
	h := newHarness(t)
	h.env.User(t, "Alice", "alice@r.test", "student", "Riverside")

	_, err := h.run(t, "", "login", "--email", "alice@r.test", "--password", "wrong-pass")
	require.Error(t, err)
	_, err = h.storage.Get(context.Background(), localstore.KeyToken)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestRegisterWithCodePrompt(t *testing.T) {
	h := newHarness(t)
	h.env.Server.AddSchool("Riverside", "RIV-2024")

	// The real code exists only after the wizard requested it, so it is
	// read from the mock once the prompt asks for it.
	stdin := io.MultiReader(
		strings.NewReader("000000\nresend\n"),
		&lazyReader{fn: func() string {
			code, _ := h.env.Server.LastOTP("dana@r.test")
			return code + "\n"
		}},
	)
	out, err := h.runWith(t, stdin,
		"register", "--name", "Dana", "--email", "dana@r.test", "--password", "secret1",
		"--role", "student", "--school", "RIV-2024")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Invalid or expired verification code")
	assert.Contains(t, out, "Logged in as Dana")

	out, err = h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Dana <dana@r.test>")
}

type lazyReader struct {
	fn func() string
	r  io.Reader
}

func (l *lazyReader) Read(p []byte) (int, error) {
	if l.r == nil {
		l.r = strings.NewReader(l.fn())
	}
	return l.r.Read(p)
}

func TestStudentAndAdminWorkflow(t *testing.T) {
	h := newHarness(t)
	aliceID := h.env.User(t, "Alice", "alice@r.test", "student", "Riverside")
	h.env.User(t, "Grace", "grace@r.test", "admin", "Riverside")
	h.env.Competition("Science Fair", "Registration", "Finals")

	_, err := h.run(t, "", "login", "--email", "alice@r.test", "--password", mockapitest.Password)
	require.NoError(t, err)
	out, err := h.run(t, "", "register-for", "Science Fair", "--grade", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered for Science Fair, status pending")

	out, err = h.run(t, "", "submit", "Science Fair", "--link", "https://example.org/volcano")
	require.NoError(t, err)
	assert.Contains(t, out, "Submitted https://example.org/volcano")

	_, err = h.run(t, "", "status", "x", "approved")
	assert.ErrorContains(t, err, "admin")

	_, err = h.run(t, "", "login", "--email", "grace@r.test", "--password", mockapitest.Password)
	require.NoError(t, err)
	out, err = h.run(t, "", "students")
	require.NoError(t, err)
	require.Contains(t, out, "Alice")
	subID := strings.Fields(strings.Split(out, "\n")[1])[0]

	out, err = h.run(t, "", "status", subID, "Approved")
	require.NoError(t, err)
	assert.Contains(t, out, "status approved")

	out, err = h.run(t, "", "stage", subID, "Finals")
	require.NoError(t, err)
	assert.Contains(t, out, "stage Finals")

	_, err = h.run(t, "", "certificates", "issue", "--student", aliceID, "--competition", "Science Fair", "--achievement", "Gold")
	require.NoError(t, err)

	_, err = h.run(t, "", "login", "--email", "alice@r.test", "--password", mockapitest.Password)
	require.NoError(t, err)
	out, err = h.run(t, "", "certificates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Gold")

	out, err = h.run(t, "", "notifications", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "approved")
}

func TestTeamsWorkflow(t *testing.T) {
	h := newHarness(t)
	h.env.User(t, "Uma", "uma@r.test", "student", "Riverside")
	h.env.User(t, "Vic", "vic@r.test", "student", "Riverside")
	h.env.Competition("Robotics", "Qualifier")

	_, err := h.run(t, "", "teams", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)

	_, err = h.run(t, "", "login", "--email", "uma@r.test", "--password", mockapitest.Password)
	require.NoError(t, err)
	out, err := h.run(t, "", "teams", "create", "--name", "Byte Builders", "--competition", "Robotics")
	require.NoError(t, err)
	teamID := strings.Trim(strings.Fields(out)[len(strings.Fields(out))-1], "()")

	_, err = h.run(t, "", "login", "--email", "vic@r.test", "--password", mockapitest.Password)
	require.NoError(t, err)
	out, err = h.run(t, "", "teams", "join", teamID, "-m", "I can solder")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	_, err = h.run(t, "", "login", "--email", "uma@r.test", "--password", mockapitest.Password)
	require.NoError(t, err)
	out, err = h.run(t, "", "teams", "requests")
	require.NoError(t, err)
	require.Contains(t, out, "I can solder")
	reqID := strings.Fields(strings.Split(out, "\n")[1])[0]

	out, err = h.run(t, "", "teams", "approve", reqID)
	require.NoError(t, err)
	assert.Contains(t, out, "Vic joined Byte Builders")

	_, err = h.run(t, "", "teams", "approve", reqID)
	require.Error(t, err)

	_, err = h.run(t, "", "teams", "send", teamID, "kickoff", "at", "noon")
	require.NoError(t, err)
	out, err = h.run(t, "", "teams", "messages", teamID)
	require.NoError(t, err)
	assert.Contains(t, out, "Uma: kickoff at noon")

	_, err = h.run(t, "", "teams", "add-resource", teamID, "--name", "Repo", "--url", "https://git.test/bb")
	require.NoError(t, err)
	_, err = h.run(t, "", "teams", "add-resource", teamID, "--file", "cli_test.go")
	assert.ErrorIs(t, err, team.ErrUploadsDisabled)

	out, err = h.run(t, "", "teams", "leaderboard", "Robotics")
	require.NoError(t, err)
	assert.Contains(t, out, "Byte Builders")

	out, err = h.run(t, "", "teams", "list", "--mine")
	require.NoError(t, err)
	assert.Contains(t, out, "Uma*, Vic")
}

func TestChat(t *testing.T) {
	h := newHarness(t)
	aliceID := h.env.User(t, "Alice", "alice@r.test", "student", "Riverside")
	h.env.User(t, "Grace", "grace@r.test", "admin", "Riverside")

	_, err := h.run(t, "", "login", "--email", "alice@r.test", "--password", mockapitest.Password)
	require.NoError(t, err)

	script := strings.Join([]string{
		"When is the deadline?",
		"/as grace@r.test",
		mockapitest.Password,
		"/threads",
		"/to " + aliceID,
		"Friday",
		"/read",
		"/quit",
	}, "\n") + "\n"
	out, err := h.run(t, script, "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Grace (1 unread)> ")
	assert.Contains(t, out, aliceID+" Alice (1 unread): When is the deadline?")
	assert.Contains(t, out, "2 marked read")
}

func TestStartFailureClosesApp(t *testing.T) {
	env := mockapitest.Start(t)
	c := &cli{
		configure: func(cfg *config.App) {
			cfg.APIBaseURL = env.BaseURL
			cfg.SessionBackend = "redis"
			cfg.RedisAddr = "127.0.0.1:1"
			cfg.CloudinaryCloudName = ""
		},
	}
	root := newRootCmd(c)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"whoami"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore session")
	assert.Nil(t, c.app, "a failed start leaves no open app behind")
}
