// Package mockapi is an in-memory development backend serving the
// competition platform's REST contract. It exists for local development and
// for tests; it holds no durable state.
package mockapi

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"contesthub/internal/api"
	"contesthub/internal/auth"
	"contesthub/internal/httpmiddleware"
)

// Options configures a Server.
type Options struct {
	Issuer          string
	SigningKey      string
	TokenTTL        time.Duration
	RateLimitPerMin int
	// HashCost is the bcrypt cost for stored passwords; zero uses bcrypt.DefaultCost.
	HashCost int
	Logger   *slog.Logger
	// AccessLog enables gin's request logger.
	AccessLog io.Writer
}

type account struct {
	api.UserRecord
	hash []byte
}

type schoolInfo struct {
	name string
	code string
}

type otpEntry struct {
	code    string
	purpose string
	expires time.Time
}

// Server holds the backend state and serves it over gin.
type Server struct {
	opts     Options
	log      *slog.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	now      func() time.Time
	newID    func() string

	mu            sync.Mutex
	users         map[string]*account   // by id
	emails        map[string]string     // lowercased email -> id
	schools       map[string]schoolInfo // lowercased name
	otps          map[string]otpEntry   // lowercased email -> code
	competitions  []api.CompetitionRecord
	submissions   []api.SubmissionRecord
	certificates  []api.CertificateRecord
	notifications []api.NotificationRecord
	teams         []api.TeamRecord
	joinRequests  []api.JoinRequestRecord
	messages      map[string][]api.TeamMessageRecord
	resources     map[string][]api.ResourceRecord
}

// New creates an empty server.
func New(opts Options) *Server {
	if opts.Issuer == "" {
		opts.Issuer = "contesthub"
	}
	if opts.SigningKey == "" {
		opts.SigningKey = "dev-signing-secret-change"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contesthub_mockapi_requests_total",
		Help: "Requests served by the mock backend.",
	}, []string{"route", "method", "code"})
	reg.MustRegister(requests)

	return &Server{
		opts:      opts,
		log:       opts.Logger.With("component", "mockapi"),
		registry:  reg,
		requests:  requests,
		now:       time.Now,
		newID:     func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:24] },
		users:     make(map[string]*account),
		emails:    make(map[string]string),
		schools:   make(map[string]schoolInfo),
		otps:      make(map[string]otpEntry),
		messages:  make(map[string][]api.TeamMessageRecord),
		resources: make(map[string][]api.ResourceRecord),
	}
}

// Handler builds the gin engine. The REST API is mounted under /api.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.opts.AccessLog != nil {
		r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
			Output:    s.opts.AccessLog,
			SkipPaths: []string{"/healthz", "/metrics"},
		}))
	}
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(s.countRequests())
	r.Use(httpmiddleware.NewTokenBucket(s.opts.RateLimitPerMin, s.opts.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	root := r.Group("/api")

	authGroup := root.Group("/auth")
	authGroup.POST("/login", s.login)
	authGroup.POST("/register", s.register)
	authGroup.POST("/send-otp", s.sendOTP)
	authGroup.POST("/forgot-password", s.forgotPassword)
	authGroup.POST("/reset-password", s.resetPassword)

	private := root.Group("", auth.BearerAuth(s.opts.SigningKey, s.opts.Issuer))
	admin := auth.RequireRole("admin")

	private.GET("/competitions", s.listCompetitions)
	private.POST("/competitions", admin, s.createCompetition)
	private.GET("/notifications", s.listNotifications)

	private.GET("/submissions", admin, s.listSubmissions)
	private.GET("/submissions/my", s.listMySubmissions)
	private.POST("/submissions", s.createSubmission)
	private.PUT("/submissions/:id", s.updateSubmission)

	private.GET("/certificates", admin, s.listCertificates)
	private.GET("/certificates/my", s.listMyCertificates)
	private.POST("/certificates", admin, s.issueCertificate)

	private.GET("/schools/students", admin, s.listStudents)

	private.GET("/teams", s.listTeams)
	private.POST("/teams", s.createTeam)
	private.POST("/teams/:id/join", s.joinTeam)
	private.GET("/teams/:id/requests", s.listJoinRequests)
	private.POST("/teams/:id/requests/:rid/approve", s.resolveJoinRequest(true))
	private.POST("/teams/:id/requests/:rid/reject", s.resolveJoinRequest(false))
	private.GET("/teams/:id/messages", s.listTeamMessages)
	private.POST("/teams/:id/messages", s.sendTeamMessage)
	private.GET("/teams/:id/resources", s.listTeamResources)
	private.POST("/teams/:id/resources", s.addTeamResource)
	private.DELETE("/teams/:id/members/:mid", s.removeTeamMember)
	private.PUT("/teams/:id/leader", s.setTeamLeader)

	return r
}

// Registry exposes the server's metrics registry.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}
