package mockapi

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"contesthub/internal/api"
	"contesthub/internal/auth"
	"contesthub/internal/validation"
)

const (
	otpLength = 6
	otpExpiry = 15 * time.Minute

	purposeRegister = "register"
	purposeReset    = "reset"
)

func generateOTP() (string, error) {
	const digits = "0123456789"
	otp := make([]byte, otpLength)
	for i := range otp {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		otp[i] = digits[num.Int64()]
	}
	return string(otp), nil
}

func generateSchoolCode(name string) (string, error) {
	prefix := strings.ToUpper(strings.Join(strings.Fields(name), ""))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, n.Int64()), nil
}

// LastOTP returns the live code mailed to email. The mock does not send mail.
func (s *Server) LastOTP(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.otps[strings.ToLower(email)]
	if !ok || s.now().After(e.expires) {
		return "", false
	}
	return e.code, true
}

func (s *Server) issueOTP(email, purpose string) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	s.otps[strings.ToLower(email)] = otpEntry{code: code, purpose: purpose, expires: s.now().Add(otpExpiry)}
	s.log.Info("otp issued", "email", email, "purpose", purpose, "code", code)
	return nil
}

// consumeOTP checks and burns a code. Caller holds s.mu.
func (s *Server) consumeOTP(email, code, purpose string) bool {
	key := strings.ToLower(email)
	e, ok := s.otps[key]
	if !ok || e.purpose != purpose || e.code != code || s.now().After(e.expires) {
		return false
	}
	delete(s.otps, key)
	return true
}

func (s *Server) userByEmail(email string) *account {
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil
	}
	return s.users[id]
}

// schoolName resolves a school by name or by code. Caller holds s.mu.
func (s *Server) schoolName(nameOrCode string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(nameOrCode))
	if sc, ok := s.schools[key]; ok {
		return sc.name, true
	}
	for _, sc := range s.schools {
		if strings.EqualFold(sc.code, key) {
			return sc.name, true
		}
	}
	return "", false
}

func (s *Server) token(u *account) (string, error) {
	tok, err := auth.Issue(u.ID, u.Role, u.School, s.opts.Issuer, s.opts.SigningKey, s.opts.TokenTTL)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}

	s.mu.Lock()
	u := s.userByEmail(req.Email)
	s.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.token(u)
	if err != nil {
		fail(c, http.StatusInternalServerError, "token issue failed")
		return
	}
	rec := u.UserRecord
	c.JSON(http.StatusOK, api.AuthResponse{Token: token, User: &rec, Message: "Login successful"})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (s *Server) sendOTP(c *gin.Context) {
	var req emailRequest
	if !bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByEmail(req.Email) != nil {
		failFields(c, validation.FieldErrors{"email": "Email is already registered"})
		return
	}
	if err := s.issueOTP(req.Email, purposeRegister); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to generate OTP")
		return
	}
	c.JSON(http.StatusOK, api.AuthResponse{Message: "Verification code sent to " + req.Email})
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=student admin"`
	School   string `json:"school" validate:"required"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userByEmail(req.Email) != nil {
		failFields(c, validation.FieldErrors{"email": "Email is already registered"})
		return
	}
	if !s.consumeOTP(req.Email, req.OTP, purposeRegister) {
		failFields(c, validation.FieldErrors{"otp": "Invalid or expired verification code"})
		return
	}

	resp := api.AuthResponse{Message: "Registration successful"}
	school, known := s.schoolName(req.School)
	switch {
	case req.Role == "admin" && !known:
		code, err := generateSchoolCode(req.School)
		if err != nil {
			fail(c, http.StatusInternalServerError, "Failed to generate school code")
			return
		}
		school = strings.TrimSpace(req.School)
		s.schools[strings.ToLower(school)] = schoolInfo{name: school, code: code}
		resp.SchoolCode = code
		resp.Message = "School registered. Share the school code with your students."
	case !known:
		failFields(c, validation.FieldErrors{"school": "Unknown school"})
		return
	}

	u, err := s.addAccount(req.Name, req.Email, req.Password, req.Role, school, "")
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to create account")
		return
	}
	rec := u.UserRecord
	resp.User = &rec

	if req.Role == "student" {
		token, err := s.token(u)
		if err != nil {
			fail(c, http.StatusInternalServerError, "token issue failed")
			return
		}
		resp.Token = token
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) forgotPassword(c *gin.Context) {
	var req emailRequest
	if !bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByEmail(req.Email) == nil {
		fail(c, http.StatusNotFound, "No account with that email")
		return
	}
	if err := s.issueOTP(req.Email, purposeReset); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to generate OTP")
		return
	}
	c.JSON(http.StatusOK, api.AuthResponse{Message: "Password reset code sent to " + req.Email})
}

type resetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (s *Server) resetPassword(c *gin.Context) {
	var req resetRequest
	if !bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByEmail(req.Email)
	if u == nil {
		fail(c, http.StatusNotFound, "No account with that email")
		return
	}
	if !s.consumeOTP(req.Email, req.OTP, purposeReset) {
		failFields(c, validation.FieldErrors{"otp": "Invalid or expired reset code"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.opts.HashCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	u.hash = hash
	c.JSON(http.StatusOK, api.AuthResponse{Message: "Password updated. You can now log in."})
}

// addAccount stores a new user. Caller holds s.mu.
func (s *Server) addAccount(name, email, password, role, school, grade string) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.HashCost)
	if err != nil {
		return nil, err
	}
	u := &account{
		UserRecord: api.UserRecord{
			ID:     s.newID(),
			Name:   name,
			Email:  email,
			Role:   role,
			School: school,
			Grade:  grade,
		},
		hash: hash,
	}
	s.users[u.ID] = u
	s.emails[strings.ToLower(email)] = u.ID
	return u, nil
}
