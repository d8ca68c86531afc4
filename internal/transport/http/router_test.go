package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/govscheme-portal/internal/application/notification"
	"github.com/govscheme-portal/internal/config"
	"github.com/govscheme-portal/internal/domain"
	jwtinfra "github.com/govscheme-portal/internal/infrastructure/jwt"
	"github.com/govscheme-portal/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory stores ---

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]domain.User
	email map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]domain.User{}, email: map[string]string{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.email[u.Email]; ok {
		return fmt.Errorf("email already exists: %w", domain.ErrConflict)
	}
	m.byID[u.UserID] = *u
	m.email[u.Email] = u.UserID
	return nil
}

func (m *memUsers) Save(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.UserID]; !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	m.byID[u.UserID] = *u
	return nil
}

func (m *memUsers) Get(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	id, ok := m.email[email]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return m.Get(ctx, id)
}

func (m *memUsers) Update(_ context.Context, userID string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if v, ok := updates["state"].(string); ok {
		u.State = v
	}
	m.byID[userID] = u
	return nil
}

func (m *memUsers) ScanAll(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

type memSchemes struct {
	mu   sync.Mutex
	byID map[string]domain.Scheme
}

func (m *memSchemes) Put(_ context.Context, s *domain.Scheme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.SchemeID] = *s
	return nil
}

func (m *memSchemes) Get(_ context.Context, id string) (*domain.Scheme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("scheme not found: %w", domain.ErrNotFound)
	}
	return &s, nil
}

func (m *memSchemes) ListActive(_ context.Context) ([]domain.Scheme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Scheme
	for _, s := range m.byID {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSchemes) ListByCategory(_ context.Context, category string) ([]domain.Scheme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Scheme
	for _, s := range m.byID {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) SendEmail(to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

type inlineQueue struct{}

func (inlineQueue) Submit(_ string, task notification.Task) { _ = task(context.Background()) }

// --- harness ---

type harness struct {
	handler http.Handler
	users   *memUsers
	schemes *memSchemes
	mailer  *recordingMailer
	jwt     *jwtinfra.Provider
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)}), 0600))
	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}), 0600))

	cfg := &config.Config{
		AppEnv:            "test",
		AppURL:            "http://portal.test",
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         time.Hour,
		AllowedOrigins:    []string{"*"},
		AuthRatePerSec:    100,
		AuthRateBurst:     100,
	}
	p, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	h := &harness{
		users:   newMemUsers(),
		schemes: &memSchemes{byID: map[string]domain.Scheme{}},
		mailer:  &recordingMailer{},
		jwt:     p,
	}
	h.handler = NewRouter(cfg, &Deps{
		UserRepo:    h.users,
		SchemeRepo:  h.schemes,
		Mailer:      h.mailer,
		JWTProvider: p,
		Queue:       inlineQueue{},
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func (h *harness) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := h.jwt.Sign(userID, userID+"@example.com", role)
	require.NoError(t, err)
	return tok
}

// --- tests ---

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/health-check/ping", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"env":"test"`)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/health-check/status", "", nil).Code)

	rr = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "portal_http_request_duration_seconds")
}

func TestRouter_AdminRoutesRequireAdminRole(t *testing.T) {
	h := newHarness(t)
	payload := map[string]interface{}{"name": "PM-KISAN", "category": "Agriculture"}

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/api/schemes/admin/create", "", payload).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodPost, "/api/schemes/admin/create", h.token(t, "u1", domain.RoleUser), payload).Code)
	assert.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/schemes/admin/create", h.token(t, "a1", domain.RoleAdmin), payload).Code)
}

func TestRouter_SchemeLifecycle(t *testing.T) {
	h := newHarness(t)
	admin := h.token(t, "a1", domain.RoleAdmin)

	rr := h.do(t, http.MethodPost, "/api/schemes/admin/create", admin, map[string]interface{}{
		"name": "Kisan Credit", "category": "Agriculture", "description": "Crop loans",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created domain.Scheme
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))

	rr = h.do(t, http.MethodGet, "/api/schemes/public/search?query=crop", "", nil)
	assert.Contains(t, rr.Body.String(), created.SchemeID)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodDelete, "/api/schemes/admin/delete/"+created.SchemeID, admin, nil).Code)

	rr = h.do(t, http.MethodGet, "/api/schemes/public/all", "", nil)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = h.do(t, http.MethodGet, "/api/schemes/public/"+created.SchemeID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"active":false`)

	rr = h.do(t, http.MethodGet, "/api/schemes/public/category/Agriculture", "", nil)
	assert.Contains(t, rr.Body.String(), created.SchemeID)
}

func TestRouter_RegisterLoginVerifyFlow(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"email": "asha@example.com", "password": "secret123", "first_name": "Asha", "age": 30,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"email": "asha@example.com", "password": "secret123", "first_name": "Asha",
	}).Code)

	rr = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "asha@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rr.Code)
	var login map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&login))
	assert.Nil(t, login["token"])
	assert.Equal(t, false, login["verified"])

	stored, err := h.users.GetByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	require.Len(t, stored.EmailOTP, 6)

	rr = h.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{"email": "asha@example.com", "otp": stored.EmailOTP})
	require.Equal(t, http.StatusOK, rr.Code)
	var verified struct {
		Token *string `json:"token"`
		ID    string  `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&verified))
	require.NotNil(t, verified.Token)

	rr = h.do(t, http.MethodGet, "/api/users/"+verified.ID, *verified.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/api/users/someone-else", *verified.Token, nil).Code)

	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/api/auth/resend-otp", "", map[string]string{"email": "asha@example.com"}).Code)
	assert.Len(t, h.mailer.sent, 2) // OTP, then welcome
}

func TestRouter_CreateNotifiesEligibleVerifiedUsers(t *testing.T) {
	h := newHarness(t)
	age := 65
	require.NoError(t, h.users.Create(context.Background(), &domain.User{UserID: "s1", Email: "senior@example.com", Age: &age, EmailVerified: true, Active: true}))
	require.NoError(t, h.users.Create(context.Background(), &domain.User{UserID: "p1", Email: "pending@example.com", Age: &age, Active: true}))

	rr := h.do(t, http.MethodPost, "/api/schemes/admin/create", h.token(t, "a1", domain.RoleAdmin), map[string]interface{}{
		"name": "Senior Pension", "category": "Social", "min_age": 60,
	})

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, []string{"senior@example.com|New Scheme Alert: Senior Pension"}, h.mailer.sent)
}
