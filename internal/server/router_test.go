package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/voip8pbx/ShieldHire-sub000/internal/auth"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/bunx"
	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
	"github.com/voip8pbx/ShieldHire-sub000/internal/migrations"
	"github.com/voip8pbx/ShieldHire-sub000/internal/repository"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/alert"
	"github.com/voip8pbx/ShieldHire-sub000/internal/services/identity"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type recordingPublisher struct {
	mu     sync.Mutex
	events []alert.Event
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(_ context.Context, ev alert.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []alert.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]alert.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	server     *httptest.Server
	principals repository.PrincipalRepository
	published  *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	principals := repository.NewBunPrincipalRepository(db)
	profiles := repository.NewBunProfileRepository(db)

	chain := identity.NewChain(time.Second, log, identity.NewLocalVerifier(testSecret, "shieldhire"))
	resolver := identity.NewResolver(identity.ResolverDependencies{
		Verifier:   chain,
		Principals: principals,
		Profiles:   profiles,
		Logger:     log,
	})

	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)

	published := &recordingPublisher{}
	router := NewRouter(RouterOptions{
		Auth: AuthDependencies{
			Resolver:   resolver,
			Binder:     resolver,
			Sessions:   identity.NewSessionIssuer(testSecret, "shieldhire", time.Hour),
			Principals: principals,
		},
		Alerts:    alert.NewService(repository.NewBunAlertRepository(db), published, log),
		Profiles:  profiles,
		Enforcer:  enforcer,
		Providers: chain.Sources(),
		Logger:    log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, principals: principals, published: published}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (e *testEnv) register(t *testing.T, email, password string) SessionResponse {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Email: email, Password: password})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out SessionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func (e *testEnv) login(t *testing.T, email, password string) SessionResponse {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out SessionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

// promote makes an existing principal an admin and returns a fresh token.
func (e *testEnv) promote(t *testing.T, session SessionResponse, password string) SessionResponse {
	t.Helper()
	require.NoError(t, e.principals.UpdateRole(context.Background(), session.Principal.ID, models.RoleAdmin))
	return e.login(t, session.Principal.Email, password)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	reg := env.register(t, "  Alice@Example.com ", "correct-horse")
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "alice@example.com", reg.Principal.Email)
	assert.Equal(t, "alice", reg.Principal.DisplayName)
	assert.Equal(t, models.RoleUser, reg.Principal.Role)
	assert.True(t, reg.ExpiresAt.After(time.Now()))

	login := env.login(t, "ALICE@example.com", "correct-horse")
	assert.Equal(t, reg.Principal.ID, login.Principal.ID)

	stored, err := env.principals.GetByID(context.Background(), reg.Principal.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.Principal.ID, stored.Slot(models.SlotLocal))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "bob@example.com", "password-one")

	resp, _ := env.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Email: "BOB@example.com", Password: "password-two"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegister_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{Email: "not-an-email", Password: "short"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out ValidationErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "invalid email format", out.Fields["email"])
	assert.Equal(t, "must be at least 8", out.Fields["password"])
}

func TestLogin_FailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "carol@example.com", "right-password")

	for name, req := range map[string]LoginRequest{
		"wrong password": {Email: "carol@example.com", Password: "wrong-password"},
		"unknown email":  {Email: "nobody@example.com", Password: "right-password"},
	} {
		t.Run(name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/auth/login", "", req)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.JSONEq(t, `{"error":"invalid credentials"}`, string(body))
		})
	}
}

func TestWhoAmI(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "dave@example.com", "password-1")

	resp, body := env.do(t, http.MethodGet, "/api/auth/whoami", reg.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out WhoamiResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, reg.Principal.ID, out.Principal.ID)
	assert.Equal(t, identity.SourceLocal, out.Source)

	resp, _ = env.do(t, http.MethodGet, "/api/auth/whoami", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/auth/whoami", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
}

func TestExchange_RefusesSessionTokens(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "erin@example.com", "password-1")

	resp, _ := env.do(t, http.MethodPost, "/auth/exchange", reg.Token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/auth/exchange", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAlerts_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com", "password-1")
	other := env.register(t, "other@example.com", "password-2")
	admin := env.promote(t, env.register(t, "admin@example.com", "password-3"), "password-3")

	lat, lng := 51.5, -0.12
	resp, body := env.do(t, http.MethodPost, "/api/alerts", owner.Token, CreateAlertRequest{
		Message: "intruder at north gate", Latitude: &lat, Longitude: &lng,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created AlertResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, owner.Principal.ID, created.PrincipalID)
	assert.Equal(t, models.AlertOpen, created.State)

	path := "/api/alerts/" + created.ID

	resp, _ = env.do(t, http.MethodGet, path, owner.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, path, other.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "alerts of other principals are hidden")

	resp, _ = env.do(t, http.MethodGet, path, admin.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, path+"/ack", owner.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, path+"/ack", admin.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var ack AcknowledgeResponse
	require.NoError(t, json.Unmarshal(body, &ack))
	assert.True(t, ack.Transitioned)
	assert.Equal(t, models.AlertAcknowledged, ack.Alert.State)
	require.NotNil(t, ack.Alert.AcknowledgedBy)
	assert.Equal(t, admin.Principal.ID, *ack.Alert.AcknowledgedBy)

	resp, body = env.do(t, http.MethodPost, path+"/ack", admin.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &ack))
	assert.False(t, ack.Transitioned)

	assert.Equal(t, []alert.EventType{alert.EventCreated, alert.EventAcknowledged}, env.published.types())
}

func TestAlerts_BadInput(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "frank@example.com", "password-1")

	lat := 10.0
	resp, _ := env.do(t, http.MethodPost, "/api/alerts", owner.Token, CreateAlertRequest{Message: "help", Latitude: &lat})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/alerts", owner.Token, CreateAlertRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/alerts/does-not-exist", owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Empty(t, env.published.types())
}

func TestPutProfile_AppliesRole(t *testing.T) {
	env := newTestEnv(t)
	guard := env.register(t, "guard@example.com", "password-1")
	admin := env.promote(t, env.register(t, "boss@example.com", "password-2"), "password-2")

	path := "/api/admin/profiles/" + guard.Principal.ID
	body := ProfileRequest{IsArmedSpecialist: true, VerificationState: models.VerificationApproved}

	resp, _ := env.do(t, http.MethodPut, path, guard.Token, body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := env.do(t, http.MethodPut, path, admin.Token, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var out ProfileResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, models.RoleGunman, out.Role)

	// The existing token keeps working and now binds the new role.
	resp, raw = env.do(t, http.MethodGet, "/api/auth/whoami", guard.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var who WhoamiResponse
	require.NoError(t, json.Unmarshal(raw, &who))
	assert.Equal(t, models.RoleGunman, who.Principal.Role)

	resp, _ = env.do(t, http.MethodPut, "/api/admin/profiles/missing", admin.Token, body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, path, admin.Token, ProfileRequest{VerificationState: "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthConfigAndHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/auth/config", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"providers":["local"],"password_login":true,"token_exchange":true}`, string(body))

	resp, body = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}
