package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/praxis/backend/internal/api"
	"github.com/praxis/backend/internal/auth"
	"github.com/praxis/backend/internal/config"
	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/middleware"
	"github.com/praxis/backend/internal/realtime"
	"github.com/praxis/backend/internal/repository"
	"github.com/praxis/backend/internal/skills"
	"github.com/praxis/backend/internal/storage"
	"github.com/praxis/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tokenVerifier accepts "token-<uid>"
type tokenVerifier struct{}

func (tokenVerifier) VerifyIDToken(_ context.Context, token string) (string, error) {
	uid, ok := strings.CutPrefix(token, "token-")
	if !ok || uid == "" {
		return "", auth.ErrInvalidToken
	}
	return uid, nil
}

type stubIdentity struct {
	mu    sync.Mutex
	users map[string]*auth.Identity
}

func (s *stubIdentity) CreateUser(_ context.Context, email, _, name string) (*auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return nil, auth.ErrEmailExists
	}
	id := &auth.Identity{UID: "uid-" + strings.Split(email, "@")[0], Email: email, Name: name}
	s.users[email] = id
	return id, nil
}

func (s *stubIdentity) CreateFederatedUser(ctx context.Context, id auth.Identity) (*auth.Identity, error) {
	return s.CreateUser(ctx, id.Email, "", id.Name)
}

func (s *stubIdentity) GetUserByEmail(_ context.Context, email string) (*auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.users[email]; ok {
		return id, nil
	}
	return nil, auth.ErrIdentityNotFound
}

func (s *stubIdentity) CustomToken(_ context.Context, uid string) (string, error) {
	return "custom-" + uid, nil
}

func (s *stubIdentity) RevokeSessions(context.Context, string) error { return nil }

func (s *stubIdentity) PasswordResetLink(ctx context.Context, email string) (string, error) {
	if _, err := s.GetUserByEmail(ctx, email); err != nil {
		return "", err
	}
	return "https://reset.test/" + email, nil
}

type noGoogle struct{}

func (noGoogle) VerifyIDToken(context.Context, string) (*auth.GoogleUser, error) {
	return nil, auth.ErrInvalidGoogleToken
}

type testEnv struct {
	srv  *httptest.Server
	repo *repository.DocumentRepository
}

func newTestEnv(t *testing.T, production bool) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	repo := repository.NewDocumentRepository(s)

	files, err := storage.NewLocalFileStorage(t.TempDir(), "http://praxis.test/uploads")
	require.NoError(t, err)
	catalog, err := skills.Default()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(logger)
	go hub.Run(ctx)
	dispatcher := realtime.NewDispatcher(hub, realtime.NewLocalBus(), logger)
	require.NoError(t, dispatcher.Start(ctx))

	notifications := domain.NewNotificationService(repo, repo, nil, logger)
	profiles := domain.NewProfileService(repo, files, logger)
	connections := domain.NewConnectionService(repo, notifications, logger)
	matches := domain.NewMatchService(repo, repo)
	chat := domain.NewChatService(repo, repo, repo, logger, notifications, dispatcher)
	authService := domain.NewAuthService(&stubIdentity{users: map[string]*auth.Identity{}}, noGoogle{}, profiles, logger)
	tickets := auth.NewTicketManager("test-secret", time.Minute)

	cfg := &config.Config{
		Server: config.ServerConfig{WebAppURL: "http://app.test"},
		Google: config.GoogleConfig{ClientIDs: []string{"web-client"}, RedirectURL: "http://api.test/auth/google/callback"},
	}

	handlers := api.Handlers{
		Auth:         api.NewAuthHandler(authService, production, logger),
		GoogleOAuth:  api.NewGoogleOAuthHandler(cfg, authService, logger),
		Profile:      api.NewProfileHandler(profiles, connections, 1<<20, logger),
		Skills:       api.NewSkillsHandler(catalog, profiles, logger),
		Connection:   api.NewConnectionHandler(connections, matches, logger),
		Chat:         api.NewChatHandler(chat, logger),
		Notification: api.NewNotificationHandler(notifications, logger),
		Realtime:     api.NewRealtimeHandler(tickets, hub, repo, repo, connections, nil, logger),
		Health:       api.NewHealthHandler(repo, "test", logger),
	}
	router := api.NewRouter(handlers, tokenVerifier{}, middleware.NewIPRateLimiter(60, 3), nil, false, logger)

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, repo: repo}
}

func (e *testEnv) seed(t *testing.T, id string, skills, wants []string) {
	t.Helper()
	require.NoError(t, e.repo.CreateProfile(context.Background(), &domain.Profile{
		ID: id, Name: "User " + id, Skills: skills, WantsToLearn: wants, Settings: domain.DefaultSettings(),
	}))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Fields  []struct {
			Field string `json:"field"`
		} `json:"fields"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) (int, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer token-"+userID)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	var env envelope
	if res.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	}
	return res.StatusCode, env
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	status, _ := env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, false)
	status, body := env.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
}

func TestRegisterAndProfile(t *testing.T) {
	env := newTestEnv(t, false)

	status, body := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "Avery@Example.com", "password": "secret1", "name": "Avery",
	})
	require.Equal(t, http.StatusCreated, status)
	var result domain.AuthResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, "custom-uid-avery", result.CustomToken)
	assert.True(t, result.NeedsOnboarding)

	status, _ = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "avery@example.com", "password": "secret1", "name": "Avery",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "nope", "password": "123", "name": "A",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, body.Error.Fields, 3)

	status, body = env.do(t, http.MethodPost, "/api/v1/me/onboarding", "uid-avery", map[string][]string{
		"skills": {"Go", " Go "}, "wantsToLearn": {"Design"},
	})
	require.Equal(t, http.StatusOK, status)
	var me struct {
		Skills          []string `json:"skills"`
		ProfileComplete bool     `json:"profileComplete"`
		NeedsOnboarding bool     `json:"needsOnboarding"`
		ConnectionCount int      `json:"connectionCount"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &me))
	assert.Equal(t, []string{"Go"}, me.Skills)
	assert.True(t, me.ProfileComplete)
	assert.False(t, me.NeedsOnboarding)

	status, body = env.do(t, http.MethodPut, "/api/v1/me", "uid-avery", map[string]string{"name": "x"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)

	status, _ = env.do(t, http.MethodPut, "/api/v1/me/settings", "uid-avery", map[string]interface{}{
		"profileVisibility": "everyone", "theme": "dark",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/api/v1/skills/suggestions", "uid-avery", nil)
	require.Equal(t, http.StatusOK, status)
	var suggestions []string
	require.NoError(t, json.Unmarshal(body.Data, &suggestions))
	assert.NotContains(t, suggestions, "Go")
}

func TestPasswordReset_HidesLinkInProduction(t *testing.T) {
	dev := newTestEnv(t, false)
	status, _ := dev.do(t, http.MethodPost, "/auth/password-reset", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, status)

	prod := newTestEnv(t, true)
	status, body := prod.do(t, http.MethodPost, "/auth/password-reset", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"sent":true}`, string(body.Data))
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	env := newTestEnv(t, false)
	var last int
	for i := 0; i < 4; i++ {
		last, _ = env.do(t, http.MethodPost, "/auth/google", "", map[string]string{"idToken": "bad"})
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestAuthRateLimit_IgnoresSpoofedForwardedFor(t *testing.T) {
	env := newTestEnv(t, false)
	var last int
	for i := 0; i < 4; i++ {
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/auth/google", strings.NewReader(`{"idToken":"bad"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		last, _ = env.send(t, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestSkillsSearch(t *testing.T) {
	env := newTestEnv(t, false)
	status, body := env.do(t, http.MethodGet, "/api/v1/skills?q=script", "", nil)
	require.Equal(t, http.StatusOK, status)
	var res []string
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, []string{"JavaScript", "TypeScript"}, res)
}

func TestMatchAndConnectFlow(t *testing.T) {
	env := newTestEnv(t, false)
	env.seed(t, "a", []string{"Python"}, []string{"Design"})
	env.seed(t, "b", []string{"Design"}, []string{"Python"})
	env.seed(t, "c", []string{"Design"}, nil)

	status, body := env.do(t, http.MethodGet, "/api/v1/matches", "a", nil)
	require.Equal(t, http.StatusOK, status)
	var matches []domain.MatchCandidate
	require.NoError(t, json.Unmarshal(body.Data, &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, "b", matches[0].ID)
	assert.Equal(t, 2, matches[0].MatchScore)

	status, _ = env.do(t, http.MethodPost, "/api/v1/matches/a/like", "a", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPost, "/api/v1/matches/b/like", "a", nil)
	require.Equal(t, http.StatusOK, status)
	var like domain.LikeResult
	require.NoError(t, json.Unmarshal(body.Data, &like))
	assert.Equal(t, domain.LikeRequestSent, like.Outcome)

	status, _ = env.do(t, http.MethodPost, "/api/v1/matches/c/pass", "a", nil)
	assert.Equal(t, http.StatusCreated, status)

	_, body = env.do(t, http.MethodGet, "/api/v1/matches", "a", nil)
	require.NoError(t, json.Unmarshal(body.Data, &matches))
	assert.Len(t, matches, 1, "c is passed")

	_, body = env.do(t, http.MethodGet, "/api/v1/connections/requests", "b", nil)
	var reqs []domain.ConnectionRequest
	require.NoError(t, json.Unmarshal(body.Data, &reqs))
	require.Len(t, reqs, 1)

	status, _ = env.do(t, http.MethodPost, "/api/v1/connections/requests/"+reqs[0].ID+"/accept", "b", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/connections/requests/"+reqs[0].ID+"/accept", "c", map[string]string{"fromUserId": "a"})
	assert.Equal(t, http.StatusNotFound, status, "only the recipient may accept")
	status, _ = env.do(t, http.MethodPost, "/api/v1/connections/requests/"+reqs[0].ID+"/decline", "c", nil)
	assert.Equal(t, http.StatusNotFound, status, "only the recipient may decline")
	status, _ = env.do(t, http.MethodPost, "/api/v1/connections/requests/no-such-request/accept", "b", map[string]string{"fromUserId": "a"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/connections/requests/"+reqs[0].ID+"/accept", "b", map[string]string{"fromUserId": "a"})
	require.Equal(t, http.StatusCreated, status)

	_, body = env.do(t, http.MethodGet, "/api/v1/matches", "a", nil)
	require.NoError(t, json.Unmarshal(body.Data, &matches))
	assert.Empty(t, matches)

	_, body = env.do(t, http.MethodGet, "/api/v1/me", "a", nil)
	var me api.MeResponse
	require.NoError(t, json.Unmarshal(body.Data, &me))
	assert.Equal(t, 1, me.ConnectionCount)

	_, body = env.do(t, http.MethodGet, "/api/v1/notifications", "a", nil)
	var notes []domain.Notification
	require.NoError(t, json.Unmarshal(body.Data, &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationConnectionAccepted, notes[0].Type)

	status, _ = env.do(t, http.MethodPost, "/api/v1/notifications/"+notes[0].ID+"/read", "b", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/notifications/"+notes[0].ID+"/read", "a", nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, false)
	env.seed(t, "a", nil, nil)
	env.seed(t, "b", nil, nil)

	status, body := env.do(t, http.MethodPost, "/api/v1/chats/b/messages", "a", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "you can only message your connections", body.Error.Message)

	_, err := env.repo.CreateConnection(context.Background(), "a", "b")
	require.NoError(t, err)

	status, _ = env.do(t, http.MethodPost, "/api/v1/chats/b/messages", "a", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/chats/b/messages", "a", map[string]string{"text": "hi there"})
	require.Equal(t, http.StatusCreated, status)

	_, body = env.do(t, http.MethodGet, "/api/v1/chats", "b", nil)
	var summaries []domain.ChatSummary
	require.NoError(t, json.Unmarshal(body.Data, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].UnreadCount)

	_, body = env.do(t, http.MethodGet, "/api/v1/chats/a/messages", "b", nil)
	var msgs []domain.Message
	require.NoError(t, json.Unmarshal(body.Data, &msgs))
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)
}

func TestAvatarUpload(t *testing.T) {
	env := newTestEnv(t, false)
	env.seed(t, "a", nil, nil)

	upload := func(contentType string) (int, envelope) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte("\x89PNG fake"))
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/v1/me/avatar", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer token-a")
		return env.send(t, req)
	}

	status, _ := upload("application/pdf")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := upload("image/png")
	require.Equal(t, http.StatusOK, status)
	var res map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.True(t, strings.HasPrefix(res["avatarUrl"], "http://praxis.test/uploads/"))
}

func TestGoogleOAuthLogin_SetsState(t *testing.T) {
	env := newTestEnv(t, false)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	res, err := client.Get(env.srv.URL + "/auth/google/login")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, res.StatusCode)
	assert.Contains(t, res.Header.Get("Location"), "accounts.google.com")
	require.NotEmpty(t, res.Cookies())

	res, err = client.Get(env.srv.URL + "/auth/google/callback?state=forged&code=x")
	require.NoError(t, err)
	res.Body.Close()
	assert.True(t, strings.HasPrefix(res.Header.Get("Location"), "http://app.test/auth/callback#error="))
}

func TestWebSocketSession(t *testing.T) {
	env := newTestEnv(t, false)
	env.seed(t, "a", []string{"Python"}, []string{"Design"})
	env.seed(t, "b", []string{"Design"}, []string{"Python"})
	_, err := env.repo.CreateConnection(context.Background(), "b", "a")
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	_, res, err := websocket.DefaultDialer.Dial(wsURL+"?ticket=forged", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	status, body := env.do(t, http.MethodGet, "/api/v1/ws/ticket", "a", nil)
	require.Equal(t, http.StatusOK, status)
	var ticket struct {
		Ticket string `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &ticket))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?ticket="+ticket.Ticket, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	readEvent := func(typ string) realtime.Event {
		for {
			var ev realtime.Event
			require.NoError(t, conn.ReadJSON(&ev))
			if ev.Type == typ {
				return ev
			}
		}
	}

	var state domain.DashboardState
	require.NoError(t, json.Unmarshal(readEvent(realtime.EventDashboard).Payload, &state))
	assert.Len(t, state.Connections, 1)
	assert.Empty(t, state.Matches)

	status, _ = env.do(t, http.MethodPost, "/api/v1/chats/a/messages", "b", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusCreated, status)

	var msg domain.Message
	require.NoError(t, json.Unmarshal(readEvent(realtime.EventNewMessage).Payload, &msg))
	assert.Equal(t, "hello", msg.Text)
}
