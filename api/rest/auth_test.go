package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/azattekce/redischat/api/rest"
	"github.com/azattekce/redischat/cache"
	"github.com/azattekce/redischat/chat"
	"github.com/azattekce/redischat/config"
	"github.com/azattekce/redischat/mail"
	mw "github.com/azattekce/redischat/middleware"
	"github.com/azattekce/redischat/session"
	"github.com/azattekce/redischat/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSec = config.SecurityConfig{
	JWTSecret: "test-secret",
	JWTTTLH:   72 * time.Hour,
}

type testEnv struct {
	db    *gorm.DB
	cache cache.Cache
	sm    *session.Manager
	r     *gin.Engine
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sm := session.NewManager(logger)
	mailer := mail.New(config.MailConfig{}, logger)

	authH := rest.NewAuthHandler(db, c, sm, mailer, testSec)
	usersH := rest.NewUsersHandler(db, sm)
	friendsH := rest.NewFriendsHandler(db, sm)
	profileH := rest.NewProfileHandler(db)
	messagesH := rest.NewMessagesHandler(chat.NewMessageStore(db))

	r := gin.New()
	auth := mw.Auth(testSec, c)
	r.POST("/api/auth/register", authH.Register)
	r.POST("/api/auth/login", authH.Login)
	r.POST("/api/auth/forgot-password", authH.ForgotPassword)
	r.POST("/api/auth/logout", auth, authH.Logout)
	r.GET("/api/auth/me", auth, authH.Me)
	r.GET("/api/users", auth, usersH.List)
	r.GET("/api/users/:id", auth, usersH.Get)
	r.GET("/api/friends", auth, friendsH.List)
	r.GET("/api/friends/requests/incoming", auth, friendsH.IncomingRequests)
	r.GET("/api/friends/requests/outgoing", auth, friendsH.OutgoingRequests)
	r.POST("/api/friends/request", auth, friendsH.SendRequest)
	r.POST("/api/friends/respond", auth, friendsH.Respond)
	r.DELETE("/api/friends/:id", auth, friendsH.Remove)
	r.GET("/api/blocks", auth, friendsH.ListBlocks)
	r.POST("/api/blocks/:id", auth, friendsH.Block)
	r.DELETE("/api/blocks/:id", auth, friendsH.Unblock)
	r.GET("/api/profile", auth, profileH.Get)
	r.PUT("/api/profile", auth, profileH.Update)
	r.POST("/api/profile/password", auth, profileH.ChangePassword)
	r.GET("/api/messages/:id", auth, messagesH.ListConversation)
	r.POST("/api/messages/:id/delete", auth, messagesH.Delete)

	return &testEnv{db: db, cache: c, sm: sm, r: r}
}

func doJSON(r *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postJSON(r *gin.Engine, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodPost, path, body, headers...)
}

func getJSON(r *gin.Engine, path string, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodGet, path, nil, headers...)
}

// registerAndLogin creates a user and returns its ID and a bearer token.
func registerAndLogin(t *testing.T, r *gin.Engine, email, password, name string) (string, string) {
	t.Helper()
	w := postJSON(r, "/api/auth/register", map[string]string{
		"email": email, "password": password, "display_name": name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	w = postJSON(r, "/api/auth/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	return reg.User.ID, login.Token
}

func TestRegisterAndLogin(t *testing.T) {
	env := newEnv(t)

	userID, token := registerAndLogin(t, env.r, "alice@example.com", "secret123", "Alice")
	assert.NotEmpty(t, userID)
	assert.NotEmpty(t, token)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newEnv(t)

	w := postJSON(env.r, "/api/auth/register", map[string]string{
		"email": "dup@example.com", "password": "secret123", "display_name": "Dup",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(env.r, "/api/auth/register", map[string]string{
		"email": "dup@example.com", "password": "other456", "display_name": "Dup2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newEnv(t)
	registerAndLogin(t, env.r, "bob@example.com", "correct99", "Bob")

	w := postJSON(env.r, "/api/auth/login", map[string]string{
		"email": "bob@example.com", "password": "wrong999",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newEnv(t)
	w := postJSON(env.r, "/api/auth/login", map[string]string{
		"email": "ghost@example.com", "password": "whatever1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	env := newEnv(t)
	_, token := registerAndLogin(t, env.r, "carol@example.com", "secret123", "Carol")

	w := postJSON(env.r, "/api/auth/logout", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	// Token no longer usable on protected routes.
	w = getJSON(env.r, "/api/auth/me", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe(t *testing.T) {
	env := newEnv(t)
	userID, token := registerAndLogin(t, env.r, "dave@example.com", "secret123", "Dave")

	w := getJSON(env.r, "/api/auth/me", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.User.ID)
	assert.Equal(t, "dave@example.com", resp.User.Email)

	// The password hash must never leak.
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestForgotPassword_TempPasswordWorks(t *testing.T) {
	env := newEnv(t)
	registerAndLogin(t, env.r, "alice@example.com", "original1", "Alice")

	w := postJSON(env.r, "/api/auth/forgot-password", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	// Old password no longer valid.
	w = postJSON(env.r, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "original1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Temporary password: first 3 of the local part + "@" + last 3 reversed.
	w = postJSON(env.r, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "ali@eci",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestForgotPassword_UnknownEmailSameResponse(t *testing.T) {
	env := newEnv(t)
	w := postJSON(env.r, "/api/auth/forgot-password", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListUsers_ExcludesSelfAndFlagsOnline(t *testing.T) {
	env := newEnv(t)
	_, tokenA := registerAndLogin(t, env.r, "a@example.com", "secret123", "Anna")
	bobID, _ := registerAndLogin(t, env.r, "b@example.com", "secret123", "Bob")

	// Bob is online via a registered session.
	env.sm.Register(session.NewDetached(bobID, zap.NewNop()))

	w := getJSON(env.r, "/api/users", "Authorization", "Bearer "+tokenA)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Users []struct {
			ID     string `json:"id"`
			Online bool   `json:"online"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, bobID, resp.Users[0].ID)
	assert.True(t, resp.Users[0].Online)
}

func TestRegister_BroadcastsUserRegistered(t *testing.T) {
	env := newEnv(t)

	watcher := session.NewDetached("watcher-id", zap.NewNop())
	env.sm.Register(watcher)

	w := postJSON(env.r, "/api/auth/register", map[string]string{
		"email": "carol@example.com", "display_name": "Carol", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	select {
	case data := <-watcher.SendChan:
		var pkt session.Packet
		require.NoError(t, json.Unmarshal(data, &pkt))
		require.Equal(t, "user_registered", pkt.Type)

		var body struct {
			ID          string `json:"id"`
			Email       string `json:"email"`
			DisplayName string `json:"display_name"`
		}
		require.NoError(t, json.Unmarshal(pkt.Payload, &body))
		assert.NotEmpty(t, body.ID)
		assert.Equal(t, "carol@example.com", body.Email)
		assert.Equal(t, "Carol", body.DisplayName)
	case <-time.After(time.Second):
		t.Fatal("no user_registered event delivered")
	}
}

// failingCache errors on every write, standing in for an unreachable Redis.
type failingCache struct {
	cache.Cache
	err error
}

func (f *failingCache) Set(context.Context, string, string, time.Duration) error { return f.err }

func TestLogin_SessionStoreFailure(t *testing.T) {
	env := newEnv(t)
	registerAndLogin(t, env.r, "dave@example.com", "secret123", "Dave")

	broken := &failingCache{Cache: env.cache, err: errors.New("cache down")}
	authH := rest.NewAuthHandler(env.db, broken, env.sm, mail.New(config.MailConfig{}, zap.NewNop()), testSec)
	r := gin.New()
	r.POST("/api/auth/login", authH.Login)

	w := postJSON(r, "/api/auth/login", map[string]string{
		"email": "dave@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
