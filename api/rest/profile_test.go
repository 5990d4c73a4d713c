package rest_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_EmptyUntilSaved(t *testing.T) {
	env := newEnv(t)
	userID, token := registerAndLogin(t, env.r, "alice@example.com", "secret123", "Alice")

	w := getJSON(env.r, "/api/profile", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Profile struct {
			UserID    string `json:"user_id"`
			AvatarURL string `json:"avatar_url"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.Profile.UserID)
	assert.Empty(t, resp.Profile.AvatarURL)
}

func TestProfile_UpdateRoundTrip(t *testing.T) {
	env := newEnv(t)
	_, token := registerAndLogin(t, env.r, "alice@example.com", "secret123", "Alice")

	w := doJSON(env.r, http.MethodPut, "/api/profile", map[string]interface{}{
		"avatar_url":     "https://cdn.example.com/a.png",
		"gender":         "female",
		"address":        "Istanbul",
		"education":      "BSc",
		"phone_public":   true,
		"address_public": false,
	}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = getJSON(env.r, "/api/profile", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://cdn.example.com/a.png")
	assert.Contains(t, w.Body.String(), "Istanbul")

	// Second update overwrites, not duplicates.
	w = doJSON(env.r, http.MethodPut, "/api/profile", map[string]interface{}{
		"avatar_url": "https://cdn.example.com/b.png",
	}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	w = getJSON(env.r, "/api/profile", "Authorization", "Bearer "+token)
	assert.Contains(t, w.Body.String(), "b.png")
	assert.NotContains(t, w.Body.String(), "a.png")
}

func TestChangePassword(t *testing.T) {
	env := newEnv(t)
	_, token := registerAndLogin(t, env.r, "alice@example.com", "oldpass99", "Alice")

	// Wrong current password is rejected.
	w := postJSON(env.r, "/api/profile/password", map[string]string{
		"current_password": "nope", "new_password": "newpass99",
	}, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(env.r, "/api/profile/password", map[string]string{
		"current_password": "oldpass99", "new_password": "newpass99",
	}, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	// Old password dead, new one lives.
	w = postJSON(env.r, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "oldpass99",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(env.r, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "newpass99",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
