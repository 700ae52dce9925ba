package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/placemark-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserHandlerEnv(phones map[string]string) (*testEnv, *UserHandler) {
	env := newTestEnv()
	h := NewUserHandler(env.users, env.relations, env.posts, &fakePhoneLookup{phones: phones})
	return env, h
}

func TestCreateUser(t *testing.T) {
	env, h := newUserHandlerEnv(map[string]string{"uid-1": "+15551234567"})

	c, rec := env.newContext(nil, http.MethodPost, "/users", models.CreateUserRequest{
		Username: "alice", FirstName: "Alice", LastName: "Example",
	})
	c.Set("firebaseUID", "uid-1")
	require.NoError(t, h.CreateUser(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	user, err := env.users.GetUserByFirebaseUID("uid-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	require.NotNil(t, user.PhoneNumber)
	assert.Equal(t, "+15551234567", *user.PhoneNumber)
}

func TestCreateUser_NoVerifiedPhone(t *testing.T) {
	env, h := newUserHandlerEnv(nil)

	c, _ := env.newContext(nil, http.MethodPost, "/users", models.CreateUserRequest{
		Username: "alice", FirstName: "Alice", LastName: "Example",
	})
	c.Set("firebaseUID", "uid-1")
	err := h.CreateUser(c)
	assert.Equal(t, http.StatusForbidden, httpErrorCode(err))
}

func TestCreateUser_UsernameTaken(t *testing.T) {
	env, h := newUserHandlerEnv(map[string]string{"uid-2": "+15550000000"})
	env.addUser("alice")

	c, _ := env.newContext(nil, http.MethodPost, "/users", models.CreateUserRequest{
		Username: "Alice", FirstName: "Other", LastName: "Person",
	})
	c.Set("firebaseUID", "uid-2")
	err := h.CreateUser(c)
	assert.Equal(t, http.StatusBadRequest, httpErrorCode(err))
}

func TestGetUser_DeletedReadsAsMissing(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	alice := env.addUser("alice")
	bob := env.addUser("bob")
	require.NoError(t, env.users.SoftDeleteUser(bob.ID))

	c, _ := env.newContext(alice, http.MethodGet, "/users/bob", nil)
	c.SetParamNames("username")
	c.SetParamValues("bob")
	err := h.GetUser(c)
	assert.Equal(t, http.StatusNotFound, httpErrorCode(err))
}

func TestGetUser_BlockedEitherDirectionReadsAsMissing(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	alice := env.addUser("alice")
	bob := env.addUser("bob")
	require.NoError(t, env.relations.BlockUser(alice.ID, bob.ID))

	c, _ := env.newContext(alice, http.MethodGet, "/users/bob", nil)
	c.SetParamNames("username")
	c.SetParamValues("bob")
	err := h.GetUser(c)
	assert.Equal(t, http.StatusNotFound, httpErrorCode(err))

	c, _ = env.newContext(bob, http.MethodGet, "/users/alice", nil)
	c.SetParamNames("username")
	c.SetParamValues("alice")
	err = h.GetUser(c)
	assert.Equal(t, http.StatusNotFound, httpErrorCode(err))
}

func TestUpdateProfile_UsernameTaken(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	alice := env.addUser("alice")
	env.addUser("bob")

	c, _ := env.newContext(alice, http.MethodPatch, "/me", models.UpdateProfileRequest{Username: "bob"})
	err := h.UpdateProfile(c)
	assert.Equal(t, http.StatusBadRequest, httpErrorCode(err))
}

func TestDeleteMe_HidesAccount(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	alice := env.addUser("alice")

	c, _ := env.newContext(alice, http.MethodDelete, "/me", nil)
	require.NoError(t, h.DeleteMe(c))

	_, err := env.users.GetUserByUsername("alice")
	assert.Error(t, err)
}

func TestSearchByContacts_HonorsOptOut(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	alice := env.addUser("alice")
	bob := env.addUser("bob")
	carol := env.addUser("carol")
	bobPhone := "+15551111111"
	carolPhone := "+15552222222"
	env.users.users[bob.ID].PhoneNumber = &bobPhone
	env.users.users[carol.ID].PhoneNumber = &carolPhone
	env.users.prefs[carol.ID].SearchableByPhoneNumber = false

	c, rec := env.newContext(alice, http.MethodPost, "/me/contacts", map[string]any{
		"phone_numbers": []string{bobPhone, carolPhone},
	})
	require.NoError(t, h.SearchByContacts(c))

	var resp struct {
		Users []models.PublicUser `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "bob", resp.Users[0].Username)
}

func TestSearchUsers_PrefixMatch(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	viewer := env.addUser("viewer")
	env.addUser("alice")
	env.addUser("alicia")
	env.addUser("bob")
	gone := env.addUser("alison")
	require.NoError(t, env.users.SoftDeleteUser(gone.ID))
	_, err := env.users.CreateUser("uid-zq", "carol", "Zara", "Quinn", nil)
	require.NoError(t, err)

	c, rec := env.newContext(viewer, http.MethodGet, "/users/search?q=ali", nil)
	require.NoError(t, h.SearchUsers(c))
	assert.ElementsMatch(t, []string{"alice", "alicia"}, searchResultUsernames(t, rec.Body.Bytes()))

	c, rec = env.newContext(viewer, http.MethodGet, "/users/search?q=zara", nil)
	require.NoError(t, h.SearchUsers(c))
	assert.Equal(t, []string{"carol"}, searchResultUsernames(t, rec.Body.Bytes()))
}

func TestSearchUsers_WildcardsMatchLiterally(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	viewer := env.addUser("viewer")
	env.addUser("alice")

	c, rec := env.newContext(viewer, http.MethodGet, "/users/search?q=ali_", nil)
	require.NoError(t, h.SearchUsers(c))
	assert.Empty(t, searchResultUsernames(t, rec.Body.Bytes()))
}

func TestSearchUsers_MissingQuery(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	viewer := env.addUser("viewer")

	c, _ := env.newContext(viewer, http.MethodGet, "/users/search", nil)
	err := h.SearchUsers(c)
	assert.Equal(t, http.StatusBadRequest, httpErrorCode(err))
}

func searchResultUsernames(t *testing.T, body []byte) []string {
	t.Helper()
	var resp struct {
		Users []models.PublicUser `json:"users"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	usernames := make([]string, 0, len(resp.Users))
	for _, user := range resp.Users {
		usernames = append(usernames, user.Username)
	}
	return usernames
}

func TestGetSuggestedUsers_IncludesFeaturedAccounts(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	viewer := env.addUser("viewer")
	featured := env.addUser("cityguide")
	env.users.users[featured.ID].IsFeatured = true
	env.addUser("bystander")

	c, rec := env.newContext(viewer, http.MethodGet, "/me/suggested", nil)
	require.NoError(t, h.GetSuggestedUsers(c))
	assert.Equal(t, []string{"cityguide"}, searchResultUsernames(t, rec.Body.Bytes()))
}

func TestGetUserPosts_Pagination(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	alice := env.addUser("alice")
	bob := env.addUser("bob")
	for i := 0; i < 3; i++ {
		place, err := env.places.GetOrCreatePlace("Spot "+itoa(uint(i)), 40.0, -74.0, 10)
		require.NoError(t, err)
		_, err = env.posts.CreatePost(bob.ID, place.ID, "food", "good", nil)
		require.NoError(t, err)
	}

	c, rec := env.newContext(alice, http.MethodGet, "/users/bob/posts?limit=2", nil)
	c.SetParamNames("username")
	c.SetParamValues("bob")
	require.NoError(t, h.GetUserPosts(c))

	var page models.PaginatedPosts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Posts, 2)
	assert.Greater(t, page.Posts[0].ID, page.Posts[1].ID)
	require.NotNil(t, page.Cursor)

	c, rec = env.newContext(alice, http.MethodGet, "/users/bob/posts?limit=2&cursor="+itoa(*page.Cursor), nil)
	c.SetParamNames("username")
	c.SetParamValues("bob")
	require.NoError(t, h.GetUserPosts(c))

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Posts, 1)
	assert.Nil(t, page.Cursor)
}

func TestUpdatePreferences(t *testing.T) {
	env, h := newUserHandlerEnv(nil)
	alice := env.addUser("alice")

	c, rec := env.newContext(alice, http.MethodPatch, "/me/preferences", models.UpdatePrefsRequest{
		FollowNotifications:     false,
		SearchableByPhoneNumber: true,
	})
	require.NoError(t, h.UpdatePreferences(c))

	var prefs models.UserPrefs
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.False(t, prefs.FollowNotifications)
	assert.True(t, prefs.SearchableByPhoneNumber)
}
