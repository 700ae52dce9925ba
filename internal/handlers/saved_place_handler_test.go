package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/placemark-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavePlace_AndList(t *testing.T) {
	env := newTestEnv()
	alice := env.addUser("alice")
	place, err := env.places.GetOrCreatePlace("Joe's Pizza", 40.7, -74.0, 10)
	require.NoError(t, err)
	h := NewSavedPlaceHandler(env.places)

	c, rec := env.newContext(alice, http.MethodPost, "/me/saved-places", models.SavePlaceRequest{
		PlaceID: place.ID, Note: "best slice downtown",
	})
	require.NoError(t, h.SavePlace(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = env.newContext(alice, http.MethodGet, "/me/saved-places", nil)
	require.NoError(t, h.GetSavedPlaces(c))

	var resp models.SavedPlacesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Saves, 1)
	assert.Equal(t, "best slice downtown", resp.Saves[0].Note)
	assert.Equal(t, place.ID, resp.Saves[0].Place.ID)
	assert.Equal(t, "Joe's Pizza", resp.Saves[0].Place.Name)
	assert.Nil(t, resp.Cursor)
}

func TestSavePlace_ResaveReplacesNote(t *testing.T) {
	env := newTestEnv()
	alice := env.addUser("alice")
	place, err := env.places.GetOrCreatePlace("Joe's Pizza", 40.7, -74.0, 10)
	require.NoError(t, err)
	h := NewSavedPlaceHandler(env.places)

	c, _ := env.newContext(alice, http.MethodPost, "/me/saved-places", models.SavePlaceRequest{
		PlaceID: place.ID, Note: "first note",
	})
	require.NoError(t, h.SavePlace(c))
	c, _ = env.newContext(alice, http.MethodPost, "/me/saved-places", models.SavePlaceRequest{
		PlaceID: place.ID, Note: "second note",
	})
	require.NoError(t, h.SavePlace(c))

	require.Len(t, env.places.saves, 1)
	assert.Equal(t, "second note", env.places.saves[0].Note)
}

func TestSavePlace_UnknownPlace(t *testing.T) {
	env := newTestEnv()
	alice := env.addUser("alice")
	h := NewSavedPlaceHandler(env.places)

	c, _ := env.newContext(alice, http.MethodPost, "/me/saved-places", models.SavePlaceRequest{PlaceID: 42})
	err := h.SavePlace(c)
	assert.Equal(t, http.StatusNotFound, httpErrorCode(err))
}

func TestUnsavePlace_Idempotent(t *testing.T) {
	env := newTestEnv()
	alice := env.addUser("alice")
	place, err := env.places.GetOrCreatePlace("Joe's Pizza", 40.7, -74.0, 10)
	require.NoError(t, err)
	h := NewSavedPlaceHandler(env.places)

	c, _ := env.newContext(alice, http.MethodPost, "/me/saved-places", models.SavePlaceRequest{PlaceID: place.ID})
	require.NoError(t, h.SavePlace(c))

	for i := 0; i < 2; i++ {
		c, rec := env.newContext(alice, http.MethodDelete, "/me/saved-places/"+itoa(place.ID), nil)
		c.SetParamNames("placeId")
		c.SetParamValues(itoa(place.ID))
		require.NoError(t, h.UnsavePlace(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, env.places.saves)
}

func TestGetSavedPlaces_CursorPagination(t *testing.T) {
	env := newTestEnv()
	alice := env.addUser("alice")
	h := NewSavedPlaceHandler(env.places)

	names := []string{"Joe's Pizza", "Blue Bottle", "The Met"}
	for _, name := range names {
		place, err := env.places.GetOrCreatePlace(name, 40.7, -74.0, 10)
		require.NoError(t, err)
		c, _ := env.newContext(alice, http.MethodPost, "/me/saved-places", models.SavePlaceRequest{PlaceID: place.ID})
		require.NoError(t, h.SavePlace(c))
	}

	c, rec := env.newContext(alice, http.MethodGet, "/me/saved-places?limit=2", nil)
	require.NoError(t, h.GetSavedPlaces(c))
	var page models.SavedPlacesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Saves, 2)
	assert.Equal(t, "The Met", page.Saves[0].Place.Name)
	assert.Equal(t, "Blue Bottle", page.Saves[1].Place.Name)
	require.NotNil(t, page.Cursor)

	c, rec = env.newContext(alice, http.MethodGet, "/me/saved-places?limit=2&cursor="+itoa(*page.Cursor), nil)
	require.NoError(t, h.GetSavedPlaces(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Saves, 1)
	assert.Equal(t, "Joe's Pizza", page.Saves[0].Place.Name)
	assert.Nil(t, page.Cursor)
}
