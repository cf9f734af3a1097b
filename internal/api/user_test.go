package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/testhelpers"
)

func TestRegisterEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.request(t, http.MethodPost, "/api/users/", "", map[string]interface{}{
		"email":      "vasya@example.com",
		"username":   "vasya",
		"first_name": "Vasya",
		"last_name":  "Pupkin",
		"password":   "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID       uint   `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	decode(t, w, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "vasya", created.Username)
	// The password never appears in any representation.
	assert.NotContains(t, w.Body.String(), "correct-horse")
	assert.NotContains(t, w.Body.String(), "password")

	// Duplicate email is a 400, not a 500.
	w = app.request(t, http.MethodPost, "/api/users/", "", map[string]interface{}{
		"email": "vasya@example.com", "username": "vasya2", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The reserved username collides with the /users/me route.
	w = app.request(t, http.MethodPost, "/api/users/", "", map[string]interface{}{
		"email": "me@example.com", "username": "me", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginAndLogoutEndpoints(t *testing.T) {
	app := newTestApp(t)
	user := testhelpers.CreateUser(t, app.db, "vasya")

	w := app.request(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email":    user.Email,
		"password": testhelpers.TestPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AuthToken string `json:"auth_token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.AuthToken)

	w = app.request(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email": user.Email, "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.request(t, http.MethodPost, "/api/auth/token/logout", resp.AuthToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.request(t, http.MethodPost, "/api/auth/token/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeEndpoint(t *testing.T) {
	app := newTestApp(t)
	user := testhelpers.CreateUser(t, app.db, "vasya")
	token := app.login(t, user)

	w := app.request(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me api.UserResponse
	decode(t, w, &me)
	assert.Equal(t, user.ID, me.ID)
	assert.False(t, me.IsSubscribed)

	w = app.request(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserSubscriptionFlag(t *testing.T) {
	app := newTestApp(t)
	viewer := testhelpers.CreateUser(t, app.db, "viewer")
	author := testhelpers.CreateUser(t, app.db, "author")
	token := app.login(t, viewer)

	w := app.request(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", author.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The flag reflects the requesting user.
	w = app.request(t, http.MethodGet, fmt.Sprintf("/api/users/%d", author.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile api.UserResponse
	decode(t, w, &profile)
	assert.True(t, profile.IsSubscribed)

	// Anonymous viewers never see a true flag.
	w = app.request(t, http.MethodGet, fmt.Sprintf("/api/users/%d", author.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile = api.UserResponse{}
	decode(t, w, &profile)
	assert.False(t, profile.IsSubscribed)

	w = app.request(t, http.MethodGet, "/api/users/999999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeEndpointErrors(t *testing.T) {
	app := newTestApp(t)
	viewer := testhelpers.CreateUser(t, app.db, "viewer")
	author := testhelpers.CreateUser(t, app.db, "author")
	token := app.login(t, viewer)

	subscribeURL := fmt.Sprintf("/api/users/%d/subscribe", author.ID)

	w := app.request(t, http.MethodPost, subscribeURL, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.request(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", viewer.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "self-subscribe")

	w = app.request(t, http.MethodPost, "/api/users/999999/subscribe", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.request(t, http.MethodPost, subscribeURL, token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = app.request(t, http.MethodPost, subscribeURL, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "duplicate subscribe")

	// Unsubscribing twice: 204 then 400, unknown author is 404.
	w = app.request(t, http.MethodDelete, subscribeURL, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = app.request(t, http.MethodDelete, subscribeURL, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = app.request(t, http.MethodDelete, "/api/users/999999/subscribe", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptionsEndpoint(t *testing.T) {
	app := newTestApp(t)
	viewer := testhelpers.CreateUser(t, app.db, "viewer")
	author := testhelpers.CreateUser(t, app.db, "author")
	token := app.login(t, viewer)

	for i := 0; i < 3; i++ {
		testhelpers.CreateRecipe(t, app.db, author, fmt.Sprintf("recipe-%d", i), nil, nil)
	}

	w := app.request(t, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", author.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.request(t, http.MethodGet, "/api/users/subscriptions?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page struct {
		Count   int64                    `json:"count"`
		Results []api.AuthorCardResponse `json:"results"`
	}
	decode(t, w, &page)
	require.EqualValues(t, 1, page.Count)
	require.Len(t, page.Results, 1)

	card := page.Results[0]
	assert.Equal(t, author.ID, card.ID)
	assert.True(t, card.IsSubscribed)
	assert.EqualValues(t, 3, card.RecipesCount)
	assert.Len(t, card.Recipes, 2, "recipes_limit caps the card")
}

func TestSetPasswordEndpoint(t *testing.T) {
	app := newTestApp(t)
	user := testhelpers.CreateUser(t, app.db, "vasya")
	token := app.login(t, user)

	w := app.request(t, http.MethodPost, "/api/users/set_password", token, map[string]string{
		"current_password": "wrong",
		"new_password":     "new-password",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.request(t, http.MethodPost, "/api/users/set_password", token, map[string]string{
		"current_password": testhelpers.TestPassword,
		"new_password":     "new-password",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.request(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{
		"email": user.Email, "password": "new-password",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserListPagination(t *testing.T) {
	app := newTestApp(t)
	for i := 0; i < 5; i++ {
		testhelpers.CreateUser(t, app.db, fmt.Sprintf("user-%d", i))
	}

	w := app.request(t, http.MethodGet, "/api/users/?limit=2&offset=0", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count    int64              `json:"count"`
		Next     *string            `json:"next"`
		Previous *string            `json:"previous"`
		Results  []api.UserResponse `json:"results"`
	}
	decode(t, w, &page)
	assert.EqualValues(t, 5, page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "offset=2")
	assert.Nil(t, page.Previous)
}
