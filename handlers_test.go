package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for the Cosmic collaborator. It counts
// calls so tests can assert the store was, or was not, contacted.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]storedObject // keyed by slug

	finds, adds, deletes          int
	failFind, failAdd, failDelete bool

	seq int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]storedObject)}
}

func (s *fakeStore) FindObject(_ context.Context, typeSlug, title string) (*storedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.failFind {
		return nil, fmt.Errorf("cosmic: find: store responded 500")
	}
	obj, ok := lo.Find(lo.Values(s.objects), func(o storedObject) bool {
		return o.TypeSlug == typeSlug && o.Title == title
	})
	if !ok {
		return nil, nil
	}
	return &obj, nil
}

func (s *fakeStore) AddObject(_ context.Context, params objectParams) (*storedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds++
	if s.failAdd {
		return nil, fmt.Errorf("cosmic: add: store responded 500")
	}
	s.seq++
	obj := storedObject{
		ID:         fmt.Sprintf("obj-%d", s.seq),
		Slug:       strings.ToLower(strings.ReplaceAll(params.Title, " ", "-")),
		Title:      params.Title,
		TypeSlug:   params.TypeSlug,
		Content:    params.Content,
		CreatedAt:  "2020-01-01T00:00:00.000Z",
		Metafields: params.Metafields,
	}
	s.objects[obj.Slug] = obj
	return &obj, nil
}

func (s *fakeStore) DeleteObject(_ context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.failDelete {
		return fmt.Errorf("cosmic: delete: store responded 500")
	}
	if _, ok := s.objects[slug]; !ok {
		return fmt.Errorf("cosmic: delete: store responded 404")
	}
	delete(s.objects, slug)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore, *http.Client) {
	t.Helper()
	store := newFakeStore()
	cfg := config{APISecret: "test-secret", BucketSlug: "cosmic-messenger"}
	server := httptest.NewServer(newHandler(cfg, store, slog.Default()))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return server, store, &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRegisterMissingUsername(t *testing.T) {
	server, store, client := newTestServer(t)

	for _, body := range []string{`{}`, `{"username":""}`, `not json`} {
		resp := postJSON(t, client, server.URL+"/api/register", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var apiErr apiError
		decodeBody(t, resp, &apiErr)
		assert.Equal(t, "/api/register error, no userName on request body", apiErr.Message)
	}

	// the store must never have been contacted
	assert.Zero(t, store.finds)
	assert.Zero(t, store.adds)
}

func TestRegisterSuccess(t *testing.T) {
	server, store, client := newTestServer(t)

	resp := postJSON(t, client, server.URL+"/api/register", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user registerResponse
	decodeBody(t, resp, &user)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Name)
	assert.NotEmpty(t, user.CreatedAt)

	// record created, session cookie set
	assert.Len(t, store.objects, 1)
	require.NotEmpty(t, resp.Request.URL)
	cookies := client.Jar.Cookies(resp.Request.URL)
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionName, cookies[0].Name)
}

func TestRegisterDuplicate(t *testing.T) {
	server, store, client := newTestServer(t)

	first := postJSON(t, client, server.URL+"/api/register", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, first.StatusCode)
	var user registerResponse
	decodeBody(t, first, &user)
	assert.NotEmpty(t, user.ID)

	second := postJSON(t, client, server.URL+"/api/register", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, second.StatusCode)

	var apiErr apiError
	decodeBody(t, second, &apiErr)
	assert.Equal(t, "user is already logged in", apiErr.Message)

	// no duplicate record
	assert.Equal(t, 1, store.adds)
	assert.Len(t, store.objects, 1)
}

func TestRegisterStoreError(t *testing.T) {
	server, store, client := newTestServer(t)
	store.failFind = true

	resp := postJSON(t, client, server.URL+"/api/register", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr apiError
	decodeBody(t, resp, &apiErr)
	assert.Equal(t, "Error registering username", apiErr.Message)
	assert.NotEmpty(t, apiErr.Detail)
}

func TestLogoutMissingUsername(t *testing.T) {
	server, store, client := newTestServer(t)

	resp := postJSON(t, client, server.URL+"/api/logout", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "No username", strings.TrimSpace(string(body)))

	// the store must never have been contacted
	assert.Zero(t, store.deletes)
}

func TestLogoutSuccess(t *testing.T) {
	server, store, client := newTestServer(t)

	register := postJSON(t, client, server.URL+"/api/register", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, register.StatusCode)

	resp := postJSON(t, client, server.URL+"/api/logout", `{"userName":"alice"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, store.objects)
}

func TestLogoutStoreError(t *testing.T) {
	server, store, client := newTestServer(t)
	store.failDelete = true

	resp := postJSON(t, client, server.URL+"/api/logout", `{"userName":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr apiError
	decodeBody(t, resp, &apiErr)
	assert.Equal(t, "unable to remove user", apiErr.Message)
}

func TestMessageWithoutSession(t *testing.T) {
	server, store, client := newTestServer(t)

	resp := postJSON(t, client, server.URL+"/api/message", `{"content":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, store.adds)
}

func TestMessageSuccess(t *testing.T) {
	server, store, client := newTestServer(t)

	register := postJSON(t, client, server.URL+"/api/register", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, register.StatusCode)
	var user registerResponse
	decodeBody(t, register, &user)

	resp := postJSON(t, client, server.URL+"/api/message", `{"content":"hello world"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Object storedObject `json:"object"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "messages", body.Object.TypeSlug)
	assert.Equal(t, "hello world", body.Object.Content)

	// the message is tagged with the session-bound user id
	meta, ok := lo.Find(body.Object.Metafields, func(f metafield) bool {
		return f.Key == "user_id"
	})
	require.True(t, ok)
	assert.Equal(t, user.ID, meta.Value)

	// persisting over HTTP and broadcasting over the socket are separate
	// surfaces: the store has the record, no socket was involved
	assert.Equal(t, 2, store.adds)
}

func TestMessageStoreError(t *testing.T) {
	server, store, client := newTestServer(t)

	register := postJSON(t, client, server.URL+"/api/register", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, register.StatusCode)

	store.failAdd = true
	resp := postJSON(t, client, server.URL+"/api/message", `{"content":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr apiError
	decodeBody(t, resp, &apiErr)
	assert.Equal(t, "Error creating message", apiErr.Message)
}

func TestEntryDocument(t *testing.T) {
	server, _, client := newTestServer(t)

	for _, path := range []string{"/", "/alice"} {
		resp, err := client.Get(server.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "<html>")
		assert.Contains(t, string(body), "Cosmic Messenger")
	}
}

func TestEntryDocumentEscapesUsername(t *testing.T) {
	server, _, client := newTestServer(t)

	resp, err := client.Get(server.URL + "/%3Cxss%3E")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.NotContains(t, string(body), "<xss>")
}
