package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/lo"
)

// objectStore is the narrow boundary to the external content store. The
// store's internals are its own business; this side only needs create,
// delete, and an existence probe by title.
type objectStore interface {
	FindObject(ctx context.Context, typeSlug, title string) (*storedObject, error)
	AddObject(ctx context.Context, params objectParams) (*storedObject, error)
	DeleteObject(ctx context.Context, slug string) error
}

type metafield struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

type storedObject struct {
	ID         string      `json:"_id"`
	Slug       string      `json:"slug"`
	Title      string      `json:"title"`
	TypeSlug   string      `json:"type_slug"`
	Content    string      `json:"content,omitempty"`
	CreatedAt  string      `json:"created_at"`
	Metafields []metafield `json:"metafields,omitempty"`
}

type objectParams struct {
	Title      string      `json:"title"`
	TypeSlug   string      `json:"type_slug"`
	Content    string      `json:"content,omitempty"`
	Metafields []metafield `json:"metafields,omitempty"`
	WriteKey   string      `json:"write_key,omitempty"`
}

// cosmicStore talks to a Cosmic bucket over its REST API.
type cosmicStore struct {
	base     string
	bucket   string
	readKey  string
	writeKey string
	client   *http.Client
	log      *slog.Logger
}

func newCosmicStore(cfg config, log *slog.Logger) *cosmicStore {
	return &cosmicStore{
		base:     cfg.APIURL,
		bucket:   cfg.BucketSlug,
		readKey:  cfg.ReadKey,
		writeKey: cfg.WriteKey,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// FindObject returns the object of the given type whose title matches
// exactly, or nil if the store has none.
func (s *cosmicStore) FindObject(ctx context.Context, typeSlug, title string) (*storedObject, error) {
	q := url.Values{}
	q.Set("type", typeSlug)
	q.Set("title", title)
	q.Set("read_key", s.readKey)
	u := fmt.Sprintf("%s/%s/objects?%s", s.base, s.bucket, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cosmic: find %s %q: %w", typeSlug, title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, storeStatusError("find", resp)
	}

	var body struct {
		Objects []storedObject `json:"objects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("cosmic: find %s %q: %w", typeSlug, title, err)
	}
	// The API matches loosely; insist on the exact title.
	obj, ok := lo.Find(body.Objects, func(o storedObject) bool {
		return o.Title == title
	})
	if !ok {
		s.log.Debug("store lookup empty", "type", typeSlug, "title", title)
		return nil, nil
	}
	return &obj, nil
}

func (s *cosmicStore) AddObject(ctx context.Context, params objectParams) (*storedObject, error) {
	params.WriteKey = s.writeKey
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/%s/add-object", s.base, s.bucket)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cosmic: add %s %q: %w", params.TypeSlug, params.Title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, storeStatusError("add", resp)
	}

	var body struct {
		Object storedObject `json:"object"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("cosmic: add %s %q: %w", params.TypeSlug, params.Title, err)
	}
	return &body.Object, nil
}

func (s *cosmicStore) DeleteObject(ctx context.Context, slug string) error {
	q := url.Values{}
	q.Set("write_key", s.writeKey)
	u := fmt.Sprintf("%s/%s/%s?%s", s.base, s.bucket, url.PathEscape(slug), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("cosmic: delete %q: %w", slug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return storeStatusError("delete", resp)
	}
	return nil
}

func storeStatusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("cosmic: %s: store responded %d: %s", op, resp.StatusCode, bytes.TrimSpace(snippet))
}
