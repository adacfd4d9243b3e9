package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andres10976/slotwatch/internal/model"
	"github.com/andres10976/slotwatch/internal/repository"
)

// mockFavoriteStore implements favoriteStore for testing.
type mockFavoriteStore struct {
	listFn   func(ctx context.Context) ([]model.FavoriteWarehouse, error)
	addFn    func(ctx context.Context, id int64, name string) (*model.FavoriteWarehouse, error)
	removeFn func(ctx context.Context, id int64) error
}

func (m *mockFavoriteStore) List(ctx context.Context) ([]model.FavoriteWarehouse, error) {
	return m.listFn(ctx)
}
func (m *mockFavoriteStore) Add(ctx context.Context, id int64, name string) (*model.FavoriteWarehouse, error) {
	return m.addFn(ctx, id, name)
}
func (m *mockFavoriteStore) Remove(ctx context.Context, id int64) error {
	return m.removeFn(ctx, id)
}

func TestFavoritesList_Empty(t *testing.T) {
	h := NewFavoritesHandler(&mockFavoriteStore{
		listFn: func(ctx context.Context) ([]model.FavoriteWarehouse, error) { return nil, nil },
	})

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/favorites", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]json.RawMessage
	json.NewDecoder(rec.Body).Decode(&body)
	if string(body["favorites"]) != "[]" {
		t.Errorf("favorites = %s, want []", body["favorites"])
	}
}

func TestFavoritesAdd_Success(t *testing.T) {
	h := NewFavoritesHandler(&mockFavoriteStore{
		addFn: func(ctx context.Context, id int64, name string) (*model.FavoriteWarehouse, error) {
			if id != 1020 || name != "Khimki" {
				t.Errorf("Add(%d, %q)", id, name)
			}
			return &model.FavoriteWarehouse{ID: id, Name: name, CreatedAt: time.Now()}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/favorites", strings.NewReader(`{"id":1020,"name":"  Khimki "}`))
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestFavoritesAdd_Duplicate(t *testing.T) {
	h := NewFavoritesHandler(&mockFavoriteStore{
		addFn: func(ctx context.Context, id int64, name string) (*model.FavoriteWarehouse, error) {
			return nil, repository.ErrDuplicate
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/favorites", strings.NewReader(`{"id":1020,"name":"Khimki"}`))
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestFavoritesAdd_InvalidBody(t *testing.T) {
	h := NewFavoritesHandler(&mockFavoriteStore{})

	for _, body := range []string{`not json`, `{"id":0,"name":"x"}`, `{"id":5,"name":"  "}`} {
		rec := httptest.NewRecorder()
		h.Add(rec, httptest.NewRequest(http.MethodPost, "/favorites", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestFavoritesRemove(t *testing.T) {
	tests := []struct {
		name string
		id   string
		err  error
		want int
	}{
		{"success", "42", nil, http.StatusNoContent},
		{"not found", "42", repository.ErrNotFound, http.StatusNotFound},
		{"store error", "42", errors.New("db down"), http.StatusInternalServerError},
		{"invalid id", "abc", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFavoritesHandler(&mockFavoriteStore{
				removeFn: func(ctx context.Context, id int64) error {
					if id != 42 {
						t.Errorf("id = %d, want 42", id)
					}
					return tt.err
				},
			})

			rec := httptest.NewRecorder()
			h.Remove(rec, chiRequest(http.MethodDelete, "/favorites/"+tt.id, nil, map[string]string{"id": tt.id}))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
