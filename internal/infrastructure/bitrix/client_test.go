package bitrix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := logrus.New()
	return NewClient(srv.URL, nil, logger)
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient("", nil, logrus.New())
	assert.False(t, c.Configured())

	_, err := c.ListDeals(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.CreateContact(context.Background(), ContactInput{Name: "Ada"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_CreateContact(t *testing.T) {
	var captured map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crm.contact.add", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"result": 517})
	})

	id, err := c.CreateContact(context.Background(), ContactInput{
		Name: "Ada", Surname: "Lovelace", Email: "ada@b.co", Phone: "+70000000001",
	})
	require.NoError(t, err)
	assert.Equal(t, "517", id)

	fields := captured["fields"].(map[string]any)
	assert.Equal(t, "Ada", fields["NAME"])
	assert.Equal(t, "Lovelace", fields["LAST_NAME"])

	emails := fields["EMAIL"].([]any)
	first := emails[0].(map[string]any)
	assert.Equal(t, "ada@b.co", first["VALUE"])
	assert.Equal(t, "WORK", first["VALUE_TYPE"])
}

func TestClient_CreateDeal_Defaults(t *testing.T) {
	var captured map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crm.deal.add", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"result": 42})
	})

	id, err := c.CreateDeal(context.Background(), DealInput{Title: "Big sale"})
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	fields := captured["fields"].(map[string]any)
	assert.Equal(t, "Big sale", fields["TITLE"])
	assert.Equal(t, "NEW", fields["STAGE_ID"])
	assert.Equal(t, "RUB", fields["CURRENCY_ID"])
}

func TestClient_ListDeals_ResolvesStageNames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crm.deal.list":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": []map[string]any{
					{"ID": "1", "TITLE": "First", "STAGE_ID": "NEW", "CATEGORY_ID": "0", "DATE_CREATE": "2026-08-01T10:00:00+03:00"},
					{"ID": "2", "TITLE": "Second", "STAGE_ID": "WON", "CATEGORY_ID": "0", "DATE_CREATE": "2026-08-02T10:00:00+03:00"},
				},
				"total": 2,
			})
		case "/crm.status.list":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": []map[string]any{
					{"STATUS_ID": "NEW", "NAME": "New lead"},
					{"STATUS_ID": "WON", "NAME": "Deal won"},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	page, err := c.ListDeals(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Deals, 2)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "New lead", page.Deals[0].StageName)
	assert.Equal(t, "Deal won", page.Deals[1].StageName)
}

func TestClient_ListDeals_StageLookupFailureDegrades(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crm.deal.list":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"result": []map[string]any{
					{"ID": "1", "TITLE": "First", "STAGE_ID": "NEW", "CATEGORY_ID": "0"},
				},
				"total": 1,
			})
		case "/crm.status.list":
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "INTERNAL", "error_description": "boom"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	page, err := c.ListDeals(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Deals, 1)
	// stage id stands in when the name lookup fails
	assert.Equal(t, "NEW", page.Deals[0].StageName)
}

func TestClient_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":             "NOT_FOUND",
			"error_description": "Deal not found",
		})
	})

	_, err := c.GetDeal(context.Background(), "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Deal not found")
}

func TestClient_UpdateDeal_NoFieldsIsNoop(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	require.NoError(t, c.UpdateDeal(context.Background(), "1", DealInput{}))
	assert.False(t, called)
}
