package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"dashboard_sync/internal/models"
	"dashboard_sync/internal/service"
)

func TestSubmitPurchase(t *testing.T) {
	pos := models.Vec3{X: 1, Y: 2, Z: 3}
	p := &mockPurchases{submitRec: models.PurchaseRecord{ID: "p1", Status: models.PurchaseFulfilled, Position: &pos}}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Purchases: p}
	r := newTestRouter(s)

	w := do(t, r, http.MethodPost, "/api/v1/instances/5/purchases",
		bytes.NewBufferString(`{"actor_name":"Alice","item_class":"AKM"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if p.lastID != 5 || p.lastReq.ActorName != "Alice" || p.lastReq.ItemClass != "AKM" || p.lastReq.Deferred {
		t.Fatalf("request not mapped: id=%d req=%+v", p.lastID, p.lastReq)
	}

	p.submitRec = models.PurchaseRecord{ID: "p2", Status: models.PurchasePending}
	w = do(t, r, http.MethodPost, "/api/v1/instances/5/purchases",
		bytes.NewBufferString(`{"actor_name":"Alice","item_class":"Kit","deferred":true}`))
	if w.Code != http.StatusAccepted || !p.lastReq.Deferred {
		t.Fatalf("deferred: status=%d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/v1/instances/5/purchases", bytes.NewBufferString(`{"actor_name":"Alice"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing item_class: status=%d", w.Code)
	}
}

func TestSubmitPurchase_LocationUnknown(t *testing.T) {
	p := &mockPurchases{
		submitRec: models.PurchaseRecord{ID: "p1", Status: models.PurchaseFailed},
		submitErr: service.ErrLocationUnknown,
	}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Purchases: p}
	r := newTestRouter(s)

	w := do(t, r, http.MethodPost, "/api/v1/instances/5/purchases",
		bytes.NewBufferString(`{"actor_name":"Ghost","item_class":"AKM"}`))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Error    string                `json:"error"`
		Purchase models.PurchaseRecord `json:"purchase"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Error == "" || body.Purchase.Status != models.PurchaseFailed {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestListPurchases_Filters(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &mockPurchases{list: []models.PurchaseRecord{
		{ID: "a", Status: models.PurchasePending, CreatedAt: day.Add(2 * time.Hour)},
		{ID: "b", Status: models.PurchaseFulfilled, CreatedAt: day.Add(time.Hour)},
		{ID: "c", Status: models.PurchaseFulfilled, CreatedAt: day.Add(-time.Hour)},
	}}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Purchases: p}
	r := newTestRouter(s)

	cases := []struct {
		query string
		code  int
		ids   []string
	}{
		{"", http.StatusOK, []string{"a", "b", "c"}},
		{"?status=fulfilled", http.StatusOK, []string{"b", "c"}},
		{"?since=2024-03-01", http.StatusOK, []string{"a", "b"}},
		{"?status=FULFILLED&since=2024-03-01T00:30:00Z", http.StatusOK, []string{"b"}},
		{"?status=LOST", http.StatusBadRequest, nil},
		{"?since=yesterday", http.StatusBadRequest, nil},
	}
	for _, tc := range cases {
		w := do(t, r, http.MethodGet, "/api/v1/instances/1/purchases"+tc.query, nil)
		if w.Code != tc.code {
			t.Fatalf("%q: status=%d", tc.query, w.Code)
		}
		if tc.code != http.StatusOK {
			continue
		}
		var out struct {
			Count     int                     `json:"count"`
			Purchases []models.PurchaseRecord `json:"purchases"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if out.Count != len(tc.ids) {
			t.Fatalf("%q: want %v, got %+v", tc.query, tc.ids, out.Purchases)
		}
		for i, id := range tc.ids {
			if out.Purchases[i].ID != id {
				t.Errorf("%q: item %d want %s, got %s", tc.query, i, id, out.Purchases[i].ID)
			}
		}
	}
}

func TestListLocations(t *testing.T) {
	l := &mockLocations{locs: []models.PlayerLocation{{InstanceID: 1, Actor: "Alice"}}}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Locations: l}
	r := newTestRouter(s)

	w := do(t, r, http.MethodGet, "/api/v1/instances/1/locations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestParseQueryTime(t *testing.T) {
	for _, s := range []string{"2024-03-01T09:00:00Z", "2024-03-01 09:00:00", "2024-03-01"} {
		if _, err := parseQueryTime(s); err != nil {
			t.Errorf("%q: %v", s, err)
		}
	}
	if _, err := parseQueryTime("03/01/2024"); err == nil {
		t.Errorf("expected error")
	}
}
