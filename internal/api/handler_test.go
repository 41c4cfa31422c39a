package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alenjb/deli/internal/events/console"
	"github.com/alenjb/deli/internal/logger"
	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/orders"
	"github.com/alenjb/deli/internal/repositories/memory"
	"github.com/alenjb/deli/internal/stats"
	"github.com/gin-gonic/gin"
)

var noon = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := memory.NewDB()
	err := db.Stores().BulkCreate(context.Background(), []*models.Store{
		{ID: "s1", Name: "Kimbap Heaven", AvgPrepMinutes: 20},
		{ID: "s2", Name: "Pho Corner", AvgPrepMinutes: 15},
	})
	if err != nil {
		t.Fatal(err)
	}

	log := logger.Discard()
	agg := stats.NewAggregator(db, log)
	svc := orders.NewService(db, agg, console.NewPublisher(log), time.UTC, 20, log,
		orders.WithClock(func() time.Time { return noon }))
	return NewRouter(NewHandler(svc, agg, db.Stores(), log), log)
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func createOrder(t *testing.T, router *gin.Engine, store string) models.OrderResponse {
	t.Helper()
	w := do(t, router, http.MethodPost, "/orders",
		`{"user_id":"u1","store_id":"`+store+`","distance_km":2.1,"estimated_delivery_time_minutes":15}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create order status = %d body = %s", w.Code, w.Body.String())
	}
	return decode[models.OrderResponse](t, w)
}

func TestOrderLifecycle(t *testing.T) {
	router := newTestRouter(t)

	order := createOrder(t, router, "s1")
	if order.OrderID == "" || order.Status != models.DeliveryStatusAssigned || order.DeliveredAt != nil {
		t.Fatalf("unexpected order %+v", order)
	}
	if want := time.Date(2024, 5, 1, 12, 39, 0, 0, time.UTC); !order.Eta.Equal(want) {
		t.Errorf("eta = %v, want %v", order.Eta, want)
	}

	w := do(t, router, http.MethodPost, "/orders/"+order.OrderID+"/complete?deliveredAt=2024-05-01T12:45:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("complete status = %d body = %s", w.Code, w.Body.String())
	}
	completed := decode[struct {
		Order        models.OrderResponse             `json:"order"`
		Delayed      bool                             `json:"delayed"`
		DelayMinutes int64                            `json:"delay_minutes"`
		Summary      models.StoreDelaySummaryResponse `json:"store_summary"`
	}](t, w)
	if !completed.Delayed || completed.DelayMinutes != 6 || completed.Order.Status != models.DeliveryStatusDelivered {
		t.Errorf("unexpected completion %+v", completed)
	}
	if completed.Summary.TotalOrders != 1 || completed.Summary.DelayRate != 1 {
		t.Errorf("unexpected summary %+v", completed.Summary)
	}

	w = do(t, router, http.MethodPost, "/orders/"+order.OrderID+"/complete", "")
	if w.Code != http.StatusConflict {
		t.Errorf("second completion status = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodGet, "/api/stores/s1/delay-summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delay summary status = %d", w.Code)
	}
	summary := decode[models.StoreDelaySummaryResponse](t, w)
	if summary.StoreName != "Kimbap Heaven" || summary.AvgDelayMinutes != 6 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t)
	order := createOrder(t, router, "s1")

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"unknown store", http.MethodPost, "/orders", `{"user_id":"u1","store_id":"nope","estimated_delivery_time_minutes":5}`, http.StatusNotFound},
		{"missing fields", http.MethodPost, "/orders", `{"store_id":"s1"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/orders", `{"store_id":`, http.StatusBadRequest},
		{"unknown order", http.MethodGet, "/orders/nope", "", http.StatusNotFound},
		{"bad deliveredAt", http.MethodPost, "/orders/" + order.OrderID + "/complete?deliveredAt=yesterday", "", http.StatusBadRequest},
		{"no summary yet", http.MethodGet, "/api/stores/s2/delay-summary", "", http.StatusNotFound},
		{"unknown store lookup", http.MethodGet, "/api/stores/nope", "", http.StatusNotFound},
		{"non positive adjustment", http.MethodPost, "/orders/" + order.OrderID + "/eta/adjust", `{"additional_minutes":0}`, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/nothing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestEtaAdjustmentEndpoints(t *testing.T) {
	router := newTestRouter(t)
	order := createOrder(t, router, "s1")

	w := do(t, router, http.MethodPost, "/orders/"+order.OrderID+"/eta/adjust", `{"additional_minutes":15,"reason":"rush"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("adjust status = %d body = %s", w.Code, w.Body.String())
	}
	if got := decode[models.OrderResponse](t, w); !got.Eta.Equal(time.Date(2024, 5, 1, 12, 54, 0, 0, time.UTC)) {
		t.Errorf("eta after adjust = %v", got.Eta)
	}

	w = do(t, router, http.MethodPost, "/orders/"+order.OrderID+"/eta/cooking-completed", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cooking-completed status = %d", w.Code)
	}
	if got := decode[models.OrderResponse](t, w); !got.Eta.Equal(noon.Add(20 * time.Minute)) {
		t.Errorf("eta after cooking completed = %v", got.Eta)
	}

	w = do(t, router, http.MethodGet, "/orders/"+order.OrderID+"/eta-history", "")
	history := decode[struct {
		History []models.EtaHistory `json:"history"`
	}](t, w)
	if len(history.History) != 2 || history.History[0].Reason != "rush" || history.History[1].Reason != models.EtaReasonCookingCompleted {
		t.Errorf("unexpected history %+v", history.History)
	}
}

func TestConfirmDelivery(t *testing.T) {
	router := newTestRouter(t)
	order := createOrder(t, router, "s1")

	w := do(t, router, http.MethodPost, "/orders/"+order.OrderID+"/confirm", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("confirm status = %d body = %s", w.Code, w.Body.String())
	}
	evt := decode[models.DeliveryCompletedEvent](t, w)
	if evt.OrderID != order.OrderID || evt.EventID == "" || !evt.DeliveredAt.Equal(noon) {
		t.Errorf("unexpected event %+v", evt)
	}
}

func TestStoreRanking(t *testing.T) {
	router := newTestRouter(t)

	late := createOrder(t, router, "s2")
	onTime := createOrder(t, router, "s1")
	do(t, router, http.MethodPost, "/orders/"+late.OrderID+"/complete?deliveredAt=2024-05-01T13:30:00Z", "")
	do(t, router, http.MethodPost, "/orders/"+onTime.OrderID+"/complete?deliveredAt=2024-05-01T12:30:00Z", "")

	w := do(t, router, http.MethodGet, "/api/stores/ranking", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ranking status = %d", w.Code)
	}
	ranking := decode[[]models.StoreDelaySummaryResponse](t, w)
	if len(ranking) != 2 || ranking[0].StoreID != "s2" || ranking[1].StoreID != "s1" {
		t.Errorf("unexpected ranking %+v", ranking)
	}

	w = do(t, router, http.MethodPost, "/api/stores/s1/delay-summary/refresh", "")
	refreshed := decode[struct {
		Applied bool `json:"applied"`
	}](t, w)
	if w.Code != http.StatusOK || refreshed.Applied {
		t.Errorf("refresh status = %d applied = %v, want 200 and no-op", w.Code, refreshed.Applied)
	}
}
