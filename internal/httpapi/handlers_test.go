package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"amora-platform/internal/auth"
	"amora-platform/internal/callsession"
	"amora-platform/internal/rates"
	"amora-platform/internal/settlement"
	"amora-platform/internal/users"
)

func identityMiddleware(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), userID, role))
		c.Next()
	}
}

type apiFixture struct {
	handlers Handlers
	users    *users.MemoryStore
	store    *settlement.MemoryStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rateRepo := rates.NewMemoryRepo()
	if _, err := rateRepo.UpsertLevelConfig(context.Background(), rates.LevelConfig{
		Level: 0, AudioRatePerMinute: 40, VideoRatePerMinute: 60,
	}); err != nil {
		t.Fatalf("seed level config: %v", err)
	}
	share := 70.0
	if _, err := rateRepo.UpdateAdminConfig(context.Background(), rates.AdminConfig{
		AdminSharePercentage:             &share,
		PlatformMarginAgencyPerMinute:    15,
		PlatformMarginNonAgencyPerMinute: 10,
	}); err != nil {
		t.Fatalf("seed admin config: %v", err)
	}

	userStore := users.NewMemoryStore()
	userStore.Put(users.User{ID: "m1", Role: "male", CoinBalance: 100})
	userStore.Put(users.User{ID: "f1", Role: "female", Level: 0, IsOnline: true})

	sessStore := callsession.NewMemoryStore()
	store := settlement.NewMemoryStore(sessStore, userStore, rateRepo)

	h := Handlers{
		Users:      userStore,
		Calls:      callsession.NewService(userStore, rates.NewResolver(rateRepo), sessStore, nil, 2*time.Hour, 30, nil),
		Settlement: settlement.NewEngine(store, nil, 30, nil),
	}
	return &apiFixture{handlers: h, users: userStore, store: store}
}

func (f *apiFixture) router(userID, role string) *gin.Engine {
	r := gin.New()
	r.Use(identityMiddleware(userID, role))
	r.POST("/calls/start", f.handlers.StartCall)
	r.POST("/calls/end", f.handlers.EndCall)
	r.POST("/calls/history/:history_id/rate", f.handlers.RateCall)
	r.GET("/me/balance", f.handlers.GetBalance)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func TestStartCallEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	r := f.router("m1", "male")

	w, body := doJSON(t, r, http.MethodPost, "/calls/start", gin.H{"receiver_id": "f1", "call_type": "video"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", w.Code, body)
	}
	if body["call_id"] == "" {
		t.Fatalf("missing call_id: %v", body)
	}
	if body["max_seconds"].(float64) != 85 {
		t.Fatalf("expected max_seconds 85, got %v", body["max_seconds"])
	}

	// Duplicate start recovers the in-flight call with 409.
	w2, body2 := doJSON(t, r, http.MethodPost, "/calls/start", gin.H{"receiver_id": "f1", "call_type": "video"})
	if w2.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w2.Code)
	}
	if body2["call_id"] != body["call_id"] {
		t.Fatalf("expected recovered call id %v, got %v", body["call_id"], body2["call_id"])
	}
	if body2["already_active"] != true {
		t.Fatalf("expected already_active, got %v", body2)
	}
}

func TestStartCallEndpoint_Rejections(t *testing.T) {
	f := newAPIFixture(t)
	r := f.router("m1", "male")

	w, _ := doJSON(t, r, http.MethodPost, "/calls/start", gin.H{"receiver_id": "ghost", "call_type": "audio"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown receiver, got %d", w.Code)
	}

	f.users.Put(users.User{ID: "f2", Role: "female", IsOnline: false})
	w, _ = doJSON(t, r, http.MethodPost, "/calls/start", gin.H{"receiver_id": "f2", "call_type": "audio"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for offline receiver, got %d", w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/calls/start", gin.H{"receiver_id": "f1", "call_type": "group"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad call type, got %d", w.Code)
	}

	f.users.Put(users.User{ID: "poor", Role: "male", CoinBalance: 1})
	rPoor := f.router("poor", "male")
	w, body := doJSON(t, rPoor, http.MethodPost, "/calls/start", gin.H{"receiver_id": "f1", "call_type": "video"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for insufficient coins, got %d", w.Code)
	}
	if body["required"].(float64) != 35 {
		t.Fatalf("expected required 35, got %v", body["required"])
	}
}

func TestEndCallEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	r := f.router("m1", "male")

	_, started := doJSON(t, r, http.MethodPost, "/calls/start", gin.H{"receiver_id": "f1", "call_type": "video"})
	callID := started["call_id"].(string)

	w, body := doJSON(t, r, http.MethodPost, "/calls/end", gin.H{
		"call_id": callID, "receiver_id": "f1", "duration_seconds": 45,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", w.Code, body)
	}
	if body["coins_charged"].(float64) != 53 || body["female_earning"].(float64) != 45 {
		t.Fatalf("expected 53/45 split, got %v", body)
	}
	if body["caller_balance_after"].(float64) != 47 {
		t.Fatalf("expected balance 47, got %v", body["caller_balance_after"])
	}

	// Double submission is a terminal 404, not a double charge.
	w2, _ := doJSON(t, r, http.MethodPost, "/calls/end", gin.H{
		"call_id": callID, "receiver_id": "f1", "duration_seconds": 45,
	})
	if w2.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on resubmission, got %d", w2.Code)
	}
}

func TestEndCallEndpoint_InsufficientCoins(t *testing.T) {
	f := newAPIFixture(t)
	r := f.router("m1", "male")

	_, started := doJSON(t, r, http.MethodPost, "/calls/start", gin.H{"receiver_id": "f1", "call_type": "video"})
	callID := started["call_id"].(string)

	f.users.Put(users.User{ID: "m1", Role: "male", CoinBalance: 40})

	w, body := doJSON(t, r, http.MethodPost, "/calls/end", gin.H{
		"call_id": callID, "receiver_id": "f1", "duration_seconds": 60,
	})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d (%v)", w.Code, body)
	}
	if body["shortfall"].(float64) != 30 {
		t.Fatalf("expected shortfall 30, got %v", body["shortfall"])
	}
}

func TestRateCallEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	caller := f.router("m1", "male")
	receiver := f.router("f1", "female")

	_, started := doJSON(t, caller, http.MethodPost, "/calls/start", gin.H{"receiver_id": "f1", "call_type": "audio"})
	callID := started["call_id"].(string)
	_, ended := doJSON(t, caller, http.MethodPost, "/calls/end", gin.H{
		"call_id": callID, "receiver_id": "f1", "duration_seconds": 60,
	})
	historyID := ended["call_history_id"].(string)

	w, body := doJSON(t, receiver, http.MethodPost, "/calls/history/"+historyID+"/rate", gin.H{"rating": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", w.Code, body)
	}
	if body["rating_label"] != "excellent" {
		t.Fatalf("expected excellent, got %v", body["rating_label"])
	}

	w2, _ := doJSON(t, receiver, http.MethodPost, "/calls/history/"+historyID+"/rate", gin.H{"rating": 1})
	if w2.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second rating, got %d", w2.Code)
	}

	// The caller cannot rate.
	w3, _ := doJSON(t, caller, http.MethodPost, "/calls/history/"+historyID+"/rate", gin.H{"rating": 1})
	if w3.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-receiver, got %d", w3.Code)
	}
}

func TestGetBalanceEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	r := f.router("m1", "male")

	w, body := doJSON(t, r, http.MethodGet, "/me/balance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["coin_balance"].(float64) != 100 {
		t.Fatalf("expected coin balance 100, got %v", body["coin_balance"])
	}
}
