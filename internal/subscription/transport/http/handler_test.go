package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"subadmin/internal/api/dto"
	"subadmin/internal/subscription"
	"subadmin/pkg/middleware"
)

type fakeService struct {
	subs    []subscription.Subscription
	listErr error
	created []dto.SubscriptionRequest
}

func (f *fakeService) List(context.Context) ([]subscription.Subscription, error) {
	return f.subs, f.listErr
}

func (f *fakeService) Get(_ context.Context, id int64) (*subscription.Subscription, error) {
	for _, s := range f.subs {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, subscription.ErrNotFound
}

func (f *fakeService) Create(_ context.Context, req dto.SubscriptionRequest) (*subscription.Subscription, error) {
	f.created = append(f.created, req)
	fields, err := req.Fields()
	if err != nil {
		return nil, err
	}
	s := subscription.Subscription{ID: int64(len(f.subs) + 1), Name: fields.Name, Price: fields.Price, Count: fields.Count}
	f.subs = append(f.subs, s)
	return &s, nil
}

func (f *fakeService) Update(_ context.Context, id int64, req dto.SubscriptionRequest) (*subscription.Subscription, error) {
	fields, err := req.Fields()
	if err != nil {
		return nil, err
	}
	for i := range f.subs {
		if f.subs[i].ID == id {
			f.subs[i].Name, f.subs[i].Price, f.subs[i].Count = fields.Name, fields.Price, fields.Count
			return &f.subs[i], nil
		}
	}
	return nil, subscription.ErrNotFound
}

func (f *fakeService) Delete(_ context.Context, id int64) error {
	for i := range f.subs {
		if f.subs[i].ID == id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return nil
		}
	}
	return subscription.ErrNotFound
}

func newRouter(svc SubscriptionService) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/subscriptions", NewSubscriptionHandler(svc).Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListReturnsArray(t *testing.T) {
	svc := &fakeService{subs: []subscription.Subscription{{ID: 1, Name: "Spotify", Price: 9.99, Count: 2}}}
	rec := do(t, newRouter(svc), http.MethodGet, "/api/subscriptions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []subscription.Subscription
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Spotify" || got[0].Price != 9.99 {
		t.Fatalf("body = %+v", got)
	}
}

func TestListFailureIs500(t *testing.T) {
	rec := do(t, newRouter(&fakeService{listErr: errors.New("db down")}), http.MethodGet, "/api/subscriptions", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Fatal("internal error text leaked")
	}
}

func TestCreateAcceptsTextNumbers(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newRouter(svc), http.MethodPost, "/api/subscriptions", `{"name":"Netflix","price":"9.99","count":"1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	var got subscription.Subscription
	json.NewDecoder(rec.Body).Decode(&got)
	if got.ID != 1 || got.Price != 9.99 || got.Count != 1 {
		t.Fatalf("created = %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		body  string
		field string
	}{
		{`{"name":" ","price":"1","count":"1"}`, "name"},
		{`{"name":"x","price":"abc","count":"1"}`, "price"},
		{`{"name":"x","price":"1","count":""}`, "count"},
		{`{"name":"x","price":"0x1p-2","count":"1"}`, "price"},
		{`{"name":"x","price":"1","count":"1_000"}`, "count"},
	}
	for _, c := range cases {
		svc := &fakeService{}
		rec := do(t, newRouter(svc), http.MethodPost, "/api/subscriptions", c.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", c.body, rec.Code)
		}
		var resp middleware.ErrorResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.Field != c.field {
			t.Errorf("%s: field = %q, want %q", c.body, resp.Field, c.field)
		}
		if len(svc.created) != 0 {
			t.Errorf("%s: service called", c.body)
		}
	}
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	rec := do(t, newRouter(&fakeService{}), http.MethodPost, "/api/subscriptions", `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpdateGetDelete(t *testing.T) {
	svc := &fakeService{subs: []subscription.Subscription{{ID: 1, Name: "Spotify", Price: 9.99, Count: 2}}}
	h := newRouter(svc)

	rec := do(t, h, http.MethodPut, "/api/subscriptions/1", `{"name":"Spotify","price":10.99,"count":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/api/subscriptions/1", "")
	var got subscription.Subscription
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Price != 10.99 || got.Count != 3 {
		t.Fatalf("after update = %+v", got)
	}

	if rec = do(t, h, http.MethodDelete, "/api/subscriptions/1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec = do(t, h, http.MethodDelete, "/api/subscriptions/1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
	if rec = do(t, h, http.MethodGet, "/api/subscriptions/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}
