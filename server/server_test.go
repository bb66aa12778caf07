package server

import (
	"encoding/json"
	"go/types"
	"net/http"
	"net/http/httptest"
	"testing"

	"goji.io/pat"
)

type fakeHTTPer struct {
	rt RouteTable
}

func (f fakeHTTPer) RT() RouteTable { return f.rt }

func TestBuildServesRoutesAndEndpoints(t *testing.T) {
	called := false
	h := fakeHTTPer{rt: RouteTable{
		pat.Get("/spam"): func(w http.ResponseWriter, r *http.Request) { called = true },
	}}
	mux := Build(h)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/spam", nil))
	if !called {
		t.Error("route not bound")
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/endpoints", nil))
	if w.Code != http.StatusOK {
		t.Errorf("endpoints listing returned %d", w.Code)
	}
	var routes []string
	if err := json.NewDecoder(w.Body).Decode(&routes); err != nil {
		t.Fatal(err)
	}
	if len(routes) != 1 {
		t.Errorf("got %v", routes)
	}
}

func TestSubMuxSanitize(t *testing.T) {
	cases := map[string]string{
		"spam":   "/spam/*",
		"/spam":  "/spam/*",
		"/spam/": "/spam/*",
		"/":      "/*",
	}
	for in, want := range cases {
		if got := SubMuxSanitize(in); got != want {
			t.Errorf("SubMuxSanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHumanPayloadEncoding(t *testing.T) {
	cases := []struct {
		hp   HumanPayload
		want string
	}{
		{HumanPayload{T: types.Bool, Bool: true}, `{"bool":true}`},
		{HumanPayload{T: types.Int, Int: 42}, `{"int":42}`},
		{HumanPayload{T: types.Float64, Float: 1.5}, `{"f64":1.5}`},
		{HumanPayload{T: types.String, String: "spam"}, `{"str":"spam"}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		tc.hp.EncodeAndRespond(w, httptest.NewRequest("GET", "/", nil))
		got := w.Body.String()
		if got != tc.want+"\n" {
			t.Errorf("got %q want %q", got, tc.want)
		}
	}
}
