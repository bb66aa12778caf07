// Package server contains misc HTTP server utilities: goji-pattern
// route tables and the JSON envelopes used to ship single values to and
// from clients.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"
	"strings"

	"goji.io"
	"goji.io/pat"
)

// RouteTable maps goji patterns to handlers
type RouteTable map[goji.Pattern]http.HandlerFunc

// Endpoints lists the patterns in a RouteTable (the keys)
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, fmt.Sprint(k))
	}
	return routes
}

// Bind attaches every route in the table to the mux
func (rt RouteTable) Bind(mux *goji.Mux) {
	for p, h := range rt {
		mux.Handle(p, h)
	}
}

// HTTPer is an object that can pack its HTTP interface into a
// RouteTable
type HTTPer interface {
	RT() RouteTable
}

// Build assembles a mux from an HTTPer, including a route listing
// endpoint
func Build(h HTTPer) *goji.Mux {
	mux := goji.NewMux()
	rt := h.RT()
	rt.Bind(mux)
	mux.Handle(pat.Get("/endpoints"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(rt.Endpoints())
		if err != nil {
			log.Println(err)
		}
	}))
	return mux
}

// SubMuxSanitize ensures a mount point looks like /spam/* for chi
func SubMuxSanitize(str string) string {
	if !strings.HasPrefix(str, "/") {
		str = "/" + str
	}
	str = strings.TrimSuffix(str, "/")
	return str + "/*"
}

// HumanPayload is a single human-readable value on its way to JSON.
// T tags which field is populated.
type HumanPayload struct {
	// T is the type of the data
	T types.BasicKind

	// Bool holds a boolean
	Bool bool

	// Int holds an integer
	Int int

	// Float holds a float
	Float float64

	// String holds a string
	String string
}

// EncodeAndRespond writes the payload to w as {"bool": v}, {"int": v},
// {"f64": v}, or {"str": v} according to T
func (hp *HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	switch hp.T {
	case types.Bool:
		err = json.NewEncoder(w).Encode(BoolT{Bool: hp.Bool})
	case types.Int:
		err = json.NewEncoder(w).Encode(IntT{Int: hp.Int})
	case types.Float64:
		err = json.NewEncoder(w).Encode(FloatT{F64: hp.Float})
	case types.String:
		err = json.NewEncoder(w).Encode(StrT{Str: hp.String})
	default:
		http.Error(w, fmt.Sprintf("cannot encode payload of type %v", hp.T), http.StatusInternalServerError)
		return
	}
	if err != nil {
		fstr := fmt.Sprintf("error encoding payload to json %q", err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
	}
}

// FloatT is a struct with a single field f64 used for json (un)marshaling
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single field int used for json (un)marshaling
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single field str used for json (un)marshaling
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single field bool used for json (un)marshaling
type BoolT struct {
	Bool bool `json:"bool"`
}
