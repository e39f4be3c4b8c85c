package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter configures the HTTP routes for the factory-facing intake
// server (spec §11 Factory-facing interface).
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.Use(RequestLogger)
	r.Use(JSONHeaders)

	r.HandleFunc("/msg/{chain_uid}", h.HandleMsg).Methods(http.MethodPost)
	r.HandleFunc("/chain/{uid}", h.GetChain).Methods(http.MethodGet)
	r.HandleFunc("/vlp/{token1}/{token2}", h.GetVlp).Methods(http.MethodGet)

	return r
}
