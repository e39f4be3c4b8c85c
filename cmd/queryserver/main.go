// Command queryserver exposes the router's read-only query surface
// (spec §6.4) over HTTP/JSON — the analogue of the teacher's dexserver
// poolsHandler, generalized from a single /api/pools endpoint to the
// router's full GetState/GetChain/GetAllChains/GetVlp/GetAllVlps/
// SimulateSwap surface.
package main

import (
	"encoding/json"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	config "euclidhub/cmd/config"
	"euclidhub/core"
)

type server struct {
	router *core.Router
	log    *log.Logger
}

func (s *server) stateHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.router.GetState())
}

func (s *server) chainHandler(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("chain_uid")
	chain, err := s.router.GetChain(core.NormalizeChainUid(uid))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, chain)
}

func (s *server) allChainsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.router.GetAllChains())
}

func (s *server) vlpHandler(w http.ResponseWriter, r *http.Request) {
	t1 := core.Token(r.URL.Query().Get("token_1"))
	t2 := core.Token(r.URL.Query().Get("token_2"))
	vlp, err := s.router.GetVlp(t1, t2)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, vlp.Snapshot())
}

func (s *server) allVlpsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.router.GetAllVlps())
}

// simulateSwapRequest is the wire shape of a QuerySimulateSwap query (spec
// §6.4): asset_in/amount_in/asset_out/min_amount_out plus the multi-hop
// swaps list, mirroring core.SwapRequest's Swaps field so the same route
// that Router.Swap would walk can be previewed read-only.
type simulateSwapRequest struct {
	AssetIn       core.Token          `json:"asset_in"`
	AmountIn      uint64              `json:"amount_in"`
	AssetOut      core.Token          `json:"asset_out"`
	MinAmountOut  uint64              `json:"min_amount_out"`
	Swaps         []core.NextSwapPair `json:"swaps"`
	PartnerFeeBps uint16              `json:"partner_fee_bps"`
}

type simulateSwapResponse struct {
	AssetOut  core.Token `json:"asset_out"`
	AmountOut uint64     `json:"amount_out"`
}

func (s *server) simulateSwapHandler(w http.ResponseWriter, r *http.Request) {
	var req simulateSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	gotAsset, out, err := s.router.SimulateSwap(core.SimulateSwapRequest{
		AssetIn:       req.AssetIn,
		AmountIn:      req.AmountIn,
		AssetOut:      req.AssetOut,
		MinAmountOut:  req.MinAmountOut,
		Swaps:         req.Swaps,
		PartnerFeeBps: req.PartnerFeeBps,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, simulateSwapResponse{AssetOut: gotAsset, AmountOut: out})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	config.LoadConfig(os.Getenv("EUCLIDHUB_ENV"))

	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(zapLogger)
	defer zapLogger.Sync()

	logger := log.New()

	walPath := os.Getenv("VBL_WAL_PATH")
	if walPath == "" {
		walPath = config.AppConfig.Ledger.WALPath
	}
	vbl, err := core.NewVirtualBalanceLedger(core.VBLConfig{WALPath: walPath, Log: logger})
	if err != nil {
		logger.Fatalf("vbl init: %v", err)
	}
	defer vbl.Close()

	admin := core.Address(config.AppConfig.Hub.Admin)
	metrics := core.NewHubMetrics(logger)
	router := core.NewRouter(admin, vbl, metrics, logger)
	core.InitRouter(router)
	core.InitVBL(vbl)

	srv := &server{router: router, log: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/router/state", srv.stateHandler)
	mux.HandleFunc("/router/chain", srv.chainHandler)
	mux.HandleFunc("/router/chains", srv.allChainsHandler)
	mux.HandleFunc("/router/vlp", srv.vlpHandler)
	mux.HandleFunc("/router/vlps", srv.allVlpsHandler)
	mux.HandleFunc("POST /router/simulate-swap", srv.simulateSwapHandler)

	addr := os.Getenv("QUERY_API_ADDR")
	if addr == "" {
		addr = config.AppConfig.HTTP.QueryListenAddr
	}
	if addr == "" {
		addr = "127.0.0.1:8081"
	}
	logger.Printf("queryserver listening on %s", addr)
	logger.Fatal(http.ListenAndServe(addr, mux))
}
