// Command factoryserver is the hub's factory-facing intake: remote
// factories POST ChainIbcExecuteMsg packets here and receive an
// AcknowledgementMsg-shaped JSON response synchronously, i.e. this
// process only ever drives Native-transport chains (see core/transport.go
// for the IBC-style async path, driven by a relayer rather than this
// server).
package main

import (
	"log"
	"net/http"
	"os"

	logrus "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	config "euclidhub/cmd/config"
	"euclidhub/core"
	"euclidhub/cmd/factoryserver/server"
)

func main() {
	config.LoadConfig(os.Getenv("EUCLIDHUB_ENV"))

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("zap init: %v", err)
	}
	zap.ReplaceGlobals(zapLogger)
	defer zapLogger.Sync()

	logger := logrus.New()

	walPath := os.Getenv("VBL_WAL_PATH")
	if walPath == "" {
		walPath = config.AppConfig.Ledger.WALPath
	}
	vbl, err := core.NewVirtualBalanceLedger(core.VBLConfig{WALPath: walPath, Log: logger})
	if err != nil {
		log.Fatalf("vbl init: %v", err)
	}
	defer vbl.Close()

	admin := core.Address(config.AppConfig.Hub.Admin)
	metrics := core.NewHubMetrics(logger)
	router := core.NewRouter(admin, vbl, metrics, logger)
	core.InitRouter(router)
	core.InitVBL(vbl)

	h := &server.Handlers{Router: router}
	r := server.NewRouter(h)

	addr := os.Getenv("FACTORY_API_ADDR")
	if addr == "" {
		addr = config.AppConfig.HTTP.FactoryListenAddr
	}
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("factoryserver listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}
