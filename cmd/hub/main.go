// Command hub is the operator-facing CLI: administers the router (chain
// registration, lock, channel rebinding) and drives vlp/vbl operations
// directly against an in-process ledger, for local testing and scripted
// scenarios without standing up the factoryserver/queryserver HTTP
// processes.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cli "euclidhub/cmd/cli"
	config "euclidhub/cmd/config"
	"euclidhub/core"
)

func main() {
	_ = godotenv.Load()
	config.LoadConfig(os.Getenv("EUCLIDHUB_ENV"))

	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(zapLogger)
	defer zapLogger.Sync()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

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

	rootCmd := &cobra.Command{Use: "hub", Short: "euclidhub operator CLI"}
	rootCmd.AddCommand(
		cli.ConsolidateRouterCommands(router, logger),
		cli.ConsolidateVlpCommands(router, logger),
		cli.ConsolidateVblCommands(vbl, logger),
	)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
