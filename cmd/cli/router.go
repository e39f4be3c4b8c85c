// Package cli implements the hub's Cobra command tree: one file per
// subsystem (router, vlp, vbl), each following the same
// Middleware/Controller/Commands/Consolidation shape as the teacher's
// cmd/cli command files — a middleware wraps every RunE with structured
// error logging, a controller adapts core/ types to plain CLI
// arguments, the Commands section builds the *cobra.Command tree, and a
// Consolidation function returns the subsystem's root command for
// mounting into cmd/hub.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"euclidhub/core"
)

// --- Middleware ---

// routerMiddleware wraps a RunE-style function so every command logs its
// outcome uniformly and surfaces core/ errors without a stack trace.
func routerMiddleware(log *logrus.Logger, name string, fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			log.WithFields(logrus.Fields{"command": name}).WithError(err).Error("command failed")
			return err
		}
		log.WithField("command", name).Info("command succeeded")
		return nil
	}
}

// --- Controller ---

// routerController adapts core.Router to the CLI's flag-based call sites.
type routerController struct {
	router *core.Router
}

func (c *routerController) registerFactory(caller, chainUid, factoryAddr, chainType string) error {
	ct := core.ChainTypeNative
	if chainType == "ibc" {
		ct = core.ChainTypeIBC
	}
	chain := core.Chain{
		ChainUid:       core.NormalizeChainUid(chainUid),
		FactoryAddress: core.Address(factoryAddr),
		ChainType:      ct,
	}
	return c.router.RegisterFactory(core.Address(caller), chain)
}

func (c *routerController) updateLock(caller string) error {
	return c.router.UpdateLock(core.Address(caller))
}

func (c *routerController) updateFactoryChannel(caller, chainUid, fromHub, fromFactory string) error {
	return c.router.UpdateFactoryChannel(core.Address(caller), core.NormalizeChainUid(chainUid), fromHub, fromFactory)
}

func (c *routerController) getState() core.RouterState { return c.router.GetState() }

func (c *routerController) getChain(chainUid string) (core.Chain, error) {
	return c.router.GetChain(core.NormalizeChainUid(chainUid))
}

func (c *routerController) getAllChains() []core.Chain { return c.router.GetAllChains() }

func (c *routerController) getAllVlps() []core.VLPView { return c.router.GetAllVlps() }

// --- Commands ---

func newRegisterFactoryCmd(ctl *routerController, log *logrus.Logger) *cobra.Command {
	var caller, factoryAddr, chainType string
	cmd := &cobra.Command{
		Use:   "register-factory [chain-uid]",
		Short: "register a remote factory's chain with the router",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = routerMiddleware(log, "router register-factory", func(cmd *cobra.Command, args []string) error {
		return ctl.registerFactory(caller, args[0], factoryAddr, chainType)
	})
	cmd.Flags().StringVar(&caller, "caller", "", "admin address issuing the request")
	cmd.Flags().StringVar(&factoryAddr, "factory-addr", "", "factory address on the remote chain")
	cmd.Flags().StringVar(&chainType, "chain-type", "native", "native or ibc")
	return cmd
}

func newUpdateLockCmd(ctl *routerController, log *logrus.Logger) *cobra.Command {
	var caller string
	cmd := &cobra.Command{
		Use:   "update-lock",
		Short: "toggle the router's global lock bit",
	}
	cmd.RunE = routerMiddleware(log, "router update-lock", func(cmd *cobra.Command, args []string) error {
		return ctl.updateLock(caller)
	})
	cmd.Flags().StringVar(&caller, "caller", "", "admin address issuing the request")
	return cmd
}

func newUpdateFactoryChannelCmd(ctl *routerController, log *logrus.Logger) *cobra.Command {
	var caller, fromHub, fromFactory string
	cmd := &cobra.Command{
		Use:   "update-factory-channel [chain-uid]",
		Short: "rebind an ibc chain's channel pair",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = routerMiddleware(log, "router update-factory-channel", func(cmd *cobra.Command, args []string) error {
		return ctl.updateFactoryChannel(caller, args[0], fromHub, fromFactory)
	})
	cmd.Flags().StringVar(&caller, "caller", "", "admin address issuing the request")
	cmd.Flags().StringVar(&fromHub, "from-hub-channel", "", "channel id on the hub side")
	cmd.Flags().StringVar(&fromFactory, "from-factory-channel", "", "channel id on the factory side")
	return cmd
}

func newGetStateCmd(ctl *routerController, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get-state",
		Short: "print the router's singleton state",
		RunE: routerMiddleware(log, "router get-state", func(cmd *cobra.Command, args []string) error {
			state := ctl.getState()
			fmt.Printf("admin=%s vlp_code_id=%d virtual_balance_address=%s locked=%t\n",
				state.Admin, state.VlpCodeID, state.VirtualBalanceAddress, state.Locked)
			return nil
		}),
	}
}

func newGetChainCmd(ctl *routerController, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get-chain [chain-uid]",
		Short: "print a registered chain's record",
		Args:  cobra.ExactArgs(1),
		RunE: routerMiddleware(log, "router get-chain", func(cmd *cobra.Command, args []string) error {
			chain, err := ctl.getChain(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", chain)
			return nil
		}),
	}
}

func newGetAllChainsCmd(ctl *routerController, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get-all-chains",
		Short: "list every registered chain",
		RunE: routerMiddleware(log, "router get-all-chains", func(cmd *cobra.Command, args []string) error {
			for _, c := range ctl.getAllChains() {
				fmt.Printf("%+v\n", c)
			}
			return nil
		}),
	}
}

func newGetAllVlpsCmd(ctl *routerController, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get-all-vlps",
		Short: "list every instantiated vlp",
		RunE: routerMiddleware(log, "router get-all-vlps", func(cmd *cobra.Command, args []string) error {
			for _, v := range ctl.getAllVlps() {
				fmt.Printf("%s reserves=(%d,%d) lp_tokens=%d\n", v.Pair.Key(), v.TotalReserve1, v.TotalReserve2, v.TotalLPTokens)
			}
			return nil
		}),
	}
}

// --- Consolidation ---

// ConsolidateRouterCommands builds the "router" command group, mounted by
// cmd/hub/main.go.
func ConsolidateRouterCommands(router *core.Router, log *logrus.Logger) *cobra.Command {
	ctl := &routerController{router: router}
	root := &cobra.Command{Use: "router", Short: "router administration and queries"}
	root.AddCommand(
		newRegisterFactoryCmd(ctl, log),
		newUpdateLockCmd(ctl, log),
		newUpdateFactoryChannelCmd(ctl, log),
		newGetStateCmd(ctl, log),
		newGetChainCmd(ctl, log),
		newGetAllChainsCmd(ctl, log),
		newGetAllVlpsCmd(ctl, log),
	)
	return root
}
