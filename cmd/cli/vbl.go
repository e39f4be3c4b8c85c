package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"euclidhub/core"
)

// --- Middleware ---

func vblMiddleware(log *logrus.Logger, name string, fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
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

// vblController exposes read-only VBL balance queries plus the one
// mutator that is safe to drive directly from an operator terminal
// (same-chain self-transfer). Mint/Burn are router-authorized
// only and are reachable solely through router/vlp dispatch, not here.
type vblController struct {
	ledger *core.VirtualBalanceLedger
}

func (c *vblController) getBalance(chainUid, address, token string) uint64 {
	key := core.BalanceKey{ChainUid: core.NormalizeChainUid(chainUid), Address: core.Address(address), Token: core.Token(token)}
	return c.ledger.GetBalance(key)
}

func (c *vblController) getBalanceAtHeight(chainUid, address, token string, height uint64) uint64 {
	key := core.BalanceKey{ChainUid: core.NormalizeChainUid(chainUid), Address: core.Address(address), Token: core.Token(token)}
	return c.ledger.GetBalanceAtHeight(key, height)
}

func (c *vblController) getUserBalances(chainUid, address string) []core.UserBalance {
	return c.ledger.GetUserBalances(core.NormalizeChainUid(chainUid), core.Address(address))
}

func (c *vblController) selfTransfer(address, token string, amount uint64, toChainUid, toAddress string) error {
	from := core.BalanceKey{ChainUid: core.VSLChainUid, Address: core.Address(address), Token: core.Token(token)}
	to := core.BalanceKey{ChainUid: core.NormalizeChainUid(toChainUid), Address: core.Address(toAddress), Token: core.Token(token)}
	return c.ledger.Transfer(from, to, amount, core.Address(address), false, c.ledger.NextHeight())
}

// --- Commands ---

func newGetBalanceCmd(ctl *vblController, log *logrus.Logger) *cobra.Command {
	var chainUid, address, token string
	var height uint64
	var atHeight bool
	cmd := &cobra.Command{
		Use:   "get-balance",
		Short: "print a user's balance for one token, current or at a given height",
	}
	cmd.RunE = vblMiddleware(log, "vbl get-balance", func(cmd *cobra.Command, args []string) error {
		if atHeight {
			fmt.Println(ctl.getBalanceAtHeight(chainUid, address, token, height))
			return nil
		}
		fmt.Println(ctl.getBalance(chainUid, address, token))
		return nil
	})
	cmd.Flags().StringVar(&chainUid, "chain-uid", "", "chain-uid")
	cmd.Flags().StringVar(&address, "address", "", "address")
	cmd.Flags().StringVar(&token, "token", "", "token")
	cmd.Flags().Uint64Var(&height, "height", 0, "query balance as of this height")
	cmd.Flags().BoolVar(&atHeight, "at-height", false, "query the historical balance at --height instead of the current one")
	return cmd
}

func newGetUserBalancesCmd(ctl *vblController, log *logrus.Logger) *cobra.Command {
	var chainUid, address string
	cmd := &cobra.Command{
		Use:   "get-user-balances",
		Short: "print every token balance held by a user",
	}
	cmd.RunE = vblMiddleware(log, "vbl get-user-balances", func(cmd *cobra.Command, args []string) error {
		for _, b := range ctl.getUserBalances(chainUid, address) {
			fmt.Printf("%s: %d\n", b.Token, b.Amount)
		}
		return nil
	})
	cmd.Flags().StringVar(&chainUid, "chain-uid", "", "chain-uid")
	cmd.Flags().StringVar(&address, "address", "", "address")
	return cmd
}

func newSelfTransferCmd(ctl *vblController, log *logrus.Logger) *cobra.Command {
	var address, token, toChainUid, toAddress string
	var amount uint64
	cmd := &cobra.Command{
		Use:   "self-transfer",
		Short: "transfer a balance you hold on the vsl chain-uid to another user",
	}
	cmd.RunE = vblMiddleware(log, "vbl self-transfer", func(cmd *cobra.Command, args []string) error {
		return ctl.selfTransfer(address, token, amount, toChainUid, toAddress)
	})
	cmd.Flags().StringVar(&address, "address", "", "your address on the vsl chain-uid")
	cmd.Flags().StringVar(&token, "token", "", "token")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to transfer")
	cmd.Flags().StringVar(&toChainUid, "to-chain-uid", "", "recipient's chain-uid")
	cmd.Flags().StringVar(&toAddress, "to-address", "", "recipient's address")
	return cmd
}

// --- Consolidation ---

// ConsolidateVblCommands builds the "vbl" command group, mounted by
// cmd/hub/main.go.
func ConsolidateVblCommands(ledger *core.VirtualBalanceLedger, log *logrus.Logger) *cobra.Command {
	ctl := &vblController{ledger: ledger}
	root := &cobra.Command{Use: "vbl", Short: "virtual balance ledger queries and self-transfer"}
	root.AddCommand(
		newGetBalanceCmd(ctl, log),
		newGetUserBalancesCmd(ctl, log),
		newSelfTransferCmd(ctl, log),
	)
	return root
}
