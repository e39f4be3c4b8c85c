package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"euclidhub/core"
)

// --- Middleware ---

func vlpMiddleware(log *logrus.Logger, name string, fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
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

type vlpController struct {
	router *core.Router
}

func (c *vlpController) requestPoolCreation(chainUid, sender, tokenA, tokenB string, lpFeeBps, euclidFeeBps uint16) (*core.VLP, error) {
	pair, err := core.NewPair(core.Token(tokenA), core.Token(tokenB))
	if err != nil {
		return nil, err
	}
	user := core.CrossChainUser{ChainUid: core.NormalizeChainUid(chainUid), Address: core.Address(sender)}
	fee := core.Fee{LPFeeBps: lpFeeBps, EuclidFeeBps: euclidFeeBps}
	txId := core.NewTxIdFallback(user)
	return c.router.RequestPoolCreation(user, pair, fee, txId)
}

func (c *vlpController) addLiquidity(chainUid, sender, tokenA, tokenB string, t1Amt, t2Amt uint64, slippageBps uint16) (uint64, error) {
	pair, err := core.NewPair(core.Token(tokenA), core.Token(tokenB))
	if err != nil {
		return 0, err
	}
	user := core.CrossChainUser{ChainUid: core.NormalizeChainUid(chainUid), Address: core.Address(sender)}
	txId := core.NewTxIdFallback(user)
	return c.router.AddLiquidity(user, pair, t1Amt, t2Amt, slippageBps, txId)
}

func (c *vlpController) removeLiquidity(chainUid, sender, tokenA, tokenB string, lpAmt uint64) (uint64, uint64, error) {
	pair, err := core.NewPair(core.Token(tokenA), core.Token(tokenB))
	if err != nil {
		return 0, 0, err
	}
	user := core.CrossChainUser{ChainUid: core.NormalizeChainUid(chainUid), Address: core.Address(sender)}
	txId := core.NewTxIdFallback(user)
	return c.router.RemoveLiquidity(user, pair, lpAmt, txId)
}

func (c *vlpController) swap(chainUid, sender, destChainUid, destAddr, assetIn, assetOut string, amountIn, minOut uint64, partnerFeeBps uint16) (uint64, *core.ReleaseEscrow, error) {
	user := core.CrossChainUser{ChainUid: core.NormalizeChainUid(chainUid), Address: core.Address(sender)}
	dest := core.CrossChainUser{ChainUid: core.NormalizeChainUid(destChainUid), Address: core.Address(destAddr)}
	txId := core.NewTxIdFallback(user)
	req := core.SwapRequest{
		Sender:        user,
		AssetIn:       core.Token(assetIn),
		AmountIn:      amountIn,
		AssetOut:      core.Token(assetOut),
		MinAmountOut:  minOut,
		Swaps:         []core.NextSwapPair{{TokenIn: core.Token(assetIn), TokenOut: core.Token(assetOut)}},
		Destination:   dest,
		PartnerFeeBps: partnerFeeBps,
		TxId:          txId,
	}
	return c.router.Swap(req)
}

func (c *vlpController) view(tokenA, tokenB string) (core.VLPView, error) {
	vlp, err := c.router.GetVlp(core.Token(tokenA), core.Token(tokenB))
	if err != nil {
		return core.VLPView{}, err
	}
	return vlp.Snapshot(), nil
}

// --- Commands ---

func newRequestPoolCreationCmd(ctl *vlpController, log *logrus.Logger) *cobra.Command {
	var chainUid, sender string
	var lpFeeBps, euclidFeeBps uint16
	cmd := &cobra.Command{
		Use:   "request-pool-creation [token-a] [token-b]",
		Short: "instantiate (or join) a vlp for a token pair",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = vlpMiddleware(log, "vlp request-pool-creation", func(cmd *cobra.Command, args []string) error {
		vlp, err := ctl.requestPoolCreation(chainUid, sender, args[0], args[1], lpFeeBps, euclidFeeBps)
		if err != nil {
			return err
		}
		fmt.Printf("vlp ready for pair %s\n", vlp.Pair().Key())
		return nil
	})
	cmd.Flags().StringVar(&chainUid, "chain-uid", "", "sender's chain-uid")
	cmd.Flags().StringVar(&sender, "sender", "", "sender's address")
	cmd.Flags().Uint16Var(&lpFeeBps, "lp-fee-bps", 20, "lp fee in basis points (only used on first instantiation)")
	cmd.Flags().Uint16Var(&euclidFeeBps, "euclid-fee-bps", 10, "protocol fee in basis points (only used on first instantiation)")
	return cmd
}

func newAddLiquidityCmd(ctl *vlpController, log *logrus.Logger) *cobra.Command {
	var chainUid, sender string
	var t1Amt, t2Amt uint64
	var slippageBps uint16
	cmd := &cobra.Command{
		Use:   "add-liquidity [token-a] [token-b]",
		Short: "deposit liquidity into a vlp",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = vlpMiddleware(log, "vlp add-liquidity", func(cmd *cobra.Command, args []string) error {
		minted, err := ctl.addLiquidity(chainUid, sender, args[0], args[1], t1Amt, t2Amt, slippageBps)
		if err != nil {
			return err
		}
		fmt.Printf("minted %d lp tokens\n", minted)
		return nil
	})
	cmd.Flags().StringVar(&chainUid, "chain-uid", "", "sender's chain-uid")
	cmd.Flags().StringVar(&sender, "sender", "", "sender's address")
	cmd.Flags().Uint64Var(&t1Amt, "t1-amt", 0, "token_1 deposit amount")
	cmd.Flags().Uint64Var(&t2Amt, "t2-amt", 0, "token_2 deposit amount")
	cmd.Flags().Uint16Var(&slippageBps, "slippage-bps", 50, "acceptable ratio slippage in basis points")
	return cmd
}

func newRemoveLiquidityCmd(ctl *vlpController, log *logrus.Logger) *cobra.Command {
	var chainUid, sender string
	var lpAmt uint64
	cmd := &cobra.Command{
		Use:   "remove-liquidity [token-a] [token-b]",
		Short: "burn lp tokens and withdraw the underlying reserves",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = vlpMiddleware(log, "vlp remove-liquidity", func(cmd *cobra.Command, args []string) error {
		out1, out2, err := ctl.removeLiquidity(chainUid, sender, args[0], args[1], lpAmt)
		if err != nil {
			return err
		}
		fmt.Printf("out_1=%d out_2=%d\n", out1, out2)
		return nil
	})
	cmd.Flags().StringVar(&chainUid, "chain-uid", "", "sender's chain-uid")
	cmd.Flags().StringVar(&sender, "sender", "", "sender's address")
	cmd.Flags().Uint64Var(&lpAmt, "lp-amt", 0, "lp tokens to burn")
	return cmd
}

func newSwapCmd(ctl *vlpController, log *logrus.Logger) *cobra.Command {
	var chainUid, sender, destChainUid, destAddr string
	var amountIn, minOut uint64
	var partnerFeeBps uint16
	cmd := &cobra.Command{
		Use:   "swap [asset-in] [asset-out]",
		Short: "swap asset-in for asset-out through a single vlp hop",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = vlpMiddleware(log, "vlp swap", func(cmd *cobra.Command, args []string) error {
		out, release, err := ctl.swap(chainUid, sender, destChainUid, destAddr, args[0], args[1], amountIn, minOut, partnerFeeBps)
		if err != nil {
			return err
		}
		fmt.Printf("out=%d release=%+v\n", out, release)
		return nil
	})
	cmd.Flags().StringVar(&chainUid, "chain-uid", "", "sender's chain-uid")
	cmd.Flags().StringVar(&sender, "sender", "", "sender's address")
	cmd.Flags().StringVar(&destChainUid, "dest-chain-uid", "", "destination chain-uid")
	cmd.Flags().StringVar(&destAddr, "dest-addr", "", "destination address")
	cmd.Flags().Uint64Var(&amountIn, "amount-in", 0, "input amount")
	cmd.Flags().Uint64Var(&minOut, "min-out", 0, "minimum acceptable output")
	cmd.Flags().Uint16Var(&partnerFeeBps, "partner-fee-bps", 0, "optional partner fee in basis points")
	return cmd
}

func newVlpViewCmd(ctl *vlpController, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "view [token-a] [token-b]",
		Short: "print a vlp's current reserves, lp supply, and fee",
		Args:  cobra.ExactArgs(2),
		RunE: vlpMiddleware(log, "vlp view", func(cmd *cobra.Command, args []string) error {
			view, err := ctl.view(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("%s reserves=(%d,%d) lp_tokens=%d fees_collected=%d\n",
				view.Pair.Key(), view.TotalReserve1, view.TotalReserve2, view.TotalLPTokens, view.TotalFeesCollected)
			return nil
		}),
	}
}

// --- Consolidation ---

// ConsolidateVlpCommands builds the "vlp" command group, mounted by
// cmd/hub/main.go.
func ConsolidateVlpCommands(router *core.Router, log *logrus.Logger) *cobra.Command {
	ctl := &vlpController{router: router}
	root := &cobra.Command{Use: "vlp", Short: "vlp liquidity and swap operations"}
	root.AddCommand(
		newRequestPoolCreationCmd(ctl, log),
		newAddLiquidityCmd(ctl, log),
		newRemoveLiquidityCmd(ctl, log),
		newSwapCmd(ctl, log),
		newVlpViewCmd(ctl, log),
	)
	return root
}
