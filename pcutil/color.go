package pcutil

import (
	"fmt"
	"math/big"

	"github.com/fatih/color"
)

var (
	White  = color.New(color.FgHiWhite).SprintFunc()
	Green  = color.New(color.FgHiGreen).SprintFunc()
	Red    = color.New(color.FgHiRed).SprintFunc()
	Header = color.New(color.FgHiCyan).SprintFunc()

	ChanID  = color.New(color.FgYellow).SprintFunc()
	Address = color.New(color.FgMagenta).SprintFunc()
	Coin    = color.New(color.FgHiWhite).Add(color.Underline).SprintFunc()
	Wei     = color.New(color.Faint).SprintFunc()
)

var (
	gwei = big.NewInt(1e9)
	coin = new(big.Int).Mul(gwei, gwei) // 1e18
)

// WeiColor prints an amount with the whole-coin part underlined, the
// gwei part plain, and the wei dust faint, so channel balances are
// readable in log output.
func WeiColor(v *big.Int) string {
	if v == nil {
		return Wei("nil")
	}
	if v.Cmp(gwei) < 0 {
		return Wei(v.String())
	}
	if v.Cmp(coin) < 0 {
		g := new(big.Int)
		w := new(big.Int)
		g.QuoRem(v, gwei, w)
		return fmt.Sprintf("%s%s", g, Wei(fmt.Sprintf("%09d", w)))
	}
	c := new(big.Int)
	rest := new(big.Int)
	c.QuoRem(v, coin, rest)
	g := new(big.Int)
	w := new(big.Int)
	g.QuoRem(rest, gwei, w)
	return fmt.Sprintf("%s%09d%s", Coin(c), g, Wei(fmt.Sprintf("%09d", w)))
}
