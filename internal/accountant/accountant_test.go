package accountant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/kestrel-quant/backtest/internal/types"
)

type AccountantTestSuite struct {
	suite.Suite
	now time.Time
}

func TestAccountantSuite(t *testing.T) {
	suite.Run(t, new(AccountantTestSuite))
}

func (suite *AccountantTestSuite) SetupTest() {
	suite.now = time.Unix(0, 0).UTC()
}

func (suite *AccountantTestSuite) fill(id uint64, symbol string, side types.OrderSide, qty, price, commission float64) types.Fill {
	return types.Fill{
		ID:         id,
		OrderID:    id,
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		Price:      price,
		Commission: commission,
		Timestamp:  suite.now,
	}
}

func (suite *AccountantTestSuite) TestBuyIntoFlatOpensLong() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 1)))

	pos, ok := a.GetPosition("AAPL")
	suite.Require().True(ok)
	suite.Equal(10.0, pos.Quantity)
	suite.Equal(100.0, pos.AvgEntryPrice)
	suite.InDelta(10000-1000-1, a.Portfolio().Cash, 1e-9)
}

func (suite *AccountantTestSuite) TestSellReducesLongAndRealizesPnL() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 0)))
	suite.Require().NoError(a.ApplyFill(suite.fill(2, "AAPL", types.OrderSideSell, 4, 110, 0)))

	pos, ok := a.GetPosition("AAPL")
	suite.Require().True(ok)
	suite.Equal(6.0, pos.Quantity)
	suite.Equal(100.0, pos.AvgEntryPrice)
	suite.InDelta(40.0, pos.RealizedPnL, 1e-9)
}

func (suite *AccountantTestSuite) TestSellClosesLongExactly() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 0)))
	suite.Require().NoError(a.ApplyFill(suite.fill(2, "AAPL", types.OrderSideSell, 10, 120, 0)))

	pos, ok := a.GetPosition("AAPL")
	suite.Require().True(ok)
	suite.Equal(0.0, pos.Quantity)
	suite.Equal(0.0, pos.AvgEntryPrice)
	suite.InDelta(200.0, pos.RealizedPnL, 1e-9)
}

func (suite *AccountantTestSuite) TestSellCrossingZeroOpensShort() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 0)))
	suite.Require().NoError(a.ApplyFill(suite.fill(2, "AAPL", types.OrderSideSell, 15, 110, 0)))

	pos, ok := a.GetPosition("AAPL")
	suite.Require().True(ok)
	suite.Equal(-5.0, pos.Quantity)
	suite.Equal(110.0, pos.AvgEntryPrice)
	suite.InDelta(100.0, pos.RealizedPnL, 1e-9)
}

func (suite *AccountantTestSuite) TestShortThenCoverRealizesProfitWhenPriceFalls() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideShort, 10, 100, 0)))

	pos, ok := a.GetPosition("AAPL")
	suite.Require().True(ok)
	suite.Equal(-10.0, pos.Quantity)
	suite.Equal(100.0, pos.AvgEntryPrice)

	suite.Require().NoError(a.ApplyFill(suite.fill(2, "AAPL", types.OrderSideCover, 10, 80, 0)))

	pos, ok = a.GetPosition("AAPL")
	suite.Require().True(ok)
	suite.Equal(0.0, pos.Quantity)
	suite.InDelta(200.0, pos.RealizedPnL, 1e-9)
}

func (suite *AccountantTestSuite) TestMarkToMarketUpdatesUnrealizedAndEquity() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 0)))

	a.MarkToMarket("AAPL", 105, suite.now)

	pos, ok := a.GetPosition("AAPL")
	suite.Require().True(ok)
	suite.InDelta(50.0, pos.UnrealizedPnL, 1e-9)
	suite.InDelta(9000+1050, a.Portfolio().Equity, 1e-9)
}

func (suite *AccountantTestSuite) TestMarkToMarketIsIdempotent() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 0)))

	a.MarkToMarket("AAPL", 105, suite.now)
	first := a.Portfolio().Equity
	a.MarkToMarket("AAPL", 105, suite.now)
	second := a.Portfolio().Equity

	suite.Equal(first, second)
}

func (suite *AccountantTestSuite) TestCheckInvariantPassesAfterFillsAndMarks() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 1)))
	a.MarkToMarket("AAPL", 110, suite.now)

	suite.NoError(a.CheckInvariant())
}

func (suite *AccountantTestSuite) TestSnapshotIsIndependentOfLiveState() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 0)))

	snap := a.Snapshot()
	suite.Require().NoError(a.ApplyFill(suite.fill(2, "AAPL", types.OrderSideBuy, 5, 100, 0)))

	suite.Equal(10.0, snap.Positions["AAPL"].Quantity)
	suite.Equal(15.0, a.Portfolio().Positions["AAPL"].Quantity)
}

func (suite *AccountantTestSuite) TestApplyFillRejectsNonPositiveQuantity() {
	a := New(10000)
	err := a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 0, 100, 0))
	suite.Error(err)
}

func (suite *AccountantTestSuite) TestFullyClosedPositionEmitsTrade() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 1)))
	suite.Require().NoError(a.ApplyFill(suite.fill(2, "AAPL", types.OrderSideSell, 10, 110, 1)))

	trades := a.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal("AAPL", trades[0].Symbol)
	suite.Equal(10.0, trades[0].Quantity)
	suite.Equal(100.0, trades[0].EntryPrice)
	suite.Equal(110.0, trades[0].ExitPrice)
	suite.InDelta(100.0-2, trades[0].PnL, 1e-9) // (110-100)*10 realized, minus 2 total commission
	suite.True(trades[0].IsWinner())
}

func (suite *AccountantTestSuite) TestCrossingZeroClosesOneTradeAndOpensAnother() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 0)))
	suite.Require().NoError(a.ApplyFill(suite.fill(2, "AAPL", types.OrderSideSell, 15, 90, 0)))

	trades := a.Trades()
	suite.Require().Len(trades, 1)
	suite.True(trades[0].IsLoser())

	// the remaining 5-share short is still open, not yet a trade
	pos, ok := a.GetPosition("AAPL")
	suite.Require().True(ok)
	suite.Equal(-5.0, pos.Quantity)
}

func (suite *AccountantTestSuite) TestPartialSellDoesNotEmitTradeYet() {
	a := New(10000)
	suite.Require().NoError(a.ApplyFill(suite.fill(1, "AAPL", types.OrderSideBuy, 10, 100, 0)))
	suite.Require().NoError(a.ApplyFill(suite.fill(2, "AAPL", types.OrderSideSell, 4, 110, 0)))

	suite.Empty(a.Trades())
}
