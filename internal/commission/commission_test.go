package commission

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type CommissionTestSuite struct {
	suite.Suite
}

func TestCommissionSuite(t *testing.T) {
	suite.Run(t, new(CommissionTestSuite))
}

func (suite *CommissionTestSuite) TestZeroFee() {
	fee := NewZeroFee()
	suite.Equal(0.0, fee.Calculate(100, 50))
}

func (suite *CommissionTestSuite) TestPercentageFee() {
	fee := NewPercentageFee(0.01)
	suite.InDelta(10.0, fee.Calculate(10, 100), 1e-9)
}

func (suite *CommissionTestSuite) TestPercentageFeeUsesAbsoluteQuantity() {
	fee := NewPercentageFee(0.01)
	suite.InDelta(10.0, fee.Calculate(-10, 100), 1e-9)
}

func (suite *CommissionTestSuite) TestFlatPerShareAboveMinimum() {
	fee := NewFlatPerShareFee(0.005, 1.0)
	suite.InDelta(5.0, fee.Calculate(1000, 50), 1e-9)
}

func (suite *CommissionTestSuite) TestFlatPerShareFloorsAtMinimum() {
	fee := NewFlatPerShareFee(0.005, 1.0)
	suite.InDelta(1.0, fee.Calculate(10, 50), 1e-9)
}
