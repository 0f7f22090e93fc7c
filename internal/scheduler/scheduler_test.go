package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/kestrel-quant/backtest/internal/feed"
	"github.com/kestrel-quant/backtest/internal/mocks"
	"github.com/kestrel-quant/backtest/internal/types"
	"github.com/kestrel-quant/backtest/pkg/errors"
)

type SchedulerTestSuite struct {
	suite.Suite
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func bar(symbol string, tsNanos int64) types.Bar {
	return types.Bar{
		Symbol: symbol, Timestamp: time.Unix(0, tsNanos).UTC(),
		Open: 1, High: 1, Low: 1, Close: 1, Volume: 1, Period: time.Minute,
	}
}

func (suite *SchedulerTestSuite) TestSubscribeMissingSymbolReturnsSourceNotFound() {
	src := feed.NewInMemorySource()
	sched := New(src, 0, false)
	suite.Error(sched.Subscribe("AAPL"))
}

func (suite *SchedulerTestSuite) TestNextMergesTwoSymbolsInTimestampOrder() {
	src := feed.NewInMemorySource()
	src.Put(bar("AAPL", 1000), bar("AAPL", 3000))
	src.Put(bar("MSFT", 2000))

	sched := New(src, 0, false)
	suite.Require().NoError(sched.Subscribe("AAPL"))
	suite.Require().NoError(sched.Subscribe("MSFT"))

	var order []string
	for {
		event, ok, err := sched.Next()
		suite.Require().NoError(err)
		if !ok {
			break
		}
		order = append(order, event.Symbol)
	}

	suite.Equal([]string{"AAPL", "MSFT", "AAPL"}, order)
}

func (suite *SchedulerTestSuite) TestTiesBreakBySubscriptionOrder() {
	src := feed.NewInMemorySource()
	src.Put(bar("AAPL", 1000))
	src.Put(bar("MSFT", 1000))

	sched := New(src, 0, false)
	suite.Require().NoError(sched.Subscribe("AAPL"))
	suite.Require().NoError(sched.Subscribe("MSFT"))

	first, ok, err := sched.Next()
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Equal("AAPL", first.Symbol)

	second, ok, err := sched.Next()
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Equal("MSFT", second.Symbol)
}

func (suite *SchedulerTestSuite) TestSubscribeAllEnumeratesEverySymbol() {
	src := feed.NewInMemorySource()
	src.Put(bar("AAPL", 1000))
	src.Put(bar("MSFT", 1000))

	sched := New(src, 0, false)
	suite.Require().NoError(sched.SubscribeAll())

	count := 0
	for {
		_, ok, err := sched.Next()
		suite.Require().NoError(err)
		if !ok {
			break
		}
		count++
	}

	suite.Equal(2, count)
}

func (suite *SchedulerTestSuite) TestSeekClearsQueuedEventsAndJumpsForward() {
	src := feed.NewInMemorySource()
	src.Put(bar("AAPL", 1000), bar("AAPL", 2000), bar("AAPL", 3000))

	sched := New(src, 0, false)
	suite.Require().NoError(sched.Subscribe("AAPL"))

	suite.Require().NoError(sched.Seek(time.Unix(0, 2000)))

	event, ok, err := sched.Next()
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Equal(time.Unix(0, 2000).UTC(), event.Timestamp)
}

func (suite *SchedulerTestSuite) TestLoopReseeksToStartAfterExhaustion() {
	src := feed.NewInMemorySource()
	src.Put(bar("AAPL", 1000), bar("AAPL", 2000))

	sched := New(src, 0, true)
	suite.Require().NoError(sched.Subscribe("AAPL"))

	var timestamps []int64
	for i := 0; i < 5; i++ {
		event, ok, err := sched.Next()
		suite.Require().NoError(err)
		suite.Require().True(ok)
		timestamps = append(timestamps, event.Timestamp.UnixNano())
	}

	suite.Equal([]int64{1000, 2000, 1000, 2000, 1000}, timestamps)
}

// TestNextPropagatesMidStreamReadError uses a mocked Stream to exercise a failure
// a real Source can't easily reproduce on demand: an I/O error surfacing partway
// through an otherwise-healthy stream.
func (suite *SchedulerTestSuite) TestNextPropagatesMidStreamReadError() {
	ctrl := gomock.NewController(suite.T())

	readErr := errors.New(errors.ErrCodeMalformedRecord, "corrupt row")

	stream := mocks.NewMockStream(ctrl)
	stream.EXPECT().Next().Return(types.NewBarEvent(bar("AAPL", 1000), 1), true, nil)
	stream.EXPECT().Next().Return(types.Event{}, false, readErr)

	source := mocks.NewMockSource(ctrl)
	source.EXPECT().Open("AAPL").Return(stream, nil)

	sched := New(source, 0, false)

	// Subscribe primes the frontier with the healthy first event; the scheduler's Next
	// pops it and refills from the stream, which is where the mocked error surfaces.
	suite.Require().NoError(sched.Subscribe("AAPL"))

	_, _, err := sched.Next()
	suite.True(errors.HasCode(err, errors.ErrCodeMalformedRecord))
}

func (suite *SchedulerTestSuite) TestNextReturnsFalseAtEndOfStreamWithoutLoop() {
	src := feed.NewInMemorySource()
	src.Put(bar("AAPL", 1000))

	sched := New(src, 0, false)
	suite.Require().NoError(sched.Subscribe("AAPL"))

	_, ok, err := sched.Next()
	suite.Require().NoError(err)
	suite.True(ok)

	_, ok, err = sched.Next()
	suite.Require().NoError(err)
	suite.False(ok)
}
