package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CSVSourceTestSuite struct {
	suite.Suite
	dir string
}

func TestCSVSourceSuite(t *testing.T) {
	suite.Run(t, new(CSVSourceTestSuite))
}

func (suite *CSVSourceTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()

	content := "timestamp_ns,symbol,open,high,low,close,volume\n" +
		"1000,AAPL,100,101,99,100.5,1000\n" +
		"not,a,valid,row\n" +
		"2000,AAPL,100.5,102,100,101,1500\n"

	suite.Require().NoError(os.WriteFile(filepath.Join(suite.dir, "AAPL.csv"), []byte(content), 0o644))
}

func (suite *CSVSourceTestSuite) TestSymbolsListsCSVFiles() {
	src := NewCSVSource(suite.dir)
	symbols, err := src.Symbols()
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL"}, symbols)
}

func (suite *CSVSourceTestSuite) TestOpenMissingSymbolReturnsSourceNotFound() {
	src := NewCSVSource(suite.dir)
	_, err := src.Open("MSFT")
	suite.Error(err)
}

func (suite *CSVSourceTestSuite) TestStreamSkipsHeaderAndMalformedRows() {
	src := NewCSVSource(suite.dir)
	stream, err := src.Open("AAPL")
	suite.Require().NoError(err)
	defer stream.Close()

	first, ok, err := stream.Next()
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Equal(100.0, first.Bar.Open)

	second, ok, err := stream.Next()
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Equal(100.5, second.Bar.Open)

	_, ok, err = stream.Next()
	suite.Require().NoError(err)
	suite.False(ok)

	suite.Equal(int64(1), src.MalformedCount())
}

func (suite *CSVSourceTestSuite) TestSeekSkipsEarlierRows() {
	src := NewCSVSource(suite.dir)
	stream, err := src.Open("AAPL")
	suite.Require().NoError(err)
	defer stream.Close()

	suite.Require().NoError(stream.Seek(time.Unix(0, 2000)))

	event, ok, err := stream.Next()
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Equal(100.5, event.Bar.Open)

	_, ok, err = stream.Next()
	suite.Require().NoError(err)
	suite.False(ok)
}
