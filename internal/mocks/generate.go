// Package mocks holds go.uber.org/mock-generated collaborator doubles for packages
// whose real implementations can't easily inject mid-stream failures in a test
// (grounded on the teacher's mocks/generate.go).
package mocks

//go:generate mockgen -destination=./mock_source.go -package=mocks github.com/kestrel-quant/backtest/internal/feed Source,Stream
//go:generate mockgen -destination=./mock_riskmanager.go -package=mocks github.com/kestrel-quant/backtest/internal/strategy RiskManager
