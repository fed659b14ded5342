package socket

import (
	"sync/atomic"
)

// ServerMetrics contains atomic metrics for a socket server.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ServerMetrics struct {
	// ConnAcceptCount indicates the number of accepted connections.
	ConnAcceptCount atomic.Uint64
	// ConnActiveGauge indicates the number of currently open connections.
	ConnActiveGauge atomic.Int64

	// CmdRecvCount indicates the number of command lines received.
	CmdRecvCount atomic.Uint64
	// CmdErrCount indicates the number of commands that failed admission or
	// execution.
	CmdErrCount atomic.Uint64
}

func (m *ServerMetrics) incConnAcceptCount() {
	m.ConnAcceptCount.Add(1)
	m.ConnActiveGauge.Add(1)
}

func (m *ServerMetrics) decConnActiveGauge() {
	m.ConnActiveGauge.Add(-1)
}

func (m *ServerMetrics) incCmdRecvCount() {
	m.CmdRecvCount.Add(1)
}

func (m *ServerMetrics) incCmdErrCount() {
	m.CmdErrCount.Add(1)
}
