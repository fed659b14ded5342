// Package discovery announces the server's instrument-control services over
// mDNS/DNS-SD, following the LXI LAN discovery conventions.
package discovery

import (
	"fmt"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/arloliu/go-lxi/logger"
)

// Service types registered for instrument control endpoints.
const (
	ServiceLXI       = "_lxi._tcp"
	ServiceRawSocket = "_scpi-raw._tcp"
	ServiceTelnet    = "_scpi-telnet._tcp"
	ServiceHiSLIP    = "_hislip._tcp"
	ServiceVXI11     = "_vxi-11._tcp"
	ServiceHTTP      = "_http._tcp"

	// Domain is the mDNS domain services are registered in.
	Domain = "local."
)

// Announcer registers the server's services with mDNS and keeps them alive
// until Shutdown.
type Announcer struct {
	mu           sync.Mutex
	instanceName string
	servers      []*zeroconf.Server
	logger       logger.Logger
}

// NewAnnouncer creates an announcer. The instance name is the human-visible
// service instance, typically "<manufacturer> <model> <serial>".
func NewAnnouncer(instanceName string, l logger.Logger) *Announcer {
	if l == nil {
		l = logger.GetLogger()
	}
	return &Announcer{
		instanceName: instanceName,
		logger:       l,
	}
}

// Announce registers one service type on the given port. The txt records
// follow the DNS-SD key=value convention.
func (a *Announcer) Announce(service string, port int, txt ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, err := zeroconf.Register(a.instanceName, service, Domain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("register %s on port %d: %w", service, port, err)
	}
	a.servers = append(a.servers, server)

	a.logger.Info("mDNS service announced", "service", service, "port", port, "instance", a.instanceName)
	return nil
}

// Shutdown withdraws every announced service.
func (a *Announcer) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, server := range a.servers {
		server.Shutdown()
	}
	a.servers = nil
}

// Count returns the number of currently announced services.
func (a *Announcer) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.servers)
}
