package notify

import (
	"context"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Wireless debugging service types advertised by devices.
const (
	ServiceTypeTLSConnect = "_adb-tls-connect._tcp"
	ServiceTypeTLSPairing = "_adb-tls-pairing._tcp"
	Domain                = "local."
)

// MDNSConfig configures the mDNS notifier.
type MDNSConfig struct {
	// Service is the service type to browse. Default: ServiceTypeTLSConnect.
	Service string

	// Interface restricts browsing to one network interface.
	// Empty string means all interfaces.
	Interface string
}

type browseFunc func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

// MDNS signals when wireless-debugging devices appear or disappear.
type MDNS struct {
	config MDNSConfig
	browse browseFunc
}

// NewMDNS creates an mDNS notifier.
func NewMDNS(config MDNSConfig) *MDNS {
	if config.Service == "" {
		config.Service = ServiceTypeTLSConnect
	}
	return &MDNS{
		config: config,
		browse: func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
			return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
		},
	}
}

// Name returns "mdns".
func (m *MDNS) Name() string { return "mdns" }

// Changes browses until ctx is done. Entries are tracked by instance name so
// that the same device seen on several interfaces is reported once.
func (m *MDNS) Changes(ctx context.Context) (<-chan Change, error) {
	out := make(chan Change, 8)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		known := make(map[string]bool)
		emit := func(action Action, instance string) bool {
			select {
			case out <- Change{Source: m.Name(), Action: action, Detail: instance, Time: time.Now()}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if entry == nil || known[entry.Instance] {
					continue
				}
				known[entry.Instance] = true
				if !emit(ActionAdd, entry.Instance) {
					return
				}

			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				if entry == nil || !known[entry.Instance] {
					continue
				}
				delete(known, entry.Instance)
				if !emit(ActionRemove, entry.Instance) {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = m.browse(ctx, m.config.Service, Domain, entries, removed, m.browserOptions()...)
	}()

	return out, nil
}

// browserOptions returns zeroconf client options based on config.
func (m *MDNS) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if m.config.Interface != "" {
		iface, err := net.InterfaceByName(m.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}
