package homie

import (
	"errors"
	"net"
)

var errNoInterface = errors.New("no usable network interface")

// HostNetInquirer reads ip and mac from the first interface that is up, is
// not a loopback and has an IPv4 address.  Name restricts the search to one
// interface.
type HostNetInquirer struct {
	Name string
}

func (h HostNetInquirer) InquireNetConfig() (string, string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", "", err
	}

	for _, iface := range ifaces {
		if h.Name != "" && iface.Name != h.Name {
			continue
		}
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return ip4.String(), iface.HardwareAddr.String(), nil
			}
		}
	}

	return "", "", errNoInterface
}
