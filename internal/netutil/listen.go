// Package netutil sets up the TCP listener a node accepts ring traffic on
// and works out the address it advertises to peers.
package netutil

import (
	"fmt"
	"net"
)

// Listen binds a TCP listener to bind:port and returns it along with the
// advertised "host:port" peers should use to reach it. If host is empty,
// the advertised host is picked from the local interfaces per mode
// ("private" favors an RFC1918 address, "public" the first non-RFC1918
// one). If host is a literal IP, it is checked for consistency with mode.
func Listen(mode, bind, host string, port int) (net.Listener, string, error) {
	if bind == "" {
		bind = "0.0.0.0"
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", bind, port))
	if err != nil {
		return nil, "", err
	}
	actualPort := ln.Addr().(*net.TCPAddr).Port

	if host == "" {
		ip, err := pickIP(mode)
		if err != nil {
			ln.Close()
			return nil, "", err
		}
		host = ip.String()
	} else if ip := net.ParseIP(host); ip != nil {
		if mode == "private" && !isPrivateIP(ip) {
			ln.Close()
			return nil, "", fmt.Errorf("netutil: host %s is not private but advertiseMode=private", host)
		}
		if mode == "public" && isPrivateIP(ip) {
			ln.Close()
			return nil, "", fmt.Errorf("netutil: host %s is private but advertiseMode=public", host)
		}
	}

	return ln, fmt.Sprintf("%s:%d", host, actualPort), nil
}

// pickIP selects the first up, non-loopback IPv4 address matching mode
// ("private" or "public") from the local interfaces.
func pickIP(mode string) (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			ip = ip.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if mode == "private" && isPrivateIP(ip) {
				return ip, nil
			}
			if mode == "public" && !isPrivateIP(ip) {
				return ip, nil
			}
		}
	}
	return nil, fmt.Errorf("netutil: no suitable %s interface found", mode)
}

var privateBlocks = []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

func isPrivateIP(ip net.IP) bool {
	for _, block := range privateBlocks {
		_, cidr, err := net.ParseCIDR(block)
		if err == nil && cidr.Contains(ip) {
			return true
		}
	}
	return false
}
