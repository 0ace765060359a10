package icmp

import (
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	protocolICMP   = 1
	protocolICMPv6 = 58
)

type family struct {
	name       string
	proto      int
	echo       icmp.Type
	echoReply  icmp.Type
	privileged string
	datagram   string
	listenAddr string
	headerLen  int
}

var (
	familyV4 = family{
		name:       "ipv4",
		proto:      protocolICMP,
		echo:       ipv4.ICMPTypeEcho,
		echoReply:  ipv4.ICMPTypeEchoReply,
		privileged: "ip4:icmp",
		datagram:   "udp4",
		listenAddr: "0.0.0.0",
		headerLen:  ipv4.HeaderLen,
	}
	familyV6 = family{
		name:       "ipv6",
		proto:      protocolICMPv6,
		echo:       ipv6.ICMPTypeEchoRequest,
		echoReply:  ipv6.ICMPTypeEchoReply,
		privileged: "ip6:ipv6-icmp",
		datagram:   "udp6",
		listenAddr: "::",
		headerLen:  ipv6.HeaderLen,
	}
)

func familyOf(addr netip.Addr) family {
	if addr.Is4() {
		return familyV4
	}

	return familyV6
}

// listen opens an ICMP socket for the family. Privileged sockets are raw and
// need CAP_NET_RAW; datagram sockets rely on the kernel ping socket support
// (net.ipv4.ping_group_range on Linux).
func listen(fam family, privileged bool, ttl int) (*icmp.PacketConn, error) {
	network := fam.datagram
	if privileged {
		network = fam.privileged
	}

	conn, err := icmp.ListenPacket(network, fam.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s icmp socket: %w", network, err)
	}

	if err := configure(conn, fam, privileged, ttl); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

func configure(conn *icmp.PacketConn, fam family, privileged bool, ttl int) error {
	switch fam.proto {
	case protocolICMP:
		pc := conn.IPv4PacketConn()
		if pc == nil || ttl <= 0 {
			return nil
		}

		if err := pc.SetTTL(ttl); err != nil {
			return fmt.Errorf("failed to set IPv4 TTL: %w", err)
		}
	case protocolICMPv6:
		pc := conn.IPv6PacketConn()
		if pc == nil {
			return nil
		}

		if ttl > 0 {
			if err := pc.SetHopLimit(ttl); err != nil {
				return fmt.Errorf("failed to set IPv6 hop limit: %w", err)
			}
		}

		if privileged {
			var f ipv6.ICMPFilter
			f.SetAll(true)
			f.Accept(ipv6.ICMPTypeEchoReply)
			f.Accept(ipv6.ICMPTypeDestinationUnreachable)
			f.Accept(ipv6.ICMPTypeTimeExceeded)
			f.Accept(ipv6.ICMPTypeParameterProblem)

			if err := pc.SetICMPFilter(&f); err != nil {
				return fmt.Errorf("failed to set ICMPv6 filter: %w", err)
			}
		}
	}

	return nil
}

func destination(addr netip.Addr, privileged bool) net.Addr {
	if privileged {
		return &net.IPAddr{IP: addr.AsSlice(), Zone: addr.Zone()}
	}

	return &net.UDPAddr{IP: addr.AsSlice(), Zone: addr.Zone()}
}

func peerAddr(addr net.Addr) (netip.Addr, bool) {
	var ip net.IP

	switch a := addr.(type) {
	case *net.IPAddr:
		ip = a.IP
	case *net.UDPAddr:
		ip = a.IP
	default:
		return netip.Addr{}, false
	}

	peer, ok := netip.AddrFromSlice(ip)

	return peer.Unmap(), ok
}
