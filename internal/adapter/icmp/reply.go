package icmp

import (
	"encoding/binary"
	"net/netip"

	"golang.org/x/net/icmp"
)

type verdict int

const (
	verdictIgnore verdict = iota
	verdictReply
	verdictError
)

type echoRequest struct {
	dst netip.Addr
	id  int
	seq int
	// Datagram sockets get their echo id rewritten by the kernel.
	matchID bool
}

// classify decides whether msg, received from peer, answers req.
func classify(fam family, msg *icmp.Message, peer netip.Addr, req echoRequest) verdict {
	switch body := msg.Body.(type) {
	case *icmp.Echo:
		if msg.Type != fam.echoReply || peer.WithZone("") != req.dst.WithZone("") {
			return verdictIgnore
		}

		if body.Seq != req.seq || (req.matchID && body.ID != req.id) {
			return verdictIgnore
		}

		return verdictReply
	case *icmp.DstUnreach:
		return req.quoted(fam, body.Data)
	case *icmp.TimeExceeded:
		return req.quoted(fam, body.Data)
	case *icmp.ParamProb:
		return req.quoted(fam, body.Data)
	default:
		return verdictIgnore
	}
}

// quoted inspects the original datagram quoted by an ICMP error and reports
// whether it is our echo request.
func (req echoRequest) quoted(fam family, data []byte) verdict {
	hdrLen := fam.headerLen
	if fam.proto == protocolICMP {
		if len(data) < 1 {
			return verdictIgnore
		}

		hdrLen = int(data[0]&0x0f) << 2
	}

	// type, code, checksum, id, seq
	if len(data) < hdrLen+8 {
		return verdictIgnore
	}

	echo := data[hdrLen:]

	if int(binary.BigEndian.Uint16(echo[6:8])) != req.seq {
		return verdictIgnore
	}

	if req.matchID && int(binary.BigEndian.Uint16(echo[4:6])) != req.id {
		return verdictIgnore
	}

	return verdictError
}
