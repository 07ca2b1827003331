package main

import (
	"net"

	"github.com/homa-go/homa"
	"github.com/homa-go/homa/internal/protocol"
)

// udpRoute is the concrete Route homasend pins on every packet
// buffer: just the resolved destination address, since this demo has
// no real route cache (out of scope per the core's collaborator
// contracts, §1).
type udpRoute struct {
	addr *net.UDPAddr
}

// udpPeer is a minimal homa.Peer backed by a single fixed destination
// and a flat unscheduled-priority cutoff, standing in for the real
// receive-path-owned peer object.
type udpPeer struct {
	route         udpRoute
	cutoffVersion uint16
	cutoffBytes   protocol.ByteCount
	highPrio      protocol.Priority
	lowPrio       protocol.Priority
}

func (p *udpPeer) Dst() homa.Route           { return p.route }
func (p *udpPeer) CutoffVersion() uint16     { return p.cutoffVersion }
func (p *udpPeer) UnschedPriority(length protocol.ByteCount) protocol.Priority {
	if length <= p.cutoffBytes {
		return p.highPrio
	}
	return p.lowPrio
}

// udpTransmitter submits packets over a real UDP socket, serializing
// the header in front of the payload for DATA packets (control
// packets already carry their marshaled header as Payload). It is the
// only piece of homasend that touches the network; the homa package
// never does — the IP-layer transmit primitive is an external
// collaborator per §1's Non-goals.
type udpTransmitter struct {
	conn *net.UDPConn
}

func resolveUDPAddr(addr string) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", addr)
}

func newUDPTransmitter(listenAddr string) (*udpTransmitter, error) {
	laddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	return &udpTransmitter{conn: conn}, nil
}

func (t *udpTransmitter) QueueXmit(buf *homa.PacketBuffer, route homa.Route) error {
	r, ok := route.(udpRoute)
	if !ok || r.addr == nil {
		return &net.AddrError{Err: "homasend: packet has no pinned route", Addr: ""}
	}

	var datagram []byte
	if buf.Header != nil {
		datagram = buf.Header.Marshal(nil)
	}
	datagram = append(datagram, buf.Payload...)

	_, err := t.conn.WriteToUDP(datagram, r.addr)
	return err
}

func (t *udpTransmitter) Close() error { return t.conn.Close() }
