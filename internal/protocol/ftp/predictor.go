package ftp

import (
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

// NegotiationVariant is the closed set of data-channel negotiation shapes.
type NegotiationVariant int

const (
	// VariantPort is the classic active form: client supplies a
	// comma-separated 6-octet endpoint in the PORT argument.
	VariantPort NegotiationVariant = iota

	// VariantEPort is the extended active form (EPRT): a delimiter-tagged
	// textual encoding of protocol family, address and port.
	VariantEPort

	// VariantPasv is the classic passive form: server supplies a 6-number
	// tuple in the 227 reply text.
	VariantPasv

	// VariantEPasv is the extended passive form (EPSV): server supplies a
	// port in the 229 reply text, implicitly on its own address.
	VariantEPasv
)

func (v NegotiationVariant) String() string {
	switch v {
	case VariantPort:
		return "PORT"
	case VariantEPort:
		return "EPRT"
	case VariantPasv:
		return "PASV"
	case VariantEPasv:
		return "EPSV"
	default:
		return "UNKNOWN"
	}
}

// Endpoint is a predicted data-channel endpoint.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// pasvTuple matches the 6-number tuple embedded in free-form 227 reply
// text, e.g. "227 Entering Passive Mode (10,0,0,1,4,1).".
var pasvTuple = regexp.MustCompile(`(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3}),(\d{1,3})`)

// ParseActive parses an active-mode negotiation argument (the client tells
// the server where to connect). Malformed payloads yield ok=false and are
// dropped by the caller; parsing is best-effort with no error propagation.
func ParseActive(arg string, v NegotiationVariant) (Endpoint, bool) {
	switch v {
	case VariantPort:
		return parsePortTuple(strings.TrimSpace(arg))
	case VariantEPort:
		return parseEPRT(strings.TrimSpace(arg))
	default:
		return Endpoint{}, false
	}
}

// ParsePassive parses a passive-mode reply message (the server tells the
// client where to connect). respAddr is the control connection's responder
// address; the extended form substitutes it when the decoded host is the
// unspecified address, the server's way of saying "same host as this
// connection".
func ParsePassive(msg string, v NegotiationVariant, respAddr netip.Addr) (Endpoint, bool) {
	switch v {
	case VariantPasv:
		m := pasvTuple.FindStringSubmatch(msg)
		if m == nil {
			return Endpoint{}, false
		}
		return parsePortTuple(strings.Join(m[1:], ","))
	case VariantEPasv:
		ep, ok := parseEPSV(msg, respAddr)
		if !ok {
			return Endpoint{}, false
		}
		if ep.Addr.IsUnspecified() {
			ep.Addr = respAddr
		}
		return ep, true
	default:
		return Endpoint{}, false
	}
}

// parsePortTuple decodes the comma-separated 6-octet encoding shared by
// PORT arguments and PASV reply tuples: 4 address bytes then 2 port bytes,
// big-endian port.
func parsePortTuple(s string) (Endpoint, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 6 {
		return Endpoint{}, false
	}

	var bytes [6]byte
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 255 {
			return Endpoint{}, false
		}
		bytes[i] = byte(n)
	}

	port := uint16(bytes[4])<<8 | uint16(bytes[5])
	if port == 0 {
		return Endpoint{}, false
	}

	addr := netip.AddrFrom4([4]byte{bytes[0], bytes[1], bytes[2], bytes[3]})
	return Endpoint{Addr: addr, Port: port}, true
}

// parseEPRT decodes the EPRT argument form "<d><fam><d><addr><d><port><d>"
// where <d> is an arbitrary delimiter byte and fam is 1 (IPv4) or 2 (IPv6).
func parseEPRT(arg string) (Endpoint, bool) {
	if len(arg) < 7 {
		return Endpoint{}, false
	}
	delim := arg[0]
	parts := strings.Split(arg, string(delim))
	// Leading and trailing delimiters produce empty first/last elements.
	if len(parts) != 5 || parts[0] != "" || parts[4] != "" {
		return Endpoint{}, false
	}
	fam, addrStr, portStr := parts[1], parts[2], parts[3]

	addr, err := netip.ParseAddr(addrStr)
	if err != nil {
		return Endpoint{}, false
	}
	switch fam {
	case "1":
		if !addr.Is4() {
			return Endpoint{}, false
		}
	case "2":
		if !addr.Is6() {
			return Endpoint{}, false
		}
	default:
		return Endpoint{}, false
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, false
	}

	return Endpoint{Addr: addr, Port: uint16(port)}, true
}

// parseEPSV decodes the "(<d><d><d>port<d>)" form embedded in 229 reply
// text, e.g. "229 Entering Extended Passive Mode (|||6446|)". Servers may
// also include a family and address before the port.
func parseEPSV(msg string, respAddr netip.Addr) (Endpoint, bool) {
	open := strings.IndexByte(msg, '(')
	if open < 0 {
		return Endpoint{}, false
	}
	closing := strings.IndexByte(msg[open:], ')')
	if closing < 0 {
		return Endpoint{}, false
	}
	inner := msg[open+1 : open+closing]
	if len(inner) < 4 {
		return Endpoint{}, false
	}

	delim := inner[0]
	parts := strings.Split(inner, string(delim))
	if len(parts) != 5 || parts[0] != "" || parts[4] != "" {
		return Endpoint{}, false
	}
	addrStr, portStr := parts[2], parts[3]

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, false
	}

	addr := respAddr
	if addrStr != "" {
		addr, err = netip.ParseAddr(addrStr)
		if err != nil {
			return Endpoint{}, false
		}
	}

	return Endpoint{Addr: addr, Port: uint16(port)}, true
}
