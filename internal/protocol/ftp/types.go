package ftp

import (
	"fmt"
	"net/netip"
)

// ConnTuple identifies one control connection: a stable UID plus the
// originator (client) and responder (server) endpoints.
type ConnTuple struct {
	UID      string
	OrigAddr netip.Addr
	OrigPort uint16
	RespAddr netip.Addr
	RespPort uint16
}

// String renders the tuple for logs.
func (c ConnTuple) String() string {
	return fmt.Sprintf("%s %s:%d > %s:%d",
		c.UID, c.OrigAddr, c.OrigPort, c.RespAddr, c.RespPort)
}

// Locator builds an ftp:// resource locator for the given absolute path on
// the responder. The port is omitted when it is the well-known FTP port.
func (c ConnTuple) Locator(path string) string {
	if c.RespPort == 21 {
		return fmt.Sprintf("ftp://%s%s", c.RespAddr, path)
	}
	return fmt.Sprintf("ftp://%s:%d%s", c.RespAddr, c.RespPort, path)
}
