//go:build linux
// +build linux

package listener

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
)

func newEthernetHandle(iface string) (_ gopacket.PacketDataSource, closeHandle func(), supported bool, err error) {
	handle, err := pcapgo.NewEthernetHandle(iface)
	if err != nil {
		return nil, nil, true, err
	}
	return handle, func() { handle.Close() }, true, nil
}
