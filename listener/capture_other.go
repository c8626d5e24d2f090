//go:build !linux
// +build !linux

package listener

import (
	"github.com/google/gopacket"
)

func newEthernetHandle(iface string) (_ gopacket.PacketDataSource, closeHandle func(), supported bool, err error) {
	return nil, nil, false, nil
}
