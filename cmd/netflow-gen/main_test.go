// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"context"
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/udplisten/listener"
	"storj.io/udplisten/netflow"
)

func validViper(collectorPort int) *viper.Viper {
	v := viper.New()
	v.Set("address", "127.0.0.1")
	v.Set("port", collectorPort)
	v.Set("rate", 1000)
	v.Set("src-subnet", "10.0.0.0/24")
	v.Set("src-port-range", "1000,2000")
	v.Set("src-mac", "00:00:00:00:00:00")
	v.Set("dst-addr", "10.0.1.1")
	v.Set("dst-port", "443")
	v.Set("dst-mac", "02:00:00:00:00:01")
	v.Set("protocol", "TCP")
	v.Set("template-id", netflow.DefaultTemplateID)
	v.Set("once", true)
	return v
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(validViper(9995))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9995", cfg.Collector.String())
	require.Equal(t, 1000, cfg.Rate)
	require.Equal(t, "10.0.0.0/24", cfg.Generator.Flow.Src.String())
	require.Equal(t, "10.0.1.1", cfg.Generator.Flow.Dst.String())
	require.Equal(t, netflow.PortRange{First: 1000, Last: 2000}, cfg.Generator.Flow.SrcPorts)
	require.Equal(t, netflow.SinglePort(443), cfg.Generator.Flow.DstPorts)
	require.Equal(t, netflow.MAC{2, 0, 0, 0, 0, 1}, cfg.Generator.Flow.DstMAC)
	require.Equal(t, netflow.ProtocolTCP, cfg.Generator.Flow.Protocol)
	require.Equal(t, netflow.TemplateOnce, cfg.Generator.Strategy)

	v := validViper(9995)
	v.Set("once", false)
	v.Set("every", 10)
	cfg, err = loadConfig(v)
	require.NoError(t, err)
	require.Equal(t, netflow.TemplateEvery, cfg.Generator.Strategy)
	require.Equal(t, uint32(10), cfg.Generator.Every)
}

func TestLoadConfigRejects(t *testing.T) {
	for name, change := range map[string]func(v *viper.Viper){
		"no address":       func(v *viper.Viper) { v.Set("address", "") },
		"ipv6 address":     func(v *viper.Viper) { v.Set("address", "::1") },
		"zero rate":        func(v *viper.Viper) { v.Set("rate", 0) },
		"both sources":     func(v *viper.Viper) { v.Set("src-addr", "10.0.0.1") },
		"no destination":   func(v *viper.Viper) { v.Set("dst-addr", "") },
		"both ports":       func(v *viper.Viper) { v.Set("dst-port-range", "1,2") },
		"bad port":         func(v *viper.Viper) { v.Set("dst-port", "70000") },
		"bad mac":          func(v *viper.Viper) { v.Set("src-mac", "00:00") },
		"bad protocol":     func(v *viper.Viper) { v.Set("protocol", "SCTP") },
		"two strategies":   func(v *viper.Viper) { v.Set("interleve", true) },
		"no strategy":      func(v *viper.Viper) { v.Set("once", false) },
		"reserved templid": func(v *viper.Viper) { v.Set("template-id", 10) },
	} {
		v := validViper(9995)
		change(v)
		_, err := loadConfig(v)
		require.Error(t, err, name)
	}
}

func TestRunSendsToCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector, err := listener.Listen(listener.Config{Host: "127.0.0.1", Port: 0, MaxPacketSize: listener.DefaultMaxPacketSize})
	require.NoError(t, err)

	var mu sync.Mutex
	var packets [][]byte
	done := make(chan error, 1)
	go func() {
		done <- listener.Serve(ctx, collector, func(ctx context.Context, d listener.Datagram) error {
			mu.Lock()
			defer mu.Unlock()
			packets = append(packets, append([]byte(nil), d.Payload...))
			return nil
		})
	}()

	cfg, err := loadConfig(validViper(collector.LocalAddr().(*net.UDPAddr).Port))
	require.NoError(t, err)
	cfg.Count = 3

	require.NoError(t, run(ctx, zaptest.NewLogger(t), cfg))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(packets) == 3
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	for i, packet := range packets {
		require.Equal(t, uint16(netflow.Version), binary.BigEndian.Uint16(packet[0:2]))
		require.Equal(t, uint32(i+1), binary.BigEndian.Uint32(packet[12:16]))
	}
	require.Equal(t, uint16(0), binary.BigEndian.Uint16(packets[0][20:22]))
	require.Equal(t, uint16(netflow.DefaultTemplateID), binary.BigEndian.Uint16(packets[1][20:22]))
	mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg, err := loadConfig(validViper(9))
	require.NoError(t, err)
	require.NoError(t, run(ctx, zaptest.NewLogger(t), cfg))
}
