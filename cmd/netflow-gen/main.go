// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"context"
	"log"
	"net"
	"net/netip"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storj.io/udplisten/netflow"
)

var mon = monkit.Package()

// Config is everything a run needs.
type Config struct {
	Collector *net.UDPAddr
	// Rate is the number of packets per second.
	Rate int
	// Count stops the run after that many packets. Zero sends until interrupted.
	Count     int
	Generator netflow.Options
	Debug     bool
}

func main() {
	c := cobra.Command{
		Use:          "netflow-gen",
		Short:        "Send a stream of generated NetFlow v9 packets to a collector",
		SilenceUsage: true,
	}
	flags := c.Flags()
	_ = flags.StringP("address", "a", "", "IPv4 address of the collector")
	_ = flags.IntP("port", "p", 9995, "port of the collector")
	_ = flags.IntP("rate", "r", 0, "packets per second")
	_ = flags.Int("count", 0, "stop after this many packets (0: until interrupted)")
	_ = flags.String("src-addr", "", "IP address of the flow source")
	_ = flags.String("src-subnet", "", "IP subnet from which the flow source address is selected")
	_ = flags.String("src-port", "", "source port of a flow")
	_ = flags.String("src-port-range", "", "range of ports to select the source port from, as <start>,<end>")
	_ = flags.String("src-mac", "00:00:00:00:00:00", "source MAC address of the flow")
	_ = flags.String("dst-addr", "", "IP address of the flow destination")
	_ = flags.String("dst-subnet", "", "IP subnet from which the flow destination address is selected")
	_ = flags.String("dst-port", "", "destination port of a flow")
	_ = flags.String("dst-port-range", "", "range of ports to select the destination port from, as <start>,<end>")
	_ = flags.String("dst-mac", "00:00:00:00:00:00", "destination MAC address of the flow")
	_ = flags.String("protocol", "TCP", "protocol of the flow: TCP or ICMP")
	_ = flags.Int("template-id", netflow.DefaultTemplateID, "template id of the data records")
	_ = flags.Bool("once", false, "send the template in the first packet only")
	_ = flags.Bool("interleve", false, "send the template together with data in every packet")
	_ = flags.Int("every", 0, "send the template in a separate packet every N packets")
	_ = flags.Bool("debug", false, "use the development logger")

	viper.SetConfigName("netflow-gen")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("NETFLOW_GEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	err := viper.BindPFlags(flags)
	if err != nil {
		panic(err)
	}

	c.RunE = func(cmd *cobra.Command, args []string) error {
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return errors.WithStack(err)
			}
		}
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Debug)
		if err != nil {
			return errors.WithStack(err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer done()
		return run(ctx, logger, cfg)
	}

	err = c.Execute()
	if err != nil {
		log.Fatalf("%++v", err)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// exactlyOne returns the name of the only flag among names with a value.
func exactlyOne(v *viper.Viper, names ...string) (string, error) {
	var set []string
	for _, name := range names {
		if v.GetString(name) != "" {
			set = append(set, name)
		}
	}
	if len(set) != 1 {
		return "", errors.Errorf("exactly one of --%s is required", strings.Join(names, ", --"))
	}
	return set[0], nil
}

func loadAddrPool(v *viper.Viper, prefix string) (netflow.AddrPool, error) {
	name, err := exactlyOne(v, prefix+"-addr", prefix+"-subnet")
	if err != nil {
		return netflow.AddrPool{}, err
	}
	if strings.HasSuffix(name, "-subnet") {
		return netflow.ParseSubnet(v.GetString(name))
	}
	return netflow.ParseAddr(v.GetString(name))
}

func loadPorts(v *viper.Viper, prefix string) (netflow.PortRange, error) {
	name, err := exactlyOne(v, prefix+"-port", prefix+"-port-range")
	if err != nil {
		return netflow.PortRange{}, err
	}
	if strings.HasSuffix(name, "-range") {
		return netflow.ParsePortRange(v.GetString(name))
	}
	port, err := strconv.ParseUint(v.GetString(name), 10, 16)
	if err != nil {
		return netflow.PortRange{}, errors.Wrapf(err, "invalid --%s", name)
	}
	return netflow.SinglePort(uint16(port)), nil
}

func loadStrategy(v *viper.Viper) (netflow.Strategy, uint32, error) {
	var strategies []netflow.Strategy
	if v.GetBool("once") {
		strategies = append(strategies, netflow.TemplateOnce)
	}
	if v.GetBool("interleve") {
		strategies = append(strategies, netflow.TemplateInterleaved)
	}
	every := v.GetInt("every")
	if every < 0 {
		return 0, 0, errors.Errorf("invalid --every %d", every)
	}
	if every > 0 {
		strategies = append(strategies, netflow.TemplateEvery)
	}
	if len(strategies) != 1 {
		return 0, 0, errors.New("exactly one of --once, --interleve, --every is required")
	}
	return strategies[0], uint32(every), nil
}

func loadConfig(v *viper.Viper) (cfg Config, err error) {
	collector, err := netip.ParseAddr(v.GetString("address"))
	if err != nil || !collector.Is4() {
		return cfg, errors.Errorf("--address must be an IPv4 address, got %q", v.GetString("address"))
	}
	port := v.GetInt("port")
	if port <= 0 || port > 65535 {
		return cfg, errors.Errorf("invalid --port %d", port)
	}
	cfg.Collector = net.UDPAddrFromAddrPort(netip.AddrPortFrom(collector, uint16(port)))

	cfg.Rate = v.GetInt("rate")
	if cfg.Rate <= 0 {
		return cfg, errors.New("--rate must be positive")
	}
	cfg.Count = v.GetInt("count")
	if cfg.Count < 0 {
		return cfg, errors.Errorf("invalid --count %d", cfg.Count)
	}
	cfg.Debug = v.GetBool("debug")

	flow := &cfg.Generator.Flow
	if flow.Src, err = loadAddrPool(v, "src"); err != nil {
		return cfg, err
	}
	if flow.Dst, err = loadAddrPool(v, "dst"); err != nil {
		return cfg, err
	}
	if flow.SrcPorts, err = loadPorts(v, "src"); err != nil {
		return cfg, err
	}
	if flow.DstPorts, err = loadPorts(v, "dst"); err != nil {
		return cfg, err
	}
	if flow.SrcMAC, err = netflow.ParseMAC(v.GetString("src-mac")); err != nil {
		return cfg, err
	}
	if flow.DstMAC, err = netflow.ParseMAC(v.GetString("dst-mac")); err != nil {
		return cfg, err
	}
	if flow.Protocol, err = netflow.ParseProtocol(v.GetString("protocol")); err != nil {
		return cfg, err
	}

	templateID := v.GetInt("template-id")
	if templateID < 256 || templateID > 65535 {
		return cfg, errors.Errorf("invalid --template-id %d", templateID)
	}
	cfg.Generator.TemplateID = uint16(templateID)

	cfg.Generator.Strategy, cfg.Generator.Every, err = loadStrategy(v)
	return cfg, err
}

func run(ctx context.Context, log *zap.Logger, cfg Config) error {
	gen, err := netflow.NewGenerator(cfg.Generator, nil)
	if err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return errors.Wrap(err, "binding to udp socket")
	}
	defer func() { _ = conn.Close() }()

	log.Info("sending netflow packets",
		zap.Stringer("collector", cfg.Collector),
		zap.Int("rate", cfg.Rate),
		zap.Stringer("template", cfg.Generator.Strategy))

	limiter := rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	sent := 0
	for cfg.Count == 0 || sent < cfg.Count {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			return errors.WithStack(err)
		}
		if _, err := conn.WriteToUDP(gen.Next(), cfg.Collector); err != nil {
			return errors.Wrap(err, "sending packet")
		}
		mon.Counter("packets_sent").Inc(1)
		sent++
	}

	log.Info("done", zap.Int("sent", sent))
	return nil
}
