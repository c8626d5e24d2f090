// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zeebo/errs/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storj.io/udplisten/listener"
)

// Options are the settings of a single run.
type Options struct {
	Listener      listener.Config
	PCAPInterface string
	MetricsAddr   string
	Debug         bool
}

func main() {
	c := cobra.Command{
		Use:          "udplisten",
		Short:        "Print the sender and payload of every UDP datagram received on host:port",
		SilenceUsage: true,
	}
	_ = c.Flags().String("host", listener.DefaultHost, "address to bind to")
	_ = c.Flags().IntP("port", "p", listener.DefaultPort, "UDP port to bind to")
	_ = c.Flags().Int("max-packet-size", listener.DefaultMaxPacketSize, "receive buffer size, longer datagrams are truncated")
	_ = c.Flags().String("pcap-iface", "", "if set, capture udp packets on this interface instead of binding. must be on linux")
	_ = c.Flags().String("metrics-addr", "", "HTTP address to listen on with /metrics endpoint")
	_ = c.Flags().Bool("debug", false, "use the development logger")

	viper.SetConfigName("udplisten")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("UDPLISTEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	err := viper.BindPFlags(c.Flags())
	if err != nil {
		panic(err)
	}

	c.RunE = func(cmd *cobra.Command, args []string) error {
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return errs.Wrap(err)
			}
		}
		return run(context.Background(), loadOptions(viper.GetViper()))
	}

	err = c.Execute()
	if err != nil {
		log.Fatalf("%++v", err)
	}
}

func loadOptions(v *viper.Viper) Options {
	return Options{
		Listener: listener.Config{
			Host:          v.GetString("host"),
			Port:          v.GetInt("port"),
			MaxPacketSize: v.GetInt("max-packet-size"),
		},
		PCAPInterface: v.GetString("pcap-iface"),
		MetricsAddr:   v.GetString("metrics-addr"),
		Debug:         v.GetBool("debug"),
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, opts Options) error {
	log, err := newLogger(opts.Debug)
	if err != nil {
		return errs.Wrap(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, done := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer done()

	src, err := openSource(log, opts)
	if err != nil {
		log.Error("failed to bind", zap.String("address", opts.Listener.Address()), zap.Error(err))
		return err
	}
	log.Info("starting server", zap.String("address", opts.Listener.Address()))

	eg, ctx := errgroup.WithContext(ctx)
	if opts.MetricsAddr != "" {
		serveMetrics(ctx, eg, log, opts.MetricsAddr)
	}
	eg.Go(func() error {
		return listener.Serve(ctx, src, listener.Print)
	})

	err = eg.Wait()
	if err != nil {
		log.Error("listener stopped", zap.Error(err))
		return err
	}
	log.Info("shutting down")
	return nil
}

// openCapture is replaced in tests.
var openCapture = func(iface string, cfg listener.Config) (listener.Source, error) {
	return listener.NewCaptureSource(iface, cfg)
}

func openSource(log *zap.Logger, opts Options) (listener.Source, error) {
	if opts.PCAPInterface != "" {
		src, err := openCapture(opts.PCAPInterface, opts.Listener)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, listener.ErrCaptureUnsupported) {
			return nil, err
		}
		log.Warn("packet capture not supported, binding a socket instead", zap.String("iface", opts.PCAPInterface))
	}
	return listener.Listen(opts.Listener)
}

func serveMetrics(ctx context.Context, eg *errgroup.Group, log *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", listener.NewPrometheusEndpoint(monkit.Default))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		log.Info("serving metrics", zap.String("address", addr))
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(err)
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err)
		}
		return nil
	})
}
