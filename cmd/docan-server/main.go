package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/samsamfire/docan"
)

var defaultCanInterface = "can0"

func main() {
	log.SetLevel(log.DebugLevel)

	canInterface := flag.String("i", defaultCanInterface, "socketcan interface e.g. can0,vcan0")
	configPath := flag.String("c", "", "server configuration file path (yaml)")
	metricsAddr := flag.String("metrics", "", "address to serve Prometheus /metrics on, e.g. :9100 (disabled if empty)")
	flag.Parse()

	if *configPath == "" {
		fmt.Println("a -c configuration file path is required")
		os.Exit(1)
	}

	cfg, err := docan.LoadServerConfig(*configPath)
	if err != nil {
		fmt.Printf("failed to load server configuration: %v\n", err)
		os.Exit(1)
	}
	addr, err := docan.AddressFromConfig(*configPath)
	if err != nil {
		fmt.Printf("invalid server address: %v\n", err)
		os.Exit(1)
	}

	bus, err := docan.NewSocketcanBus(*canInterface)
	if err != nil {
		fmt.Printf("could not connect to interface %v: %v\n", *canInterface, err)
		os.Exit(1)
	}
	if err := bus.Connect(); err != nil {
		fmt.Printf("could not start interface %v: %v\n", *canInterface, err)
		os.Exit(1)
	}

	transport := docan.NewSocketcanIsoTpTransport(bus, addr)
	session := docan.NewSessionManager(cfg.KeepDuration)
	server := docan.NewServer(addr, transport, cfg, session)

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		server.SetMetrics(docan.NewDispatcherMetrics(reg))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warnf("[SERVER] metrics listener stopped: %v", err)
			}
		}()
		log.Infof("[SERVER] metrics listening on %v", *metricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go session.Run(ctx)
	go server.Run(ctx)

	log.Infof("[SERVER] listening on %v addr=%+v", *canInterface, addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("[SERVER] shutting down")
	cancel()
	if err := transport.Close(); err != nil {
		log.Warnf("[SERVER] transport close error: %v", err)
	}
	if err := bus.Disconnect(); err != nil {
		log.Warnf("[SERVER] bus disconnect error: %v", err)
	}
}
