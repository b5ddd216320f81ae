package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/samsamfire/docan"
)

var defaultCanInterface = "can0"

func main() {
	log.SetLevel(log.InfoLevel)

	canInterface := flag.String("i", defaultCanInterface, "socketcan interface e.g. can0,vcan0")
	txID := flag.Uint("tx", 0x7A0, "request CAN id")
	rxID := flag.Uint("rx", 0x7A8, "response CAN id")
	fid := flag.Uint("fid", 0x7DF, "functional CAN id")
	session := flag.Uint("session", uint(docan.SessionExtended), "diagnostic session to request (1-4)")
	flag.Parse()

	bus, err := docan.NewSocketcanBus(*canInterface)
	if err != nil {
		fmt.Printf("could not connect to interface %v: %v\n", *canInterface, err)
		os.Exit(1)
	}
	if err := bus.Connect(); err != nil {
		fmt.Printf("could not start interface %v: %v\n", *canInterface, err)
		os.Exit(1)
	}
	defer bus.Disconnect()

	addr := docan.Address{TxID: uint32(*txID), RxID: uint32(*rxID), FID: uint32(*fid)}
	transport := docan.NewSocketcanIsoTpTransport(bus, addr)
	client := docan.NewClient(addr, transport)
	defer client.Close()

	timing, err := client.SessionControl(docan.DiagnosticSession(*session), false, docan.Physical)
	if err != nil {
		fmt.Printf("session control failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("session changed, server timing: %+v\n", timing)
}
