package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/uartcheck/pkg/framework"
	"github.com/robotalks/uartcheck/pkg/harness"
	"github.com/robotalks/uartcheck/pkg/uart"
)

var listDevices bool

func init() {
	harness.SetupFlags()
	flag.BoolVar(&listDevices, "list", listDevices, "List serial devices and exit.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if listDevices {
		names, err := uart.ListDevices()
		if err != nil {
			glog.Exitln(err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	h := harness.NewConfig().MustNewHarness()
	defer h.Close()
	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("loop", h.NewLoop()))
	if err := runner.Wait(); err != nil {
		h.Close()
		glog.Errorln(err)
		glog.Flush()
		os.Exit(1)
	}
	stats := h.SelfTest.Stats()
	glog.Infof("stopped: sent=%d received=%d matched=%d mismatched=%d",
		stats.Sent, stats.Received, stats.Matched, stats.Mismatched)
}
