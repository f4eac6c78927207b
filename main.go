package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"sxsim/config"
	"sxsim/flowsheet"
	"sxsim/server"
	"sxsim/simulator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

var (
	mode    = flag.String("mode", "serve", "serve, run, sweep or graph")
	cfgPath = flag.String("config", config.DefaultPath, "ini configuration file")
	out     = flag.String("out", "", "output file for sweep and graph, stdout if empty")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.WithError(err).Fatal("sxsim")
	}
}

func run() error {
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyLogging(); err != nil {
		return err
	}
	sim, err := cfg.NewSimulator()
	if err != nil {
		return err
	}

	switch *mode {
	case "serve":
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
		return server.NewServer(cfg.Server.Addr, upgrader, sim, cfg.Server.HistorySize).Serve()
	case "run":
		return runOnce(sim, cfg.Run)
	case "sweep":
		return sweep(sim, cfg.Sweep)
	case "graph":
		return graph(sim, cfg.Run)
	default:
		return errors.Errorf("unknown mode %q", *mode)
	}
}

func runOnce(sim *simulator.Simulator, p simulator.Params) error {
	c, err := sim.Build(p)
	for _, u := range c.Units() {
		fmt.Println(u.MassBalance())
	}
	if err != nil {
		return err
	}
	trial, err := c.Trial()
	if err != nil {
		return err
	}
	fmt.Printf("Wasted uranium      : %.4f kg/h\n", trial.Results.WastedUranium)
	fmt.Printf("Strip liquor        : %.4f g/L\n", trial.Results.StripLiquorConcentration)
	fmt.Printf("Extraction per stage: %.4f g/L\n", trial.Results.ExtractionPerStage)
	fmt.Printf("Stripping per stage : %.4f g/L\n", trial.Results.StrippingPerStage)
	fmt.Printf("Reward              : %.4f\n", trial.Reward)
	return nil
}

func sweep(sim *simulator.Simulator, cfg config.SweepConfig) error {
	grid := simulator.DefaultGrid()
	if cfg.Grid != "" {
		var err error
		if grid, err = simulator.LoadGrid(cfg.Grid); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	report, err := sim.Sweep(ctx, grid, cfg.Workers)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = cfg.Output
	}
	return writeTo(path, func(f *os.File) error {
		return simulator.WriteReport(f, report)
	})
}

// graph renders the stream graph of one run. The run may be infeasible; its
// streams are laid out all the same.
func graph(sim *simulator.Simulator, p simulator.Params) error {
	c, err := sim.Build(p)
	if err != nil && !errors.Is(err, simulator.ErrInfeasible) {
		return err
	}
	f, err := flowsheet.New(flowsheet.Circuit(), c.Arena.Streams())
	if err != nil {
		return err
	}
	return writeTo(*out, func(file *os.File) error {
		return f.WriteDOT(file)
	})
}

func writeTo(path string, write func(*os.File) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", path)
	}
	defer file.Close()
	if err := write(file); err != nil {
		return err
	}
	log.WithField("path", path).Info("written")
	return nil
}
