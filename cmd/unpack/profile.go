package main

import (
	"errors"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/felixge/fgprof"
	"github.com/spf13/pflag"
)

type profileConfig struct {
	fgProfile  string
	cpuProfile string
	memProfile string
	traceFile  string
}

func (p *profileConfig) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&p.fgProfile, "fgprofile", "", "write an fgprof wall-clock profile to file")
	fs.StringVar(&p.cpuProfile, "cpuprofile", "", "write a CPU profile to file")
	fs.StringVar(&p.memProfile, "memprofile", "", "write a heap profile to file on exit")
	fs.StringVar(&p.traceFile, "trace", "", "write an execution trace to file")
}

// startProfile starts the configured profilers. The returned func stops
// them and writes the heap profile.
func startProfile(cfg profileConfig) (func(*slog.Logger), error) {
	var stops []func() error

	stopAll := func(logger *slog.Logger) {
		for i := len(stops) - 1; i >= 0; i-- {
			if err := stops[i](); err != nil {
				logger.Warn("profile stop failed", "error", err)
			}
		}
	}
	fail := func(err error) (func(*slog.Logger), error) {
		stopAll(slog.New(slog.DiscardHandler))
		return nil, err
	}

	if cfg.fgProfile != "" {
		f, err := os.Create(cfg.fgProfile)
		if err != nil {
			return fail(err)
		}
		stopFG := fgprof.Start(f, fgprof.FormatPprof)
		stops = append(stops, func() error {
			return errors.Join(stopFG(), f.Close())
		})
	}

	if cfg.cpuProfile != "" {
		f, err := os.Create(cfg.cpuProfile)
		if err != nil {
			return fail(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fail(err)
		}
		stops = append(stops, func() error {
			pprof.StopCPUProfile()
			return f.Close()
		})
	}

	if cfg.traceFile != "" {
		f, err := os.Create(cfg.traceFile)
		if err != nil {
			return fail(err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			return fail(err)
		}
		stops = append(stops, func() error {
			trace.Stop()
			return f.Close()
		})
	}

	if cfg.memProfile != "" {
		path := cfg.memProfile
		// runs first on stop, while the other profilers are still attached
		stops = append(stops, func() error {
			runtime.GC()
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			return errors.Join(pprof.WriteHeapProfile(f), f.Close())
		})
	}

	return stopAll, nil
}
