// Command wasmc decodes and interactively executes a WebAssembly 1.0
// module, per spec.md §6.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/google/pprof/profile"
	flag "github.com/spf13/pflag"

	"github.com/stealthrocket/wasmc/internal/host"
	"github.com/stealthrocket/wasmc/internal/interp"
	"github.com/stealthrocket/wasmc/internal/profiler"
	"github.com/stealthrocket/wasmc/internal/repl"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

var (
	cpuProfile string
	memProfile string
	pprofAddr  string
	sampleHost bool
	legacyTrap bool
)

func init() {
	log.Default().SetOutput(os.Stderr)
	flag.StringVar(&cpuProfile, "cpuprofile", "", "Write a CPU profile to the specified file before exiting.")
	flag.StringVar(&memProfile, "memprofile", "", "Write a memory-growth profile to the specified file before exiting.")
	flag.StringVar(&pprofAddr, "pprof-addr", "", "Address where to expose a pprof HTTP endpoint.")
	flag.BoolVar(&sampleHost, "host-time", false, "Keep CPU samples taken with no active function frame (host samples) in the CPU profile.")
	flag.BoolVar(&legacyTrap, "trap-compat", false, "Reproduce the reference implementation's documented i64 overflow and float-division trap bugs instead of the corrected behavior.")
}

func run(ctx context.Context) error {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		return fmt.Errorf("usage: wasmc [flags] <path/to/module.wasm>")
	}

	code, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}

	opts := interp.Options{
		LegacyI64OverflowCheck: legacyTrap,
		LegacyFloatDivTraps:    legacyTrap,
	}

	resolver := host.NewTable()
	m, engine, err := interp.Load(code, resolver, opts)
	if err != nil {
		return fmt.Errorf("loading module: %w", err)
	}

	cpu := profiler.NewCPUProfiler(m)
	cpu.EnableHostTime(sampleHost)
	mem := profiler.NewMemoryProfiler(m)

	if cpuProfile != "" || pprofAddr != "" {
		cpu.Attach(engine)
	}
	if memProfile != "" || pprofAddr != "" {
		mem.Attach(engine)
	}

	if pprofAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/debug/pprof/profile", cpu.NewHandler())
		server := &http.Server{Addr: pprofAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Println(err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = server.Close()
		}()
	}

	if cpuProfile != "" {
		cpu.StartProfile()
		defer writeProfile(cpuProfile, cpu.StopProfile)
	}
	if memProfile != "" {
		mem.StartProfile()
		defer writeProfile(memProfile, mem.StopProfile)
	}

	r := repl.New(m, engine, os.Stdin, os.Stdout)
	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

func writeProfile(path string, stop func() *profile.Profile) {
	prof := stop()
	if prof == nil {
		return
	}
	w, err := os.Create(path)
	if err != nil {
		log.Fatalf("writing profile: %s", err)
	}
	defer w.Close()
	if err := prof.Write(w); err != nil {
		log.Fatalf("writing profile: %s", err)
	}
}
