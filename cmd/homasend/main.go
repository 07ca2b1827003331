// Command homasend is a small demonstration daemon around the homa
// package's outbound sender core: it fragments and sends one message
// to a destination given on the command line, then logs a periodic
// metrics snapshot until interrupted.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	"github.com/homa-go/homa"
	"github.com/homa-go/homa/internal/protocol"
)

func main() {
	fs := pflag.NewFlagSet("homasend", pflag.ExitOnError)
	setupFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if v, _ := fs.GetBool("version"); v {
		fmt.Println("homasend v0.1.0")
		return
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	undoMaxProcs, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug().Msgf(format, args...)
	}))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to set GOMAXPROCS from cgroup limits")
	} else {
		defer undoMaxProcs()
	}

	dest := ":0"
	if args := fs.Args(); len(args) > 0 {
		dest = args[0]
	}

	xmit, err := newUDPTransmitter(cfg.ListenAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open UDP socket")
	}
	defer xmit.Close()

	h := homa.New(&homa.Config{
		LinkMbps:         cfg.LinkMbps,
		MaxNICQueueNs:    cfg.MaxNICQueueNs,
		RTTBytes:         protocol.ByteCount(cfg.RTTBytes),
		ThrottleMinBytes: protocol.ByteCount(cfg.ThrottleMinBytes),
		MaxPrio:          protocol.Priority(cfg.MaxPrio),
		CPUKHz:           cfg.CPUKHz,
		DontThrottle:     cfg.DontThrottle,
		Logger:           zerologAdapter{logger},
	}, xmit)
	defer h.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The demo send and the diagnostic loop run as independent tasks
	// under one group: a failure in either cancels ctx for the other,
	// and Wait reports the first error.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sendDemoMessage(h, dest) })
	g.Go(func() error { return runDiagnosticLoop(gctx, logger, h) })

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("homasend exiting with error")
		os.Exit(1)
	}
}

// sendDemoMessage fragments and hands off a small fixed payload to
// the sender core, exercising Init + SendData against a real UDP
// socket end to end.
func sendDemoMessage(h *homa.Homa, dest string) error {
	addr, err := resolveUDPAddr(dest)
	if err != nil {
		return fmt.Errorf("resolving destination: %w", err)
	}

	peer := &udpPeer{
		route:       udpRoute{addr: addr},
		cutoffBytes: 1400,
		highPrio:    protocol.MaxPrio,
		lowPrio:     0,
	}
	alloc := homa.NewPoolAllocator()
	payload := bytes.Repeat([]byte("homasend"), 512) // 4096 bytes, several packets.

	out, err := homa.InitOutboundMessage(bytes.NewReader(payload), protocol.ByteCount(len(payload)), peer, 80, 40000, 1, h.Config.RTTBytes, alloc)
	if err != nil {
		return fmt.Errorf("building outbound message: %w", err)
	}
	out.Granted = out.Length // demo: grant the whole message up front.

	rpc := homa.NewRPC(true, 40000, 0, 80, 1, peer, out)
	rpc.Lock()
	h.SendData(rpc)
	rpc.Unlock()
	return nil
}

// runDiagnosticLoop logs a rate-limited metrics snapshot until ctx is
// canceled (SIGINT/SIGTERM, or the demo send failing).
func runDiagnosticLoop(ctx context.Context, logger zerolog.Logger, h *homa.Homa) error {
	limiter := ratelimit.New(1) // at most one snapshot per second.
	for {
		limiter.Take()
		if ctx.Err() != nil {
			logger.Info().Msg("shutting down")
			return nil
		}
		logger.Info().
			Float64("data_packets_sent", counterValue(h, "DATA")).
			Msg("metrics snapshot")
	}
}

// counterValue reads the current value of the PacketsSent counter for
// one packet type, for the diagnostic loop above.
func counterValue(h *homa.Homa, packetType string) float64 {
	return testutil.ToFloat64(h.Metrics().PacketsSent.WithLabelValues(packetType))
}
