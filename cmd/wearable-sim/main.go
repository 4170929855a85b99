// wearable-sim emula o bridge do wearable: serve frames simulados por TCP
// (registros com prefixo de tamanho) ou os publica em lotes no NATS.
package main

import (
	"bufio"
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitals_go/internal/config"
	"vitals_go/internal/frame"
	"vitals_go/internal/sensor"
	"vitals_go/internal/stream"
	"vitals_go/pkg/logger"
)

type options struct {
	sim           config.SimulatorConfig
	rate          float64
	batch         int
	reattachEvery time.Duration
}

func main() {
	var (
		mode     = flag.String("mode", "tcp", "transporte: tcp ou nats")
		listen   = flag.String("listen", ":7070", "endereço TCP de escuta")
		natsURL  = flag.String("nats", "nats://127.0.0.1:4222", "URL do NATS")
		subject  = flag.String("subject", "vitals.frames", "subject de frames")
		hr       = flag.Float64("hr", 72, "frequência cardíaca simulada (bpm)")
		spo2     = flag.Float64("spo2", 97, "SpO2 simulado (%)")
		rate     = flag.Float64("fs", 50, "taxa de amostragem (Hz)")
		batch    = flag.Int("batch", 10, "frames por mensagem NATS")
		motion   = flag.Int("motion-every", 30, "intervalo entre rajadas de movimento (s, 0 desliga)")
		reattach = flag.Duration("reattach-every", 0, "intervalo entre eventos de recolocação (0 desliga)")
		seed     = flag.Int64("seed", 1, "semente do ruído")
	)
	flag.Parse()
	logger.Init()

	opts := options{
		sim: config.SimulatorConfig{
			HeartRate:      *hr,
			SpO2:           *spo2,
			MotionEverySec: *motion,
			MotionSec:      3,
			AccelNoise:     0.003,
			OpticalNoise:   2,
			Seed:           *seed,
		},
		rate:          *rate,
		batch:         *batch,
		reattachEvery: *reattach,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch *mode {
	case "tcp":
		err = serveTCP(ctx, *listen, opts)
	case "nats":
		err = publishNATS(ctx, *natsURL, *subject, opts)
	default:
		logger.Fatalf("modo desconhecido: %s", *mode)
	}
	if err != nil {
		logger.Fatal("Simulador encerrado com erro", err)
	}
	logger.Info("Simulador encerrado")
}

// serveTCP aceita conexões e transmite um simulador independente para cada uma
func serveTCP(ctx context.Context, addr string, opts options) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	logger.Infof("Servindo frames simulados em %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go streamTCP(ctx, conn, opts)
	}
}

func streamTCP(ctx context.Context, conn net.Conn, opts options) {
	defer conn.Close()
	logger.Infof("Cliente conectado: %s", conn.RemoteAddr())

	sim := sensor.NewSimulator(opts.sim, opts.rate)
	w := bufio.NewWriter(conn)

	err := run(ctx, sim, opts, func(frames []byte, reattach bool) error {
		if reattach {
			if err := sensor.WriteRecord(w, nil); err != nil {
				return err
			}
		}
		for off := 0; off < len(frames); off += frame.Size {
			if err := sensor.WriteRecord(w, frames[off:off+frame.Size]); err != nil {
				return err
			}
		}
		return w.Flush()
	})
	if err != nil {
		logger.Warnf("Cliente %s desconectado: %v", conn.RemoteAddr(), err)
	}
}

// publishNATS publica lotes de frames no subject e recolocações em subject.attach
func publishNATS(ctx context.Context, url, subject string, opts options) error {
	nc, err := stream.Connect(config.NATSConfig{URL: url, Name: "wearable-sim"})
	if err != nil {
		return err
	}
	defer nc.Drain()

	sim := sensor.NewSimulator(opts.sim, opts.rate)
	logger.Infof("Publicando frames simulados em %s (%d por mensagem)", subject, opts.batch)

	return run(ctx, sim, opts, func(frames []byte, reattach bool) error {
		if reattach {
			if err := nc.Publish(subject+stream.AttachSuffix, nil); err != nil {
				return err
			}
		}
		return nc.Publish(subject, frames)
	})
}

// run gera frames na taxa configurada e entrega lotes de opts.batch frames
func run(ctx context.Context, sim *sensor.Simulator, opts options, emit func(frames []byte, reattach bool) error) error {
	batch := opts.batch
	if batch < 1 {
		batch = 1
	}

	ticker := time.NewTicker(time.Duration(float64(time.Second) / opts.rate))
	defer ticker.Stop()

	lastAttach := time.Now()
	buffer := make([]byte, 0, batch*frame.Size)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		buffer = append(buffer, sim.NextFrame()...)
		if len(buffer) < batch*frame.Size {
			continue
		}

		reattach := opts.reattachEvery > 0 && time.Since(lastAttach) >= opts.reattachEvery
		if reattach {
			lastAttach = time.Now()
		}
		if err := emit(buffer, reattach); err != nil {
			return err
		}
		buffer = buffer[:0]
	}
}
