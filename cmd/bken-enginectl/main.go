// Command bken-enginectl is a headless demo host exercising the whole
// engine pipeline from the CLI, analogous to the teacher's server/main.go
// and client/main.go (a flag-parsed entry point wiring concrete
// implementations into a library's public API) but adapted to this
// repository's domain: instead of starting a voice-chat signaling server,
// it starts an engine Context, creates one tone-generating source, and
// either plays it through a real PortAudio device or renders a fixed number
// of blocks to a raw PCM file.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"

	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/device"
	"github.com/rustyguts/bken-engine/diag"
	"github.com/rustyguts/bken-engine/engine"
	"github.com/rustyguts/bken-engine/generator"
)

func main() {
	headless := flag.Bool("headless", true, "render to -out instead of opening a real audio device")
	out := flag.String("out", "out.pcm", "output file for headless mode (raw interleaved stereo float32)")
	blocks := flag.Int("blocks", 200, "number of blocks to render in headless mode")
	fundamental := flag.Float64("freq", 440.0, "fundamental frequency in Hz for the demo tone")
	diagAddr := flag.String("diag-addr", "", "address for the diag HTTP surface (empty to disable)")
	outputDevice := flag.Int("output-device", -1, "PortAudio output device index (-1 for system default)")
	flag.Parse()

	cfg := config.Default()
	cfg.Headless = *headless
	ctx := engine.NewContext(cfg)

	sh := ctx.CreateDirectSource()
	gh := ctx.CreateFastSineBank(*fundamental, []generator.Partial{{FreqMultiplier: 1, Gain: 1}})
	ctx.AttachGenerator(sh, gh)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		log.Println("[bken-enginectl] shutting down...")
		cancel()
	}()

	if *diagAddr != "" {
		d := diag.New(ctx, 5, 5, log.Default())
		go func() {
			if err := d.Run(runCtx, *diagAddr); err != nil {
				log.Printf("[bken-enginectl] diag server: %v", err)
			}
		}()
	}

	if *headless {
		runHeadless(ctx, *out, *blocks)
		return
	}
	runRealtime(ctx, runCtx, *outputDevice)
}

func runHeadless(ctx *engine.Context, outPath string, blocks int) {
	f, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("[bken-enginectl] create %s: %v", outPath, err)
	}
	defer f.Close()

	outL := make([]float32, config.BlockSize)
	outR := make([]float32, config.BlockSize)
	buf := make([]byte, config.BlockSize*2*4)
	for b := 0; b < blocks; b++ {
		if err := ctx.GetBlock(outL, outR); err != nil {
			log.Fatalf("[bken-enginectl] GetBlock: %v", err)
		}
		for i := 0; i < config.BlockSize; i++ {
			binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(outL[i]))
			binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(outR[i]))
		}
		if _, err := f.Write(buf); err != nil {
			log.Fatalf("[bken-enginectl] write: %v", err)
		}
	}
	log.Printf("[bken-enginectl] rendered %d blocks (%d frames) to %s", blocks, blocks*config.BlockSize, outPath)
}

func runRealtime(ctx *engine.Context, runCtx context.Context, outputDevice int) {
	d := device.NewPortAudio(outputDevice, log.Default())
	if err := ctx.RunRealtime(d); err != nil {
		log.Fatalf("[bken-enginectl] start device: %v", err)
	}

	<-runCtx.Done()

	if err := ctx.StopRealtime(d); err != nil {
		log.Printf("[bken-enginectl] stop device: %v", err)
	}
}
