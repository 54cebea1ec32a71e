package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Fixed protocol and server limits
const (
	// Wire protocol
	MaxDatagramSize  = 550 // outbound datagrams never exceed this
	MinClientMsgSize = 13
	MaxClientMsgSize = 33
	MaxNameLen       = 20

	// Players per round
	MinPlayers = 2
	MaxPlayers = 25

	// A session silent for this long is considered disconnected
	DisconnectAfter = 2000 * time.Millisecond

	// Option defaults
	DefaultPort         = 2021
	DefaultTurningSpeed = 6
	DefaultRoundsPerSec = 50
	DefaultWidth        = 640
	DefaultHeight       = 480
)

// usageLine is printed to stdout on invalid invocation.
const usageLine = "Usage: ./screen-worms-server [-p n] [-s n] [-t n] [-v n] [-w n] [-h n]"

// Options holds the server invocation options.
type Options struct {
	Port         int
	Seed         uint32
	TurningSpeed int
	RoundsPerSec int
	Width        int
	Height       int
}

// TurnDuration is the wall-clock length of one simulation turn,
// truncated to whole milliseconds.
func (o Options) TurnDuration() time.Duration {
	return time.Duration(1000/o.RoundsPerSec) * time.Millisecond
}

// parseOptions resolves the server options from, in increasing
// precedence: built-in defaults, WORMS_* environment variables
// (a .env file is loaded first if present), command-line flags.
func parseOptions(args []string) (Options, error) {
	opts := Options{
		Port:         DefaultPort,
		Seed:         uint32(time.Now().Unix()),
		TurningSpeed: DefaultTurningSpeed,
		RoundsPerSec: DefaultRoundsPerSec,
		Width:        DefaultWidth,
		Height:       DefaultHeight,
	}

	_ = godotenv.Load()
	if err := applyEnv(&opts); err != nil {
		return opts, err
	}

	fs := flag.NewFlagSet("screen-worms-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&opts.Port, "p", opts.Port, "UDP port")
	seed := fs.Int64("s", int64(opts.Seed), "PRNG seed")
	fs.IntVar(&opts.TurningSpeed, "t", opts.TurningSpeed, "degrees per turn on left/right")
	fs.IntVar(&opts.RoundsPerSec, "v", opts.RoundsPerSec, "turns per second")
	fs.IntVar(&opts.Width, "w", opts.Width, "board width in cells")
	fs.IntVar(&opts.Height, "h", opts.Height, "board height in cells")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	opts.Seed = uint32(*seed)
	return opts, validateOptions(opts)
}

func applyEnv(opts *Options) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"WORMS_PORT", &opts.Port},
		{"WORMS_TURNING_SPEED", &opts.TurningSpeed},
		{"WORMS_ROUNDS_PER_SEC", &opts.RoundsPerSec},
		{"WORMS_WIDTH", &opts.Width},
		{"WORMS_HEIGHT", &opts.Height},
	}
	for _, v := range ints {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %v", v.name, err)
		}
		*v.dst = n
	}
	if raw := os.Getenv("WORMS_SEED"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("WORMS_SEED: %v", err)
		}
		opts.Seed = uint32(n)
	}
	return nil
}

func validateOptions(o Options) error {
	if o.Port < 1 || o.Port > 65535 {
		return fmt.Errorf("port out of range: %d", o.Port)
	}
	if o.TurningSpeed < 1 || o.TurningSpeed > 359 {
		return fmt.Errorf("turning speed out of range: %d", o.TurningSpeed)
	}
	if o.RoundsPerSec < 1 || o.RoundsPerSec > 1000 {
		return fmt.Errorf("rounds per second out of range: %d", o.RoundsPerSec)
	}
	if o.Width < 1 || o.Width > 65535 {
		return fmt.Errorf("width out of range: %d", o.Width)
	}
	if o.Height < 1 || o.Height > 65535 {
		return fmt.Errorf("height out of range: %d", o.Height)
	}
	return nil
}
