package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/leandrodaf/midisynth/internal/command"
	"github.com/leandrodaf/midisynth/internal/config"
	"github.com/leandrodaf/midisynth/internal/version"
	"github.com/leandrodaf/midisynth/sdk/contracts"
	"github.com/leandrodaf/midisynth/sdk/midisynth"
	"golang.org/x/term"
)

const program = "midisynth"

// cliArgs is the parsed command line.
type cliArgs struct {
	command    string
	file       string
	output     string
	configPath string
	flags      config.Config
	help       bool
	version    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [options]\n\n", program)
	fmt.Fprint(w, `Commands:
  play <file.mid>        Play a MIDI file
  render <file.mid>      Render a MIDI file to WAV (-o out.wav)
  serve                  Run as MIDI service (system sequencer port)
  listen                 Real-time mode (text commands from stdin)
  list-instruments       List instruments in soundfont
  list-ports             List MIDI sources

Options:
  --sf2 <path>           Path to SoundFont file (.sf2 or .sf3)
  --socket <path>        Listen on Unix socket instead of stdin
  --name <name>          Sequencer client name (default: midisynth)
  --device <id>          Source to connect to where virtual ports are unavailable
  --config <path>        YAML file with default options
  --log-level <level>    debug, info, warn or error
  --log-file <path>      Write logs to a file
  --watch                Reload the soundfont when it changes
  -o <path>              Output file for render
  -v, --version          Print version
  -h, --help             Show this help

Real-time text commands (for 'listen' mode):
`)
	fmt.Fprintln(w, command.Usage)
}

// parseArgs accepts flags before, between and after the positional arguments.
func parseArgs(args []string) (cliArgs, error) {
	var a cliArgs
	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&a.flags.SoundFont, "sf2", "", "soundfont path")
	fs.StringVar(&a.flags.Socket, "socket", "", "unix socket path")
	fs.StringVar(&a.flags.ClientName, "name", "", "sequencer client name")
	fs.Func("device", "source device id", func(s string) error {
		id, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid device id %q", s)
		}
		a.flags.DeviceID = &id
		return nil
	})
	fs.StringVar(&a.configPath, "config", "", "config file")
	fs.StringVar(&a.flags.LogLevel, "log-level", "", "log level")
	fs.StringVar(&a.flags.LogFile, "log-file", "", "log file")
	fs.BoolVar(&a.flags.Watch, "watch", false, "reload the soundfont on change")
	fs.StringVar(&a.output, "o", "", "render output")
	fs.BoolVar(&a.help, "help", false, "show help")
	fs.BoolVar(&a.help, "h", false, "show help")
	fs.BoolVar(&a.version, "version", false, "print version")
	fs.BoolVar(&a.version, "v", false, "print version")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return a, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
	if len(positional) > 0 {
		a.command = positional[0]
	}
	if len(positional) > 1 {
		a.file = positional[1]
	}
	if err := a.flags.Validate(); err != nil {
		return a, err
	}
	return a, nil
}

// loadConfig layers the command line flags over the config file, if any.
func loadConfig(a cliArgs) (config.Config, error) {
	if a.configPath == "" {
		return a.flags, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, err
	}
	return cfg.Merge(a.flags), nil
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	a, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		printUsage(stderr)
		return 1
	}
	switch {
	case a.version:
		fmt.Fprintln(stdout, version.Banner(program))
		return 0
	case a.help:
		printUsage(stdout)
		return 0
	case a.command == "":
		printUsage(stderr)
		return 1
	}

	switch a.command {
	case "play", "render":
		if a.file == "" {
			fmt.Fprintln(stderr, "Error: No MIDI file specified")
			printUsage(stderr)
			return 1
		}
		if a.output == "" {
			a.output = strings.TrimSuffix(a.file, filepath.Ext(a.file)) + ".wav"
		}
	case "serve", "listen", "list-instruments", "list-ports":
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", a.command)
		printUsage(stderr)
		return 1
	}

	cfg, err := loadConfig(a)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	svc, err := midisynth.NewService(append(cfg.Options(), contracts.WithSoundFont(cfg.SoundFont))...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, svc, a, cfg, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, svc *midisynth.Service, a cliArgs, cfg config.Config, stdin *os.File, stdout io.Writer) error {
	switch a.command {
	case "play":
		fmt.Fprintf(stdout, "Playing %s (Ctrl+C to stop)\n", a.file)
		if err := svc.Play(ctx, a.file); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Playback finished")

	case "render":
		if err := svc.Render(ctx, a.file, a.output); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", a.output)

	case "listen":
		return svc.Listen(ctx, midisynth.ListenOptions{
			Socket: cfg.Socket,
			Input:  stdin,
			OnReady: func() {
				switch {
				case cfg.Socket != "":
					fmt.Fprintf(stdout, "Listening on %s\n", cfg.Socket)
				case term.IsTerminal(int(stdin.Fd())):
					fmt.Fprintln(stdout, "Ready for commands (type 'quit' to exit):")
				}
			},
		})

	case "serve":
		return svc.Serve(ctx, func(name string) {
			fmt.Fprintf(stdout, "MIDI service running on port %s (Ctrl+C to stop)\n", name)
			if runtime.GOOS == "linux" {
				fmt.Fprintf(stdout, "  Use 'aconnect <source> %s' to connect\n", name)
			}
		})

	case "list-instruments":
		names, err := svc.ListInstruments()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Instruments in %s (%d presets):\n\n", svc.SoundFont(), len(names))
		for i, name := range names {
			fmt.Fprintf(stdout, "  %3d: %s\n", i, name)
		}

	case "list-ports":
		ports, err := svc.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(stdout, "No MIDI sources found")
		}
		for i, p := range ports {
			fmt.Fprintf(stdout, "  %3d: %s", i, p.Name)
			if p.Manufacturer != "" {
				fmt.Fprintf(stdout, " (%s)", p.Manufacturer)
			}
			fmt.Fprintln(stdout)
		}
	}
	return nil
}
