// Command quill-probe is an interactive probe for Quill transport endpoints.
//
// It connects to a broker or echo endpoint over plain TCP or TLS, sends
// raw payloads, and prints every transport event as it arrives. Useful
// for exercising endpoints during development and for capturing CBOR
// event logs for later inspection with quill-logview.
//
// Usage:
//
//	quill-probe [flags] [location]
//
// Flags:
//
//	-options string   Transport options file (YAML)
//	-log-file string  Write transport events to a CBOR log file
//	-log-level string Log level: debug, info, warn, error (default "info")
//	-insecure         Skip TLS certificate verification
//
// Examples:
//
//	# Connect to a local endpoint and start the interactive prompt
//	quill-probe tcp://localhost:7411
//
//	# TLS endpoint with a custom options file and an event log
//	quill-probe -options probe.yaml -log-file session.qlog tls://broker:7411
//
// Interactive Commands:
//
//	connect <location>  - Connect to an endpoint
//	send <text>         - Send a UTF-8 payload
//	sendhex <hex>       - Send raw bytes given as hex
//	status              - Show transport state
//	discover            - Browse for endpoints via mDNS
//	discover <instance> - Find a named endpoint and connect to it
//	close               - Close the current transport
//	quit                - Exit
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/quill-messaging/quill-go/pkg/discovery"
	"github.com/quill-messaging/quill-go/pkg/log"
	"github.com/quill-messaging/quill-go/pkg/transport"
)

// Config holds the probe configuration.
type Config struct {
	OptionsFile string
	LogFile     string
	LogLevel    string
	Insecure    bool
}

var config Config

func init() {
	flag.StringVar(&config.OptionsFile, "options", "", "Transport options file (YAML)")
	flag.StringVar(&config.LogFile, "log-file", "", "Write transport events to a CBOR log file")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&config.Insecure, "insecure", false, "Skip TLS certificate verification")
}

func main() {
	flag.Parse()

	opts, logger, cleanup, err := buildOptions()
	if err != nil {
		stdlog.Fatalf("Failed to build transport options: %v", err)
	}
	defer cleanup()
	opts.Logger = logger

	probe, err := newProbe(opts)
	if err != nil {
		stdlog.Fatalf("Failed to start probe: %v", err)
	}

	if location := flag.Arg(0); location != "" {
		probe.cmdConnect([]string{location})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probe.run(ctx, cancel)
}

// buildOptions assembles transport options from the flags and the
// optional YAML file, and wires up event logging.
func buildOptions() (transport.Options, log.Logger, func(), error) {
	opts := transport.DefaultOptions()
	cleanup := func() {}

	if config.OptionsFile != "" {
		loaded, err := transport.LoadOptionsFile(config.OptionsFile)
		if err != nil {
			return opts, nil, cleanup, err
		}
		opts = loaded
	}

	if config.Insecure {
		if opts.TLS == nil {
			opts.TLS = &transport.TLSConfig{}
		}
		opts.TLS.InsecureSkipVerify = true
	}

	var loggers []log.Logger

	if config.LogLevel == "debug" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, log.NewSlogAdapter(slog.New(handler)))
	}

	if config.LogFile != "" {
		fileLogger, err := log.NewFileLogger(config.LogFile)
		if err != nil {
			return opts, nil, cleanup, err
		}
		cleanup = func() { fileLogger.Close() }
		loggers = append(loggers, fileLogger)
	}

	switch len(loggers) {
	case 0:
		return opts, log.NoopLogger{}, cleanup, nil
	case 1:
		return opts, loggers[0], cleanup, nil
	default:
		return opts, log.NewMultiLogger(loggers...), cleanup, nil
	}
}

// probe drives one transport at a time from the interactive prompt.
type probe struct {
	rl   *readline.Instance
	opts transport.Options

	tr *transport.TCPTransport
}

func newProbe(opts transport.Options) (*probe, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "quill> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &probe{rl: rl, opts: opts}, nil
}

// stdout returns a writer that coordinates with the readline prompt.
func (p *probe) stdout() io.Writer {
	return p.rl.Stdout()
}

// run starts the interactive command loop.
func (p *probe) run(ctx context.Context, cancel context.CancelFunc) {
	defer p.rl.Close()
	defer p.cmdClose()

	p.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := p.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(p.stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			p.printHelp()

		case "connect", "c":
			p.cmdConnect(args)

		case "send", "s":
			p.cmdSend(strings.TrimSpace(strings.TrimPrefix(input, parts[0])))

		case "sendhex":
			p.cmdSendHex(args)

		case "status":
			p.cmdStatus()

		case "discover", "d":
			p.cmdDiscover(ctx, args)

		case "close":
			p.cmdClose()

		case "quit", "exit", "q":
			fmt.Fprintln(p.stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(p.stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (p *probe) printHelp() {
	fmt.Fprintln(p.stdout(), `
Quill Probe Commands:
  connect <location>  - Connect (tcp://host:port, tls://host:port, host:port)
  send <text>         - Send a UTF-8 payload
  sendhex <hex>       - Send raw bytes given as hex (e.g. sendhex 48656c6c6f)
  status              - Show transport state and addresses
  discover            - Browse for endpoints via mDNS
  discover <instance> - Find a named endpoint and connect to it
  close               - Close the current transport
  quit                - Exit`)
}

func (p *probe) cmdConnect(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(p.stdout(), "Usage: connect <location>")
		return
	}

	if p.tr != nil && p.tr.IsConnected() {
		fmt.Fprintln(p.stdout(), "Already connected; close first")
		return
	}

	tr, err := transport.New(&printingListener{out: p.stdout}, args[0], p.opts)
	if err != nil {
		fmt.Fprintf(p.stdout(), "Invalid location: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.ConnectTimeout)
	defer cancel()

	if err := tr.Connect(ctx); err != nil {
		fmt.Fprintf(p.stdout(), "Connect failed: %v\n", err)
		return
	}

	p.tr = tr
	fmt.Fprintf(p.stdout(), "Connected to %s (conn %s)\n", tr.RemoteAddr(), tr.ConnID())
}

func (p *probe) cmdSend(text string) {
	if text == "" {
		fmt.Fprintln(p.stdout(), "Usage: send <text>")
		return
	}
	p.doSend([]byte(text))
}

func (p *probe) cmdSendHex(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(p.stdout(), "Usage: sendhex <hex>")
		return
	}

	data, err := hex.DecodeString(args[0])
	if err != nil {
		fmt.Fprintf(p.stdout(), "Invalid hex: %v\n", err)
		return
	}
	p.doSend(data)
}

func (p *probe) doSend(data []byte) {
	if p.tr == nil {
		fmt.Fprintln(p.stdout(), "Not connected")
		return
	}

	if err := p.tr.Send(data); err != nil {
		fmt.Fprintf(p.stdout(), "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(p.stdout(), "Sent %d bytes\n", len(data))
}

func (p *probe) cmdStatus() {
	if p.tr == nil {
		fmt.Fprintln(p.stdout(), "No transport")
		return
	}

	fmt.Fprintf(p.stdout(), "Location:  %s\n", p.tr.Location())
	fmt.Fprintf(p.stdout(), "State:     %s\n", p.tr.State())
	if p.tr.IsConnected() {
		fmt.Fprintf(p.stdout(), "Local:     %s\n", p.tr.LocalAddr())
		fmt.Fprintf(p.stdout(), "Remote:    %s\n", p.tr.RemoteAddr())
	}
	fmt.Fprintf(p.stdout(), "Conn ID:   %s\n", p.tr.ConnID())
}

func (p *probe) cmdDiscover(ctx context.Context, args []string) {
	browser := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())

	// With an instance name, resolve that endpoint and connect to it.
	if len(args) == 1 {
		ep, err := browser.Find(ctx, args[0])
		if err != nil {
			fmt.Fprintf(p.stdout(), "Find failed: %v\n", err)
			return
		}
		fmt.Fprintf(p.stdout(), "Found %s at %s (id=%s, v%d)\n",
			ep.Instance, ep.Location(), ep.ID, ep.Version)
		p.cmdConnect([]string{ep.Location()})
		return
	}

	browseCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	endpoints, err := browser.Browse(browseCtx)
	if err != nil {
		fmt.Fprintf(p.stdout(), "Browse failed: %v\n", err)
		return
	}

	fmt.Fprintln(p.stdout(), "Browsing for endpoints (5s)...")
	found := 0
	for ep := range endpoints {
		found++
		fmt.Fprintf(p.stdout(), "  %-20s %s (id=%s, v%d)\n",
			ep.Instance, ep.Location(), ep.ID, ep.Version)
	}
	if found == 0 {
		fmt.Fprintln(p.stdout(), "No endpoints found")
	}
}

func (p *probe) cmdClose() {
	if p.tr == nil {
		return
	}
	if err := p.tr.Close(); err != nil {
		fmt.Fprintf(p.stdout(), "Close failed: %v\n", err)
		return
	}
	fmt.Fprintln(p.stdout(), "Transport closed")
	p.tr = nil
}

// printingListener prints transport events to the readline output.
type printingListener struct {
	out func() io.Writer
}

func (l *printingListener) OnData(data []byte) {
	fmt.Fprintf(l.out(), "<< %d bytes: %s\n", len(data), previewBytes(data))
}

func (l *printingListener) OnTransportClosed() {
	fmt.Fprintln(l.out(), "<< connection closed by peer")
}

func (l *printingListener) OnTransportError(err error) {
	fmt.Fprintf(l.out(), "<< transport error: %v\n", err)
}

// previewBytes renders a payload prefix, escaping non-printable bytes.
func previewBytes(data []byte) string {
	const maxPreview = 64

	truncated := false
	if len(data) > maxPreview {
		data = data[:maxPreview]
		truncated = true
	}

	var b strings.Builder
	for _, c := range data {
		if c >= 0x20 && c < 0x7f {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "\\x%02x", c)
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
