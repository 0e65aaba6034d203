package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/matheus3301/walink/internal/api"
	"github.com/matheus3301/walink/internal/bus"
	"github.com/matheus3301/walink/internal/client"
	"github.com/matheus3301/walink/internal/config"
	"github.com/matheus3301/walink/internal/connection"
	"github.com/matheus3301/walink/internal/session"
)

func main() {
	configFlag := flag.String("config", "walink.toml", "path to config file")
	socketFlag := flag.String("socket", "", "daemon socket (overrides config)")
	instanceFlag := flag.String("instance", "", "instance id (default: the only hosted instance)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	startFlag := flag.Bool("start", false, "start walinkd if it is not running")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	socketPath := resolveSocket(*configFlag, *socketFlag)
	if !probeDaemon(socketPath) {
		if !*startFlag {
			fmt.Fprintf(os.Stderr, "error: daemon not reachable at %s (use --start)\n", socketPath)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "daemon not running, starting...")
		if err := startDaemon(*configFlag); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		if !waitForDaemon(socketPath, 10*time.Second) {
			fmt.Fprintln(os.Stderr, "daemon did not become ready")
			os.Exit(1)
		}
	}

	c, err := api.Dial(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	inst := *instanceFlag
	switch args[0] {
	case "instances":
		cmdInstances(ctx, c, *jsonFlag)
	case "pair":
		cmdPair(ctx, c, inst)
	case "events":
		ns := ""
		if len(args) > 1 {
			ns = args[1]
		}
		cmdEvents(ctx, c, inst, ns)
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: walinkctl send <to> <text...>")
			os.Exit(1)
		}
		call(ctx, c, inst, "send.text", map[string]any{"to": args[1], "text": strings.Join(args[2:], " ")}, *jsonFlag)
	case "messages":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: walinkctl messages <chat>")
			os.Exit(1)
		}
		call(ctx, c, inst, "messages", map[string]any{"chat": args[1]}, *jsonFlag)
	case "call":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: walinkctl call <method> [key=value | key:=json | key@=file ...]")
			os.Exit(1)
		}
		params, err := parseParams(args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		call(ctx, c, inst, args[1], params, *jsonFlag)
	default:
		// Parameterless methods: status, connect, contacts, chats, ...
		params, err := parseParams(args[1:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		call(ctx, c, inst, args[0], params, *jsonFlag)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: walinkctl [--config <file>] [--socket <path>] [--instance <id>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  instances                List hosted instances")
	fmt.Fprintln(os.Stderr, "  status                   Show connection state")
	fmt.Fprintln(os.Stderr, "  pair                     Connect and show QR codes until linked")
	fmt.Fprintln(os.Stderr, "  connect | disconnect     Start or stop the session")
	fmt.Fprintln(os.Stderr, "  logout                   End the session and forget credentials")
	fmt.Fprintln(os.Stderr, "  contacts | chats         List known contacts or chats")
	fmt.Fprintln(os.Stderr, "  groups | labels          List groups (live) or labels")
	fmt.Fprintln(os.Stderr, "  messages <chat>          List messages received in a chat")
	fmt.Fprintln(os.Stderr, "  send <to> <text...>     Send a text message")
	fmt.Fprintln(os.Stderr, "  events [namespace]       Stream notifications, e.g. \"message.\"")
	fmt.Fprintln(os.Stderr, "  call <method> [args]     Run any control method")
}

func resolveSocket(configPath, override string) string {
	if override != "" {
		return override
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Defaults()
	}
	if cfg.Socket != "" {
		return cfg.Socket
	}
	return session.SocketPath(cfg.SessionPath)
}

func call(ctx context.Context, c *api.Client, inst, method string, params map[string]any, jsonOut bool) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	res, err := c.Call(ctx, inst, method, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(res)
	} else {
		printResult(res)
	}
	if !res.Success {
		os.Exit(1)
	}
}

func printResult(res client.Result) {
	if !res.Success {
		fmt.Fprintf(os.Stderr, "failed: %s\n", res.Error)
		return
	}
	switch data := res.Data.(type) {
	case nil:
		fmt.Println("ok")
	case string:
		fmt.Println(data)
	default:
		outputJSON(data)
	}
}

func cmdInstances(ctx context.Context, c *api.Client, jsonOut bool) {
	ids, err := c.Instances(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(ids)
		return
	}
	for _, id := range ids {
		fmt.Println(id)
	}
}

// cmdPair asks the instance to connect and renders every QR code it
// rotates through until the session is ready or ends.
func cmdPair(ctx context.Context, c *api.Client, inst string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errDone := errors.New("done")
	err := c.Events(ctx, inst, "", func(e api.Event) error {
		switch e.Kind {
		case api.KindStreamOpen:
			if state, _ := payloadField(e, "state").(string); state == "connected" {
				fmt.Println("Already connected.")
				return errDone
			}
			res, err := c.Call(ctx, inst, "connect", nil)
			if err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Error)
			}
		case bus.KindQRCode:
			code, _ := payloadField(e, "code").(string)
			fmt.Print("\033[H\033[2J")
			fmt.Println("Scan with WhatsApp > Linked devices:")
			fmt.Println()
			fmt.Print(renderQR(code))
		case bus.KindSessionSaved:
			fmt.Println("Linked.")
		case bus.KindReady:
			fmt.Println("Connected.")
			return errDone
		case bus.KindError:
			msg, _ := payloadField(e, "message").(string)
			fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		case bus.KindDisconnected:
			reason, _ := payloadField(e, "reason").(string)
			if terminal, _ := payloadField(e, "terminal").(bool); terminal || reason == connection.ReasonPairingEnded {
				return fmt.Errorf("pairing stopped: %s", reason)
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDone) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdEvents(ctx context.Context, c *api.Client, inst, namespace string) {
	enc := json.NewEncoder(os.Stdout)
	err := c.Events(ctx, inst, namespace, func(e api.Event) error {
		return enc.Encode(map[string]any{
			"id":        e.ID,
			"instance":  e.Instance,
			"kind":      e.Kind,
			"timestamp": e.Timestamp.Format(time.RFC3339Nano),
			"payload":   e.Payload,
		})
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func payloadField(e api.Event, key string) any {
	m, _ := e.Payload.(map[string]any)
	return m[key]
}

// probeDaemon checks if a daemon is running and responsive on the socket.
func probeDaemon(socketPath string) bool {
	c, err := api.Dial(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Instances(ctx)
	return err == nil
}

func startDaemon(configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	walinkd := filepath.Join(filepath.Dir(executable), "walinkd")
	if _, err := os.Stat(walinkd); err != nil {
		walinkd = "walinkd"
	}

	cmd := exec.Command(walinkd, "--config", configPath)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls the daemon with a real gRPC call (not just socket connect).
func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
