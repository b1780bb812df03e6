// ABOUTME: Operator CLI for realtime-gateway identity, token, and broadcast management
// ABOUTME: Talks to the admin HTTP API; tail streams live events over the socket

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/fatih/color"
)

// adminConfig is read from ~/.config/realtime-gateway/admin.toml.
// Environment variables override file values.
type adminConfig struct {
	GatewayURL string `toml:"gateway_url"`
	Token      string `toml:"token"`
}

func loadConfig() adminConfig {
	cfg := adminConfig{GatewayURL: "http://localhost:8080"}

	path := os.Getenv("GATEWAY_ADMIN_CONFIG")
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".config", "realtime-gateway", "admin.toml")
		}
	}
	if path != "" {
		// A missing file is fine; flags and env still work.
		_, _ = toml.DecodeFile(path, &cfg)
	}

	if url := os.Getenv("GATEWAY_URL"); url != "" {
		cfg.GatewayURL = url
	}
	if token := os.Getenv("GATEWAY_TOKEN"); token != "" {
		cfg.Token = token
	}
	return cfg
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := loadConfig()
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "identities":
		err = cmdIdentities(cfg, args)
	case "token":
		err = cmdToken(cfg, args)
	case "broadcast":
		err = cmdBroadcast(cfg, args)
	case "tail":
		err = cmdTail(cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func printUsage() {
	yellow := color.New(color.FgYellow)

	fmt.Println("Usage: realtime-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  identities               List identities")
	fmt.Println("  identities create        Create an identity (--handle, --password, --name)")
	fmt.Println("  token create <identity>  Mint a JWT for an identity (--ttl)")
	fmt.Println("  broadcast <message>      Push a system event to every connected identity")
	fmt.Println("  tail                     Stream your live events to stdout")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  GATEWAY_URL              Gateway base URL (default: http://localhost:8080)")
	fmt.Println("  GATEWAY_TOKEN            JWT for an admin identity (required)")
	fmt.Println("  GATEWAY_ADMIN_CONFIG     Path to admin.toml (default: ~/.config/realtime-gateway/admin.toml)")
	fmt.Println()
}

// call performs an authenticated JSON request and decodes the response.
func call(cfg adminConfig, method, path string, body, out any) error {
	if cfg.Token == "" {
		return fmt.Errorf("no token configured: set GATEWAY_TOKEN or admin.toml")
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, cfg.GatewayURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type identityView struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
}

func cmdIdentities(cfg adminConfig, args []string) error {
	if len(args) > 0 && args[0] == "create" {
		return cmdIdentitiesCreate(cfg, args[1:])
	}

	var list []identityView
	if err := call(cfg, http.MethodGet, "/api/admin/identities", nil, &list); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHANDLE\tDISPLAY NAME")
	for _, i := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", i.ID, i.Handle, i.DisplayName)
	}
	return w.Flush()
}

func cmdIdentitiesCreate(cfg adminConfig, args []string) error {
	var handle, password, name string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--handle":
			i++
			if i >= len(args) {
				return fmt.Errorf("--handle requires a value")
			}
			handle = args[i]
		case "--password":
			i++
			if i >= len(args) {
				return fmt.Errorf("--password requires a value")
			}
			password = args[i]
		case "--name":
			i++
			if i >= len(args) {
				return fmt.Errorf("--name requires a value")
			}
			name = args[i]
		default:
			return fmt.Errorf("unexpected argument: %s", args[i])
		}
	}
	if handle == "" || password == "" {
		return fmt.Errorf("--handle and --password are required")
	}

	var created identityView
	err := call(cfg, http.MethodPost, "/api/admin/identities", map[string]string{
		"handle":       handle,
		"password":     password,
		"display_name": name,
	}, &created)
	if err != nil {
		return err
	}

	color.Green("Created %s (%s)", created.Handle, created.ID)
	return nil
}

func cmdToken(cfg adminConfig, args []string) error {
	if len(args) < 2 || args[0] != "create" {
		return fmt.Errorf("usage: realtime-admin token create <identity-id> [--ttl 24h]")
	}
	identityID := args[1]

	ttl := ""
	for i := 2; i < len(args); i++ {
		if args[i] == "--ttl" {
			i++
			if i >= len(args) {
				return fmt.Errorf("--ttl requires a value")
			}
			ttl = args[i]
		}
	}

	var resp map[string]string
	err := call(cfg, http.MethodPost, "/api/admin/tokens", map[string]string{
		"identity_id": identityID,
		"ttl":         ttl,
	}, &resp)
	if err != nil {
		return err
	}

	fmt.Println(resp["token"])
	return nil
}

func cmdBroadcast(cfg adminConfig, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: realtime-admin broadcast <message>")
	}
	message := strings.Join(args, " ")

	err := call(cfg, http.MethodPost, "/api/admin/broadcast", map[string]string{
		"message": message,
	}, nil)
	if err != nil {
		return err
	}

	color.Green("Broadcast sent")
	return nil
}

// cmdTail connects to the socket endpoint and prints every event as it
// arrives, until interrupted.
func cmdTail(cfg adminConfig) error {
	if cfg.Token == "" {
		return fmt.Errorf("no token configured: set GATEWAY_TOKEN or admin.toml")
	}

	wsURL := strings.Replace(cfg.GatewayURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL += "/api/ws?token=" + cfg.Token

	ctx := context.Background()
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to socket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	gray := color.New(color.FgHiBlack)
	cyan := color.New(color.FgCyan)
	color.Green("Connected, tailing events (Ctrl-C to stop)")

	for {
		var ev struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return fmt.Errorf("socket closed: %w", err)
		}

		gray.Printf("%s ", time.Now().Format("15:04:05"))
		cyan.Printf("%-18s ", ev.Event)
		fmt.Println(string(ev.Data))
	}
}
