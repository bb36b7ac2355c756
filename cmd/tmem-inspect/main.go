// Command tmem-inspect fetches the diagnostic snapshot a tmem-embedding
// service exposes at /debug/tmem/snapshot and prints it
// either as pretty text or JSON. Supports one-shot and periodic watch modes.
//
// The target service is expected to expose:
//   GET /debug/tmem/snapshot — JSON payload matching tmem.Stats.
//
// Build-time flag: `-ldflags "-X main.version=vX.Y.Z"`.
//
// © 2025 arena-cache authors. MIT License.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var version = "dev"

type options struct {
	target   string
	watch    bool
	interval time.Duration
	json     bool
	version  bool
}

func parseFlags() *options {
	o := &options{}
	flag.StringVar(&o.target, "target", "http://localhost:6060", "base URL of the tmem-embedding service")
	flag.BoolVar(&o.watch, "watch", false, "poll the snapshot endpoint repeatedly")
	flag.DurationVar(&o.interval, "interval", 2*time.Second, "polling interval in watch mode")
	flag.BoolVar(&o.json, "json", false, "emit raw JSON instead of a pretty summary")
	flag.BoolVar(&o.version, "version", false, "print the tool version and exit")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	if opts.version {
		fmt.Println(version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if opts.watch {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			if err := dumpOnce(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}

	if err := dumpOnce(ctx, opts); err != nil {
		fatal(err)
	}
}

func dumpOnce(ctx context.Context, opts *options) error {
	snap, err := fetchSnapshot(ctx, opts.target)
	if err != nil {
		return err
	}
	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return prettyPrint(snap)
}

func fetchSnapshot(ctx context.Context, base string) (map[string]any, error) {
	url := base + "/debug/tmem/snapshot"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	var data map[string]any
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func prettyPrint(data map[string]any) error {
	fmt.Printf("Backend:     %v\n", data["BackendName"])
	fmt.Printf("Puts:        %v\n", data["Puts"])
	fmt.Printf("Gets:        %v\n", data["Gets"])
	fmt.Printf("Invalidates: %v\n", data["Invalidates"])
	fmt.Printf("Controls:    %v\n", data["Controls"])
	fmt.Printf("Generates:   %v\n", data["Generates"])
	fmt.Printf("Busy:        %v\n", data["Busy"])
	fmt.Printf("BackendCalls:%v\n", data["BackendCalls"])
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "tmem-inspect:", err)
	os.Exit(1)
}
