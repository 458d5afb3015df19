package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dupewatch-io/dupewatch/internal/assist"
	"github.com/dupewatch-io/dupewatch/internal/config"
	"github.com/dupewatch-io/dupewatch/internal/provider"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth()
	case "events":
		cmdEvents(os.Args[2:])
	case "logs":
		cmdLogs(os.Args[2:])
	case "draft":
		cmdDraft(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: dupewatchctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdEvents(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	body, err := apiGet(fmt.Sprintf("/api/events?limit=%d", *limit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var markers []map[string]any
	json.Unmarshal(body, &markers)
	for _, m := range markers {
		fmt.Printf("%-32s %s\n", m["id"], m["seen_at"])
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (info|warn|error)")
	limit := fs.Int("limit", 100, "Max results")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}

	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var entries []map[string]any
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Printf("%-24s %-5s %s\n", e["time"], e["level"], e["message"])
	}
}

// cmdDraft runs the draft step directly against a provider, bypassing the
// daemon. Handy for tuning the prompt without a Slack round trip.
func cmdDraft(args []string) {
	fs := flag.NewFlagSet("draft", flag.ExitOnError)
	provType := fs.String("provider", envOr("DUPEWATCH_PROVIDER", "anthropic"), "Provider type: anthropic or openai")
	model := fs.String("model", envOr("DUPEWATCH_MODEL", ""), "LLM model name")
	apiKey := fs.String("api-key", "", "API key (or set ANTHROPIC_API_KEY / OPENAI_API_KEY)")
	baseURL := fs.String("base-url", "", "Override API base URL")
	fs.Parse(args)

	text := fs.Arg(0)
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: dupewatchctl draft [flags] <message text>")
		os.Exit(1)
	}

	if *apiKey == "" {
		switch *provType {
		case "openai":
			*apiKey = os.Getenv("OPENAI_API_KEY")
		default:
			*apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "error: API key required (--api-key, ANTHROPIC_API_KEY, or OPENAI_API_KEY)")
		os.Exit(1)
	}

	var prov provider.Provider
	switch *provType {
	case "openai":
		var opts []provider.OpenAIOption
		if *model != "" {
			opts = append(opts, provider.WithModel(*model))
		}
		if *baseURL != "" {
			opts = append(opts, provider.WithBaseURL(*baseURL))
		}
		prov = provider.NewOpenAI(*apiKey, opts...)
	default:
		var opts []provider.AnthropicOption
		if *model != "" {
			opts = append(opts, provider.WithAnthropicModel(*model))
		}
		if *baseURL != "" {
			opts = append(opts, provider.WithAnthropicBaseURL(*baseURL))
		}
		prov = provider.NewAnthropic(*apiKey, opts...)
	}

	drafter := &assist.Drafter{Provider: prov}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	summary, description, err := drafter.Draft(ctx, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Summary: %s\n\nDescription:\n%s\n", summary, description)
}

func cmdConfigValidate(path string) {
	_, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	base := envOr("DUPEWATCH_API_URL", "http://localhost:8080")
	url := base + path

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	if key := os.Getenv("DUPEWATCH_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("dupewatchctl - duplicate-watch daemon management CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health               Check daemon health")
	fmt.Println("  events               List recently processed Slack events (--limit)")
	fmt.Println("  logs                 Show recent daemon logs (--level, --limit)")
	fmt.Println("  draft <text>         Generate a ticket draft from message text")
	fmt.Println("  config validate <p>  Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DUPEWATCH_API_URL    Daemon URL (default: http://localhost:8080)")
	fmt.Println("  DUPEWATCH_API_KEY    API key for authentication")
	fmt.Println("  ANTHROPIC_API_KEY    API key for the Anthropic provider")
	fmt.Println("  OPENAI_API_KEY       API key for the OpenAI provider")
	fmt.Println()
}
