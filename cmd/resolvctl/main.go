// Package main implements the resolvctl CLI for manual operations
// against the resolvd HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the resolvd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "resolvctl",
	Short: "CLI for resolvd HTTP server operations",
	Long: `resolvctl is a command-line interface for interacting with the resolvd
HTTP server. It resolves and categorizes support tickets, ingests knowledge
base documents, and checks server health.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8092", "resolvd server URL")
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(categorizeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
}

var (
	// resolve command flags
	resolveCategory  string
	resolveWebSearch bool
	resolveJSON      bool
)

// resolveCmd resolves a ticket from an argument, file, or stdin
var resolveCmd = &cobra.Command{
	Use:   "resolve [ticket-text|file|-]",
	Short: "Resolve a support ticket",
	Long: `Resolve a support ticket through the full pipeline: categorization,
knowledge retrieval, and the tiered solution cascade.

Examples:
  # Resolve inline text
  resolvctl resolve "Cannot login to my account, password reset email never arrives"

  # Resolve a ticket stored in a file
  resolvctl resolve ticket.txt

  # Resolve from stdin with web search enrichment
  cat ticket.txt | resolvctl resolve - --web-search

  # Skip categorization by providing the category
  resolvctl resolve ticket.txt --category login_issue`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

// categorizeCmd categorizes a ticket without resolving it
var categorizeCmd = &cobra.Command{
	Use:   "categorize [ticket-text|file|-]",
	Short: "Categorize a support ticket",
	Long: `Categorize a support ticket without generating a solution.

Examples:
  # Categorize inline text
  resolvctl categorize "The app crashes every time I open settings"

  # Categorize from stdin
  cat ticket.txt | resolvctl categorize -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCategorize,
}

// statusCmd reports which optional capabilities are active
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show web search and retrieval availability",
	RunE:  runStatus,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check resolvd server health",
	Long: `Check the health status of the resolvd HTTP server.

Examples:
  # Check health
  resolvctl health

  # Check health on a different server
  resolvctl health --server http://localhost:9090`,
	RunE: runHealth,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveCategory, "category", "", "skip categorization and use this category")
	resolveCmd.Flags().BoolVar(&resolveWebSearch, "web-search", false, "enrich context with web search results")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output the full resolution as JSON")
}

// ResolveRequest matches internal/http/server.go ResolveRequest
type ResolveRequest struct {
	Content      string `json:"content"`
	Category     string `json:"category,omitempty"`
	UseWebSearch bool   `json:"use_web_search,omitempty"`
}

// ResolveResponse matches internal/resolve Resolution
type ResolveResponse struct {
	Category string `json:"category"`
	Method   string `json:"method"`
	Source   string `json:"source_tier"`
	Quality  string `json:"quality"`
	Solution string `json:"solution"`
}

// CategorizeRequest matches internal/http/server.go CategorizeRequest
type CategorizeRequest struct {
	Content string `json:"content"`
}

// CategorizeResponse matches internal/http/server.go CategorizeResponse
type CategorizeResponse struct {
	Category string `json:"category"`
	Method   string `json:"method"`
}

// SearchStatusResponse matches internal/http/server.go SearchStatusResponse
type SearchStatusResponse struct {
	WebSearchEnabled   bool `json:"web_search_enabled"`
	RetrieverAvailable bool `json:"retriever_available"`
}

// HealthResponse matches internal/http/server.go HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// readTicket reads ticket text from the argument, a file, or stdin.
func readTicket(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	// Treat the argument as a file path when it names a readable file,
	// otherwise as literal ticket text.
	if info, err := os.Stat(args[0]); err == nil && !info.IsDir() {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		return string(content), nil
	}
	return args[0], nil
}

// runResolve handles the resolve command
func runResolve(cmd *cobra.Command, args []string) error {
	ticket, err := readTicket(args)
	if err != nil {
		return err
	}
	if len(ticket) == 0 {
		return fmt.Errorf("no ticket content provided")
	}

	var resp ResolveResponse
	err = postJSON("/api/v1/tickets/resolve", ResolveRequest{
		Content:      ticket,
		Category:     resolveCategory,
		UseWebSearch: resolveWebSearch,
	}, &resp)
	if err != nil {
		return err
	}

	if resolveJSON {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format response: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(resp.Solution)
	return nil
}

// runCategorize handles the categorize command
func runCategorize(cmd *cobra.Command, args []string) error {
	ticket, err := readTicket(args)
	if err != nil {
		return err
	}
	if len(ticket) == 0 {
		return fmt.Errorf("no ticket content provided")
	}

	var resp CategorizeResponse
	if err := postJSON("/api/v1/tickets/categorize", CategorizeRequest{Content: ticket}, &resp); err != nil {
		return err
	}

	fmt.Printf("Category: %s\n", resp.Category)
	fmt.Printf("Method:   %s\n", resp.Method)
	return nil
}

// runStatus handles the status command
func runStatus(cmd *cobra.Command, args []string) error {
	var resp SearchStatusResponse
	if err := getJSON("/api/v1/search/status", &resp); err != nil {
		return err
	}

	fmt.Printf("Web search: %s\n", enabledStr(resp.WebSearchEnabled))
	fmt.Printf("Retrieval:  %s\n", enabledStr(resp.RetrieverAvailable))
	return nil
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	var resp HealthResponse
	if err := getJSON("/health", &resp); err != nil {
		return err
	}

	fmt.Printf("Server is healthy: %s\n", resp.Status)
	return nil
}

func enabledStr(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// httpClient is shared by all commands.
var httpClient = &http.Client{Timeout: 60 * time.Second}

// postJSON sends a JSON POST to the server and decodes the response.
func postJSON(path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := httpClient.Post(serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to connect to server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

// getJSON sends a GET to the server and decodes the response.
func getJSON(path string, out interface{}) error {
	resp, err := httpClient.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("failed to connect to server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
