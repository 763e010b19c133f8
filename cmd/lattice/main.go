package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zen-systems/lattice/pkg/backend"
	"github.com/zen-systems/lattice/pkg/config"
	"github.com/zen-systems/lattice/pkg/llm"
	"github.com/zen-systems/lattice/pkg/report"
	"github.com/zen-systems/lattice/pkg/router"
	"github.com/zen-systems/lattice/pkg/sourcehost"
	"github.com/zen-systems/lattice/pkg/tools"
	"github.com/zen-systems/lattice/pkg/tracker"
	"github.com/zen-systems/lattice/pkg/workflow"
)

var (
	routingFile string
	verboseFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lattice",
		Short: "Bug-report automation with rule-based model routing",
		Long: `Lattice turns informal bug reports captured from chat threads into
	tracked issues and, where a confident fix can be generated, proposed
	code changes submitted as review requests. Each sub-task is routed
	to the most suitable model backend by an ordered rule engine.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verboseFlag {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&routingFile, "routing", "", "path to routing config file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(toolCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func processCmd() *cobra.Command {
	var channelID string
	var threadID string
	var inputFile string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the full bug-report workflow for a conversation thread",
		Long: `Reads a conversation as a JSON array of {"author","text"} objects
	from --file or stdin, then parses it into a bug report, files a
	ticket, and attempts an automated fix delivered as a review request.
	The final result is printed as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conversation, err := readConversation(inputFile)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			orc, _, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			result := orc.Run(context.Background(), conversation, channelID, threadID)
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&channelID, "channel", "cli", "channel identifier for the workflow id")
	cmd.Flags().StringVar(&threadID, "thread", "", "thread identifier for the workflow id (required)")
	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "conversation JSON file (defaults to stdin)")
	cmd.MarkFlagRequired("thread")

	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [workflow-id]",
		Short: "Show the step trace for a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			orc, _, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			run := orc.Status(args[0])
			if run == nil {
				return fmt.Errorf("no workflow found for id %q", args[0])
			}
			return printJSON(run)
		},
	}
}

func toolCmd() *cobra.Command {
	var payloadFile string

	cmd := &cobra.Command{
		Use:   "tool [operation]",
		Short: "Invoke one named workflow operation",
		Long: `Invokes a single workflow operation with a JSON payload read from
	--payload or stdin. Operations: analyze_request, plan_fix,
	create_ticket, create_branch_and_review_request.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(payloadFile)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			orc, _, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			result, err := tools.NewDispatcher(orc).Dispatch(context.Background(), args[0], payload)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVarP(&payloadFile, "payload", "p", "", "request payload JSON file (defaults to stdin)")

	return cmd
}

func routeCmd() *cobra.Command {
	var depthFlag int
	var costFlag string

	cmd := &cobra.Command{
		Use:   "route [task] [text]",
		Short: "Show which backend a task would be routed to",
		Long: `Evaluates the routing rules for a task tag and optional message
	text, printing the selected backend and the rule evaluation trace.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			r, err := router.FromConfig(cfg.Routing)
			if err != nil {
				return fmt.Errorf("failed to build router: %w", err)
			}

			var features router.Features
			if len(args) > 1 {
				features = router.DetectFeatures(args[1])
			}
			features.ConversationDepth = depthFlag
			features.CostPriority = costFlag

			decision := r.Decide(args[0], features)

			fmt.Printf("Backend: %s\n", decision.SelectedBackend)
			if decision.MatchedRule != "" {
				fmt.Printf("Matched: %s\n", decision.MatchedRule)
			} else {
				fmt.Println("Matched: (default)")
			}
			fmt.Println("Trace:")
			for _, t := range decision.Explanation {
				marker := " "
				if t.Matched {
					marker = "*"
				}
				fmt.Printf("  %s %s\n", marker, t.Rule)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&depthFlag, "depth", 0, "conversation depth in messages")
	cmd.Flags().StringVar(&costFlag, "cost", "", "cost priority hint (low, balanced, high)")

	return cmd
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show current routing rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tRULE\tKIND\tDECIDES")
			writeRules(w, cfg.Routing, "")
			fmt.Fprintln(w)
			fmt.Fprintf(w, "DEFAULT\t%s\n", cfg.Routing.Default)
			fmt.Fprintf(w, "FALLBACK\t%s\n", cfg.Routing.FallbackBackend)
			return w.Flush()
		},
	}
}

func writeRules(w io.Writer, cfg *config.RoutingConfig, indent string) {
	for i, rule := range cfg.Rules {
		fmt.Fprintf(w, "%s%d\t%s\t%s\t%s\n", indent, i+1, rule.Name, rule.Kind, summarizeRule(rule))
		for _, d := range nestedRouters(rule) {
			writeRules(w, d, indent+"  ")
		}
	}
}

func summarizeRule(rule config.RuleConfig) string {
	switch rule.Kind {
	case config.RuleKindTask, config.RuleKindLanguage:
		var triggers []string
		for name, d := range rule.Triggers {
			target := d.Backend
			if d.Router != nil {
				target = "(nested)"
			}
			triggers = append(triggers, name+"->"+target)
		}
		sort.Strings(triggers)
		return strings.Join(triggers, ", ")
	case config.RuleKindContent:
		parts := []string{}
		if rule.Code != nil {
			target := rule.Code.Backend
			if rule.Code.Router != nil {
				target = "(nested)"
			}
			parts = append(parts, "code->"+target)
		}
		if rule.NotCode != nil {
			parts = append(parts, "text->"+rule.NotCode.Backend)
		}
		return strings.Join(parts, ", ")
	case config.RuleKindLength:
		return fmt.Sprintf("<%d->%s, <%d->%s, else %s",
			rule.ShortThreshold, rule.ShortBackend,
			rule.LongThreshold, rule.MediumBackend, rule.LongBackend)
	case config.RuleKindDepth:
		return fmt.Sprintf("<=%d->%s, <=%d->%s, else %s",
			rule.NewThreshold, rule.NewBackend,
			rule.DeepThreshold, rule.DevelopingBackend, rule.DeepBackend)
	case config.RuleKindCost:
		var priorities []string
		for name, b := range rule.Priorities {
			priorities = append(priorities, name+"->"+b)
		}
		sort.Strings(priorities)
		return strings.Join(priorities, ", ")
	}
	return ""
}

func nestedRouters(rule config.RuleConfig) []*config.RoutingConfig {
	var nested []*config.RoutingConfig
	for _, d := range rule.Triggers {
		if d.Router != nil {
			nested = append(nested, d.Router)
		}
	}
	if rule.Code != nil && rule.Code.Router != nil {
		nested = append(nested, rule.Code.Router)
	}
	if rule.NotCode != nil && rule.NotCode.Router != nil {
		nested = append(nested, rule.NotCode.Router)
	}
	return nested
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available providers and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			registry, err := createProviders(cfg)
			if err != nil {
				return fmt.Errorf("failed to create providers: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODELS\tSTATUS")

			for _, name := range []string{"anthropic", "openai", "google"} {
				status := "no key"
				models := ""
				if p, ok := registry.Provider(name); ok {
					status = "ready"
					models = strings.Join(p.Models(), ", ")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, models, status)
			}

			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [routing.yaml]",
		Short: "Validate a routing config file",
		Long:  "Validates routing YAML, including nested routers, without executing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRoutingConfig(args[0])
			if err != nil {
				return err
			}
			if _, err := router.FromConfig(cfg); err != nil {
				return err
			}
			fmt.Println("Routing config is valid.")
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	if routingFile != "" {
		return config.LoadWithRoutingFile(routingFile)
	}
	return config.Load()
}

func createProviders(cfg *config.Config) (*backend.Registry, error) {
	var providers []backend.Provider

	if cfg.AnthropicAPIKey != "" {
		p, err := backend.NewAnthropicProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic provider: %w", err)
		}
		providers = append(providers, p)
	}

	if cfg.OpenAIAPIKey != "" {
		p, err := backend.NewOpenAIProvider(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai provider: %w", err)
		}
		providers = append(providers, p)
	}

	if cfg.GoogleAPIKey != "" {
		p, err := backend.NewGoogleProvider(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google provider: %w", err)
		}
		providers = append(providers, p)
	}

	return backend.NewRegistry(providers...), nil
}

func buildOrchestrator(cfg *config.Config) (*workflow.Orchestrator, *workflow.Store, error) {
	registry, err := createProviders(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create providers: %w", err)
	}
	if len(registry.Providers()) == 0 {
		return nil, nil, fmt.Errorf("no model provider configured (set ANTHROPIC_API_KEY, OPENAI_API_KEY, or GOOGLE_API_KEY)")
	}

	r, err := router.FromConfig(cfg.Routing)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build router: %w", err)
	}
	caller := llm.NewCaller(r, registry, cfg.Routing.FallbackBackend)

	jira, err := tracker.NewJira(cfg.Jira)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create issue tracker client: %w", err)
	}

	host, err := sourcehost.NewGitHub(cfg.GitHub)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create source host client: %w", err)
	}

	store := workflow.NewStore(cfg.Workflow.StatusRetention)
	orc := workflow.New(caller, jira, host, store, cfg.Workflow)
	return orc, store, nil
}

func readConversation(path string) ([]report.ConversationMessage, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	var conversation []report.ConversationMessage
	if err := json.Unmarshal(data, &conversation); err != nil {
		return nil, fmt.Errorf("failed to parse conversation: %w", err)
	}
	if len(conversation) == 0 {
		return nil, fmt.Errorf("conversation is empty")
	}
	return conversation, nil
}

func readInput(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
