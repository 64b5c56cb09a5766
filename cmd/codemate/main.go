package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codemate/cmd/codemate/chat"
	"codemate/internal/attach"
	"codemate/internal/config"
	"codemate/internal/conversation"
	"codemate/internal/editor"
	"codemate/internal/logging"
	"codemate/internal/orchestrator"
	"codemate/internal/provider"
)

var (
	configPath        string
	projectConfigPath string
	debug             bool

	attachPaths []string
	applyChange bool
	fixMessage  string
	fixLine     int
)

var rootCmd = &cobra.Command{
	Use:   "codemate",
	Short: "codemate - conversational code assistant",
	Long: `codemate is a conversational code assistant. Attach files or a
selection as context, ask questions, and review proposed edits as a
diff before they touch disk.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Interactive mode owns the terminal; logging stays silent there.
		if cmd.CalledAs() == "codemate" {
			return nil
		}
		if err := logging.Init(debug); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Long: `Sends one instruction through the assistant. With --attach the
question runs against file context and a modify instruction produces a
diff; pass --apply to write the proposed change, otherwise it is
discarded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured provider is reachable",
	RunE:  runCheck,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored conversations",
	RunE:  runHistory,
}

var fixCmd = &cobra.Command{
	Use:   "fix [file]",
	Short: "Propose a fix for a diagnostic in a file",
	Long: `Sends the file and the diagnostic through the fix pipeline and
prints the proposed change as a diff. Pass --apply to write it.`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.codemate/config.json)")
	rootCmd.PersistentFlags().StringVar(&projectConfigPath, "project-config", ".codemate.yaml", "project config overlay")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	askCmd.Flags().StringSliceVar(&attachPaths, "attach", nil, "files to attach as context")
	askCmd.Flags().BoolVar(&applyChange, "apply", false, "apply a proposed change instead of discarding it")
	fixCmd.Flags().StringVar(&fixMessage, "error", "", "diagnostic message to fix (required)")
	fixCmd.Flags().IntVar(&fixLine, "line", 0, "1-based line the diagnostic points at")
	fixCmd.Flags().BoolVar(&applyChange, "apply", false, "apply the proposed change instead of discarding it")
	_ = fixCmd.MarkFlagRequired("error")

	rootCmd.AddCommand(askCmd, checkCmd, historyCmd, fixCmd)
}

// engine bundles the wired core for one invocation.
type engine struct {
	cfg      config.Config
	client   provider.Client
	store    *conversation.Store
	persist  *conversation.SQLitePersister
	attached *attach.Manager
	orch     *orchestrator.Orchestrator
}

func buildEngine(events orchestrator.Events, notifier attach.Notifier) (*engine, error) {
	userPath := configPath
	if userPath == "" {
		userPath = config.DefaultUserConfigPath()
	}
	cfg, err := config.Load(userPath, projectConfigPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}

	client, err := provider.New(cfg)
	if err != nil {
		return nil, err
	}
	persist, err := conversation.OpenSQLite(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	store, err := conversation.NewStore(persist, cfg.SystemPrompt)
	if err != nil {
		persist.Close()
		return nil, err
	}
	attached := attach.NewManager(notifier)
	orch := orchestrator.New(cfg, client, store, attached, editor.NewLocal(), events)
	return &engine{
		cfg:      cfg,
		client:   client,
		store:    store,
		persist:  persist,
		attached: attached,
		orch:     orch,
	}, nil
}

func (e *engine) Close() {
	if err := e.persist.Close(); err != nil {
		logging.Named("main").Warn("closing conversation store", zap.Error(err))
	}
}

func runChat() error {
	sink := chat.NewSink()
	eng, err := buildEngine(sink, sink)
	if err != nil {
		return err
	}
	defer eng.Close()

	watcher, err := attach.NewWatcher(sink.FileChangedOnDisk)
	if err != nil {
		logging.Named("main").Warn("file watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
	}
	opts := chat.Options{ProviderName: eng.client.Name()}
	if watcher != nil {
		opts.Track = watcher.Track
	}
	return chat.Run(eng.orch, sink, opts)
}

func runAsk(cmd *cobra.Command, args []string) error {
	events := &consoleEvents{apply: applyChange}
	eng, err := buildEngine(events, nil)
	if err != nil {
		return err
	}
	defer eng.Close()
	events.orch = eng.orch

	if len(attachPaths) > 0 {
		if err := eng.orch.AttachFiles(attachPaths); err != nil {
			return err
		}
	}
	return eng.orch.Ask(cmd.Context(), strings.Join(args, " "))
}

func runCheck(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(orchestrator.NopEvents{}, nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	if !eng.client.CheckConnection(cmd.Context()) {
		return fmt.Errorf("provider %q is not reachable", eng.client.Name())
	}
	fmt.Printf("provider %q is reachable\n", eng.client.Name())
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(orchestrator.NopEvents{}, nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	sums := eng.store.Summaries()
	if len(sums) == 0 {
		fmt.Println("no conversations yet")
		return nil
	}
	for _, s := range sums {
		fmt.Printf("%s  %s  %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Title)
	}
	return nil
}

func runFix(cmd *cobra.Command, args []string) error {
	events := &consoleEvents{apply: applyChange}
	eng, err := buildEngine(events, nil)
	if err != nil {
		return err
	}
	defer eng.Close()
	events.orch = eng.orch

	uri, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	return eng.orch.FixError(cmd.Context(), uri, fixMessage, fixLine)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
