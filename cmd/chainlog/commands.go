package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jmerrifield20/chainlog/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ── add ──────────────────────────────────────────────────────────────────────

var (
	addAmount string
	addQuick  int
)

var addCmd = &cobra.Command{
	Use:   "add <text...>",
	Short: "Append a note with an amount to the chain",
	Long: `add appends a new entry chained to the current head.

The amount is given with --amount, or picked from the configured quick
amounts with --quick (1-based):

  chainlog add buy coffee --amount 15000
  chainlog add parking --quick 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addAmount, "amount", "a", "", "amount, digits only")
	addCmd.Flags().IntVarP(&addQuick, "quick", "q", 0, "use the n-th configured quick amount")
	addCmd.MarkFlagsMutuallyExclusive("amount", "quick")
}

func runAdd(cmd *cobra.Command, args []string) error {
	amount := addAmount
	if addQuick != 0 {
		quick := viper.GetStringSlice("quick_amounts")
		if addQuick < 1 || addQuick > len(quick) {
			return fmt.Errorf("--quick must be between 1 and %d", len(quick))
		}
		amount = quick[addQuick-1]
	}

	ctx := cmd.Context()
	store, closeFn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	entry, err := store.Append(ctx, strings.Join(args, " "), amount, time.Now())
	if err != nil {
		return fmt.Errorf("add entry: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Entry added")
	fmt.Fprintln(cmd.OutOrStdout())
	newRenderer(cmd).Entry(entry)
	return nil
}

// ── search / list ────────────────────────────────────────────────────────────

var listFormat string

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "List entries whose text or amount contains query (case-insensitive)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return runList(cmd, query)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every entry, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, "")
	},
}

func init() {
	searchCmd.Flags().StringVar(&listFormat, "format", "text", "Output format: text or json")
	listCmd.Flags().StringVar(&listFormat, "format", "text", "Output format: text or json")
}

func runList(cmd *cobra.Command, query string) error {
	store, closeFn, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	entries := store.Query(query)
	r := newRenderer(cmd)
	switch listFormat {
	case "json":
		return r.JSON(entries)
	case "text":
		r.List(entries)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", listFormat)
	}
}

// ── show ─────────────────────────────────────────────────────────────────────

var showCmd = &cobra.Command{
	Use:   "show <seq>",
	Short: "Show one entry with its full hashes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seq %q: must be a non-negative integer", args[0])
		}

		store, closeFn, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		entry, ok := store.Get(seq)
		if !ok {
			return fmt.Errorf("entry %d not found", seq)
		}
		newRenderer(cmd).EntryDetail(entry)
		return nil
	},
}

// ── serve ────────────────────────────────────────────────────────────────────

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chain log over a local HTTP/JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prod, err := newServeLogger(verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = prod

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		logger.Info("chain log ready",
			zap.String("driver", viper.GetString("store.driver")),
			zap.Int("entries", store.Len()),
			zap.String("head", store.Head()),
		)

		addr := viper.GetString("server.addr")
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.Run(ctx, store, server.Config{
			Addr:         addr,
			CORSOrigins:  viper.GetStringSlice("server.cors_origins"),
			RateLimitRPS: viper.GetInt("server.rate_limit_rps"),
		}, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr, 127.0.0.1:8080)")
}

// ── migrate ──────────────────────────────────────────────────────────────────

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema for --store postgres",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openPostgres(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.Migrate(cmd.Context())
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if n == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to migrate — already up to date")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
		}
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the chainlog version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chainlog %s\n", version)
	},
}
