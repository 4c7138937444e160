package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/revendis/catalog-collector/internal/catalog"
)

type collectFlags struct {
	site        string
	productURLs []string
	pathHints   []string
	maxPages    int
	timeout     time.Duration
	output      string
}

// newCollectCmd creates the 'collect' subcommand, which runs one collection
// and prints the JSON result.
func newCollectCmd() *cobra.Command {
	var flags collectFlags
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Runs one catalog collection",
		Long: `Discovers the product pages of --site, extracts their JSON-LD products and
writes the deduplicated result as JSON. SIGINT or SIGTERM stops the run and
still writes whatever was collected.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollect(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.site, "site", "", "storefront URL that scopes the crawl (required)")
	cmd.Flags().StringArrayVar(&flags.productURLs, "product-url", nil, "known product page URL (repeatable)")
	cmd.Flags().StringArrayVar(&flags.pathHints, "path-hint", nil, "extra path fragment marking product pages (repeatable)")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", 0, "maximum number of pages to scan (default from config)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "per-request timeout (default from config)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the result to this file instead of stdout")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func runCollect(cmd *cobra.Command, flags collectFlags) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	req := catalog.Request{
		SiteURL:     flags.site,
		ProductURLs: flags.productURLs,
		PathHints:   flags.pathHints,
		MaxPages:    flags.maxPages,
		Timeout:     flags.timeout,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := appInstance.Collect(ctx, req)
	if err != nil {
		return fmt.Errorf("collect catalog: %w", err)
	}
	if ctx.Err() != nil {
		appInstance.Logger().Warn("collection interrupted, writing partial result",
			zap.Int("products", len(result.Products)),
		)
	}

	if flags.output == "" {
		return writeResult(cmd.OutOrStdout(), result)
	}
	file, err := os.Create(flags.output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := writeResult(file, result); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

func writeResult(w io.Writer, result catalog.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
