package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/theoddden/terradev-broker/internal/broker"
	"github.com/theoddden/terradev-broker/internal/config"
	"github.com/theoddden/terradev-broker/internal/engine"
	"github.com/theoddden/terradev-broker/internal/httpapi"
	"github.com/theoddden/terradev-broker/internal/logging"
	"github.com/theoddden/terradev-broker/pkg/model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "broker",
		Short: "Multi-cloud GPU compute brokerage engine",
	}

	root.AddCommand(serveCmd(), quotesCmd(), provisionCmd(), stageCmd(), manageCmd(), execCmd())
	return root
}

func loadEngine(ctx context.Context) (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := logging.SyslogConfig{
		Enabled:  cfg.Logging.SyslogEnabled,
		Network:  cfg.Logging.SyslogNetwork,
		Address:  cfg.Logging.SyslogAddress,
		Tag:      cfg.Logging.SyslogTag,
		Facility: cfg.Logging.SyslogFacility,
		FilePath: cfg.Logging.LogFile,
	}
	if err := logging.Initialize(logCfg); err != nil {
		log.Printf("warning: failed to initialize logging: %v", err)
	}

	e, err := broker.Build(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("building engine: %w", err)
	}
	return e, cfg, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			e, cfg, err := loadEngine(ctx)
			if err != nil {
				return err
			}

			router := httpapi.NewRouter(e, cfg.Auth.JWTSecret)
			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadTimeout:       cfg.Server.ReadTimeout,
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      cfg.Server.WriteTimeout,
				IdleTimeout:       cfg.Server.IdleTimeout,
				MaxHeaderBytes:    1 << 20,
			}

			go func() {
				log.Printf("starting HTTP server on %s", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("http server failed: %v", err)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	return cmd
}

func quotesCmd() *cobra.Command {
	var (
		gpuFamily string
		region    string
		providers []string
		maxPrice  float64
	)

	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Fetch and rank quotes across every configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			e, _, err := loadEngine(ctx)
			if err != nil {
				return err
			}

			quotes, err := e.GetQuotes(ctx, engine.GetQuotesRequest{
				GPUFamily:     model.GPUFamily(gpuFamily),
				Region:        region,
				Providers:     toProviderIDs(providers),
				MaxPricePerHr: maxPrice,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tINSTANCE TYPE\tREGION\tPRICE/HR\tAVAILABILITY\tSCORE")
			for _, q := range quotes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%s\t%.3f\n",
					q.Provider, q.InstanceType, q.Region, q.PricePerHour, q.Availability, q.OptimizationScore)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&gpuFamily, "gpu-family", "", "GPU family filter (e.g. A100, H100)")
	cmd.Flags().StringVar(&region, "region", "", "Region filter")
	cmd.Flags().StringSliceVar(&providers, "providers", nil, "Restrict to these provider ids")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Maximum price per hour (0 = no limit)")
	return cmd
}

func provisionCmd() *cobra.Command {
	var (
		gpuFamily   string
		count       int
		maxPrice    float64
		region      string
		providers   []string
		concurrency int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Quote, allocate, and provision a batch of GPU instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			e, _, err := loadEngine(ctx)
			if err != nil {
				return err
			}

			result, err := e.Provision(ctx, engine.ProvisionRequest{
				GPUFamily:       model.GPUFamily(gpuFamily),
				Count:           count,
				MaxPricePerHour: maxPrice,
				Region:          region,
				Providers:       toProviderIDs(providers),
				Concurrency:     concurrency,
				DryRun:          dryRun,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&gpuFamily, "gpu-family", "", "GPU family to provision")
	cmd.Flags().IntVar(&count, "count", 1, "Number of instances to provision")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Maximum price per hour ceiling")
	cmd.Flags().StringVar(&region, "region", "", "Region filter")
	cmd.Flags().StringSliceVar(&providers, "providers", nil, "Restrict to these provider ids")
	cmd.Flags().IntVar(&concurrency, "concurrency", 6, "Max in-flight provision calls")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Skip provider calls, report what would happen")
	return cmd
}

func stageCmd() *cobra.Command {
	var (
		regions []string
		codec   string
	)

	cmd := &cobra.Command{
		Use:   "stage <dataset-ref>",
		Short: "Compress, chunk, and upload a dataset to target regions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			e, _, err := loadEngine(ctx)
			if err != nil {
				return err
			}

			result, err := e.StageDataset(ctx, args[0], regions, model.CompressionCodec(codec))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringSliceVar(&regions, "regions", nil, "Target regions to upload to (required)")
	cmd.Flags().StringVar(&codec, "codec", "auto", "Compression codec: zstd, gzip, none, auto")
	cmd.MarkFlagRequired("regions")
	return cmd
}

func manageCmd() *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "manage <instance-id>",
		Short: "Query or change an instance's lifecycle state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			e, _, err := loadEngine(ctx)
			if err != nil {
				return err
			}

			info, err := e.ManageInstance(ctx, args[0], engine.Action(action))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}

	cmd.Flags().StringVar(&action, "action", "status", "status, stop, start, or terminate")
	return cmd
}

func execCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <instance-id> <command>",
		Short: "Run a command on a provisioned instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			e, _, err := loadEngine(ctx)
			if err != nil {
				return err
			}

			result, err := e.ExecuteCommand(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Println(result.Stdout)
			if result.Stderr != "" {
				fmt.Fprintln(os.Stderr, result.Stderr)
			}
			os.Exit(result.ExitCode)
			return nil
		},
	}
	return cmd
}

func toProviderIDs(ids []string) []model.ProviderID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]model.ProviderID, len(ids))
	for i, id := range ids {
		out[i] = model.ProviderID(id)
	}
	return out
}
