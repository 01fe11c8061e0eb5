package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"styliq/internal/providers/landmark"
	"styliq/internal/session"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and reachability of the sidecar and Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	name   string
	status string
	err    error
}

func runCheck(ctx context.Context, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	results := []checkResult{
		{name: "gemini key", status: "present"},
		{name: "prompt template", status: "parsed"},
	}
	if cfg.ReplicateAPIToken == "" {
		results = append(results, checkResult{name: "replicate token", status: "missing (visualization disabled)"})
	} else {
		results = append(results, checkResult{name: "replicate token", status: "present"})
	}

	detector, err := landmark.NewClient(landmark.Options{Addr: cfg.LandmarkAddr, Timeout: cfg.LandmarkTimeout})
	if err == nil {
		err = detector.Ping(ctx)
	}
	results = append(results, checkResult{name: "landmark sidecar", status: cfg.LandmarkAddr, err: err})

	if cfg.RedisAddr != "" {
		store, err := session.NewRedisStore(ctx, session.RedisOptions{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			_ = store.Close()
		}
		results = append(results, checkResult{name: "redis", status: cfg.RedisAddr, err: err})
	} else {
		results = append(results, checkResult{name: "sessions", status: "in-memory"})
	}

	return writeChecks(w, results)
}

func writeChecks(w io.Writer, results []checkResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	failed := 0
	for _, r := range results {
		mark := "ok"
		detail := r.status
		if r.err != nil {
			mark = "FAIL"
			detail = fmt.Sprintf("%s: %v", r.status, r.err)
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, r.name, detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}
