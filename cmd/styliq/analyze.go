package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"styliq/internal/app"
	"styliq/internal/domain"
	"styliq/internal/recommend"
	"styliq/internal/stylist"
)

type analyzeOptions struct {
	imagePath string
	visualize bool
	persona   string
	asJSON    bool
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one consultation for a local portrait",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, analyzeOpts)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.imagePath, "image", "i", "", "JPEG or PNG portrait")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.visualize, "visualize", false, "also render the recommended hairstyle")
	analyzeCmd.Flags().StringVar(&analyzeOpts.persona, "persona", "", "pin the stylist persona by name")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.asJSON, "json", false, "print machine readable output")
	_ = analyzeCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, opts analyzeOptions) error {
	data, err := os.ReadFile(opts.imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if opts.persona != "" {
		cfg.PersonaFixed = opts.persona
	}

	ctx := cmd.Context()
	comps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	sess, err := comps.Service.Analyze(ctx, stylist.AnalyzeRequest{Image: data})
	if err != nil {
		return err
	}

	var vis *domain.Visualization
	var visErr error
	if opts.visualize {
		v, err := comps.Service.Visualize(ctx, sess.ID)
		if err != nil {
			visErr = err
		} else {
			vis = &v
		}
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		err = writeJSON(out, sess, vis)
	} else {
		err = writeReport(out, sess, vis)
	}
	if err != nil {
		return err
	}
	// The consultation is still printed when only the render failed.
	if visErr != nil {
		return fmt.Errorf("visualization: %w", visErr)
	}
	return nil
}

type cliResult struct {
	SessionID     string         `json:"session_id"`
	Stylist       domain.Persona `json:"stylist"`
	Ratio         string         `json:"ratio"`
	Report        string         `json:"report"`
	HairstyleName string         `json:"hairstyle_name"`
	Strategy      string         `json:"strategy"`
	SearchURL     string         `json:"search_url"`
	ImageURL      string         `json:"image_url,omitempty"`
}

func toResult(sess domain.Session, vis *domain.Visualization) cliResult {
	res := cliResult{
		SessionID: sess.ID,
		Stylist:   sess.Persona,
		Ratio:     sess.Ratio.Format(),
	}
	if c := sess.Consultation; c != nil {
		res.Report = strings.TrimSpace(c.CleanReport)
		res.HairstyleName = c.Hairstyle
		res.Strategy = c.Strategy
		res.SearchURL = recommend.SearchURL(c.Hairstyle)
	}
	if vis != nil {
		res.ImageURL = vis.ImageURL
	}
	return res
}

func writeJSON(w io.Writer, sess domain.Session, vis *domain.Visualization) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toResult(sess, vis))
}

func writeReport(w io.Writer, sess domain.Session, vis *domain.Visualization) error {
	res := toResult(sess, vis)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "STYLIST\t%s %s\n", res.Stylist.Avatar, res.Stylist.Name)
	fmt.Fprintf(tw, "ROLE\t%s (%s, %s)\n", res.Stylist.Role, res.Stylist.Style, res.Stylist.Tone)
	fmt.Fprintf(tw, "FACE RATIO\t%s\n", res.Ratio)
	fmt.Fprintf(tw, "HAIRSTYLE\t%s\n", res.HairstyleName)
	fmt.Fprintf(tw, "REFERENCES\t%s\n", res.SearchURL)
	if res.ImageURL != "" {
		fmt.Fprintf(tw, "TRY-ON\t%s\n", res.ImageURL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", res.Report)
	return err
}
