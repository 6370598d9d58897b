// Command rubricctl parses a grading rubric offline and prints the extracted metrics.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/gema-rubric-api/internal/document"
	"github.com/noah-isme/gema-rubric-api/internal/models"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "rubricctl",
		Short:        "Inspect grading rubrics without touching the database",
		SilenceUsage: true,
	}
	root.AddCommand(parseCmd())
	return root
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Extract metrics from a .docx or plain-text rubric",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}
	f := cmd.Flags()
	f.StringP("format", "f", "table", "Output format (table, json, yaml)")
	f.Uint("exam", 1, "Exam identifier stamped on extracted metrics")
	return cmd
}

type report struct {
	Source    string          `json:"source" yaml:"source"`
	ExamID    uint            `json:"exam_id" yaml:"exam_id"`
	Lines     int             `json:"lines" yaml:"lines"`
	Questions int             `json:"questions" yaml:"questions"`
	Metrics   []reportMetric  `json:"metrics" yaml:"metrics"`
	Dropped   []reportDropped `json:"dropped" yaml:"dropped"`
}

type reportMetric struct {
	Question  string `json:"question,omitempty" yaml:"question,omitempty"`
	Part      string `json:"part,omitempty" yaml:"part,omitempty"`
	Rule      string `json:"rule" yaml:"rule"`
	Score     *int   `json:"score,omitempty" yaml:"score,omitempty"`
	ScoreType string `json:"score_type" yaml:"score_type"`
}

type reportDropped struct {
	Line int    `json:"line" yaml:"line"`
	Text string `json:"text" yaml:"text"`
}

func runParse(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	examID, _ := cmd.Flags().GetUint("exam")

	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
	if examID == 0 {
		return fmt.Errorf("exam must be positive")
	}

	path := args[0]
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rubric: %w", err)
	}

	decoded, err := document.Decode(filepath.Base(path), payload)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	result, err := rubric.Parse(examID, decoded.Lines)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	out := newReport(filepath.Base(path), examID, result)
	switch format {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	case "yaml":
		encoder := yaml.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent(2)
		if err := encoder.Encode(out); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return writeTable(cmd.OutOrStdout(), out)
	}
}

func newReport(source string, examID uint, result rubric.Result) report {
	out := report{
		Source:    source,
		ExamID:    examID,
		Lines:     result.Lines,
		Questions: result.Questions,
		Metrics:   make([]reportMetric, 0, len(result.Metrics)),
		Dropped:   make([]reportDropped, 0, len(result.Dropped)),
	}
	for _, metric := range result.Metrics {
		out.Metrics = append(out.Metrics, newReportMetric(metric))
	}
	for _, line := range result.Dropped {
		out.Dropped = append(out.Dropped, reportDropped{Line: line.Number, Text: line.Text})
	}
	return out
}

func newReportMetric(metric models.Metric) reportMetric {
	return reportMetric{
		Question:  metric.QuestionLabel(),
		Part:      metric.PartLabel(),
		Rule:      metric.RuleDescription,
		Score:     metric.Score,
		ScoreType: string(metric.ScoreType),
	}
}

func writeTable(w io.Writer, out report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUESTION\tPART\tTYPE\tSCORE\tRULE")
	for _, metric := range out.Metrics {
		score := "-"
		if metric.Score != nil {
			score = fmt.Sprintf("%d", *metric.Score)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", metric.Question, metric.Part, metric.ScoreType, score, metric.Rule)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d metrics from %d lines, %d questions\n", len(out.Metrics), out.Lines, out.Questions)
	for _, line := range out.Dropped {
		fmt.Fprintf(w, "dropped line %d: %s\n", line.Line, line.Text)
	}
	return nil
}
