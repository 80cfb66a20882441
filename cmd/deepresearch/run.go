package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/smallnest/deepresearch/agent"
	"github.com/smallnest/deepresearch/research"
)

var (
	outputFile  string
	noQuestions bool
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Run a research report for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		var responder agent.Responder
		if !noQuestions {
			responder = promptResponder
		}

		p, err := buildPipeline(settings, responder)
		if err != nil {
			return err
		}
		defer p.close()

		st, err := p.engine.Run(cmd.Context(), query)
		if err != nil {
			return err
		}
		if st.Failed() {
			return fmt.Errorf("research failed: %s", st.Error)
		}

		if outputFile != "" {
			if err := os.WriteFile(outputFile, []byte(st.FinalReport), 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Println(renderSummary(st, outputFile))
			return nil
		}

		fmt.Println(st.FinalReport)
		fmt.Fprintln(os.Stderr, renderSummary(st, ""))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the report to a file instead of stdout")
	runCmd.Flags().BoolVar(&noQuestions, "no-questions", false, "skip interactive clarification questions")
}

// promptResponder reads clarification answers from the terminal. An empty
// line skips a question.
func promptResponder(questions []string) []string {
	reader := bufio.NewReader(os.Stdin)
	answers := make([]string, 0, len(questions))
	fmt.Fprintln(os.Stderr, "A few questions to sharpen the research (press Enter to skip):")
	for i, q := range questions {
		fmt.Fprintf(os.Stderr, "  %d. %s\n  > ", i+1, q)
		line, err := reader.ReadString('\n')
		if err != nil {
			line = ""
		}
		answers = append(answers, strings.TrimSpace(line))
	}
	return answers
}

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	summaryLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	summaryBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

func renderSummary(st research.State, path string) string {
	var b strings.Builder
	b.WriteString(summaryTitle.Render("Research complete"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d (%s)\n", summaryLabel.Render("Sources:"), len(st.Sources), diversityLine(st.SourceDiversity))
	fmt.Fprintf(&b, "%s %d\n", summaryLabel.Render("Chunks indexed:"), st.ChunksStored)
	fmt.Fprintf(&b, "%s %.1f/10 after %d iteration(s)", summaryLabel.Render("Quality:"), st.QualityScore, st.IterationCount)
	if path != "" {
		fmt.Fprintf(&b, "\n%s %s", summaryLabel.Render("Report:"), path)
	}
	return summaryBox.Render(b.String())
}

func diversityLine(diversity map[string]int) string {
	if len(diversity) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(diversity))
	for _, t := range []string{"academic", "news", "industry", "blog", "wiki", "other"} {
		if n := diversity[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, t))
		}
	}
	return strings.Join(parts, ", ")
}
