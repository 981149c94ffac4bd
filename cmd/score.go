package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/voice-agent/internal/model"
	"github.com/sells-group/voice-agent/internal/scorer"
	"github.com/sells-group/voice-agent/internal/summary"
)

var (
	scoreSlot    string
	scoreProduct string
)

type scoreOutput struct {
	LeadScore model.LeadScore     `json:"leadScore"`
	Breakdown scorer.Components   `json:"breakdown"`
	Summary   model.CallSummary   `json:"summary"`
	Booking   model.BookingResult `json:"booking"`
}

var scoreCmd = &cobra.Command{
	Use:   "score [file|-]",
	Short: "Score a qualification JSON document",
	Long: `Reads a qualification (camelCase JSON, all seven fields) from a file or
stdin and prints the lead score, its breakdown and the German call summary.

Examples:
  score qualification.json
  cat qualification.json | score -
  score qualification.json --slot 2026-03-03T09:00:00Z`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrap(err, "score: open input")
			}
			defer f.Close() //nolint:errcheck
			in = f
		}

		product := scoreProduct
		if product == "" {
			product = cfg.Voice.ProductName
		}
		out, err := scoreQualification(in, product, scoreSlot)
		if err != nil {
			return err
		}
		return writeIndentedJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreSlot, "slot", "", "treat the demo as booked for this RFC3339 slot")
	scoreCmd.Flags().StringVar(&scoreProduct, "product", "", "product name for the summary (default from config)")
	rootCmd.AddCommand(scoreCmd)
}

func scoreQualification(r io.Reader, product, slot string) (*scoreOutput, error) {
	var draft model.Draft
	if err := json.NewDecoder(r).Decode(&draft); err != nil {
		return nil, eris.Wrap(err, "score: decode qualification")
	}
	q, ok := draft.Complete()
	if !ok {
		missing := make([]string, 0, 7)
		for _, f := range model.MissingFields(draft) {
			missing = append(missing, string(f))
		}
		return nil, eris.Errorf("score: qualification is missing %s", strings.Join(missing, ", "))
	}
	if !q.InterestLevel.Valid() {
		return nil, eris.Errorf("score: invalid interestLevel %q", q.InterestLevel)
	}

	booking := model.BookingResult{Booked: false, Provider: "none", Reason: "keine Buchung angefragt"}
	if slot != "" {
		booking = model.BookingResult{Booked: true, Provider: "manual", SlotISO: slot}
	}

	score := scorer.Score(q)
	return &scoreOutput{
		LeadScore: score,
		Breakdown: scorer.Breakdown(q),
		Booking:   booking,
		Summary: summary.Build(summary.Input{
			ProductName:   product,
			Qualification: q,
			LeadScore:     score,
			Booking:       booking,
		}),
	}, nil
}
