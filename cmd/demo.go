package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/voice-agent/internal/dialogue"
	"github.com/sells-group/voice-agent/internal/model"
)

// demoUtterances answer the seven criteria in flow order.
var demoUtterances = []string{
	"Das Thema ist hoch dringend fuer uns.",
	"Unser Budget liegt bei 3200 Euro pro Monat.",
	"Wir haben 170 Mitarbeiter im Team.",
	"Go-Live ist in 3 Wochen.",
	"Ja, ich bin entscheidungsbefugt.",
	"Use case: Inbound Qualifizierung fuer Demo Calls.",
	"Pain point: zu viele manuelle Erstgespraeche am Abend.",
}

var (
	demoCalls     int
	demoOutput    string
	demoUseStore  bool
	demoLeadName  string
	demoLeadEmail string
)

// timelineEntry is one step of a demo call artifact.
type timelineEntry struct {
	Role    string               `json:"role"`
	Text    string               `json:"text,omitempty"`
	Payload *dialogue.TurnResult `json:"payload,omitempty"`
}

type demoCall struct {
	CallID   string          `json:"callId"`
	Timeline []timelineEntry `json:"timeline"`
}

type demoArtifact struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Calls       []demoCall        `json:"calls"`
	KPIs        model.KPISnapshot `json:"kpis"`
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run scripted demo calls against an in-process agent",
	Long: `Runs the seven-answer demo conversation end to end and writes the
timeline plus the resulting KPIs as JSON.

Examples:
  # One call, artifact to stdout
  demo

  # Ten concurrent calls, artifact to a file
  demo --calls 10 --output artifacts/demo-call-output.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if demoCalls < 1 {
			return eris.New("demo: --calls must be >= 1")
		}

		c := *cfg
		if !demoUseStore {
			c.Store.Driver = "memory"
		}
		if err := c.Validate("demo"); err != nil {
			return err
		}

		env, err := initApp(ctx, &c)
		if err != nil {
			return err
		}
		defer env.Close() //nolint:errcheck

		artifact, err := runDemo(ctx, env, demoCalls, model.LeadProfile{Name: demoLeadName, Email: demoLeadEmail})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if demoOutput != "" {
			if err := os.MkdirAll(filepath.Dir(demoOutput), 0o755); err != nil {
				return eris.Wrap(err, "demo: create output dir")
			}
			f, err := os.Create(demoOutput)
			if err != nil {
				return eris.Wrap(err, "demo: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := writeIndentedJSON(out, artifact); err != nil {
			return err
		}
		if demoOutput != "" {
			zap.L().Info("demo artifact written",
				zap.String("path", demoOutput),
				zap.Int("calls", len(artifact.Calls)),
			)
		}
		return nil
	},
}

func init() {
	f := demoCmd.Flags()
	f.IntVar(&demoCalls, "calls", 1, "number of concurrent demo calls")
	f.StringVar(&demoOutput, "output", "", "artifact file path (default: stdout)")
	f.BoolVar(&demoUseStore, "use-store", false, "persist into the configured store instead of memory")
	f.StringVar(&demoLeadName, "lead-name", "Demo Lead", "lead name sent with the start turn")
	f.StringVar(&demoLeadEmail, "lead-email", "demo.lead@example.com", "lead email sent with the start turn")
	rootCmd.AddCommand(demoCmd)
}

// runDemo plays n demo calls concurrently and collects their timelines.
func runDemo(ctx context.Context, env *appEnv, n int, profile model.LeadProfile) (*demoArtifact, error) {
	stamp := time.Now().UnixMilli()
	calls := make([]demoCall, n)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range n {
		callID := fmt.Sprintf("demo-%d-%d", stamp, i+1)
		g.Go(func() error {
			timeline, err := playDemoCall(gCtx, env.Manager, callID, profile)
			if err != nil {
				return eris.Wrapf(err, "demo: call %s", callID)
			}
			calls[i] = demoCall{CallID: callID, Timeline: timeline}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kpis, err := env.Store.KPIs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "demo: kpis")
	}
	return &demoArtifact{GeneratedAt: time.Now().UTC(), Calls: calls, KPIs: kpis}, nil
}

func playDemoCall(ctx context.Context, m *dialogue.Manager, callID string, profile model.LeadProfile) ([]timelineEntry, error) {
	start, err := m.Start(ctx, callID, profile)
	if err != nil {
		return nil, err
	}
	timeline := []timelineEntry{{Role: "agent", Payload: start}}

	for _, u := range demoUtterances {
		res, err := m.Next(ctx, dialogue.NextRequest{CallID: callID, LeadUtterance: u})
		if err != nil {
			return nil, err
		}
		timeline = append(timeline,
			timelineEntry{Role: "lead", Text: u},
			timelineEntry{Role: "agent", Payload: res},
		)
		if res.Completed {
			break
		}
	}
	return timeline, nil
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}
