package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voice-agent/internal/model"
)

func TestRunDemo_SingleCall(t *testing.T) {
	env := newTestEnv(t)

	artifact, err := runDemo(context.Background(), env, 1, model.LeadProfile{Name: "Demo Lead", Email: "demo.lead@example.com"})
	require.NoError(t, err)
	require.Len(t, artifact.Calls, 1)

	call := artifact.Calls[0]
	assert.True(t, strings.HasPrefix(call.CallID, "demo-"))
	// Opening, then one lead/agent pair per utterance.
	require.Len(t, call.Timeline, 1+2*len(demoUtterances))
	assert.Equal(t, "agent", call.Timeline[0].Role)
	assert.Equal(t, "lead", call.Timeline[1].Role)
	assert.Equal(t, demoUtterances[0], call.Timeline[1].Text)

	final := call.Timeline[len(call.Timeline)-1].Payload
	require.NotNil(t, final)
	assert.True(t, final.Completed)
	require.NotNil(t, final.Booking)
	assert.True(t, final.Booking.Booked)

	assert.Equal(t, 1, artifact.KPIs.CompletedCalls)
	assert.Equal(t, 1, artifact.KPIs.BookedCalls)
	assert.InDelta(t, 100.0, artifact.KPIs.ConversionRatePercent, 0.001)
}

func TestRunDemo_ConcurrentCalls(t *testing.T) {
	env := newTestEnv(t)

	artifact, err := runDemo(context.Background(), env, 12, model.LeadProfile{})
	require.NoError(t, err)
	require.Len(t, artifact.Calls, 12)

	ids := make(map[string]bool)
	for _, c := range artifact.Calls {
		ids[c.CallID] = true
	}
	assert.Len(t, ids, 12)
	assert.Equal(t, 12, artifact.KPIs.CompletedCalls)
	assert.Equal(t, 12, artifact.KPIs.LeadScoreDistribution.A+artifact.KPIs.LeadScoreDistribution.B+artifact.KPIs.LeadScoreDistribution.C)
}

func TestWriteIndentedJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeIndentedJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())

	var back map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
}
