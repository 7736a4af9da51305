package cmd

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gaze-network/inscriber/common/errs"
	"github.com/gaze-network/inscriber/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	type Spec struct {
		Input    string
		Yes      bool
		Expected bool
	}

	specs := []Spec{
		{Input: "y\n", Expected: true},
		{Input: "YES\n", Expected: true},
		{Input: "  yes  \n", Expected: true},
		{Input: "\n", Expected: false},
		{Input: "no\n", Expected: false},
		{Input: "y", Expected: true},
		{Input: "", Yes: true, Expected: true},
	}

	for _, spec := range specs {
		t.Run(strings.TrimSpace(spec.Input), func(t *testing.T) {
			var out bytes.Buffer
			p := newPrompter(bufio.NewReader(strings.NewReader(spec.Input)), &out, spec.Yes)

			confirmed, err := p.Confirm(context.Background(), "Confirm to submit?")
			require.NoError(t, err)
			assert.Equal(t, spec.Expected, confirmed)
			if spec.Yes {
				assert.Empty(t, out.String())
			} else {
				assert.Contains(t, out.String(), "Confirm to submit?")
			}
		})
	}
}

func TestConfirmClosedInput(t *testing.T) {
	p := newPrompter(bufio.NewReader(strings.NewReader("")), &bytes.Buffer{}, false)
	_, err := p.Confirm(context.Background(), "Confirm?")
	assert.Error(t, err)
}

func TestChoose(t *testing.T) {
	type Spec struct {
		Input         string
		Expected      int
		ExpectedError error
	}

	specs := []Spec{
		{Input: "1\n", Expected: 0},
		{Input: "4\n", Expected: 3},
		{Input: "5\n", ExpectedError: errs.InvalidArgument},
		{Input: "mint\n", ExpectedError: errs.InvalidArgument},
	}

	options := []string{"Mint rune", "Inscribe text", "Inscribe file", "Broadcast dump"}
	for _, spec := range specs {
		t.Run(strings.TrimSpace(spec.Input), func(t *testing.T) {
			var out bytes.Buffer
			p := newPrompter(bufio.NewReader(strings.NewReader(spec.Input)), &out, false)

			choice, err := p.Choose(context.Background(), "Choose an action:", options)
			if spec.ExpectedError != nil {
				assert.ErrorIs(t, err, spec.ExpectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, spec.Expected, choice)
			assert.Contains(t, out.String(), "4. Broadcast dump")
		})
	}
}

func TestPrintJournal(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJournal(&out, nil))
	assert.Contains(t, out.String(), "No broadcast recorded")

	out.Reset()
	require.NoError(t, printJournal(&out, []journal.Entry{
		{TxID: "aa", Status: journal.StatusSubmitted, Attempts: 1, UpdatedAt: time.Now()},
		{TxID: "bb", Status: journal.StatusDropped, Attempts: 2, Reason: "bad-txns", UpdatedAt: time.Now()},
	}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "dropped")
	assert.Contains(t, lines[2], "bad-txns")
}
