package knowledge

import (
	"context"
	"testing"

	"github.com/bank-of-trust/bankbot-core/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var flows = []string{"transfer", "loan_eligibility", "kyc", "cards", "atm"}

func TestDefault_Compiles(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	c, err := Compile(d, flows)
	require.NoError(t, err)

	in, ok := c.Intent("start_transfer")
	require.True(t, ok)
	assert.Equal(t, FlowIntent{Name: "start_transfer", Flow: "transfer"}, in)

	in, ok = c.Intent("card_services")
	require.True(t, ok)
	assert.Equal(t, FlowIntent{Name: "card_services", Flow: "cards"}, in)

	in, ok = c.Intent("check_balance")
	require.True(t, ok)
	answer, ok := in.(AnswerIntent)
	require.True(t, ok)
	assert.True(t, answer.Wants(AttrBalance))

	in, ok = c.Intent("abandon")
	require.True(t, ok)
	assert.Equal(t, router.Cancel, in.(ControlIntent).Token)

	labels := c.Labels()
	assert.IsIncreasing(t, labels)
	assert.NotEmpty(t, c.Examples())
}

func TestCompile_Rejects(t *testing.T) {
	ok := IntentSpec{Label: "greet", Kind: KindAnswer, Utterances: []string{"hi"}, Responses: []string{"Hello"}}

	cases := map[string]Dataset{
		"single intent":  {Intents: []IntentSpec{ok}},
		"reserved label": {Intents: []IntentSpec{ok, {Label: "unknown", Utterances: []string{"x"}, Responses: []string{"y"}}}},
		"duplicate":      {Intents: []IntentSpec{ok, ok}},
		"no utterances":  {Intents: []IntentSpec{ok, {Label: "a", Utterances: []string{"  "}, Responses: []string{"y"}}}},
		"no responses":   {Intents: []IntentSpec{ok, {Label: "a", Kind: KindAnswer, Utterances: []string{"x"}}}},
		"unknown flow":   {Intents: []IntentSpec{ok, {Label: "a", Kind: KindFlow, Flow: "mortgage", Utterances: []string{"x"}}}},
		"bad control":    {Intents: []IntentSpec{ok, {Label: "a", Kind: KindControl, Control: "reboot", Utterances: []string{"x"}}}},
		"bad kind":       {Intents: []IntentSpec{ok, {Label: "a", Kind: "magic", Utterances: []string{"x"}}}},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compile(d, flows)
			assert.ErrorIs(t, err, ErrInvalidDataset)
		})
	}
}

func TestAnswerIntent_Respond(t *testing.T) {
	d := Dataset{Intents: []IntentSpec{
		{Label: "hours", Utterances: []string{"branch hours", "atm hours"}, Responses: []string{"Branch: 9-4", "ATM: 24x7"}},
		{Label: "bye", Utterances: []string{"bye"}, Responses: []string{"Goodbye"}},
	}}
	c, err := Compile(d, nil)
	require.NoError(t, err)

	in, _ := c.Intent("hours")
	a := in.(AnswerIntent)
	assert.Equal(t, "ATM: 24x7", a.Respond("  ATM   Hours ", 0))
	assert.Equal(t, "Branch: 9-4", a.Respond("opening time", 2))
	assert.Equal(t, "ATM: 24x7", a.Respond("opening time", 3))
}

func TestParseYAML(t *testing.T) {
	d, err := ParseYAML([]byte(`
intents:
  - label: greet
    kind: answer
    utterances: [hi, hello]
    responses: [Hello]
  - label: start_transfer
    kind: flow
    flow: transfer
    utterances: [send money]
`))
	require.NoError(t, err)
	require.Len(t, d.Intents, 2)
	assert.Equal(t, []Example{
		{Text: "hi", Intent: "greet", Response: "Hello"},
		{Text: "hello", Intent: "greet", Response: "Hello"},
		{Text: "send money", Intent: "start_transfer"},
	}, d.Examples())

	_, err = ParseYAML([]byte("intents: {"))
	assert.ErrorIs(t, err, ErrInvalidDataset)
}

func TestSQLiteSource_ImportLoad(t *testing.T) {
	ctx := context.Background()
	src, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer src.Close()

	n, err := src.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	d, err := Default()
	require.NoError(t, err)
	require.NoError(t, src.Import(ctx, d))

	n, err = src.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(d.Examples()), n)

	loaded, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, d.Examples(), loaded.Examples())

	c, err := Compile(loaded, flows)
	require.NoError(t, err)
	in, ok := c.Intent("check_balance")
	require.True(t, ok)
	assert.Equal(t, []string{AttrBalance}, in.(AnswerIntent).Attributes)
	in, ok = c.Intent("capabilities")
	require.True(t, ok)
	assert.Equal(t, router.Help, in.(ControlIntent).Token)
}
