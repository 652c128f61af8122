package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/bank-of-trust/bankbot-core/internal/agent/model"
	errx "github.com/bank-of-trust/bankbot-core/internal/core/error"
	"github.com/bank-of-trust/bankbot-core/internal/knowledge"
	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/bank-of-trust/bankbot-core/internal/reply"
)

const signInText = "Please sign in to your account to check your balance."

// renderAnswer fills the chosen response template through the eino prompt component so
// prompt callbacks observe it. Templates see Name, MaskedAccount and Balance.
func renderAnswer(ctx context.Context, balances BalanceReader, in knowledge.AnswerIntent, t *model.Turn) (reply.Outcome, error) {
	vars := map[string]any{
		"Name":          t.Profile.Name,
		"MaskedAccount": "",
		"Balance":       "",
	}
	if t.Profile.Known() {
		vars["MaskedAccount"] = money.MaskDigits(t.Profile.AccountID)
	}
	if in.Wants(knowledge.AttrBalance) {
		if !t.Profile.Known() || balances == nil {
			return reply.IntentReply{Text: signInText}, nil
		}
		bal, err := balances.GetBalance(ctx, t.Profile.AccountID)
		if err != nil {
			return nil, errx.Collaborator("get balance", err)
		}
		vars["Balance"] = bal.String()
	}

	tpl := in.Respond(t.Text, t.Context.TurnCount)
	msgs, err := prompt.FromMessages(schema.GoTemplate, schema.AssistantMessage(tpl, nil)).Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("render %s response: %w", in.Name, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("render %s response: no message", in.Name)
	}
	return reply.IntentReply{Text: msgs[0].Content}, nil
}
