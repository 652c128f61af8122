package flow

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/bank-of-trust/bankbot-core/internal/money"
	"github.com/bank-of-trust/bankbot-core/internal/router"
)

// chosen stores the label of the picked menu option.
func chosen(in router.Input, _ Env) (string, error) {
	return in.Choice.Label, nil
}

// confirmation stores "yes" or "no".
func confirmation(in router.Input, _ Env) (string, error) {
	if in.Confirmed {
		return "yes", nil
	}
	return "no", nil
}

func submitOnYes(value string, _ Env) Transition {
	if value == "yes" {
		return Submit()
	}
	return Abort(reasonCancelled)
}

// amountUpTo accepts a parsed amount no larger than limit; a zero limit means unbounded.
// The slot holds the amount in paise.
func amountUpTo(limit money.Amount) Validator {
	return func(in router.Input, _ Env) (string, error) {
		if in.Amount <= 0 {
			return "", invalid("Please enter an amount greater than zero.")
		}
		if limit > 0 && in.Amount > limit {
			return "", invalid("The maximum allowed is %s.", limit)
		}
		return strconv.FormatInt(int64(in.Amount), 10), nil
	}
}

func slotAmount(v string) money.Amount {
	n, _ := strconv.ParseInt(v, 10, 64)
	return money.Amount(n)
}

func showAmount(v string) string {
	return slotAmount(v).String()
}

func slotInt(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}

// integer accepts a whole number in [lo, hi].
func integer(lo, hi int, msg string) Validator {
	return func(in router.Input, _ Env) (string, error) {
		s := strings.TrimSpace(in.Raw)
		n, err := strconv.Atoi(s)
		if err != nil || n < lo || n > hi {
			return "", invalid("%s", msg)
		}
		return strconv.Itoa(n), nil
	}
}

// digits accepts an identifier of lo..hi digits, ignoring spaces and dashes.
func digits(lo, hi int, msg string) Validator {
	return func(in router.Input, _ Env) (string, error) {
		s := stripSeparators(in.Raw)
		if len(s) < lo || len(s) > hi || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return "", invalid("%s", msg)
		}
		return s, nil
	}
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// personName accepts 2 to 60 characters of letters, spaces, dots, apostrophes and hyphens.
func personName(in router.Input, _ Env) (string, error) {
	name := strings.Join(strings.Fields(in.Raw), " ")
	if len([]rune(name)) < 2 || len([]rune(name)) > 60 {
		return "", invalid("Please enter your full name (2 to 60 characters).")
	}
	letters := 0
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == ' ' || r == '.' || r == '\'' || r == '-':
		default:
			return "", invalid("A name may only contain letters, spaces, dots, apostrophes and hyphens.")
		}
	}
	if letters < 2 {
		return "", invalid("Please enter your full name (2 to 60 characters).")
	}
	return name, nil
}

// minText accepts free text of at least n characters.
func minText(n int, msg string) Validator {
	return func(in router.Input, _ Env) (string, error) {
		s := strings.Join(strings.Fields(in.Raw), " ")
		if len([]rune(s)) < n {
			return "", invalid("%s", msg)
		}
		return s, nil
	}
}
