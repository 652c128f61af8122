// Package money parses and formats rupee amounts typed into the chat.
// Amounts are held in paise so arithmetic stays exact.
package money

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amount is a value in paise (1/100 rupee).
type Amount int64

// Rupees builds an Amount from whole rupees.
func Rupees(r int64) Amount {
	return Amount(r * 100)
}

// ErrInvalidAmount is returned for anything that is not a strictly positive rupee amount.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	currencyPrefix = regexp.MustCompile(`^(?:₹|rs\.?|inr)\s*`)
	// plain digits, or comma grouped (western 1,500,000 or Indian 15,00,000) with up to two decimals
	amountPattern = regexp.MustCompile(`^(?:\d{1,2}(?:,\d{2})*,\d{3}|\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?$`)
)

// maxIntegralDigits bounds parsed input to below one thousand crore.
const maxIntegralDigits = 12

// Parse reads inputs such as "1500", "₹1,500", "Rs. 2,50,000.50" or "inr 99.5".
func Parse(s string) (Amount, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = currencyPrefix.ReplaceAllString(s, "")
	if !amountPattern.MatchString(s) {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", "")

	intPart, fracPart, _ := strings.Cut(s, ".")
	if len(intPart) > maxIntegralDigits {
		return 0, ErrInvalidAmount
	}
	rupees, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	var paise int64
	if fracPart != "" {
		if len(fracPart) == 1 {
			fracPart += "0"
		}
		paise, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
	}
	a := Amount(rupees*100 + paise)
	if a <= 0 {
		return 0, ErrInvalidAmount
	}
	return a, nil
}

var printer = message.NewPrinter(language.English)

// String renders the amount as "₹1,500" or "₹1,500.50".
func (a Amount) String() string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	rupees, paise := int64(a)/100, int64(a)%100
	if paise == 0 {
		return sign + "₹" + printer.Sprintf("%d", rupees)
	}
	return sign + "₹" + printer.Sprintf("%d", rupees) + fmt.Sprintf(".%02d", paise)
}

// Mul scales an amount by an integer factor.
func (a Amount) Mul(n int64) Amount {
	return a * Amount(n)
}

// EMI returns the monthly instalment for a principal at an annual rate over the given months,
// rounded to the nearest paisa.
func EMI(principal Amount, annualRate float64, months int) (Amount, error) {
	if months <= 0 {
		return 0, errors.New("tenure must be positive")
	}
	if principal <= 0 {
		return 0, ErrInvalidAmount
	}
	p := float64(principal)
	r := annualRate / 12
	if r == 0 {
		return Amount(math.Round(p / float64(months))), nil
	}
	f := math.Pow(1+r, float64(months))
	return Amount(math.Round(p * r * f / (f - 1))), nil
}
