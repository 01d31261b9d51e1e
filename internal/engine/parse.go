package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aleixoc/budget-copilot-go/internal/domain"
)

// amountRe matches a currency amount: optional $, thousands separators,
// optional cents.
var amountRe = regexp.MustCompile(`\$?\s*(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)

// trailing punctuation/separators stripped off a parsed bill name.
var nameTrimRe = regexp.MustCompile(`[\s:\-–=,]+$`)

// BillLine is one {name, amount} pair extracted from pasted bill text.
type BillLine struct {
	Name   string
	Amount float64
}

// ParseBillText extracts {name, amount} pairs from free text, splitting on
// newlines or colon/comma-delimited runs. It returns nil when fewer than
// two pairs are found: a single amount in a single line is far more likely
// prose about money than a bill list, and misparsing chat as bills is worse
// than asking the user to paste again.
func ParseBillText(text string) []BillLine {
	segments := strings.Split(text, "\n")
	if len(nonEmpty(segments)) < 2 {
		// Single-line input such as "Rent: 1200, Phone: 80".
		segments = regexp.MustCompile(`[,;]`).Split(text, -1)
	}

	var lines []BillLine
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		loc := amountRe.FindStringIndex(seg)
		if loc == nil {
			continue
		}
		raw := strings.TrimSpace(seg[loc[0]:loc[1]])
		raw = strings.TrimPrefix(raw, "$")
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}

		name := nameTrimRe.ReplaceAllString(strings.TrimSpace(seg[:loc[0]]), "")
		if name == "" {
			continue
		}
		lines = append(lines, BillLine{Name: name, Amount: amount})
	}

	if len(lines) < 2 {
		return nil
	}
	return lines
}

func nonEmpty(segments []string) []string {
	out := segments[:0:0]
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// MergeParsedBills merges extracted bill lines into the current state by
// case-insensitive name match: a nonzero incoming amount overwrites the
// existing bill and its shadow category, a zero amount keeps what's there,
// and unknown names append a new unscheduled bill plus its shadow category.
func MergeParsedBills(cur domain.BudgetState, lines []BillLine) domain.BudgetState {
	next := cur.Clone()

	for _, line := range lines {
		found := false
		for i := range next.Bills {
			if domain.SameEntity(next.Bills[i].Name, line.Name) {
				if line.Amount != 0 {
					next.Bills[i].Amount = line.Amount
				}
				found = true
				break
			}
		}
		if !found {
			next.Bills = append(next.Bills, domain.BudgetBill{
				Name:   line.Name,
				Date:   domain.UnscheduledDate,
				Amount: line.Amount,
			})
		}

		if line.Amount != 0 {
			for i := range next.Categories {
				if domain.SameEntity(next.Categories[i].Name, line.Name) {
					next.Categories[i].Planned = line.Amount
					break
				}
			}
		}
	}

	next.Categories = ensureShadowCategories(next.Bills, next.Categories)
	return next
}
