package parser

import "strings"

// categoryKeywords maps description substrings to a best-guess
// category. First match wins; order groups the common cases first.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"payroll", "Salary"},
	{"paycheck", "Salary"},
	{"salary", "Salary"},
	{"direct dep", "Salary"},
	{"grocer", "Groceries"},
	{"supermarket", "Groceries"},
	{"market", "Groceries"},
	{"restaurant", "Dining"},
	{"cafe", "Dining"},
	{"coffee", "Dining"},
	{"pizza", "Dining"},
	{"doordash", "Dining"},
	{"uber eats", "Dining"},
	{"grubhub", "Dining"},
	{"uber", "Transport"},
	{"lyft", "Transport"},
	{"gas", "Transport"},
	{"fuel", "Transport"},
	{"parking", "Transport"},
	{"transit", "Transport"},
	{"electric", "Utilities"},
	{"water", "Utilities"},
	{"internet", "Utilities"},
	{"comcast", "Utilities"},
	{"verizon", "Utilities"},
	{"at&t", "Utilities"},
	{"pharmacy", "Health"},
	{"cvs", "Health"},
	{"walgreens", "Health"},
	{"doctor", "Health"},
	{"dental", "Health"},
	{"netflix", "Entertainment"},
	{"spotify", "Entertainment"},
	{"hulu", "Entertainment"},
	{"cinema", "Entertainment"},
	{"amazon", "Shopping"},
	{"walmart", "Shopping"},
	{"target", "Shopping"},
	{"rent", "Housing"},
	{"mortgage", "Housing"},
	{"insurance", "Insurance"},
	{"atm", "Cash"},
	{"withdrawal", "Cash"},
	{"transfer", "Transfer"},
	{"xfer", "Transfer"},
	{"fee", "Fees"},
	{"interest", "Interest"},
}

// guessCategory returns a category for a description, or "" when
// nothing matches. Purely advisory; the user can change it in review.
func guessCategory(description string) string {
	desc := strings.ToLower(description)
	for _, kw := range categoryKeywords {
		if strings.Contains(desc, kw.keyword) {
			return kw.category
		}
	}
	return ""
}
