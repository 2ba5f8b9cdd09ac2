package core

import "strings"

// Category tags assigned by the rule engine. Adapters that trust an
// explicit source category may additionally produce CategoryUncategorized.
const (
	CategoryDining        = "Dining"
	CategoryGroceries     = "Groceries"
	CategoryTransport     = "Transport"
	CategoryShopping      = "Shopping"
	CategoryEntertainment = "Entertainment"
	CategoryUtilities     = "Utilities"
	CategoryHealth        = "Health"
	CategoryTravel        = "Travel"
	CategoryHousing       = "Housing"
	CategoryOther         = "Other"
	CategoryUncategorized = "Uncategorized"
)

// CategoryRule pairs a category tag with the keywords that select it.
type CategoryRule struct {
	Category string
	Keywords []string
}

// categoryRules is the static rule table. Order is load-bearing: Categorize
// walks it top to bottom and the first rule with a keyword hit wins, so
// reordering changes categorization output.
var categoryRules = []CategoryRule{
	{CategoryDining, []string{
		"starbucks", "coffee", "restaurant", "cafe", "pizza", "burger",
		"mcdonald", "chipotle", "sushi", "doordash", "grubhub", "dining",
	}},
	{CategoryGroceries, []string{
		"grocery", "supermarket", "whole foods", "trader joe", "safeway",
		"kroger", "aldi", "costco", "market",
	}},
	{CategoryTransport, []string{
		"shell", "gas", "fuel", "chevron", "exxon", "uber", "lyft", "taxi",
		"metro", "transit", "parking", "toll",
	}},
	{CategoryShopping, []string{
		"amazon", "walmart", "target", "ebay", "etsy", "best buy", "ikea",
		"mall", "store",
	}},
	{CategoryEntertainment, []string{
		"netflix", "spotify", "hulu", "disney", "cinema", "movie", "theater",
		"steam", "concert", "game",
	}},
	{CategoryUtilities, []string{
		"electric", "water", "internet", "comcast", "verizon", "t-mobile",
		"phone", "utility", "broadband",
	}},
	{CategoryHealth, []string{
		"pharmacy", "cvs", "walgreens", "doctor", "dental", "clinic",
		"hospital", "gym", "fitness",
	}},
	{CategoryTravel, []string{
		"airline", "flight", "hotel", "airbnb", "delta", "united",
		"southwest", "booking", "expedia",
	}},
	{CategoryHousing, []string{
		"rent", "mortgage", "landlord", "apartment", "lease",
	}},
}

// Categorize assigns a category tag from the transaction's text fields.
// It lowercases the concatenation of description and merchant and returns
// the category of the first rule for which any keyword appears as a
// substring; when no rule matches it returns CategoryOther. Pure and
// deterministic.
func Categorize(description, merchant string) string {
	text := strings.ToLower(description + " " + merchant)
	for _, rule := range categoryRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Category
			}
		}
	}
	return CategoryOther
}

// Categories returns the category tags of the rule table in match order,
// with the rule-less fallbacks appended.
func Categories() []string {
	out := make([]string, 0, len(categoryRules)+2)
	for _, rule := range categoryRules {
		out = append(out, rule.Category)
	}
	return append(out, CategoryOther, CategoryUncategorized)
}
