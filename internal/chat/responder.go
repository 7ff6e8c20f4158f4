package chat

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"qrmenu-backend/internal/models"
)

// Request is what a responder sees: the guest's words and the tenant menu.
type Request struct {
	RestaurantName string
	Message        string
	Menu           []models.MenuItem
}

// Responder produces the assistant's reply. Replies may carry order
// markers; see FormatOrderMarker.
type Responder interface {
	Reply(ctx context.Context, req Request) (string, error)
}

// KeywordResponder answers from the menu alone, without an external model.
type KeywordResponder struct {
	Suggestions int // items offered for open questions
}

// wordSet matches any of the given words or phrases as whole words.
func wordSet(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

var (
	greetingWords  = wordSet("hello", "hi", "hey", "namaste", "good morning", "good evening")
	recommendWords = wordSet("recommend", "suggest", "popular", "best", "special", "menu", "what do you have")

	techWords      = wordSet("app", "website", "qr", "payment", "bug", "error", "crash", "not working", "loading", "page")
	complaintWords = wordSet(
		"complain", "complaint", "bad", "cold", "late", "slow", "dirty", "worst", "terrible",
		"awful", "rude", "stale", "raw", "not working", "broken", "error", "crash", "bug",
	)
)

// dishPattern matches a dish name not glued to other letters or digits.
// Names may start or end in punctuation, so \b is not enough.
func dishPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(name) + `(?:$|[^\p{L}\p{N}])`)
}

func containsAny(s string, words *regexp.Regexp) bool {
	return words.MatchString(s)
}

// DetectComplaint reports whether a message reads as a complaint and
// whether it concerns the ordering app or the food.
func DetectComplaint(message string) (bool, models.FeedbackCategory) {
	msg := strings.ToLower(message)
	if !containsAny(msg, complaintWords) {
		return false, ""
	}
	if containsAny(msg, techWords) {
		return true, models.FeedbackTech
	}
	return true, models.FeedbackFood
}

func available(menu []models.MenuItem) []models.MenuItem {
	out := make([]models.MenuItem, 0, len(menu))
	for _, it := range menu {
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out
}

func (k KeywordResponder) Reply(ctx context.Context, req Request) (string, error) {
	msg := strings.ToLower(strings.TrimSpace(req.Message))
	menu := available(req.Menu)

	if complaint, _ := DetectComplaint(msg); complaint {
		return "I'm sorry about that. I've passed your feedback to the restaurant team and someone will look into it.", nil
	}

	// longest names first so "butter naan" wins over "naan"
	sorted := append([]models.MenuItem(nil), menu...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].Name) > len(sorted[j].Name) })

	// a matched name is cut out of the message before shorter names are tried
	var lines []string
	rest := msg
	for _, it := range sorted {
		name := strings.ToLower(strings.TrimSpace(it.Name))
		if name == "" {
			continue
		}
		re := dishPattern(name)
		if !re.MatchString(rest) {
			continue
		}
		rest = re.ReplaceAllString(rest, " ")
		lines = append(lines, FormatOrderMarker(it.Name, it.Price))
	}
	if len(lines) > 0 {
		return "Great choice! Tap to add:\n" + strings.Join(lines, "\n"), nil
	}

	if containsAny(msg, recommendWords) {
		if len(menu) == 0 {
			return "Sorry, nothing is available right now.", nil
		}
		n := k.Suggestions
		if n <= 0 {
			n = 3
		}
		if n > len(menu) {
			n = len(menu)
		}
		for _, it := range menu[:n] {
			lines = append(lines, FormatOrderMarker(it.Name, it.Price))
		}
		return "Here are a few favourites:\n" + strings.Join(lines, "\n"), nil
	}

	if containsAny(msg, greetingWords) {
		name := req.RestaurantName
		if name == "" {
			name = "our restaurant"
		}
		return fmt.Sprintf("Welcome to %s! Ask me for recommendations or name a dish to add it to your order.", name), nil
	}

	return "I can suggest dishes or add items to your order. Try asking for a recommendation.", nil
}
