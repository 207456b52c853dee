package mail

import "strings"

// automatedSenderPatterns are substrings that mark a sender address as
// likely automated, newsletter or otherwise non-human. Order is significant:
// matches are reported in this order.
var automatedSenderPatterns = []string{
	"noreply",
	"no-reply",
	"donotreply",
	"do-not-reply",
	"newsletter",
	"marketing",
	"promo",
	"promotions",
	"automated",
	"notification",
	"notifications",
	"alert",
	"alerts",
	"mailer",
	"bounce",
	"info@",
	"support",
	"updates",
	"digest",
	"news@",
	"hello@",
	"team@",
}

// Classification is the outcome of classifying a sender address.
type Classification struct {
	Sender  string
	Flagged bool
	Matches []string
}

// Classify matches from against the automated-sender vocabulary.
func Classify(from string) Classification {
	lower := strings.ToLower(from)
	matches := make([]string, 0)
	for _, pattern := range automatedSenderPatterns {
		if strings.Contains(lower, pattern) {
			matches = append(matches, pattern)
		}
	}
	return Classification{
		Sender:  from,
		Flagged: len(matches) > 0,
		Matches: matches,
	}
}

// AutomatedSenderPatterns returns a copy of the vocabulary used by Classify.
func AutomatedSenderPatterns() []string {
	out := make([]string, len(automatedSenderPatterns))
	copy(out, automatedSenderPatterns)
	return out
}
