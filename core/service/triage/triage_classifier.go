package triage

import (
	"strings"

	"triage_server/core/domain"
)

// supportKeywords mark a subject as a tech-support request.
var supportKeywords = []string{
	"support",
	"tech support",
	"error",
	"not working",
	"assistance",
}

// purchaseSpamKeywords mark a message as purchase/marketing noise anywhere
// in subject, sender, or body.
var purchaseSpamKeywords = []string{
	"order",
	"purchased",
	"purchase",
	"invoice",
	"receipt",
	"payment",
	"subscription",
	"discount",
	"promo",
	"offer",
	"delivered",
}

// Classify applies the keyword triage rules. Relevance is checked on the
// subject first; a purchase/spam hit anywhere in subject+sender+body
// overrides a relevant subject.
func Classify(subject, sender, body string) domain.Verdict {
	if !subjectMatches(subject) {
		return domain.VerdictNotRelevant
	}
	if isPurchaseOrSpam(subject, sender, body) {
		return domain.VerdictSpamOrPurchase
	}
	return domain.VerdictRelevant
}

func subjectMatches(subject string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range supportKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isPurchaseOrSpam(subject, sender, body string) bool {
	text := strings.ToLower(subject + " " + sender + " " + body)
	for _, kw := range purchaseSpamKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
