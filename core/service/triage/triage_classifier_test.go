package triage

import (
	"testing"

	"triage_server/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		sender  string
		body    string
		want    domain.Verdict
	}{
		{
			name:    "support subject is relevant",
			subject: "Need tech support - Error",
			sender:  "user@x.com",
			body:    "Error : 101 machine down",
			want:    domain.VerdictRelevant,
		},
		{
			name:    "no support keyword in subject is not relevant",
			subject: "Lunch on Friday?",
			sender:  "friend@x.com",
			body:    "error everywhere in the body does not matter",
			want:    domain.VerdictNotRelevant,
		},
		{
			name:    "empty subject is not relevant",
			subject: "",
			sender:  "user@x.com",
			body:    "assistance needed",
			want:    domain.VerdictNotRelevant,
		},
		{
			name:    "keyword match is case-insensitive",
			subject: "URGENT: NOT WORKING",
			sender:  "user@x.com",
			body:    "the machine failed",
			want:    domain.VerdictRelevant,
		},
		{
			name:    "purchase keyword in body overrides relevant subject",
			subject: "Error with my device",
			sender:  "user@x.com",
			body:    "I just purchased this yesterday",
			want:    domain.VerdictSpamOrPurchase,
		},
		{
			name:    "spam keyword in sender overrides relevant subject",
			subject: "tech support needed",
			sender:  "promo@deals.example",
			body:    "please help",
			want:    domain.VerdictSpamOrPurchase,
		},
		{
			name:    "spam keyword in subject itself",
			subject: "Error with your invoice",
			sender:  "user@x.com",
			body:    "help",
			want:    domain.VerdictSpamOrPurchase,
		},
		{
			name:    "spam keyword without support subject stays not relevant",
			subject: "Your package",
			sender:  "shop@store.example",
			body:    "your order was delivered",
			want:    domain.VerdictNotRelevant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.subject, tt.sender, tt.body)
			if got != tt.want {
				t.Errorf("Classify(%q, %q, %q) = %v, want %v",
					tt.subject, tt.sender, tt.body, got, tt.want)
			}
		})
	}
}

// Spam precedence must hold for any relevant subject: a purchase keyword
// anywhere wins even when a support keyword is also present.
func TestClassifySpamPrecedence(t *testing.T) {
	subjects := []string{
		"error 42",
		"need assistance",
		"tech support request",
	}
	for _, subject := range subjects {
		got := Classify(subject, "user@x.com", "thanks for the discount code")
		if got != domain.VerdictSpamOrPurchase {
			t.Errorf("Classify(%q, ...) = %v, want %v", subject, got, domain.VerdictSpamOrPurchase)
		}
	}
}
