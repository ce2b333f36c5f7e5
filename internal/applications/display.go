// internal/applications/display.go
package applications

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Display struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

var displays = map[Status]Display{
	StatusNew: {
		Title:   "Application Submitted Successfully",
		Message: "Your application has been successfully submitted and is now under review.",
	},
	StatusUnderReview: {
		Title:   "Under Review",
		Message: "Your application is currently being reviewed by our team. We're checking the details you provided.",
	},
	StatusApproved: {
		Title:   "Loan Approved!",
		Message: "Congratulations! Your salary advance has been approved. The funds will be disbursed to your account shortly.",
	},
	StatusRejected: {
		Title:   "Application Declined",
		Message: "After careful consideration, we are unable to approve your application at this time. Please contact us for more details.",
	},
}

// StatusDisplay returns the applicant-facing wording for a status. Unknown
// statuses fall back to the New wording.
func StatusDisplay(s Status) Display {
	if d, ok := displays[s]; ok {
		return d
	}
	return displays[StatusNew]
}

// FormatKwacha renders an amount as Zambian kwacha with thousands
// separators and at most two decimals, e.g. K2,500 or K121.5.
func FormatKwacha(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	if !d.IsPositive() {
		return "K0"
	}

	s := d.String()
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	b.WriteString("K")
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(frac)
	return b.String()
}
