// internal/workers/communication/send-status-notification/message.go
package sendstatusnotification

import (
	"fmt"
	"html"
	"strings"

	"xtenda-workers/internal/applications"
	"xtenda-workers/internal/common/validation"
)

type emailContent struct {
	Subject string
	Text    string
	HTML    string
}

func months(n int) string {
	if n == 1 {
		return "1 month"
	}
	return fmt.Sprintf("%d months", n)
}

func buildEmail(in *Input, d applications.Display, supportPhone string) emailContent {
	name := strings.TrimSpace(in.FullNames)
	if name == "" {
		name = "Applicant"
	}
	amount := applications.FormatKwacha(in.Amount)
	monthly := applications.FormatKwacha(in.MonthlyPayment)

	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\n%s\n\n", name, d.Message)
	fmt.Fprintf(&text, "Loan amount: %s\n", amount)
	fmt.Fprintf(&text, "Repayment: %s per month for %s\n", monthly, months(in.TenureMonths))
	fmt.Fprintf(&text, "Reference: %s\n\n", in.ApplicationID)
	fmt.Fprintf(&text, "For assistance call %s.\n\nXtenda Salary Advance\n", supportPhone)

	var body strings.Builder
	body.WriteString("<html><body>")
	fmt.Fprintf(&body, "<p>Dear %s,</p>", html.EscapeString(name))
	fmt.Fprintf(&body, "<h2>%s</h2><p>%s</p>", html.EscapeString(d.Title), html.EscapeString(d.Message))
	body.WriteString("<table>")
	fmt.Fprintf(&body, "<tr><td>Loan amount</td><td>%s</td></tr>", amount)
	fmt.Fprintf(&body, "<tr><td>Monthly repayment</td><td>%s</td></tr>", monthly)
	fmt.Fprintf(&body, "<tr><td>Tenure</td><td>%s</td></tr>", months(in.TenureMonths))
	fmt.Fprintf(&body, "<tr><td>Reference</td><td>%s</td></tr>", html.EscapeString(in.ApplicationID))
	body.WriteString("</table>")
	fmt.Fprintf(&body, "<p>For assistance call %s.</p>", html.EscapeString(supportPhone))
	body.WriteString("</body></html>")

	return emailContent{
		Subject: "Xtenda: " + d.Title,
		Text:    text.String(),
		HTML:    body.String(),
	}
}

func buildSMS(in *Input, d applications.Display, supportPhone string) string {
	return fmt.Sprintf("Xtenda: %s Ref %s. %s over %s at %s/month. Queries: %s",
		d.Title, in.ApplicationID,
		applications.FormatKwacha(in.Amount), months(in.TenureMonths),
		applications.FormatKwacha(in.MonthlyPayment), supportPhone)
}

// toE164 turns a local Zambian number into +260... form. Numbers that already
// carry the country code keep it.
func toE164(phone, countryCode string) (string, bool) {
	d := validation.Digits(phone)
	switch {
	case len(d) < 9:
		return "", false
	case strings.HasPrefix(d, countryCode) && len(d) > 9:
		return "+" + d, true
	case strings.HasPrefix(d, "0"):
		return "+" + countryCode + d[1:], true
	case len(d) == 9:
		return "+" + countryCode + d, true
	}
	return "+" + d, true
}
