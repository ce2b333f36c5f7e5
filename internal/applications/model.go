// internal/applications/model.go
package applications

import (
	"time"

	"xtenda-workers/internal/repayment"
)

type Status string

const (
	StatusNew         Status = "New"
	StatusUnderReview Status = "Under Review"
	StatusApproved    Status = "Approved"
	StatusRejected    Status = "Rejected"
)

var allStatuses = []Status{StatusNew, StatusUnderReview, StatusApproved, StatusRejected}

// ParseStatus accepts the exact display spelling only.
func ParseStatus(s string) (Status, bool) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Open reports whether an application in this status still awaits a decision.
func (s Status) Open() bool {
	return s == StatusNew || s == StatusUnderReview
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition reports whether an admin may move an application from one
// status to another. Decisions are final and a no-op move is not a
// transition.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusNew:
		return to == StatusUnderReview || to == StatusApproved || to == StatusRejected
	case StatusUnderReview:
		return to == StatusApproved || to == StatusRejected || to == StatusNew
	}
	return false
}

// LoanApplication is the applicant-supplied form. Document fields hold
// references (URLs or data URIs) and are never inspected.
type LoanApplication struct {
	DateOfApplication string `json:"dateOfApplication"`
	FullNames         string `json:"fullNames"`
	NRC               string `json:"nrc"`
	EmployeeNumber    string `json:"employeeNumber"`
	Employer          string `json:"employer"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	EmploymentAddress string `json:"employmentAddress"`
	EmploymentTerms   string `json:"employmentTerms"`
	LoanPurpose       string `json:"loanPurpose,omitempty"`

	Selfie        string `json:"selfie,omitempty"`
	LatestPayslip string `json:"latestPayslip,omitempty"`
	Signature     string `json:"signature"`

	KinFullNames          string `json:"kinFullNames"`
	KinNRC                string `json:"kinNrc"`
	KinRelationship       string `json:"kinRelationship"`
	KinPhone              string `json:"kinPhone"`
	KinResidentialAddress string `json:"kinResidentialAddress"`

	BankName      string `json:"bankName"`
	BranchName    string `json:"branchName"`
	AccountNumber string `json:"accountNumber"`

	DeclarationAgreed bool `json:"declarationAgreed"`
}

// LoanSummary is the quote snapshot taken when the applicant submits.
type LoanSummary struct {
	Amount         float64 `json:"amount"`
	TenureMonths   int     `json:"tenureMonths"`
	MonthlyPayment float64 `json:"monthlyPayment"`
}

// Quote derives the totals for the snapshot without consulting a schedule.
func (s LoanSummary) Quote() repayment.LoanQuote {
	return repayment.QuoteFromInstallment(s.Amount, s.TenureMonths, s.MonthlyPayment)
}

// Record is a stored application.
type Record struct {
	ID          string          `json:"id"`
	Application LoanApplication `json:"application"`
	Summary     LoanSummary     `json:"loanDetails"`
	Status      Status          `json:"status"`
	ReviewedBy  string          `json:"reviewedBy,omitempty"`
	ReviewNotes string          `json:"reviewNotes,omitempty"`
	SubmittedAt time.Time       `json:"submittedAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// StatusView is what an applicant sees when checking on an application. It
// is also the cached preview.
type StatusView struct {
	ID             string    `json:"id"`
	NRC            string    `json:"nrc"`
	FullNames      string    `json:"fullNames"`
	Status         Status    `json:"status"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Amount         float64   `json:"amount"`
	TenureMonths   int       `json:"tenureMonths"`
	MonthlyPayment float64   `json:"monthlyPayment"`
	SubmittedAt    time.Time `json:"submittedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (r *Record) View() StatusView {
	d := StatusDisplay(r.Status)
	return StatusView{
		ID:             r.ID,
		NRC:            NormalizeNRC(r.Application.NRC),
		FullNames:      r.Application.FullNames,
		Status:         r.Status,
		Title:          d.Title,
		Message:        d.Message,
		Amount:         r.Summary.Amount,
		TenureMonths:   r.Summary.TenureMonths,
		MonthlyPayment: r.Summary.MonthlyPayment,
		SubmittedAt:    r.SubmittedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
