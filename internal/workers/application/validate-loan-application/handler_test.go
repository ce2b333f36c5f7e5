// internal/workers/application/validate-loan-application/handler_test.go
package validateloanapplication

import (
	"context"
	"testing"

	"xtenda-workers/internal/applications"
	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func validInput() *Input {
	return &Input{
		Application: applications.LoanApplication{
			DateOfApplication:     "2025-06-02",
			FullNames:             "  Mwila   Banda ",
			NRC:                   "123456789",
			EmployeeNumber:        "EMP-0042",
			Employer:              "Ministry of Health",
			Phone:                 "+260 977 123 456",
			Email:                 "mwila.banda@example.com",
			EmploymentAddress:     "Ndeke House, Lusaka",
			EmploymentTerms:       "Permanent",
			LatestPayslip:         "https://files.example.com/payslip.pdf",
			Signature:             "data:image/png;base64,iVBORw0KGgo=",
			KinFullNames:          "Chanda Banda",
			KinNRC:                "987654/32/1",
			KinRelationship:       "Sister",
			KinPhone:              "0966000111",
			KinResidentialAddress: "Plot 12, Kabulonga",
			BankName:              "Zanaco",
			BranchName:            "Cairo Road",
			AccountNumber:         "0012345678901",
			DeclarationAgreed:     true,
		},
		LoanDetails: applications.LoanSummary{Amount: 2500, TenureMonths: 3, MonthlyPayment: 1091},
	}
}

type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl.WithFields(map[string]interface{}{"error": err})
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}

func newTestLogger(t *testing.T) logger.Logger {
	return &testLogger{t: t}
}

func validationErrors(t *testing.T, err error) []validation.ValidationError {
	t.Helper()
	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeApplicationValidationFailed, stdErr.Code)
	errs, ok := stdErr.Metadata["validationErrors"].([]validation.ValidationError)
	require.True(t, ok)
	return errs
}

func fields(errs []validation.ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Field
	}
	return out
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ValidApplication(t *testing.T) {
	handler := NewHandler(LoadConfig(), newTestLogger(t))

	out, err := handler.Execute(context.Background(), validInput())
	require.NoError(t, err)

	assert.True(t, out.IsValid)
	assert.Empty(t, out.ValidationErrors)
	assert.Equal(t, "Mwila Banda", out.Application.FullNames)
	assert.Equal(t, "123456/78/9", out.Application.NRC)
	assert.Equal(t, 3273.0, out.TotalRepayment)
	assert.Equal(t, 773.0, out.TotalCost)
}

func TestHandler_Execute_ContractTermsAccepted(t *testing.T) {
	handler := NewHandler(LoadConfig(), newTestLogger(t))

	input := validInput()
	input.Application.EmploymentTerms = "Contract"
	input.LoanDetails = applications.LoanSummary{Amount: 500, TenureMonths: 1, MonthlyPayment: 664}

	out, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 664.0, out.TotalRepayment)
	assert.Equal(t, 164.0, out.TotalCost)
}

// ==========================
// Field Rule Tests
// ==========================

func TestHandler_Execute_FieldRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Input)
		field   string
		message string
	}{
		{"short nrc", func(in *Input) { in.Application.NRC = "1234/56" }, "application.nrc", "Invalid NRC format (too short)."},
		{"short phone", func(in *Input) { in.Application.Phone = "097712" }, "application.phone", "Phone must have at least 10 digits."},
		{"bad email", func(in *Input) { in.Application.Email = "mwila@example" }, "application.email", "Invalid email address format."},
		{"missing employer", func(in *Input) { in.Application.Employer = "   " }, "application.employer", "Employer is required."},
		{"missing names", func(in *Input) { in.Application.FullNames = "" }, "application.fullNames", "Full Name is required."},
		{"missing signature", func(in *Input) { in.Application.Signature = "" }, "application.signature", "Signature is required."},
		{"missing payslip", func(in *Input) { in.Application.LatestPayslip = "" }, "application.latestPayslip", "Payslip is required."},
		{"missing kin", func(in *Input) { in.Application.KinFullNames = "" }, "application.kinFullNames", "Next of Kin Name is required."},
		{"missing account", func(in *Input) { in.Application.AccountNumber = "" }, "application.accountNumber", "Account Number is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(LoadConfig(), newTestLogger(t))
			input := validInput()
			tt.mutate(input)

			out, err := handler.Execute(context.Background(), input)
			assert.Nil(t, out)

			errs := validationErrors(t, err)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.message, errs[0].Message)
		})
	}
}

// ==========================
// Schema Tests
// ==========================

func TestHandler_Execute_SchemaRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"unknown employment terms", func(in *Input) { in.Application.EmploymentTerms = "Casual" }, "application.employmentTerms"},
		{"declaration not agreed", func(in *Input) { in.Application.DeclarationAgreed = false }, "application.declarationAgreed"},
		{"amount below minimum", func(in *Input) { in.LoanDetails.Amount = 100 }, "loanDetails.amount"},
		{"amount above maximum", func(in *Input) { in.LoanDetails.Amount = 10001 }, "loanDetails.amount"},
		{"unsupported tenure", func(in *Input) { in.LoanDetails.TenureMonths = 12 }, "loanDetails.tenureMonths"},
		{"zero monthly payment", func(in *Input) { in.LoanDetails.MonthlyPayment = 0 }, "loanDetails.monthlyPayment"},
		{"missing date", func(in *Input) { in.Application.DateOfApplication = "" }, "application.dateOfApplication"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(LoadConfig(), newTestLogger(t))
			input := validInput()
			tt.mutate(input)

			_, err := handler.Execute(context.Background(), input)
			errs := validationErrors(t, err)
			assert.Contains(t, fields(errs), tt.field)
		})
	}
}

func TestHandler_Execute_CollectsAllErrors(t *testing.T) {
	handler := NewHandler(LoadConfig(), newTestLogger(t))

	input := validInput()
	input.Application.NRC = "12"
	input.Application.Phone = ""
	input.Application.Email = "nope"
	input.LoanDetails.TenureMonths = 9

	_, err := handler.Execute(context.Background(), input)
	errs := validationErrors(t, err)

	got := fields(errs)
	assert.Len(t, errs, 4)
	assert.Contains(t, got, "application.nrc")
	assert.Contains(t, got, "application.phone")
	assert.Contains(t, got, "application.email")
	assert.Contains(t, got, "loanDetails.tenureMonths")

	stdErr, _ := commonerrors.AsStandardError(err)
	assert.False(t, stdErr.Retryable)
}

func TestHandler_Execute_CustomLimits(t *testing.T) {
	cfg := LoadConfig()
	cfg.MaxAmount = 5000
	cfg.SupportedTenures = []int{3, 6}
	handler := NewHandler(cfg, newTestLogger(t))

	input := validInput()
	input.LoanDetails = applications.LoanSummary{Amount: 6000, TenureMonths: 2, MonthlyPayment: 3711}

	_, err := handler.Execute(context.Background(), input)
	got := fields(validationErrors(t, err))
	assert.ElementsMatch(t, []string{"loanDetails.amount", "loanDetails.tenureMonths"}, got)
}

func TestSanitize_LeavesShortNRCForReporting(t *testing.T) {
	app := sanitize(applications.LoanApplication{NRC: "12/3", FullNames: "\tA  B\n"})
	assert.Equal(t, "12/3", app.NRC)
	assert.Equal(t, "A B", app.FullNames)
}
