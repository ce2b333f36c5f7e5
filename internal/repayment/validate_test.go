// internal/repayment/validate_test.go
package repayment

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTable_DefaultScheduleIsValid(t *testing.T) {
	assert.NoError(t, ValidateTable(DefaultSchedule(), nil))
	assert.NoError(t, ValidateTable(DefaultSchedule(), SupportedTenures))
}

func TestValidateTable_Problems(t *testing.T) {
	tests := []struct {
		name      string
		table     ScheduleTable
		tenures   []int
		wantField string
		wantIndex int
	}{
		{
			name:      "empty table",
			table:     ScheduleTable{},
			tenures:   []int{3},
			wantField: "table",
			wantIndex: -1,
		},
		{
			name: "duplicate amount",
			table: ScheduleTable{
				{DisbursedAmount: 1000, Installments: map[int]float64{3: 455}},
				{DisbursedAmount: 1000, Installments: map[int]float64{3: 460}},
			},
			tenures:   []int{3},
			wantField: "disbursedAmount",
			wantIndex: 1,
		},
		{
			name: "non-positive amount",
			table: ScheduleTable{
				{DisbursedAmount: 0, Installments: map[int]float64{3: 455}},
			},
			tenures:   []int{3},
			wantField: "disbursedAmount",
			wantIndex: 0,
		},
		{
			name: "NaN amount",
			table: ScheduleTable{
				{DisbursedAmount: math.NaN(), Installments: map[int]float64{3: 455}},
			},
			tenures:   []int{3},
			wantField: "disbursedAmount",
			wantIndex: 0,
		},
		{
			name: "missing tenure",
			table: ScheduleTable{
				{DisbursedAmount: 500, Installments: map[int]float64{3: 243}},
				{DisbursedAmount: 1000, Installments: map[int]float64{1: 1245}},
			},
			tenures:   []int{3},
			wantField: "installments[3]",
			wantIndex: 1,
		},
		{
			name: "negative installment",
			table: ScheduleTable{
				{DisbursedAmount: 500, Installments: map[int]float64{3: -1}},
			},
			tenures:   []int{3},
			wantField: "installments[3]",
			wantIndex: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTable(tt.table, tt.tenures)
			require.Error(t, err)

			var terr *TableError
			require.True(t, errors.As(err, &terr))
			require.NotEmpty(t, terr.Problems)
			assert.Equal(t, tt.wantField, terr.Problems[0].Field)
			assert.Equal(t, tt.wantIndex, terr.Problems[0].Index)
			assert.Contains(t, err.Error(), "invalid schedule table")
		})
	}
}

func TestValidateTable_CollectsEveryProblem(t *testing.T) {
	table := ScheduleTable{
		{DisbursedAmount: -5, Installments: map[int]float64{1: 10}},
		{DisbursedAmount: 700, Installments: map[int]float64{}},
	}

	err := ValidateTable(table, []int{1, 2})

	var terr *TableError
	require.True(t, errors.As(err, &terr))
	// row 0: bad amount, missing 2; row 1: missing 1 and 2
	assert.Len(t, terr.Problems, 4)
}

func TestMonotonicityViolations(t *testing.T) {
	for _, m := range SupportedTenures {
		assert.Empty(t, MonotonicityViolations(DefaultSchedule(), m), "tenure %d", m)
	}

	table := ScheduleTable{
		{DisbursedAmount: 2000, Installments: map[int]float64{3: 800}},
		{DisbursedAmount: 1000, Installments: map[int]float64{3: 900}},
		{DisbursedAmount: 500, Installments: map[int]float64{3: 243}},
	}
	v := MonotonicityViolations(table, 3)
	require.Len(t, v, 1)
	assert.Equal(t, MonotonicityViolation{
		TenureMonths: 3,
		LowerAmount:  1000,
		UpperAmount:  2000,
		LowerValue:   900,
		UpperValue:   800,
	}, v[0])
}

func TestScheduleTable_Helpers(t *testing.T) {
	table := ScheduleTable{
		{DisbursedAmount: 2000, Installments: map[int]float64{3: 879, 1: 2406}},
		{DisbursedAmount: 500, Installments: map[int]float64{3: 243, 6: 189}},
	}

	assert.Equal(t, []float64{2000, 500}, table.Amounts())
	assert.Equal(t, []float64{500, 2000}, table.Sorted().Amounts())
	assert.Equal(t, []int{1, 3, 6}, table.Tenures())

	clone := table.Clone()
	clone[0].Installments[3] = 1
	assert.Equal(t, 879.0, table[0].Installments[3])

	assert.True(t, IsSupportedTenure(6, nil))
	assert.False(t, IsSupportedTenure(7, nil))
	assert.True(t, IsSupportedTenure(12, []int{12}))
}

func TestScheduleEntry_JSONShape(t *testing.T) {
	raw := `[{"disbursedAmount":500,"installments":{"1":664,"3":243}}]`

	var table ScheduleTable
	require.NoError(t, json.Unmarshal([]byte(raw), &table))
	require.Len(t, table, 1)
	assert.Equal(t, 664.0, table[0].Installments[1])
	assert.Equal(t, 243.0, ComputeInstallment(table, 500, 3))
}

func TestDefaultSchedule_FreshCopy(t *testing.T) {
	a := DefaultSchedule()
	a[0].Installments[1] = 0

	assert.Equal(t, 664.0, DefaultSchedule()[0].Installments[1])
	assert.Len(t, DefaultSchedule(), 19)
}
