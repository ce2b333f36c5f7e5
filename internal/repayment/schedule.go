// internal/repayment/schedule.go
package repayment

import "sort"

// Product limits enforced by the application and validation layers. The
// calculator itself quotes any non-negative amount.
const (
	MinLoanAmount = 500
	MaxLoanAmount = 10000
)

// SupportedTenures lists the repayment periods, in months, the product offers.
var SupportedTenures = []int{1, 2, 3, 4, 5, 6}

// ScheduleEntry is one priced row of the repayment schedule.
type ScheduleEntry struct {
	DisbursedAmount float64         `json:"disbursedAmount"`
	Installments    map[int]float64 `json:"installments"`
}

// ScheduleTable is the administrator-maintained lookup table. Row order is
// not significant.
type ScheduleTable []ScheduleEntry

// Sorted returns a copy of the table ordered by disbursed amount. The
// receiver is left untouched. Entries share their installment maps with the
// original.
func (t ScheduleTable) Sorted() ScheduleTable {
	out := make(ScheduleTable, len(t))
	copy(out, t)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DisbursedAmount < out[j].DisbursedAmount
	})
	return out
}

// Amounts returns the disbursed amounts in table order.
func (t ScheduleTable) Amounts() []float64 {
	out := make([]float64, 0, len(t))
	for _, e := range t {
		out = append(out, e.DisbursedAmount)
	}
	return out
}

// Clone returns a deep copy, including each installment map.
func (t ScheduleTable) Clone() ScheduleTable {
	if t == nil {
		return nil
	}
	out := make(ScheduleTable, len(t))
	for i, e := range t {
		inst := make(map[int]float64, len(e.Installments))
		for m, v := range e.Installments {
			inst[m] = v
		}
		out[i] = ScheduleEntry{DisbursedAmount: e.DisbursedAmount, Installments: inst}
	}
	return out
}

// IsSupportedTenure reports whether months is one of tenures. A nil set
// falls back to SupportedTenures.
func IsSupportedTenure(months int, tenures []int) bool {
	if tenures == nil {
		tenures = SupportedTenures
	}
	for _, m := range tenures {
		if m == months {
			return true
		}
	}
	return false
}

func row(amount float64, m1, m2, m3, m4, m5, m6 float64) ScheduleEntry {
	return ScheduleEntry{
		DisbursedAmount: amount,
		Installments:    map[int]float64{1: m1, 2: m2, 3: m3, 4: m4, 5: m5, 6: m6},
	}
}

// DefaultSchedule returns the base schedule shipped with the product. It is
// used when no administrator-edited table has been stored yet. Each call
// returns a fresh table.
func DefaultSchedule() ScheduleTable {
	return ScheduleTable{
		row(500, 664, 357, 243, 194, 161, 189),
		row(600, 780, 420, 285, 228, 189, 213),
		row(700, 896, 472, 328, 261, 217, 237),
		row(800, 1012, 533, 370, 295, 245, 262),
		row(900, 1129, 594, 412, 329, 273, 286),
		row(1000, 1245, 665, 455, 363, 301, 310),
		row(1500, 1825, 961, 667, 533, 442, 431),
		row(2000, 2406, 1266, 879, 702, 582, 552),
		row(2500, 2986, 1572, 1091, 872, 723, 673),
		row(3000, 3567, 1878, 1303, 1042, 864, 804),
		row(3500, 4147, 2183, 1515, 1211, 1004, 935),
		row(4000, 4728, 2489, 1727, 1381, 1145, 1066),
		row(4500, 5308, 2794, 1939, 1550, 1286, 1197),
		row(5000, 5889, 3100, 2151, 1720, 1427, 1328),
		row(6000, 7050, 3711, 2575, 2059, 1708, 1590),
		row(7000, 8211, 4322, 3000, 2398, 1990, 1852),
		row(8000, 9372, 4933, 3424, 2738, 2271, 2114),
		row(9000, 10533, 5545, 3848, 3077, 2553, 2376),
		row(10000, 11694, 6156, 4273, 3416, 2834, 2638),
	}
}
