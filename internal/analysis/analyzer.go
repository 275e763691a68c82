package analysis

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/talshachar/therabill/internal/patients"
	"github.com/talshachar/therabill/internal/payments"
)

// DeductionType selects how a global deduction is computed.
type DeductionType string

const (
	DeductionPercent DeductionType = "percent"
	DeductionFixed   DeductionType = "fixed"
)

// Deduction is a month-level expense applied against the VAT-exclusive
// base (percent) or as a flat amount (fixed). Not per-patient.
type Deduction struct {
	ID      uuid.UUID
	Name    string
	Type    DeductionType
	Value   float64
	Enabled bool
}

// Options control which payments enter the analysis and how refunds
// net against gross.
type Options struct {
	IncludeRefunds  bool
	NetAfterRefunds bool
}

// PatientAnalysis is one patient's financial rollup for the month.
type PatientAnalysis struct {
	Patient            patients.Patient
	Gross              float64
	VAT                float64
	Base               float64
	Commission         float64
	NetAfterCommission float64
	// Payments is the raw filtered list, kept for drill-down display.
	Payments     []payments.Payment
	RefundCount  int
	RefundAmount float64
}

// MonthAnalysis is the month's financial report.
type MonthAnalysis struct {
	Month                 string
	Patients              []PatientAnalysis
	TotalGross            float64
	TotalVAT              float64
	BaseAfterVAT          float64
	GlobalDeductionsTotal float64
	TotalCommission       float64
	Net                   float64
	RefundCount           int
	RefundAmount          float64
}

// ComputeAnalysis derives the monthly financial report from persisted
// payments. VAT is back-calculated out of the gross figure (prices are
// VAT-inclusive): vat = gross * r / (1 + r). Commission applies to the
// VAT-exclusive base; global deductions apply to the month base.
func ComputeAnalysis(
	month string,
	pays []payments.Payment,
	roster []patients.Patient,
	vatRatePercent float64,
	deductions []Deduction,
	opts Options,
) MonthAnalysis {
	byPatient := make(map[uuid.UUID]patients.Patient, len(roster))
	for _, p := range roster {
		byPatient[p.ID] = p
	}

	out := MonthAnalysis{Month: month}
	grouped := make(map[uuid.UUID]*PatientAnalysis)
	var order []uuid.UUID

	group := func(pid uuid.UUID) *PatientAnalysis {
		pa, ok := grouped[pid]
		if !ok {
			pa = &PatientAnalysis{Patient: byPatient[pid]}
			if pa.Patient.ID == uuid.Nil {
				pa.Patient.ID = pid
			}
			grouped[pid] = pa
			order = append(order, pid)
		}
		return pa
	}

	rate := vatRatePercent / 100

	for _, pay := range pays {
		refundLike := pay.Status == payments.StatusRefunded || pay.Status == payments.StatusCanceled

		// Refund counters tabulate regardless of the main filter.
		if refundLike {
			pa := group(pay.PatientID)
			pa.RefundCount++
			pa.RefundAmount += math.Abs(pay.Amount)
			out.RefundCount++
			out.RefundAmount += math.Abs(pay.Amount)
		}

		included := pay.Status == payments.StatusPaid || (opts.IncludeRefunds && refundLike)
		if !included {
			continue
		}

		pa := group(pay.PatientID)
		pa.Payments = append(pa.Payments, pay)
		if refundLike && opts.NetAfterRefunds {
			pa.Gross -= math.Abs(pay.Amount)
		} else {
			pa.Gross += pay.Amount
		}
	}

	for _, pid := range order {
		pa := grouped[pid]
		if len(pa.Payments) == 0 && pa.RefundCount == 0 {
			continue
		}
		pa.VAT = pa.Gross * rate / (1 + rate)
		pa.Base = pa.Gross - pa.VAT
		if pa.Patient.CommissionEnabled {
			switch pa.Patient.CommissionType {
			case patients.CommissionPercent:
				pa.Commission = pa.Base * pa.Patient.CommissionValue / 100
			case patients.CommissionFixed:
				pa.Commission = pa.Patient.CommissionValue
			}
		}
		pa.NetAfterCommission = pa.Base - pa.Commission

		out.Patients = append(out.Patients, *pa)
		out.TotalGross += pa.Gross
		out.TotalCommission += pa.Commission
	}

	sort.SliceStable(out.Patients, func(i, j int) bool {
		return out.Patients[i].Gross > out.Patients[j].Gross
	})

	// Month totals are recomputed from the gross sum rather than
	// summed per-patient; under linear VAT the two agree.
	out.TotalVAT = out.TotalGross * rate / (1 + rate)
	out.BaseAfterVAT = out.TotalGross - out.TotalVAT

	for _, d := range deductions {
		if !d.Enabled {
			continue
		}
		switch d.Type {
		case DeductionPercent:
			out.GlobalDeductionsTotal += out.BaseAfterVAT * d.Value / 100
		case DeductionFixed:
			out.GlobalDeductionsTotal += d.Value
		}
	}

	out.Net = out.BaseAfterVAT - out.GlobalDeductionsTotal - out.TotalCommission
	return out
}
