package models

// ClosureStatus is the workflow stage of a monthly closure period.
type ClosureStatus string

const (
	ClosureStatusDraft              ClosureStatus = "DRAFT"
	ClosureStatusImported           ClosureStatus = "IMPORTED"
	ClosureStatusCalculated         ClosureStatus = "CALCULATED"
	ClosureStatusAwaitingInspectors ClosureStatus = "AWAITING_INSPECTORS"
	ClosureStatusInReview           ClosureStatus = "IN_REVIEW"
	ClosureStatusAwaitingAgencies   ClosureStatus = "AWAITING_AGENCIES"
	ClosureStatusInvoiced           ClosureStatus = "INVOICED"
	ClosureStatusFinalized          ClosureStatus = "FINALIZED"
)

// closureTransitions is the exhaustive set of allowed status edges.
// Import and calculation re-runs are self-loops on their target status.
var closureTransitions = map[ClosureStatus][]ClosureStatus{
	ClosureStatusDraft:              {ClosureStatusImported},
	ClosureStatusImported:           {ClosureStatusImported, ClosureStatusCalculated},
	ClosureStatusCalculated:         {ClosureStatusCalculated, ClosureStatusAwaitingInspectors},
	ClosureStatusAwaitingInspectors: {ClosureStatusInReview},
	ClosureStatusInReview:           {ClosureStatusAwaitingAgencies},
	ClosureStatusAwaitingAgencies:   {ClosureStatusInvoiced},
	ClosureStatusInvoiced:           {ClosureStatusFinalized},
	ClosureStatusFinalized:          {},
}

func (s ClosureStatus) IsValid() bool {
	_, ok := closureTransitions[s]
	return ok
}

// CanTransition reports whether the status may advance to the target.
func (s ClosureStatus) CanTransition(to ClosureStatus) bool {
	for _, next := range closureTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CanImport reports whether a spreadsheet import may run against a period
// in this status.
func (s ClosureStatus) CanImport() bool {
	return s == ClosureStatusDraft || s == ClosureStatusImported
}

// CanCalculate reports whether the pricing calculation may run against a
// period in this status.
func (s ClosureStatus) CanCalculate() bool {
	return s == ClosureStatusImported || s == ClosureStatusCalculated
}

// InspectionStatus is the lifecycle stage of a single inspection record.
type InspectionStatus string

const (
	InspectionStatusImported   InspectionStatus = "IMPORTED"
	InspectionStatusCalculated InspectionStatus = "CALCULATED"
	InspectionStatusContested  InspectionStatus = "CONTESTED"
	InspectionStatusRevised    InspectionStatus = "REVISED"
	InspectionStatusApproved   InspectionStatus = "APPROVED"
	InspectionStatusInvoiced   InspectionStatus = "INVOICED"
)

var inspectionTransitions = map[InspectionStatus][]InspectionStatus{
	InspectionStatusImported:   {InspectionStatusCalculated},
	InspectionStatusCalculated: {InspectionStatusCalculated, InspectionStatusContested, InspectionStatusApproved},
	InspectionStatusContested:  {InspectionStatusRevised},
	InspectionStatusRevised:    {InspectionStatusRevised, InspectionStatusApproved},
	InspectionStatusApproved:   {InspectionStatusInvoiced},
	InspectionStatusInvoiced:   {},
}

func (s InspectionStatus) IsValid() bool {
	_, ok := inspectionTransitions[s]
	return ok
}

func (s InspectionStatus) CanTransition(to InspectionStatus) bool {
	for _, next := range inspectionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// FurnishingType classifies an inspected property for surcharge purposes.
type FurnishingType string

const (
	FurnishingNone FurnishingType = "NONE"
	FurnishingSemi FurnishingType = "SEMI"
	FurnishingFull FurnishingType = "FULL"
)

// UserRole gates access to administrative routes.
type UserRole string

const (
	UserRoleAdmin    UserRole = "ADMIN"
	UserRoleManager  UserRole = "MANAGER"
	UserRoleOperator UserRole = "OPERATOR"
)

// PaymentMethod is how an agency settles its monthly invoice.
type PaymentMethod string

const (
	PaymentMethodBoleto   PaymentMethod = "BOLETO"
	PaymentMethodPix      PaymentMethod = "PIX"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)
