package enums

// ShipmentOutcome reports how a confirm or cancel request on the console ended.
type ShipmentOutcome string

const (
	ShipmentOutcomeConsentRequired      ShipmentOutcome = "consent_required"
	ShipmentOutcomeConfirmationRequired ShipmentOutcome = "confirmation_required"
	ShipmentOutcomeAllSuccess           ShipmentOutcome = "all_success"
	ShipmentOutcomeAllFailure           ShipmentOutcome = "all_failure"
	ShipmentOutcomePartial              ShipmentOutcome = "partial"
	ShipmentOutcomeSuccess              ShipmentOutcome = "success"
)

var validShipmentOutcomes = []ShipmentOutcome{
	ShipmentOutcomeConsentRequired,
	ShipmentOutcomeConfirmationRequired,
	ShipmentOutcomeAllSuccess,
	ShipmentOutcomeAllFailure,
	ShipmentOutcomePartial,
	ShipmentOutcomeSuccess,
}

// String implements fmt.Stringer.
func (o ShipmentOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known ShipmentOutcome.
func (o ShipmentOutcome) IsValid() bool {
	return member(validShipmentOutcomes, o)
}

// Pending reports whether the outcome asks the operator for another round trip.
func (o ShipmentOutcome) Pending() bool {
	return o == ShipmentOutcomeConsentRequired || o == ShipmentOutcomeConfirmationRequired
}

// ParseShipmentOutcome converts raw input into a ShipmentOutcome.
func ParseShipmentOutcome(value string) (ShipmentOutcome, error) {
	return parse(validShipmentOutcomes, "shipment outcome", value)
}
