// Package dialog contains the conversation state machine: it normalizes
// inbound WhatsApp payloads into events, decides transitions per step, and
// executes the resulting outbound actions with dedup and pacing applied.
package dialog

// Step identifies a position in the scripted dialogue tree.
type Step string

const (
	// StepWelcome is the initial step and the re-entry step after reset.
	StepWelcome Step = "welcome"
	// StepAskLicensePlate waits for a plate to look up.
	StepAskLicensePlate Step = "ask_license_plate"
	// StepShowMenu presents the main option menu for a resolved truck.
	StepShowMenu Step = "show_menu"
	// StepShowTruckDetails shows the truck detail card.
	StepShowTruckDetails Step = "show_truck_details"
	// StepShowSecurity presents the security question list.
	StepShowSecurity Step = "show_security"
	// StepShowQuality presents the quality question list.
	StepShowQuality Step = "show_quality"
	// StepShowTransport presents the transport question list.
	StepShowTransport Step = "show_transport"
)

// ParseStep maps a stored step value to a known Step. Unknown values report
// ok=false so corrupted or legacy rows can be reset silently.
func ParseStep(raw string) (Step, bool) {
	switch Step(raw) {
	case StepWelcome, StepAskLicensePlate, StepShowMenu, StepShowTruckDetails,
		StepShowSecurity, StepShowQuality, StepShowTransport:
		return Step(raw), true
	}
	return StepWelcome, false
}

// categoryByStep maps a category step to its canned-answer key prefix.
var categoryByStep = map[Step]string{
	StepShowSecurity:  "security",
	StepShowQuality:   "quality",
	StepShowTransport: "transport",
}
