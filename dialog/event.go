package dialog

// Shape distinguishes the wire form an inbound message arrived in. Step
// handlers never see it; only the normalizer and the pending-selection
// bookkeeping care.
type Shape int

const (
	// ShapeText is a plain typed message.
	ShapeText Shape = iota
	// ShapeButton is a reply-button tap.
	ShapeButton
	// ShapeList is a list-row selection.
	ShapeList
)

// Event is the single normalized input the state machine consumes,
// regardless of which wire shape produced it.
type Event struct {
	// CanonicalText is the trimmed display text used for command matching.
	CanonicalText string
	// ControlID is the stable id a button or list control reported, if any.
	ControlID string
	// MessageID is the provider id of the inbound message, used for replay
	// detection.
	MessageID string
	// Shape records the original wire form.
	Shape Shape
}
