package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m3rciful/flotabot/store"
)

// decide computes the transition for one inbound event. It mutates conv
// (step, plate, selection) and returns the ordered sends to perform. The
// caller persists conv before executing the actions, so state survives a
// failed send. Only the truck repository is consulted here.
func (e *Engine) decide(ctx context.Context, conv *store.Conversation, ev Event, now time.Time) ([]Action, error) {
	// Exit wins over everything, including an expired session.
	if IsExit(ev.CanonicalText) {
		conv.CurrentStep = string(StepWelcome)
		conv.ClearSelection()
		return []Action{textAction(textFarewell)}, nil
	}

	step, known := ParseStep(conv.CurrentStep)
	if !known {
		// Unknown step in storage, likely from an older deployment.
		// Restart without blaming the user.
		return e.restart(conv), nil
	}

	if e.expired(conv, now) && step != StepWelcome {
		conv.CurrentStep = string(StepAskLicensePlate)
		conv.ClearSelection()
		return []Action{textAction(textTimeoutNotice), textAction(textGreeting)}, nil
	}

	switch step {
	case StepWelcome:
		conv.CurrentStep = string(StepAskLicensePlate)
		return []Action{textAction(textGreeting)}, nil

	case StepAskLicensePlate:
		return e.decidePlate(ctx, conv, ev)

	case StepShowMenu:
		return e.decideMenu(ctx, conv, ev, now)

	case StepShowTruckDetails:
		return e.decideDetails(ctx, conv, ev)

	default: // category steps
		return e.decideCategory(conv, ev, step)
	}
}

// expired reports whether the session idled past the configured timeout.
func (e *Engine) expired(conv *store.Conversation, now time.Time) bool {
	if !conv.LastInteraction.Valid {
		return false
	}
	return now.Sub(conv.LastInteraction.Time) > e.idleTimeout
}

// restart silently resets a conversation whose stored context can no longer
// be trusted.
func (e *Engine) restart(conv *store.Conversation) []Action {
	conv.CurrentStep = string(StepAskLicensePlate)
	conv.ClearSelection()
	return []Action{textAction(textGreeting)}
}

func (e *Engine) decidePlate(ctx context.Context, conv *store.Conversation, ev Event) ([]Action, error) {
	plate := ev.CanonicalText
	if plate == "" || ev.ControlID != "" {
		// Interactive taps from a stale menu land here after a reset.
		prompt := textAction(textNewPlatePrompt)
		prompt.SuppressIfRecentTraffic = true
		return []Action{prompt}, nil
	}

	truck, err := e.trucks.FindByPlate(ctx, plate)
	if errors.Is(err, store.ErrTruckNotFound) {
		return []Action{textAction(textPlateNotFound(plate))}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dialog: resolve plate: %w", err)
	}

	if err := conv.SetSelection(truck.LicensePlate, store.SelectionContext{
		TruckID:    truck.ID,
		DriverName: truck.DriverName,
		Model:      truck.Model,
		Year:       truck.Year,
	}); err != nil {
		return nil, err
	}
	conv.CurrentStep = string(StepShowMenu)
	return []Action{menuAction(truck)}, nil
}

func (e *Engine) decideMenu(ctx context.Context, conv *store.Conversation, ev Event, now time.Time) ([]Action, error) {
	truck, err := e.selectedTruck(ctx, conv)
	if err != nil {
		return nil, err
	}
	if truck == nil {
		return e.restart(conv), nil
	}

	switch resolveMenuOption(ev) {
	case "details":
		conv.CurrentStep = string(StepShowTruckDetails)
		return []Action{textAction(detailCard(truck, now)), navAction()}, nil

	case "security", "quality", "transport":
		opt := resolveMenuOption(ev)
		conv.CurrentStep = string(menuStepByOption[opt])
		return []Action{categoryAction(opt), navAction()}, nil

	case "new_plate":
		conv.CurrentStep = string(StepAskLicensePlate)
		conv.ClearSelection()
		return []Action{textAction(textNewPlatePrompt)}, nil

	case ControlExit:
		// The farewell entry matched by its ordinal. Synonyms take the
		// global exit path before decide dispatches by step.
		conv.CurrentStep = string(StepWelcome)
		conv.ClearSelection()
		return []Action{textAction(textFarewell)}, nil
	}

	return []Action{textAction(textInvalidOption), menuAction(truck)}, nil
}

func (e *Engine) decideDetails(ctx context.Context, conv *store.Conversation, ev Event) ([]Action, error) {
	truck, err := e.selectedTruck(ctx, conv)
	if err != nil {
		return nil, err
	}
	if truck == nil {
		return e.restart(conv), nil
	}

	if IsBack(ev.CanonicalText) {
		conv.CurrentStep = string(StepShowMenu)
		return []Action{menuAction(truck)}, nil
	}

	return []Action{textAction(textInvalidOption), navAction()}, nil
}

func (e *Engine) decideCategory(conv *store.Conversation, ev Event, step Step) ([]Action, error) {
	prefix, ok := categoryByStep[step]
	if !ok {
		return e.restart(conv), nil
	}

	if IsBack(ev.CanonicalText) {
		conv.CurrentStep = string(StepShowMenu)
		return []Action{menuFromSelection(conv)}, nil
	}

	if answer, ok := resolveAnswer(prefix, ev); ok {
		return []Action{textAction(answer), categoryAction(prefix)}, nil
	}

	return []Action{textAction(textCategoryRetry), categoryAction(prefix)}, nil
}

// selectedTruck re-resolves the conversation's plate. A nil truck with nil
// error means the stored context is broken and the dialogue must restart.
func (e *Engine) selectedTruck(ctx context.Context, conv *store.Conversation) (*store.Truck, error) {
	if !conv.LicensePlate.Valid || conv.LicensePlate.String == "" {
		return nil, nil
	}
	truck, err := e.trucks.FindByPlate(ctx, conv.LicensePlate.String)
	if errors.Is(err, store.ErrTruckNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dialog: refresh selection: %w", err)
	}
	return truck, nil
}

func menuAction(truck *store.Truck) Action {
	return Action{
		Kind:        ActionList,
		Header:      menuHeader,
		Body:        menuBody(truck),
		ButtonLabel: menuButtonLabel,
		Options:     menuRows(),
		Fallback:    menuFallback(truck),
	}
}

// menuFromSelection builds the menu from the cached snapshot, avoiding a
// truck lookup when returning from a category list.
func menuFromSelection(conv *store.Conversation) Action {
	truck := &store.Truck{LicensePlate: conv.LicensePlate.String}
	if sel, ok := conv.Selection(); ok {
		truck.DriverName = sel.DriverName
	}
	return menuAction(truck)
}

func categoryAction(prefix string) Action {
	return Action{
		Kind:        ActionList,
		Header:      categoryHeader(prefix),
		Body:        categoryBody(prefix),
		ButtonLabel: menuButtonLabel,
		Options:     categoryRows(prefix),
		Fallback:    categoryFallback(prefix),
	}
}

func navAction() Action {
	return Action{
		Kind:     ActionButtons,
		Body:     navPrompt,
		Options:  navButtons(),
		Fallback: navFallback(),
	}
}
