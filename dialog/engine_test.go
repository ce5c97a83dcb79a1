package dialog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/flotabot/core/whatsapp"
	"github.com/m3rciful/flotabot/store"
)

// ---- fakes ----

type fakeTrucks struct {
	byPlate map[string]*store.Truck
	err     error
}

func (f *fakeTrucks) FindByPlate(_ context.Context, plate string) (*store.Truck, error) {
	if f.err != nil {
		return nil, f.err
	}
	truck, ok := f.byPlate[strings.ToUpper(strings.TrimSpace(plate))]
	if !ok {
		return nil, store.ErrTruckNotFound
	}
	cp := *truck
	return &cp, nil
}

type fakeConvs struct {
	mu     sync.Mutex
	rows   map[string]*store.Conversation
	nextID int64
	saves  int
}

func (f *fakeConvs) GetOrCreate(_ context.Context, phone string, _ time.Time) (*store.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = make(map[string]*store.Conversation)
	}
	if conv, ok := f.rows[phone]; ok {
		cp := *conv
		return &cp, nil
	}
	f.nextID++
	conv := &store.Conversation{
		ID:          f.nextID,
		PhoneNumber: phone,
		CurrentStep: string(StepWelcome),
		IsActive:    true,
	}
	f.rows[phone] = conv
	cp := *conv
	return &cp, nil
}

func (f *fakeConvs) Save(_ context.Context, conv *store.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	cp := *conv
	f.rows[conv.PhoneNumber] = &cp
	return nil
}

func (f *fakeConvs) get(phone string) *store.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[phone]
}

type fakeMsgs struct {
	mu      sync.Mutex
	entries []store.Message
	clock   func() time.Time
}

func (f *fakeMsgs) Append(_ context.Context, msg *store.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = int64(len(f.entries) + 1)
	msg.CreatedAt = f.clock()
	f.entries = append(f.entries, *msg)
	return nil
}

func (f *fakeMsgs) HasRecentOutgoingBody(_ context.Context, conversationID int64, body string, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := f.clock().Add(-window)
	for _, m := range f.entries {
		if m.ConversationID == conversationID &&
			m.Direction == store.DirectionOutgoing &&
			m.Body == body && !m.CreatedAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMsgs) HasRecentOutgoing(_ context.Context, conversationID int64, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := f.clock().Add(-window)
	for _, m := range f.entries {
		if m.ConversationID == conversationID &&
			m.Direction == store.DirectionOutgoing && !m.CreatedAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMsgs) outgoing() []store.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Message
	for _, m := range f.entries {
		if m.Direction == store.DirectionOutgoing {
			out = append(out, m)
		}
	}
	return out
}

type sentCall struct {
	kind    ActionKind
	to      string
	body    string
	header  string
	options []whatsapp.Option
}

type fakeGateway struct {
	mu         sync.Mutex
	calls      []sentCall
	textErr    error
	listErr    error
	buttonsErr error
	nextID     int
}

func (f *fakeGateway) result() *whatsapp.SendResult {
	f.nextID++
	return &whatsapp.SendResult{MessageID: fmt.Sprintf("wamid.out.%d", f.nextID)}
}

func (f *fakeGateway) SendText(_ context.Context, to, body string) (*whatsapp.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return nil, f.textErr
	}
	f.calls = append(f.calls, sentCall{kind: ActionText, to: to, body: body})
	return f.result(), nil
}

func (f *fakeGateway) SendList(_ context.Context, to, header, body, _ string, rows []whatsapp.Option) (*whatsapp.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.calls = append(f.calls, sentCall{kind: ActionList, to: to, body: body, header: header, options: rows})
	return f.result(), nil
}

func (f *fakeGateway) SendButtons(_ context.Context, to, body string, buttons []whatsapp.Option) (*whatsapp.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.buttonsErr != nil {
		return nil, f.buttonsErr
	}
	f.calls = append(f.calls, sentCall{kind: ActionButtons, to: to, body: body, options: buttons})
	return f.result(), nil
}

// ---- harness ----

type harness struct {
	engine  *Engine
	gateway *fakeGateway
	trucks  *fakeTrucks
	convs   *fakeConvs
	msgs    *fakeMsgs
	clock   time.Time
	sleeps  []time.Duration
	seq     int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gateway: &fakeGateway{},
		convs:   &fakeConvs{},
		clock:   time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	h.trucks = &fakeTrucks{byPlate: map[string]*store.Truck{
		"123ABC": {
			ID: 1, LicensePlate: "123ABC", DriverName: "Juan Pérez",
			Model: "Scania R500", Year: 2022, Status: "active",
			LastMaintenance: sql.NullTime{Time: h.clock.AddDate(0, 0, -30), Valid: true},
		},
		"789XYZ": {
			ID: 2, LicensePlate: "789XYZ", DriverName: "María García",
			Model: "Volvo FH16", Year: 2021, Status: "maintenance",
		},
	}}
	h.msgs = &fakeMsgs{clock: func() time.Time { return h.clock }}
	h.engine = NewEngine(h.gateway, h.trucks, h.convs, h.msgs, Options{})
	h.engine.now = func() time.Time { return h.clock }
	h.engine.sleep = func(d time.Duration) { h.sleeps = append(h.sleeps, d) }
	return h
}

func (h *harness) text(t *testing.T, phone, body string) error {
	t.Helper()
	h.seq++
	return h.engine.Process(context.Background(), &whatsapp.InboundMessage{
		From: phone,
		ID:   fmt.Sprintf("wamid.in.%d", h.seq),
		Type: whatsapp.TypeText,
		Text: &whatsapp.TextBody{Body: body},
	})
}

func (h *harness) listReply(t *testing.T, phone, id, title string) error {
	t.Helper()
	h.seq++
	return h.engine.Process(context.Background(), &whatsapp.InboundMessage{
		From: phone,
		ID:   fmt.Sprintf("wamid.in.%d", h.seq),
		Type: whatsapp.TypeInteractive,
		Interactive: &whatsapp.Interactive{
			Type:      whatsapp.InteractiveListReply,
			ListReply: &whatsapp.Reply{ID: id, Title: title},
		},
	})
}

// advance moves the clock forward, clearing any dedup window in between.
func (h *harness) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
}

// toMenu walks a fresh conversation to the main menu.
func (h *harness) toMenu(t *testing.T, phone string) {
	t.Helper()
	require.NoError(t, h.text(t, phone, "hola"))
	h.advance(time.Minute)
	require.NoError(t, h.text(t, phone, "123abc"))
	h.advance(time.Minute)
}

const phone = "59179680616"

// ---- tests ----

func TestEngineGreetsNewConversation(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.text(t, phone, "hola"))

	conv := h.convs.get(phone)
	require.Equal(t, string(StepAskLicensePlate), conv.CurrentStep)
	require.True(t, conv.LastInteraction.Valid)

	require.Len(t, h.gateway.calls, 1)
	require.Equal(t, ActionText, h.gateway.calls[0].kind)
	require.Equal(t, textGreeting, h.gateway.calls[0].body)
	require.Equal(t, phone, h.gateway.calls[0].to)
}

func TestEnginePlateLookupIsCaseInsensitive(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.text(t, phone, "hola"))
	h.advance(time.Minute)
	require.NoError(t, h.text(t, phone, "  123abc "))

	conv := h.convs.get(phone)
	require.Equal(t, string(StepShowMenu), conv.CurrentStep)
	require.Equal(t, "123ABC", conv.LicensePlate.String)
	sel, ok := conv.Selection()
	require.True(t, ok)
	require.Equal(t, int64(1), sel.TruckID)
	require.Equal(t, "Juan Pérez", sel.DriverName)

	last := h.gateway.calls[len(h.gateway.calls)-1]
	require.Equal(t, ActionList, last.kind)
	require.Equal(t, menuHeader, last.header)
	require.Len(t, last.options, len(mainMenu))
	require.Equal(t, "details", last.options[0].ID)
	require.Equal(t, ControlExit, last.options[len(last.options)-1].ID)
}

func TestEngineUnknownPlate(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.text(t, phone, "hola"))
	h.advance(time.Minute)
	require.NoError(t, h.text(t, phone, "000NOP"))

	conv := h.convs.get(phone)
	require.Equal(t, string(StepAskLicensePlate), conv.CurrentStep)
	require.False(t, conv.LicensePlate.Valid)

	last := h.gateway.calls[len(h.gateway.calls)-1]
	require.Contains(t, last.body, "000NOP")
}

func TestEngineDetailsThenBack(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)

	require.NoError(t, h.listReply(t, phone, "details", "1. Detalles del Camión"))
	conv := h.convs.get(phone)
	require.Equal(t, string(StepShowTruckDetails), conv.CurrentStep)

	calls := h.gateway.calls
	card := calls[len(calls)-2]
	nav := calls[len(calls)-1]
	require.Equal(t, ActionText, card.kind)
	require.Contains(t, card.body, "DETALLES DEL CAMIÓN")
	require.Contains(t, card.body, "Scania R500")
	require.Contains(t, card.body, "30 días")
	require.Contains(t, card.body, "Mantenimiento al día")
	require.Equal(t, ActionButtons, nav.kind)
	require.Equal(t, ControlBack, nav.options[0].ID)
	require.Equal(t, ControlExit, nav.options[1].ID)

	// Paced: two sends in one turn get one delay between them.
	require.Len(t, h.sleeps, 1)
	require.Equal(t, defaultSendPacing, h.sleeps[0])

	h.advance(time.Minute)
	require.NoError(t, h.text(t, phone, "volver"))
	require.Equal(t, string(StepShowMenu), h.convs.get(phone).CurrentStep)
}

func TestEngineMaintenanceAlerts(t *testing.T) {
	h := newHarness(t)
	h.trucks.byPlate["123ABC"].LastMaintenance = sql.NullTime{Time: h.clock.AddDate(0, 0, -120), Valid: true}
	h.toMenu(t, phone)
	require.NoError(t, h.listReply(t, phone, "details", ""))

	card := h.gateway.calls[len(h.gateway.calls)-2]
	require.Contains(t, card.body, "ALERTA")
}

func TestEngineCannedAnswerByRowID(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)

	require.NoError(t, h.listReply(t, phone, "security", "2. Seguridad"))
	conv := h.convs.get(phone)
	require.Equal(t, string(StepShowSecurity), conv.CurrentStep)
	require.Equal(t, "security", conv.PendingSelection.String)

	calls := h.gateway.calls
	list := calls[len(calls)-2]
	nav := calls[len(calls)-1]
	require.Equal(t, ActionList, list.kind)
	require.Len(t, list.options, 3)
	require.Equal(t, "security_1", list.options[0].ID)
	// Titles are display-budget truncated; ids stay stable.
	for _, opt := range list.options {
		require.LessOrEqual(t, len([]rune(opt.Title)), listTitleBudget)
	}
	require.Equal(t, ActionButtons, nav.kind)

	h.advance(time.Minute)
	require.NoError(t, h.listReply(t, phone, "security_3", "Equipo de seguridad ob…"))
	calls = h.gateway.calls
	answer := calls[len(calls)-2]
	reshow := calls[len(calls)-1]
	require.Contains(t, answer.body, "Chaleco reflectante")
	require.Equal(t, ActionList, reshow.kind)
	require.Equal(t, "security_1", reshow.options[0].ID)
	// Answering keeps the user in the category for follow-up questions.
	conv = h.convs.get(phone)
	require.Equal(t, string(StepShowSecurity), conv.CurrentStep)
	require.Equal(t, "security_3", conv.PendingSelection.String)
}

func TestEngineCannedAnswerByOrdinal(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)
	require.NoError(t, h.text(t, phone, "3"))
	require.Equal(t, string(StepShowQuality), h.convs.get(phone).CurrentStep)

	h.advance(time.Minute)
	require.NoError(t, h.text(t, phone, "2"))
	answer := h.gateway.calls[len(h.gateway.calls)-2]
	require.Contains(t, answer.body, "Inspección previa")
}

func TestEngineExitFromEveryStep(t *testing.T) {
	steps := []func(h *harness){
		func(h *harness) {},
		func(h *harness) { require.NoError(t, h.text(t, phone, "hola")); h.advance(time.Minute) },
		func(h *harness) { h.toMenu(t, phone) },
		func(h *harness) {
			h.toMenu(t, phone)
			require.NoError(t, h.listReply(t, phone, "details", ""))
			h.advance(time.Minute)
		},
		func(h *harness) {
			h.toMenu(t, phone)
			require.NoError(t, h.listReply(t, phone, "transport", ""))
			h.advance(time.Minute)
		},
	}
	for i, setup := range steps {
		h := newHarness(t)
		setup(h)
		require.NoError(t, h.text(t, phone, "salir"), "case %d", i)

		conv := h.convs.get(phone)
		require.Equal(t, string(StepWelcome), conv.CurrentStep, "case %d", i)
		require.False(t, conv.LicensePlate.Valid, "case %d", i)
		_, hasSel := conv.Selection()
		require.False(t, hasSel, "case %d", i)

		last := h.gateway.calls[len(h.gateway.calls)-1]
		require.Equal(t, textFarewell, last.body, "case %d", i)
	}
}

func TestEngineExitButtonTap(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)
	require.NoError(t, h.listReply(t, phone, ControlExit, "6. Finalizar"))
	require.Equal(t, string(StepWelcome), h.convs.get(phone).CurrentStep)
	require.Equal(t, textFarewell, h.gateway.calls[len(h.gateway.calls)-1].body)
}

func TestEngineExitByMenuOrdinal(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)
	require.NoError(t, h.text(t, phone, "6"))
	require.Equal(t, string(StepWelcome), h.convs.get(phone).CurrentStep)
	require.Equal(t, textFarewell, h.gateway.calls[len(h.gateway.calls)-1].body)

	conv := h.convs.get(phone)
	_, ok := conv.Selection()
	require.False(t, ok)
}

func TestEngineIdleTimeoutResets(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)

	h.advance(31 * time.Minute)
	require.NoError(t, h.text(t, phone, "1"))

	conv := h.convs.get(phone)
	require.Equal(t, string(StepAskLicensePlate), conv.CurrentStep)
	require.False(t, conv.LicensePlate.Valid)

	calls := h.gateway.calls
	require.Equal(t, textTimeoutNotice, calls[len(calls)-2].body)
	require.Equal(t, textGreeting, calls[len(calls)-1].body)
}

func TestEngineReplayedMessageIDIgnored(t *testing.T) {
	h := newHarness(t)
	msg := &whatsapp.InboundMessage{
		From: phone,
		ID:   "wamid.dup",
		Type: whatsapp.TypeText,
		Text: &whatsapp.TextBody{Body: "hola"},
	}
	require.NoError(t, h.engine.Process(context.Background(), msg))
	require.NoError(t, h.engine.Process(context.Background(), msg))
	require.Len(t, h.gateway.calls, 1)
}

func TestEngineIdenticalBodySuppressed(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.text(t, phone, "hola"))
	h.advance(time.Minute)

	// Two unknown plates in quick succession produce the same reply body;
	// the second send is suppressed inside the dedup window.
	require.NoError(t, h.text(t, phone, "000NOP"))
	h.advance(2 * time.Second)
	require.NoError(t, h.text(t, phone, "000NOP"))
	require.Len(t, h.gateway.calls, 2)

	// Outside the window it goes through again.
	h.advance(time.Minute)
	require.NoError(t, h.text(t, phone, "000NOP"))
	require.Len(t, h.gateway.calls, 3)
}

func TestEngineStaleTapRepromptSuppressed(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.text(t, phone, "hola"))

	// A leftover menu tap right after the greeting: the re-prompt is
	// swallowed because an outgoing message just went out.
	h.advance(2 * time.Second)
	require.NoError(t, h.listReply(t, phone, "details", "1. Detalles del Camión"))
	require.Len(t, h.gateway.calls, 1)

	h.advance(time.Minute)
	require.NoError(t, h.listReply(t, phone, "details", "1. Detalles del Camión"))
	last := h.gateway.calls[len(h.gateway.calls)-1]
	require.Equal(t, textNewPlatePrompt, last.body)
}

func TestEngineInvalidMenuInputRepeatsMenu(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)
	require.NoError(t, h.text(t, phone, "algo sin sentido"))

	calls := h.gateway.calls
	require.Equal(t, textInvalidOption, calls[len(calls)-2].body)
	require.Equal(t, ActionList, calls[len(calls)-1].kind)
	require.Equal(t, string(StepShowMenu), h.convs.get(phone).CurrentStep)
}

func TestEngineNewPlateFlow(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)
	require.NoError(t, h.text(t, phone, "consultar otra placa"))

	conv := h.convs.get(phone)
	require.Equal(t, string(StepAskLicensePlate), conv.CurrentStep)
	require.False(t, conv.LicensePlate.Valid)
	require.Equal(t, textNewPlatePrompt, h.gateway.calls[len(h.gateway.calls)-1].body)

	h.advance(time.Minute)
	require.NoError(t, h.text(t, phone, "789xyz"))
	require.Equal(t, "789XYZ", h.convs.get(phone).LicensePlate.String)
}

func TestEngineBrokenContextRestartsSilently(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)
	delete(h.trucks.byPlate, "123ABC")

	h.advance(time.Minute)
	require.NoError(t, h.text(t, phone, "1"))

	conv := h.convs.get(phone)
	require.Equal(t, string(StepAskLicensePlate), conv.CurrentStep)
	require.Equal(t, textGreeting, h.gateway.calls[len(h.gateway.calls)-1].body)
}

func TestEngineUnknownStoredStepRestarts(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.text(t, phone, "hola"))
	h.convs.rows[phone].CurrentStep = "legacy_step"

	h.advance(time.Minute)
	require.NoError(t, h.text(t, phone, "whatever"))
	require.Equal(t, string(StepAskLicensePlate), h.convs.get(phone).CurrentStep)
}

func TestEngineMenuSendDegradesToText(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.text(t, phone, "hola"))
	h.advance(time.Minute)

	h.gateway.listErr = errors.New("interactive not supported")
	require.NoError(t, h.text(t, phone, "123ABC"))

	last := h.gateway.calls[len(h.gateway.calls)-1]
	require.Equal(t, ActionText, last.kind)
	require.Contains(t, last.body, "Juan Pérez")
	require.Contains(t, last.body, "5. Consultar otra placa")
	// The state transition stands even though the menu degraded.
	require.Equal(t, string(StepShowMenu), h.convs.get(phone).CurrentStep)
}

func TestEngineTextSendFailurePropagates(t *testing.T) {
	h := newHarness(t)
	h.gateway.textErr = errors.New("gateway down")
	err := h.text(t, phone, "hola")
	require.Error(t, err)

	// State was persisted before the send, so the retry resumes from the
	// new step instead of replaying the transition.
	require.Equal(t, string(StepAskLicensePlate), h.convs.get(phone).CurrentStep)
}

func TestEngineLogsTraffic(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.text(t, phone, "hola"))

	require.Len(t, h.msgs.entries, 2)
	in, out := h.msgs.entries[0], h.msgs.entries[1]
	require.Equal(t, store.DirectionIncoming, in.Direction)
	require.Equal(t, "hola", in.Body)
	require.Equal(t, "wamid.in.1", in.WAMessageID.String)
	require.Equal(t, store.DirectionOutgoing, out.Direction)
	require.Equal(t, textGreeting, out.Body)
	require.True(t, out.WAMessageID.Valid)
}

func TestEngineLogsInteractiveBodiesAsJSON(t *testing.T) {
	h := newHarness(t)
	h.toMenu(t, phone)

	var menuEntry *store.Message
	for i := range h.msgs.entries {
		m := &h.msgs.entries[i]
		if m.Direction == store.DirectionOutgoing && strings.HasPrefix(m.Body, "{") {
			menuEntry = m
		}
	}
	require.NotNil(t, menuEntry)
	require.Contains(t, menuEntry.Body, `"kind":"list"`)
	require.Contains(t, menuEntry.Body, `"details"`)
}
