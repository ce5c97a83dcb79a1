package whatsapp

// Inbound message types as delivered inside the webhook envelope.
const (
	TypeText        = "text"
	TypeInteractive = "interactive"

	InteractiveButtonReply = "button_reply"
	InteractiveListReply   = "list_reply"
)

// InboundMessage is one message node of a webhook delivery.
type InboundMessage struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *TextBody    `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

// TextBody carries a plain text message.
type TextBody struct {
	Body string `json:"body"`
}

// Interactive carries a button or list reply.
type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

// Reply is the id/title pair a button tap or list selection reports back.
type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
