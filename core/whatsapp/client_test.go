package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type captured struct {
	path    string
	auth    string
	payload map[string]any
}

func newTestClient(t *testing.T, status int, response string) (*Client, *captured) {
	t.Helper()
	cap := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		cap.path = r.URL.Path
		cap.auth = r.Header.Get("Authorization")
		require.NoError(t, json.Unmarshal(body, &cap.payload))
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	client := NewClientWithHTTP(Config{
		APIBase:       srv.URL,
		APIVersion:    "v21.0",
		PhoneNumberID: "104500",
		AccessToken:   "EAAtesttoken",
	}, srv.Client())
	return client, cap
}

const acceptedResponse = `{"messages":[{"id":"wamid.out.1"}]}`

func TestSendText(t *testing.T) {
	client, cap := newTestClient(t, http.StatusOK, acceptedResponse)

	result, err := client.SendText(context.Background(), "59179680616", "hola")
	require.NoError(t, err)
	require.Equal(t, "wamid.out.1", result.MessageID)

	require.Equal(t, "/v21.0/104500/messages", cap.path)
	require.Equal(t, "Bearer EAAtesttoken", cap.auth)
	require.Equal(t, "whatsapp", cap.payload["messaging_product"])
	require.Equal(t, "59179680616", cap.payload["to"])
	require.Equal(t, "text", cap.payload["type"])
	text := cap.payload["text"].(map[string]any)
	require.Equal(t, "hola", text["body"])
}

func TestSendListPayloadShape(t *testing.T) {
	client, cap := newTestClient(t, http.StatusOK, acceptedResponse)

	_, err := client.SendList(context.Background(), "59179680616",
		"Información del Camión", "Selecciona una opción:", "Ver opciones",
		[]Option{{ID: "details", Title: "1. Detalles"}, {ID: "end", Title: "2. Finalizar"}})
	require.NoError(t, err)

	require.Equal(t, "interactive", cap.payload["type"])
	interactive := cap.payload["interactive"].(map[string]any)
	require.Equal(t, "list", interactive["type"])

	header := interactive["header"].(map[string]any)
	require.Equal(t, "Información del Camión", header["text"])

	action := interactive["action"].(map[string]any)
	require.Equal(t, "Ver opciones", action["button"])
	sections := action["sections"].([]any)
	require.Len(t, sections, 1)
	rows := sections[0].(map[string]any)["rows"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	require.Equal(t, "details", first["id"])
	require.Equal(t, "1. Detalles", first["title"])
}

func TestSendButtonsCapsAtThree(t *testing.T) {
	client, cap := newTestClient(t, http.StatusOK, acceptedResponse)

	_, err := client.SendButtons(context.Background(), "59179680616", "¿Qué deseas hacer?",
		[]Option{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}})
	require.NoError(t, err)

	interactive := cap.payload["interactive"].(map[string]any)
	require.Equal(t, "button", interactive["type"])
	buttons := interactive["action"].(map[string]any)["buttons"].([]any)
	require.Len(t, buttons, MaxButtons)
	reply := buttons[0].(map[string]any)["reply"].(map[string]any)
	require.Equal(t, "a", reply["id"])
}

func TestSendRejectedByAPI(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadRequest, `{"error":{"message":"invalid recipient"}}`)

	_, err := client.SendText(context.Background(), "59179680616", "hola")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestSendResultWithoutMessageID(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, `{}`)

	result, err := client.SendText(context.Background(), "59179680616", "hola")
	require.NoError(t, err)
	require.Empty(t, result.MessageID)
}
