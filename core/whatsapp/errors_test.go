package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	require.Equal(t, "", ClassifyError(nil))
	require.Equal(t, "timeout", ClassifyError(context.DeadlineExceeded))
	require.Equal(t, "dns", ClassifyError(&net.DNSError{Name: "graph.facebook.com"}))
	require.Equal(t, "dial", ClassifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	require.Equal(t, "http_5xx", ClassifyError(&APIError{Status: 503}))
	require.Equal(t, "http_4xx", ClassifyError(&APIError{Status: 401}))
	require.Equal(t, "unknown", ClassifyError(errors.New("something else")))
}

func TestSanitizeErrorMessageRedactsTokens(t *testing.T) {
	err := fmt.Errorf("request failed: Bearer EAAG7abc123XYZ rejected")
	msg := SanitizeErrorMessage(err)
	require.NotContains(t, msg, "EAAG7abc123XYZ")
	require.Contains(t, msg, "<redacted>")
	require.Empty(t, SanitizeErrorMessage(nil))
}
