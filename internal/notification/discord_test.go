package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierPostsEmbeds(t *testing.T) {
	var received []DiscordMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var message DiscordMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&message))
		received = append(received, message)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := &Notifier{ErrorURL: server.URL + "/error", SuccessURL: server.URL + "/success", Client: server.Client()}
	ctx := context.Background()

	require.NoError(t, n.Success(ctx, "12 composites", DiscordField{Name: "region", Value: "westcoast", Inline: true}))
	require.NoError(t, n.Error(ctx, "catalog unavailable"))
	require.NoError(t, n.Warning(ctx, "2 exports failed"))

	require.Len(t, received, 3)
	assert.Equal(t, colorGreen, received[0].Embeds[0].Color)
	assert.Contains(t, received[0].Embeds[0].Description, "12 composites")
	assert.Equal(t, "westcoast", received[0].Embeds[0].Fields[0].Value)
	assert.Equal(t, colorRed, received[1].Embeds[0].Color)
	assert.Contains(t, received[1].Embeds[0].Description, "catalog unavailable")
	assert.Equal(t, colorAmber, received[2].Embeds[0].Color)
}

func TestNotifierTruncatesLongMessages(t *testing.T) {
	var description string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var message DiscordMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&message))
		description = message.Embeds[0].Description
	}))
	defer server.Close()

	n := &Notifier{ErrorURL: server.URL, Client: server.Client()}
	require.NoError(t, n.Warning(context.Background(), strings.Repeat("x", 5000)))
	assert.Len(t, []rune(description), maxDescription)
}

func TestNotifierReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	n := &Notifier{ErrorURL: server.URL, Client: server.Client()}
	assert.Error(t, n.Error(context.Background(), "boom"))
}

func TestNotifierSkipsUnconfiguredWebhook(t *testing.T) {
	n := &Notifier{}
	assert.NoError(t, n.Success(context.Background(), "done"))
	assert.NoError(t, n.Error(context.Background(), "boom"))
}
