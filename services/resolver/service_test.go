package resolver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invocation struct {
	command Command
	args    []string
}

type recordingInvoker struct {
	calls   []invocation
	payload json.RawMessage
	err     error
}

func (r *recordingInvoker) Invoke(_ context.Context, command Command, args ...string) (json.RawMessage, error) {
	r.calls = append(r.calls, invocation{command: command, args: args})
	return r.payload, r.err
}

func TestServiceMapsOperationsToCommands(t *testing.T) {
	inv := &recordingInvoker{payload: json.RawMessage(`{}`)}
	svc := NewService(inv)
	ctx := context.Background()

	_, err := svc.ListRecent(ctx)
	require.NoError(t, err)
	_, err = svc.Search(ctx, "frieren")
	require.NoError(t, err)
	_, err = svc.GetDetails(ctx, "frieren-1")
	require.NoError(t, err)
	_, err = svc.ResolveStream(ctx, EpisodeRef{AnimeID: "frieren-1", EpisodeID: "ep-3"})
	require.NoError(t, err)

	require.Len(t, inv.calls, 4)
	assert.Equal(t, invocation{command: CommandRecent}, inv.calls[0])
	assert.Equal(t, invocation{command: CommandSearch, args: []string{"frieren"}}, inv.calls[1])
	assert.Equal(t, invocation{command: CommandDetails, args: []string{"frieren-1"}}, inv.calls[2])
	assert.Equal(t, invocation{command: CommandStream, args: []string{"frieren-1,ep-3"}}, inv.calls[3])
}

func TestServiceRejectsAmbiguousEpisodeRef(t *testing.T) {
	inv := &recordingInvoker{}
	svc := NewService(inv)

	_, err := svc.ResolveStream(context.Background(), EpisodeRef{AnimeID: "a,b", EpisodeID: "c"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, inv.calls)
}

func TestServicePassesPayloadThrough(t *testing.T) {
	raw := json.RawMessage(`{"streamUrl":"http://x/m.m3u8","extra":{"kept":true}}`)
	svc := NewService(&recordingInvoker{payload: raw})

	got, err := svc.ResolveStream(context.Background(), EpisodeRef{AnimeID: "a", EpisodeID: "b"})
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(got))
}
