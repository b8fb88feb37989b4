package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ghostcore/internal/ghost"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(Config{AppDataDir: t.TempDir()}, nil)
}

func TestService_InitIdentityThenGetPublicID(t *testing.T) {
	svc := newTestService(t)
	id, err := svc.InitIdentity("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := svc.GetPublicID()
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestService_InitIdentityWrongPasswordIsCategorized(t *testing.T) {
	dir := t.TempDir()
	first := New(Config{AppDataDir: dir}, nil)
	_, err := first.InitIdentity("right-password")
	require.NoError(t, err)

	second := New(Config{AppDataDir: dir}, nil)
	_, err = second.InitIdentity("wrong-password")
	require.Error(t, err)

	var catErr *CategorizedError
	require.ErrorAs(t, err, &catErr)
	require.Equal(t, CategoryWrongPassword, catErr.Category)
}

func TestService_CloseWipesIdentityAndStopsActor(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.InitIdentity("p")
	require.NoError(t, err)
	require.NoError(t, svc.StartGhostMode(context.Background()))

	svc.Close()

	_, err = svc.GetPublicID()
	require.Error(t, err)
	var catErr *CategorizedError
	require.ErrorAs(t, err, &catErr)
	require.Equal(t, CategoryAuthFailure, catErr.Category)
}

func TestService_SendGhostMessageBeforeStartIsCategorizedNotRunning(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.InitIdentity("p")
	require.NoError(t, err)

	_, err = svc.SendGhostMessage(context.Background(), "whatever", "hi")
	require.Error(t, err)
	var catErr *CategorizedError
	require.ErrorAs(t, err, &catErr)
	require.Equal(t, CategoryNotRunning, catErr.Category)
}

func TestService_GhostEchoEmitsHubEvents(t *testing.T) {
	svcA := New(Config{AppDataDir: t.TempDir(), Ghost: ghost.DefaultConfig()}, nil)
	svcB := New(Config{AppDataDir: t.TempDir(), Ghost: ghost.DefaultConfig()}, nil)

	idA, err := svcA.InitIdentity("a-pass")
	require.NoError(t, err)
	idB, err := svcB.InitIdentity("b-pass")
	require.NoError(t, err)
	_ = idA

	ctx := context.Background()
	require.NoError(t, svcA.StartGhostMode(ctx))
	require.NoError(t, svcB.StartGhostMode(ctx))
	defer svcA.StopGhostMode()
	defer svcB.StopGhostMode()

	_, liveB, cancelB := svcB.Events(0)
	defer cancelB()
	_, liveA, cancelA := svcA.Events(0)
	defer cancelA()

	messageID, err := svcA.SendGhostMessage(ctx, idB, "hello from the hub")
	require.NoError(t, err)

	event := <-liveB
	require.Equal(t, "ghost_msg", event.Method)

	ackEvent := <-liveA
	require.Equal(t, "msg_delivered", ackEvent.Method)
	delivered, ok := ackEvent.Payload.(ghost.MessageDelivered)
	require.True(t, ok)
	require.Equal(t, messageID, delivered.ID)
}

func TestService_ExportImportMnemonicRoundTrip(t *testing.T) {
	svc := newTestService(t)
	originalID, err := svc.InitIdentity("pass")
	require.NoError(t, err)

	mnemonic, err := svc.ExportMnemonic()
	require.NoError(t, err)
	require.NotEmpty(t, mnemonic)

	restored := New(Config{AppDataDir: t.TempDir()}, nil)
	restoredID, err := restored.ImportMnemonic(mnemonic, "new-pass")
	require.NoError(t, err)
	require.Equal(t, originalID, restoredID)
}
