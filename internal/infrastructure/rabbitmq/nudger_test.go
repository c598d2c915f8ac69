package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNudger() *Nudger {
	return &Nudger{origin: "self", exchange: "masapp.signals", logger: zap.NewNop()}
}

func encode(t *testing.T, n ChangeNudge) []byte {
	t.Helper()
	body, err := json.Marshal(n)
	require.NoError(t, err)
	return body
}

func TestHandle_WakesForForeignNudge(t *testing.T) {
	n := newTestNudger()
	var woken []string

	n.handle(encode(t, ChangeNudge{Collection: "orders", Revision: 4, Origin: "other", OccurredAt: time.Now()}), func(c string) {
		woken = append(woken, c)
	})

	assert.Equal(t, []string{"orders"}, woken)
}

func TestHandle_IgnoresOwnNudge(t *testing.T) {
	n := newTestNudger()
	var woken []string

	n.handle(encode(t, ChangeNudge{Collection: "orders", Revision: 4, Origin: "self"}), func(c string) {
		woken = append(woken, c)
	})

	assert.Empty(t, woken)
}

func TestHandle_DropsMalformedBody(t *testing.T) {
	n := newTestNudger()
	called := false

	n.handle([]byte("not json"), func(string) { called = true })
	n.handle(encode(t, ChangeNudge{Origin: "other"}), func(string) { called = true })

	assert.False(t, called)
}

func TestClose_WithoutConnection(t *testing.T) {
	assert.NoError(t, newTestNudger().Close())
}
