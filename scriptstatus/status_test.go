package scriptstatus

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/itchysats/cfdmonitor/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdering(t *testing.T) {
	require.True(t, Unknown.Less(InMempool))
	require.True(t, InMempool.Less(Confirmed(1)))
	require.True(t, Confirmed(1).Less(Confirmed(2)))
	require.False(t, Confirmed(2).Less(Confirmed(2)))
	require.True(t, Confirmed(2).AtLeast(Confirmed(1)))
	require.False(t, Confirmed(1).AtLeast(Confirmed(2)))
}

func TestWithConfirmationsZeroIsInMempool(t *testing.T) {
	assert.Equal(t, InMempool, WithConfirmations(0))
	assert.Equal(t, Confirmed(3), WithConfirmations(3))
}

func TestFromTxStatus(t *testing.T) {
	txid := chainhash.Hash{}

	cases := []struct {
		name      string
		height    int32
		tip       uint32
		want      ScriptStatus
	}{
		{"unconfirmed", 0, 100, InMempool},
		{"unconfirmed parent", -1, 100, InMempool},
		{"not yet visible at this tip", 105, 100, InMempool},
		{"just mined", 100, 100, Confirmed(1)},
		{"five deep", 100, 104, Confirmed(5)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := FromTxStatus(model.TxStatus{Height: c.height, Txid: txid}, c.tip)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestConfirmedZeroPanics(t *testing.T) {
	assert.Panics(t, func() {
		Confirmed(0)
	})
}
