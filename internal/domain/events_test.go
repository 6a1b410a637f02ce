package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_TypedPayload(t *testing.T) {
	frame, err := Encode(BidPlacePayload{
		AuctionID: "a1", ItemIndex: 2, Amount: 150, BidType: "standard", Seq: 7,
	})
	require.NoError(t, err)

	msg, err := DecodeFrame(frame)
	require.NoError(t, err)

	placed, ok := msg.(BidPlacePayload)
	require.True(t, ok)
	assert.Equal(t, uint64(7), placed.Seq)
	assert.Equal(t, EventBidPlace, placed.Kind())
}

func TestDecodeFrame_RejectsUnknownKind(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"event":"bid-retract","data":{}}`))
	assert.Error(t, err)

	_, err = DecodeFrame([]byte(`not json`))
	assert.Error(t, err)
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "site:t1", SiteRoom("t1"))
	assert.Equal(t, "auction:a1", AuctionRoom("a1"))
}
