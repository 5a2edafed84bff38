package recorder

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamWriter_LateJoinerPadding(t *testing.T) {
	dir := t.TempDir()
	a, err := NewStreamWriter("call1", "userA", "userA", dir, 0, nil)
	require.NoError(t, err)

	for tick := uint64(1); tick <= 100; tick++ {
		require.NoError(t, a.Push(SilencePacket, tick))
	}
	require.NoError(t, a.Dump(false))

	b, err := NewStreamWriter("call1", "userB", "userB", dir, 0, nil)
	require.NoError(t, err)
	require.NoError(t, b.FillSilence(100))

	require.Equal(t, uint64(96000), b.Granule())

	require.NoError(t, a.Finish())
	require.NoError(t, b.Finish())
}

func TestStreamWriter_TwoUserEndToEndSync(t *testing.T) {
	dir := t.TempDir()
	a, err := NewStreamWriter("call2", "userA", "userA", dir, 0, nil)
	require.NoError(t, err)
	b, err := NewStreamWriter("call2", "userB", "userB", dir, 0, nil)
	require.NoError(t, err)

	for tick := uint64(1); tick <= 50; tick++ {
		require.NoError(t, a.Push(SilencePacket, tick))
		require.NoError(t, b.PushSilence(tick))
	}

	require.NoError(t, a.Finish())
	require.NoError(t, b.Finish())

	require.Equal(t, uint64(48000), a.Granule())
	require.Equal(t, uint64(48000), b.Granule())
}

func TestStreamWriter_FinishProducesValidOggMagic(t *testing.T) {
	dir := t.TempDir()
	sw, err := NewStreamWriter("call3", "userA", "userA", dir, 0, nil)
	require.NoError(t, err)
	require.NoError(t, sw.Push(SilencePacket, 1))
	require.NoError(t, sw.Finish())

	data, err := os.ReadFile(sw.FilePath())
	require.NoError(t, err)
	require.True(t, len(data) > 4)
	require.Equal(t, []byte("OggS"), data[0:4])
}

func TestStreamWriter_RejectsPushAfterFinish(t *testing.T) {
	dir := t.TempDir()
	sw, err := NewStreamWriter("call4", "userA", "userA", dir, 0, nil)
	require.NoError(t, err)
	require.NoError(t, sw.Finish())

	err = sw.Push(SilencePacket, 1)
	require.Error(t, err)
}
