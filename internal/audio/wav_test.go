package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWAVFileHeaderIsPatchedOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordings", "take.wav")
	w, err := CreateWAV(path)
	require.NoError(t, err)
	require.Equal(t, path, w.Path())

	pcm := bytes.Repeat([]byte{0x01, 0x02}, 800)
	_, err = w.Write(pcm[:600])
	require.NoError(t, err)
	_, err = w.Write(pcm[600:])
	require.NoError(t, err)
	require.Equal(t, int64(len(pcm)), w.DataBytes())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte{0})
	require.ErrorIs(t, err, os.ErrClosed)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, wavHeaderSize+len(pcm))
	require.Equal(t, "RIFF", string(raw[0:4]))
	require.Equal(t, "WAVE", string(raw[8:12]))
	require.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(raw[4:]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(raw[22:]))
	require.Equal(t, uint32(SampleRate), binary.LittleEndian.Uint32(raw[24:]))
	require.Equal(t, uint32(SampleRate*2), binary.LittleEndian.Uint32(raw[28:]))
	require.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(raw[40:]))
	require.Equal(t, pcm, raw[wavHeaderSize:])

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCreateWAVKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, os.WriteFile(path, []byte("keep"), 0o600))

	_, err := CreateWAV(path)
	require.ErrorIs(t, err, os.ErrExist)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "keep", string(raw))
}

func TestReadWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cue.wav")
	w, err := CreateWAV(path)
	require.NoError(t, err)
	_, err = w.Write([]byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x80})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	pcm, err := ReadWAV(path)
	require.NoError(t, err)
	require.Equal(t, SampleRate, pcm.SampleRate)
	require.Equal(t, Channels, pcm.Channels)
	require.Equal(t, []int16{1, -1, -32768}, pcm.Samples)
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	header := wavHeader(4)
	raw := append([]byte{}, header[:36]...)
	raw = append(raw, "LIST"...)
	raw = binary.LittleEndian.AppendUint32(raw, 3)
	raw = append(raw, 'a', 'b', 'c', 0)
	raw = append(raw, header[36:]...)
	raw = append(raw, 0x02, 0x00, 0x03, 0x00)

	pcm, err := decodeWAV(raw)
	require.NoError(t, err)
	require.Equal(t, []int16{2, 3}, pcm.Samples)
}

func TestDecodeWAVRejectsUnsupportedInput(t *testing.T) {
	_, err := decodeWAV([]byte("OggS"))
	require.ErrorContains(t, err, "not a RIFF/WAVE")

	float := wavHeader(0)
	binary.LittleEndian.PutUint16(float[20:], 3)
	_, err = decodeWAV(float)
	require.ErrorContains(t, err, "unsupported wav format 3")

	eightBit := wavHeader(0)
	binary.LittleEndian.PutUint16(eightBit[34:], 8)
	_, err = decodeWAV(eightBit)
	require.ErrorContains(t, err, "bit depth 8")

	_, err = decodeWAV(wavHeader(0)[:36])
	require.ErrorContains(t, err, "no data chunk")

	_, err = ReadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}

func TestChecksum(t *testing.T) {
	a, err := Checksum(strings.NewReader("hello"))
	require.NoError(t, err)
	require.Len(t, a, 64)

	b, err := Checksum(strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := Checksum(strings.NewReader("hello!"))
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))
	fromFile, err := ChecksumFile(path)
	require.NoError(t, err)
	require.Equal(t, a, fromFile)

	_, err = ChecksumFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
