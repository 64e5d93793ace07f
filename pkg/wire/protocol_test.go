package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerInfoRoundTrip(t *testing.T) {
	cases := []ServerInfo{
		{DeviceSize: 0, ReadOnly: false},
		{DeviceSize: 10, ReadOnly: true},
		{DeviceSize: 4096 * 1024, ReadOnly: false},
	}

	for _, c := range cases {
		b := EncodeServerInfo(c)
		require.Len(t, b, ServerInfoSize)

		got, err := DecodeServerInfo(b)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestDecodeServerInfoBadMagic(t *testing.T) {
	b := EncodeServerInfo(ServerInfo{DeviceSize: 10})
	b[0] ^= 0xff

	_, err := DecodeServerInfo(b)
	assert.Error(t, err)
}

func TestDecodeServerInfoShort(t *testing.T) {
	_, err := DecodeServerInfo(make([]byte, ServerInfoSize-1))
	assert.Error(t, err)
}

func TestReadRequestRoundTrip(t *testing.T) {
	r := ReadRequest{Size: 4096, Offset: 8192}
	b := EncodeReadRequest(r)
	require.Len(t, b, ReadRequestSize)
	assert.Equal(t, ReqRead, PeekRequestTag(b))

	got, err := DecodeReadRequest(b)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestReadResponseHeaderRoundTrip(t *testing.T) {
	b := EncodeReadResponseHeader(1234)
	require.Len(t, b, ReadResponseHeaderSize)

	got, err := DecodeReadResponseHeader(b)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, got)
}

func TestWriteRequestRoundTrip(t *testing.T) {
	payload := []byte("hello sir!")
	b := EncodeWriteRequest(payload, 42)
	require.Len(t, b, WriteRequestHeaderSize+len(payload))
	assert.Equal(t, ReqWrite, PeekRequestTag(b))

	hdr, err := DecodeWriteRequestHeader(b[:WriteRequestHeaderSize])
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), hdr.Size)
	assert.EqualValues(t, 42, hdr.Offset)
	assert.Equal(t, payload, b[WriteRequestHeaderSize:])
}

func TestWriteResponseRoundTrip(t *testing.T) {
	b := EncodeWriteResponse(99)
	require.Len(t, b, WriteResponseSize)

	got, err := DecodeWriteResponse(b)
	require.NoError(t, err)
	assert.EqualValues(t, 99, got)
}

func TestFinishFrame(t *testing.T) {
	b := EncodeFinish()
	require.Len(t, b, FinishSize)
	assert.Equal(t, ReqFinish, PeekRequestTag(b))
}

func TestRequestTagValid(t *testing.T) {
	assert.True(t, ReqRead.Valid())
	assert.True(t, ReqWrite.Valid())
	assert.True(t, ReqFinish.Valid())
	assert.False(t, RequestTag(0x00).Valid())
	assert.False(t, RequestTag(0xFF).Valid())
}

func TestFramePool(t *testing.T) {
	buf := Frames.Get(128)
	assert.Len(t, buf, 128)
	Frames.Return(buf)

	buf2 := Frames.Get(128)
	assert.Len(t, buf2, 128)
	Frames.Return(buf2)
}
