package scanner

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/scanner/adstruct"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// advFrame builds an ADV_IND link-layer frame for addr (display order) carrying ad.
func advFrame(t *testing.T, addr [6]byte, ad []adstruct.Structure) []byte {
	t.Helper()
	data, err := adstruct.Encode(ad)
	require.NoError(t, err)

	frame := make([]byte, 4, 64)
	binary.LittleEndian.PutUint32(frame, advAccessAddress)
	frame = append(frame, pduAdvInd, byte(advAddressLen+len(data)))
	for i := advAddressLen - 1; i >= 0; i-- {
		frame = append(frame, addr[i])
	}
	frame = append(frame, data...)
	return append(frame, 0xAA, 0xBB, 0xCC) // CRC
}

func withPHDR(frame []byte, rssi int8) []byte {
	hdr := make([]byte, phdrLen)
	hdr[0] = 37
	hdr[1] = byte(rssi)
	binary.LittleEndian.PutUint16(hdr[8:], phdrSignalValid)
	return append(hdr, frame...)
}

type timedFrame struct {
	offset time.Duration
	data   []byte
}

// encodeCapture writes a pcap with the full 32-bit linkType in its header.
func encodeCapture(t *testing.T, linkType LinkType, frames []timedFrame) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeNull))

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, fr := range frames {
		ci := gopacket.CaptureInfo{Timestamp: start.Add(fr.offset), CaptureLength: len(fr.data), Length: len(fr.data)}
		require.NoError(t, w.WritePacket(ci, fr.data))
	}

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[pcapLinkTypeOffset:], uint32(linkType))
	return out
}

func writeCapture(t *testing.T, linkType LinkType, frames []timedFrame) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	require.NoError(t, os.WriteFile(path, encodeCapture(t, linkType, frames), 0o644))
	return path
}

var (
	speakerAddr = [6]byte{0xAA, 0xBB, 0xCC, 0x11, 0x22, 0x33}
	phoneAddr   = [6]byte{0xAA, 0xBB, 0xCC, 0x44, 0x55, 0x66}
)

func TestDecodeLinkLayer(t *testing.T) {
	frame := advFrame(t, speakerAddr, []adstruct.Structure{
		{Type: adstruct.TypeCompleteLocalName, Data: []byte("Emberton")},
		{Type: adstruct.TypeManufacturerSpecificData, Data: []byte{0x0A, 0x00, 0x01, 0x02}},
	})

	adv, ok := DecodeLinkLayer(LinkTypeBLELL, frame)
	require.True(t, ok)
	assert.Equal(t, "AA:BB:CC:11:22:33", adv.Address)
	assert.Equal(t, "Emberton", adv.LocalName)
	assert.Equal(t, []byte{0x01, 0x02}, adv.ManufacturerData[0x000A])
	assert.Nil(t, adv.RSSI)

	adv, ok = DecodeLinkLayer(LinkTypeBLELLWithPHDR, withPHDR(frame, -47))
	require.True(t, ok)
	require.NotNil(t, adv.RSSI)
	assert.Equal(t, -47, *adv.RSSI)
}

func TestDecodeLinkLayer_Rejects(t *testing.T) {
	frame := advFrame(t, speakerAddr, nil)

	dataChannel := append([]byte(nil), frame...)
	binary.LittleEndian.PutUint32(dataChannel, 0x12345678)
	_, ok := DecodeLinkLayer(LinkTypeBLELL, dataChannel)
	assert.False(t, ok, "non-advertising access address")

	scanReq := append([]byte(nil), frame...)
	scanReq[4] = 0x03
	_, ok = DecodeLinkLayer(LinkTypeBLELL, scanReq)
	assert.False(t, ok, "SCAN_REQ carries no AD data")

	_, ok = DecodeLinkLayer(LinkTypeBLELL, frame[:7])
	assert.False(t, ok, "truncated")

	_, ok = DecodeLinkLayer(LinkTypeBLELLWithPHDR, []byte{1, 2, 3})
	assert.False(t, ok, "short pseudo header")
}

func TestPCAPScanner_Windows(t *testing.T) {
	name := func(n string) []adstruct.Structure {
		return []adstruct.Structure{{Type: adstruct.TypeCompleteLocalName, Data: []byte(n)}}
	}
	path := writeCapture(t, LinkTypeBLELLWithPHDR, []timedFrame{
		{0, withPHDR(advFrame(t, speakerAddr, name("Speaker")), -70)},
		{2 * time.Second, withPHDR(advFrame(t, speakerAddr, nil), -50)},
		{3 * time.Second, withPHDR(advFrame(t, phoneAddr, name("Phone")), -60)},
		{20 * time.Second, withPHDR(advFrame(t, phoneAddr, nil), -40)},
	})

	s := NewPCAPScanner(path, false)
	defer s.Close()
	ctx := context.Background()

	first, err := s.Scan(ctx, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Speaker", first[0].LocalName)
	assert.Equal(t, -50, *first[0].RSSI, "latest report wins")
	assert.Equal(t, "Phone", first[1].LocalName)

	second, err := s.Scan(ctx, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, -40, *second[0].RSSI)

	_, err = s.Scan(ctx, 5*time.Second)
	assert.ErrorIs(t, err, ErrReplayExhausted)
	assert.ErrorIs(t, err, ports.ErrScannerExhausted, "scan loop treats the end of a replay as terminal")
}

func TestPCAPScanner_Loop(t *testing.T) {
	path := writeCapture(t, LinkTypeBLELL, []timedFrame{{0, advFrame(t, speakerAddr, nil)}})
	s := NewPCAPScanner(path, true)
	defer s.Close()

	for i := 0; i < 3; i++ {
		res, err := s.Scan(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Len(t, res, 1)
	}
}

func TestHeaderLinkType(t *testing.T) {
	hdr := encodeCapture(t, LinkTypeBLELLWithPHDR, nil)
	lt, err := headerLinkType(hdr)
	require.NoError(t, err)
	assert.Equal(t, LinkTypeBLELLWithPHDR, lt)

	swapped := append([]byte(nil), hdr...)
	binary.BigEndian.PutUint32(swapped[0:4], pcapMagicMicros)
	binary.BigEndian.PutUint32(swapped[pcapLinkTypeOffset:], uint32(LinkTypeBLELLWithPHDR))
	lt, err = headerLinkType(swapped)
	require.NoError(t, err)
	assert.Equal(t, LinkTypeBLELLWithPHDR, lt, "big-endian capture")

	_, err = headerLinkType(make([]byte, pcapHeaderLen))
	assert.ErrorContains(t, err, "not a pcap file")
}

func TestPCAPScanner_PseudoHeaderCapture(t *testing.T) {
	frames := []timedFrame{{0, withPHDR(advFrame(t, speakerAddr, nil), -33)}}

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(encodeCapture(t, LinkTypeBLELLWithPHDR, frames))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	compressed := filepath.Join(t.TempDir(), "capture.pcap.gz")
	require.NoError(t, os.WriteFile(compressed, gz.Bytes(), 0o644))

	for name, path := range map[string]string{
		"plain":   writeCapture(t, LinkTypeBLELLWithPHDR, frames),
		"gzipped": compressed,
	} {
		t.Run(name, func(t *testing.T) {
			s := NewPCAPScanner(path, false)
			defer s.Close()

			res, err := s.Scan(context.Background(), time.Second)
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Equal(t, "AA:BB:CC:11:22:33", res[0].Address)
			require.NotNil(t, res[0].RSSI)
			assert.Equal(t, -33, *res[0].RSSI)
		})
	}
}

func TestPCAPScanner_UnsupportedLinkType(t *testing.T) {
	path := writeCapture(t, LinkType(layers.LinkTypeEthernet), nil)
	_, err := NewPCAPScanner(path, false).Scan(context.Background(), time.Second)
	assert.ErrorContains(t, err, "unsupported link type")
}

func TestPCAPScanner_MissingFile(t *testing.T) {
	_, err := NewPCAPScanner(filepath.Join(t.TempDir(), "nope.pcap"), false).Scan(context.Background(), time.Second)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMockScanner(t *testing.T) {
	s := NewMockScanner("speakers", 11, 0)
	assert.Equal(t, "mock", s.Name())
	advs, err := s.Scan(context.Background(), time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, advs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewMockScanner("basic", 1, time.Hour).Scan(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
