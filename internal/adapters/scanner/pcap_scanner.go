package scanner

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/lcalzada-xor/bluespeak/internal/adapters/scanner/adstruct"
	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

// LinkType is the 32-bit link-layer header type of a pcap file. gopacket's
// layers.LinkType is a uint8, so values above 255 are read from the header here.
type LinkType uint32

// Link-layer header types for BLE captures (tcpdump.org/linktypes.html).
const (
	LinkTypeBLELL         LinkType = 251 // LINKTYPE_BLUETOOTH_LE_LL
	LinkTypeBLELLWithPHDR LinkType = 256 // LINKTYPE_BLUETOOTH_LE_LL_WITH_PHDR
)

const (
	pcapHeaderLen      = 24
	pcapMagicMicros    = 0xa1b2c3d4
	pcapMagicNanos     = 0xa1b23c4d
	gzipMagic1         = 0x1f
	gzipMagic2         = 0x8b
	pcapLinkTypeOffset = 20
)

const (
	advAccessAddress = 0x8E89BED6
	phdrLen          = 10
	phdrSignalValid  = 0x0002
	llHeaderLen      = 4 + 2 // access address + PDU header
	advAddressLen    = 6
)

// Advertising channel PDU types that carry AdvA followed by AD structures.
const (
	pduAdvInd        = 0x00
	pduAdvNonconnInd = 0x02
	pduScanRsp       = 0x04
	pduAdvScanInd    = 0x06
)

// ErrReplayExhausted is returned once a non-looping replay has no packets left.
var ErrReplayExhausted = fmt.Errorf("pcap replay: %w", ports.ErrScannerExhausted)

// PCAPScanner replays a BLE link-layer capture. Each Scan call consumes the next
// timeout-long window of capture time, so a recorded session plays back in the
// same rhythm as a live adapter would report it.
type PCAPScanner struct {
	path string
	loop bool

	mu        sync.Mutex
	file      *os.File
	reader    *pcapgo.Reader
	linkType  LinkType
	pending   *capturedPacket
	exhausted bool
}

type capturedPacket struct {
	data []byte
	ci   gopacket.CaptureInfo
}

// NewPCAPScanner replays path. With loop set, the capture restarts after its last packet.
func NewPCAPScanner(path string, loop bool) *PCAPScanner {
	return &PCAPScanner{path: path, loop: loop}
}

func (s *PCAPScanner) Name() string { return "pcap" }

func (s *PCAPScanner) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}

	br := bufio.NewReader(f)
	if magic, err := br.Peek(2); err == nil && magic[0] == gzipMagic1 && magic[1] == gzipMagic2 {
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to read compressed capture: %w", err)
		}
		br = bufio.NewReader(zr)
	}

	hdr, err := br.Peek(pcapHeaderLen)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to read capture header: %w", err)
	}
	linkType, err := headerLinkType(hdr)
	if err != nil {
		f.Close()
		return err
	}
	switch linkType {
	case LinkTypeBLELL, LinkTypeBLELLWithPHDR:
	default:
		f.Close()
		return fmt.Errorf("unsupported link type %d in %s", linkType, s.path)
	}

	r, err := pcapgo.NewReader(br)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to read capture header: %w", err)
	}
	s.file, s.reader, s.linkType = f, r, linkType
	return nil
}

// headerLinkType reads the untruncated link type from a pcap file header.
func headerLinkType(hdr []byte) (LinkType, error) {
	var order binary.ByteOrder
	switch binary.LittleEndian.Uint32(hdr[0:4]) {
	case pcapMagicMicros, pcapMagicNanos:
		order = binary.LittleEndian
	default:
		switch binary.BigEndian.Uint32(hdr[0:4]) {
		case pcapMagicMicros, pcapMagicNanos:
			order = binary.BigEndian
		default:
			return 0, fmt.Errorf("not a pcap file (magic %x)", hdr[0:4])
		}
	}
	return LinkType(order.Uint32(hdr[pcapLinkTypeOffset : pcapLinkTypeOffset+4])), nil
}

func (s *PCAPScanner) next() (*capturedPacket, error) {
	if p := s.pending; p != nil {
		s.pending = nil
		return p, nil
	}
	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		return nil, err
	}
	return &capturedPacket{data: data, ci: ci}, nil
}

// Scan returns the advertisements captured in the next window of the file.
func (s *PCAPScanner) Scan(ctx context.Context, timeout time.Duration) ([]domain.RawAdvertisement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exhausted {
		return nil, ErrReplayExhausted
	}
	if s.reader == nil {
		if err := s.open(); err != nil {
			return nil, err
		}
	}

	col := newCollector()
	var windowEnd time.Time
	packets := 0
	rewound := false

	for {
		if err := ctx.Err(); err != nil {
			return col.results(), err
		}

		pkt, err := s.next()
		if errors.Is(err, io.EOF) {
			s.closeLocked()
			if !s.loop {
				s.exhausted = true
			}
			if packets == 0 {
				if !s.loop || rewound {
					return nil, ErrReplayExhausted
				}
				rewound = true
				if err := s.open(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if err != nil {
			return col.results(), fmt.Errorf("failed to read packet: %w", err)
		}

		if windowEnd.IsZero() {
			windowEnd = pkt.ci.Timestamp.Add(timeout)
		} else if pkt.ci.Timestamp.After(windowEnd) {
			s.pending = pkt
			break
		}
		packets++

		if adv, ok := DecodeLinkLayer(s.linkType, pkt.data); ok {
			col.add(adv)
		}
	}

	slog.Debug("Replayed capture window", "packets", packets, "devices", col.len())
	return col.results(), nil
}

// Close releases the capture file. A later Scan reopens it from the start.
func (s *PCAPScanner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exhausted = false
	return s.closeLocked()
}

func (s *PCAPScanner) closeLocked() error {
	s.pending = nil
	s.reader = nil
	s.linkType = 0
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// DecodeLinkLayer turns one captured frame into an advertisement record.
// Frames that are not advertising-channel PDUs with AD data are rejected.
func DecodeLinkLayer(linkType LinkType, data []byte) (domain.RawAdvertisement, bool) {
	var adv domain.RawAdvertisement

	if linkType == LinkTypeBLELLWithPHDR {
		if len(data) < phdrLen {
			return adv, false
		}
		flags := binary.LittleEndian.Uint16(data[8:10])
		if flags&phdrSignalValid != 0 {
			rssi := int(int8(data[1]))
			adv.RSSI = &rssi
		}
		data = data[phdrLen:]
	}

	if len(data) < llHeaderLen || binary.LittleEndian.Uint32(data[0:4]) != advAccessAddress {
		return adv, false
	}

	pduType := data[4] & 0x0F
	length := int(data[5])
	switch pduType {
	case pduAdvInd, pduAdvNonconnInd, pduScanRsp, pduAdvScanInd:
	default:
		return adv, false
	}

	payload := data[llHeaderLen:]
	if length < advAddressLen || len(payload) < length {
		return adv, false
	}
	payload = payload[:length]

	adv.Address = formatAdvAddress(payload[:advAddressLen])
	if err := adstruct.Decode(payload[advAddressLen:], &adv); err != nil {
		slog.Debug("Malformed AD data in capture", "address", adv.Address, "error", err)
	}
	return adv, true
}

// formatAdvAddress renders a little-endian AdvA as AA:BB:CC:DD:EE:FF.
func formatAdvAddress(le []byte) string {
	parts := make([]string, advAddressLen)
	for i := 0; i < advAddressLen; i++ {
		parts[i] = fmt.Sprintf("%02X", le[advAddressLen-1-i])
	}
	return strings.Join(parts, ":")
}
