// Package ingest carries advertisement batches from remote agents to the server
// over gRPC, using structpb messages instead of generated stubs.
package ingest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

var ErrMalformedBatch = errors.New("malformed advertisement batch")

// EncodeBatch converts a batch into the wire struct
// {version, agent, advertisements:[...]}.
func EncodeBatch(agent string, raws []domain.RawAdvertisement) (*structpb.Struct, error) {
	ads := make([]interface{}, 0, len(raws))
	for _, r := range raws {
		ads = append(ads, encodeAdvertisement(r))
	}
	return structpb.NewStruct(map[string]interface{}{
		"version":        domain.RawAdvertisementVersion,
		"agent":          agent,
		"advertisements": ads,
	})
}

func encodeAdvertisement(r domain.RawAdvertisement) map[string]interface{} {
	m := map[string]interface{}{"address": r.Address}
	if r.DeviceName != "" {
		m["device_name"] = r.DeviceName
	}
	if r.LocalName != "" {
		m["local_name"] = r.LocalName
	}
	if r.RSSI != nil {
		m["rssi"] = *r.RSSI
	}
	if r.TxPower != nil {
		m["tx_power"] = *r.TxPower
	}
	if r.Appearance != nil {
		m["appearance"] = int(*r.Appearance)
	}
	if len(r.ServiceUUIDs) > 0 {
		uuids := make([]interface{}, 0, len(r.ServiceUUIDs))
		for _, u := range r.ServiceUUIDs {
			uuids = append(uuids, u)
		}
		m["service_uuids"] = uuids
	}
	if len(r.ManufacturerData) > 0 {
		ids := make([]int, 0, len(r.ManufacturerData))
		for id := range r.ManufacturerData {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)
		md := make(map[string]interface{}, len(ids))
		for _, id := range ids {
			md[strconv.Itoa(id)] = hex.EncodeToString(r.ManufacturerData[uint16(id)])
		}
		m["manufacturer_data"] = md
	}
	return m
}

// DecodeBatch is the inverse of EncodeBatch.
func DecodeBatch(s *structpb.Struct) (string, []domain.RawAdvertisement, error) {
	if s == nil {
		return "", nil, fmt.Errorf("%w: empty request", ErrMalformedBatch)
	}
	m := s.AsMap()

	if v, ok := m["version"]; ok {
		n, ok := v.(float64)
		if !ok || n > domain.RawAdvertisementVersion {
			return "", nil, fmt.Errorf("%w: unsupported version %v", ErrMalformedBatch, v)
		}
	}

	agent, _ := m["agent"].(string)

	list, ok := m["advertisements"].([]interface{})
	if !ok && m["advertisements"] != nil {
		return "", nil, fmt.Errorf("%w: advertisements must be a list", ErrMalformedBatch)
	}

	raws := make([]domain.RawAdvertisement, 0, len(list))
	for i, item := range list {
		am, ok := item.(map[string]interface{})
		if !ok {
			return "", nil, fmt.Errorf("%w: advertisement %d is not an object", ErrMalformedBatch, i)
		}
		r, err := decodeAdvertisement(am)
		if err != nil {
			return "", nil, fmt.Errorf("%w: advertisement %d: %v", ErrMalformedBatch, i, err)
		}
		raws = append(raws, r)
	}
	return agent, raws, nil
}

func decodeAdvertisement(m map[string]interface{}) (domain.RawAdvertisement, error) {
	var r domain.RawAdvertisement
	addr, _ := m["address"].(string)
	r.Address = domain.NormalizeAddress(addr)
	r.DeviceName, _ = m["device_name"].(string)
	r.LocalName, _ = m["local_name"].(string)

	var err error
	if r.RSSI, err = optInt(m, "rssi", math.MinInt16, math.MaxInt16); err != nil {
		return r, err
	}
	if r.TxPower, err = optInt(m, "tx_power", math.MinInt16, math.MaxInt16); err != nil {
		return r, err
	}
	appearance, err := optInt(m, "appearance", 0, math.MaxUint16)
	if err != nil {
		return r, err
	}
	if appearance != nil {
		r.Appearance = domain.Uint16Ptr(uint16(*appearance))
	}

	if v, ok := m["service_uuids"]; ok {
		list, ok := v.([]interface{})
		if !ok {
			return r, errors.New("service_uuids must be a list")
		}
		for _, u := range list {
			s, ok := u.(string)
			if !ok {
				return r, errors.New("service_uuids must contain strings")
			}
			r.ServiceUUIDs = append(r.ServiceUUIDs, s)
		}
	}

	if v, ok := m["manufacturer_data"]; ok {
		md, ok := v.(map[string]interface{})
		if !ok {
			return r, errors.New("manufacturer_data must be an object")
		}
		r.ManufacturerData = make(map[uint16][]byte, len(md))
		for k, hv := range md {
			id, err := strconv.ParseUint(k, 10, 16)
			if err != nil {
				return r, fmt.Errorf("bad company id %q", k)
			}
			hs, ok := hv.(string)
			if !ok {
				return r, fmt.Errorf("company %d payload must be a hex string", id)
			}
			b, err := hex.DecodeString(hs)
			if err != nil {
				return r, fmt.Errorf("company %d payload: %w", id, err)
			}
			r.ManufacturerData[uint16(id)] = b
		}
	}
	return r, nil
}

func optInt(m map[string]interface{}, key string, lo, hi float64) (*int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < lo || f > hi {
		return nil, fmt.Errorf("%s must be an integer in [%v, %v]", key, lo, hi)
	}
	return domain.IntPtr(int(f)), nil
}

// EncodeResponse builds the {accepted, new} reply.
func EncodeResponse(summary domain.ScanSummary) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"accepted": summary.Seen,
		"new":      summary.New,
	})
}

// DecodeResponse reads the accepted count from a reply.
func DecodeResponse(s *structpb.Struct) (accepted, fresh int) {
	if s == nil {
		return 0, 0
	}
	if v, ok := s.Fields["accepted"]; ok {
		accepted = int(v.GetNumberValue())
	}
	if v, ok := s.Fields["new"]; ok {
		fresh = int(v.GetNumberValue())
	}
	return accepted, fresh
}
