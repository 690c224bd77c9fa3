// Package pgns holds hand-typed Go structs for the PGNs this stack speaks
// fluently, plus the static descriptor table the generic codec walks for
// everything else. cmd/n2kgen produces the bulk of the descriptor table at
// build time from a CANboat manifest; the handful of structs in this file
// are written directly because their wire layout is fixed and worth
// guaranteeing byte-for-byte.
package pgns

import (
	"math"

	"github.com/halyard-n2k/n2k"
)

// PositionRapidUpdate is PGN 129025.
type PositionRapidUpdate struct {
	Latitude  float64 // degrees, resolution 1e-7
	Longitude float64 // degrees, resolution 1e-7
}

const positionResolution = 1e-7

// Encode writes the 8-byte payload for PGN 129025.
func (p PositionRapidUpdate) Encode() [8]byte {
	var out [8]byte
	c := n2k.NewBitCursor(out[:])
	lat := int64(math.Round(p.Latitude / positionResolution))
	lon := int64(math.Round(p.Longitude / positionResolution))
	_ = c.WriteSignedBits(lat, 32)
	_ = c.WriteSignedBits(lon, 32)
	return out
}

// DecodePositionRapidUpdate parses an 8-byte PGN 129025 payload.
func DecodePositionRapidUpdate(data []byte) (PositionRapidUpdate, error) {
	if len(data) != 8 {
		return PositionRapidUpdate{}, n2k.ErrTruncated
	}
	c := n2k.NewBitCursor(data)
	lat, err := c.ReadSignedBits(32)
	if err != nil {
		return PositionRapidUpdate{}, err
	}
	lon, err := c.ReadSignedBits(32)
	if err != nil {
		return PositionRapidUpdate{}, err
	}
	return PositionRapidUpdate{
		Latitude:  float64(lat) * positionResolution,
		Longitude: float64(lon) * positionResolution,
	}, nil
}

// WaterDepth is PGN 128267.
type WaterDepth struct {
	SID    uint8
	Depth  float64 // meters, resolution 0.01
	Offset float64 // meters, resolution 0.001, signed (transducer offset from keel/waterline)
	Range  uint8   // raw value in units of 10 meters, unscaled (deprecated field, kept for wire fidelity)
}

// Encode writes the 9-byte payload for PGN 128267.
func (w WaterDepth) Encode() [9]byte {
	var out [9]byte
	c := n2k.NewBitCursor(out[:])
	_ = c.WriteBits(uint64(w.SID), 8)
	_ = c.WriteBits(uint64(math.Round(w.Depth/0.01)), 32)
	_ = c.WriteSignedBits(int64(math.Round(w.Offset/0.001)), 16)
	_ = c.WriteBits(uint64(w.Range), 8)
	_ = c.WriteBits(0xff, 8) // reserved
	return out
}

// DecodeWaterDepth parses a PGN 128267 payload (at least 9 bytes).
func DecodeWaterDepth(data []byte) (WaterDepth, error) {
	if len(data) < 9 {
		return WaterDepth{}, n2k.ErrTruncated
	}
	c := n2k.NewBitCursor(data)
	sid, err := c.ReadBits(8)
	if err != nil {
		return WaterDepth{}, err
	}
	depth, err := c.ReadBits(32)
	if err != nil {
		return WaterDepth{}, err
	}
	offset, err := c.ReadSignedBits(16)
	if err != nil {
		return WaterDepth{}, err
	}
	rng, err := c.ReadBits(8)
	if err != nil {
		return WaterDepth{}, err
	}
	return WaterDepth{
		SID:    uint8(sid),
		Depth:  float64(depth) * 0.01,
		Offset: float64(offset) * 0.001,
		Range:  uint8(rng),
	}, nil
}

// ISORequest is PGN 59904: a request for another device to transmit the
// named PGN.
type ISORequest struct {
	RequestedPGN uint32 // 24 bits on the wire
}

// Encode writes the 3-byte payload for PGN 59904.
func (r ISORequest) Encode() [3]byte {
	return [3]byte{byte(r.RequestedPGN), byte(r.RequestedPGN >> 8), byte(r.RequestedPGN >> 16)}
}

// DecodeISORequest parses a PGN 59904 payload.
func DecodeISORequest(data []byte) (ISORequest, error) {
	if len(data) < 3 {
		return ISORequest{}, n2k.ErrTruncated
	}
	return ISORequest{RequestedPGN: uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16}, nil
}

// Descriptors maps a PGN to its static wire-layout descriptor. cmd/n2kgen
// appends the descriptors it generates from a CANboat manifest into this map
// via an init function in a separate generated file; the entries below are
// the ones this package decodes directly into typed structs.
var Descriptors = map[uint32]*n2k.PGNDescriptor{}

func registerDescriptor(desc *n2k.PGNDescriptor) *n2k.PGNDescriptor {
	Descriptors[desc.PGN] = desc
	return desc
}

// FastPacketPGNs lists every PGN known to need Fast Packet reassembly, for
// callers that build an n2k.FastPacketAssembler. PGN List (126464) is
// included even though this package has no typed struct for it yet -- it
// is still multi-frame and addressmapper requests it by number.
func FastPacketPGNs() []uint32 {
	out := []uint32{n2k.PGNPGNList}
	for pgn, desc := range Descriptors {
		if desc.Category == n2k.CategoryFastPacket {
			out = append(out, pgn)
		}
	}
	return out
}

// ProductInfoDescriptor describes PGN 126996, NMEA Product Information.
var ProductInfoDescriptor = registerDescriptor(&n2k.PGNDescriptor{
	PGN:      126996,
	Name:     "Product Information",
	Category: n2k.CategoryFastPacket,
	Length:   134,
	Fields: []n2k.FieldDescriptor{
		{ID: "nmea2000Version", Kind: n2k.FieldKindNumber, BitLength: 16},
		{ID: "productCode", Kind: n2k.FieldKindNumber, BitLength: 16},
		{ID: "modelID", Kind: n2k.FieldKindStringFix, BitLength: 32 * 8},
		{ID: "softwareVersionCode", Kind: n2k.FieldKindStringFix, BitLength: 32 * 8},
		{ID: "modelVersion", Kind: n2k.FieldKindStringFix, BitLength: 32 * 8},
		{ID: "modelSerialCode", Kind: n2k.FieldKindStringFix, BitLength: 32 * 8},
		{ID: "certificationLevel", Kind: n2k.FieldKindNumber, BitLength: 8},
		{ID: "loadEquivalency", Kind: n2k.FieldKindNumber, BitLength: 8},
	},
})

// ProductInfo is PGN 126996: identifies a device's model and firmware.
type ProductInfo struct {
	NMEA2000Version uint16
	ProductCode     uint16

	ModelID             string
	SoftwareVersionCode string
	ModelVersion        string
	ModelSerialCode     string

	CertificationLevel uint8
	LoadEquivalency    uint8
}

// DecodeProductInfo parses a PGN 126996 payload.
func DecodeProductInfo(data []byte) (ProductInfo, error) {
	msg, err := n2k.Decode(ProductInfoDescriptor, data)
	if err != nil {
		return ProductInfo{}, err
	}
	get := func(id string) n2k.FieldValue {
		fv, _ := msg.Fields.FindByID(id)
		return fv
	}
	u16 := func(id string) uint16 {
		v, _ := get(id).Value.(uint64)
		return uint16(v)
	}
	str := func(id string) string {
		v, _ := get(id).Value.(string)
		return v
	}
	return ProductInfo{
		NMEA2000Version:     u16("nmea2000Version"),
		ProductCode:         u16("productCode"),
		ModelID:             str("modelID"),
		SoftwareVersionCode: str("softwareVersionCode"),
		ModelVersion:        str("modelVersion"),
		ModelSerialCode:     str("modelSerialCode"),
		CertificationLevel:  uint8(u16("certificationLevel")),
		LoadEquivalency:     uint8(u16("loadEquivalency")),
	}, nil
}

// ConfigurationInfoDescriptor describes PGN 126998, Configuration Information.
var ConfigurationInfoDescriptor = registerDescriptor(&n2k.PGNDescriptor{
	PGN:      126998,
	Name:     "Configuration Information",
	Category: n2k.CategoryFastPacket,
	Fields: []n2k.FieldDescriptor{
		{ID: "installationDescription1", Kind: n2k.FieldKindStringLAU, BitLengthVariable: true},
		{ID: "installationDescription2", Kind: n2k.FieldKindStringLAU, BitLengthVariable: true},
		{ID: "manufacturerInfo", Kind: n2k.FieldKindStringLAU, BitLengthVariable: true},
	},
})

// ConfigurationInfo is PGN 126998: free-form installation and manufacturer
// text a device reports about itself.
type ConfigurationInfo struct {
	InstallationDescription1 string
	InstallationDescription2 string
	ManufacturerInfo         string
}

// DecodeConfigurationInfo parses a PGN 126998 payload.
func DecodeConfigurationInfo(data []byte) (ConfigurationInfo, error) {
	msg, err := n2k.Decode(ConfigurationInfoDescriptor, data)
	if err != nil {
		return ConfigurationInfo{}, err
	}
	str := func(id string) string {
		fv, _ := msg.Fields.FindByID(id)
		v, _ := fv.Value.(string)
		return v
	}
	return ConfigurationInfo{
		InstallationDescription1: str("installationDescription1"),
		InstallationDescription2: str("installationDescription2"),
		ManufacturerInfo:         str("manufacturerInfo"),
	}, nil
}
