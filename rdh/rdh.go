// {{{ Copyright (c) Paul R. Tagliamonte <paul@k3xec.com>, 2020
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

// Package rdh contains the bit-exact, little-endian codec for the 64 byte
// Raw Data Header and its four subwords.
//
// Every multi-byte field is read and written field-by-field with
// encoding/binary; nothing here reinterprets a byte slice as a struct,
// because several fields are bit-packed sub-ranges (the FEE-ID, the
// bunch-crossing counter) that require masking and shifting rather than a
// straight cast.
package rdh

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Size is the fixed, wire-exact length of an RDH in bytes.
const Size = 64

// HeaderSize is the only header_size value this codec accepts.
const HeaderSize = 0x40

// ErrShortBuffer is returned when a buffer passed to a decode function is
// shorter than the subword it is asked to decode.
var ErrShortBuffer = errors.New("rdh: short buffer")

// ErrBadHeaderSize is returned by DecodeRDH when header_size != 0x40.
var ErrBadHeaderSize = errors.New("rdh: header_size is not 0x40")

// ErrBadHeaderID is returned by DecodeRDH when header_id is not 6 or 7.
var ErrBadHeaderID = errors.New("rdh: header_id is not 6 or 7")

// FeeID is the 16 bit Front-End Electronics identifier, packed as bits
// 0-5 stave, 8-9 fiber, 12-14 layer.
type FeeID uint16

// Stave returns the 6 bit stave number encoded in bits 0-5.
func (f FeeID) Stave() uint8 {
	return uint8(f & 0x3F)
}

// Fiber returns the 2 bit fiber-uplink number encoded in bits 8-9.
func (f FeeID) Fiber() uint8 {
	return uint8((f >> 8) & 0x3)
}

// Layer returns the 3 bit layer number encoded in bits 12-14.
func (f FeeID) Layer() uint8 {
	return uint8((f >> 12) & 0x7)
}

func (f FeeID) String() string {
	return fmt.Sprintf("L%d_%d (fiber %d, fee %#04X)", f.Layer(), f.Stave(), f.Fiber(), uint16(f))
}

// Rdh0 is the first 8 byte subword of an RDH.
type Rdh0 struct {
	HeaderID   uint8
	HeaderSize uint8
	FeeID      FeeID
	PriorityBit uint8
	SystemID   uint8
	Reserved   uint16
}

// DecodeRdh0 decodes the first 8 bytes of an RDH. It does not validate
// HeaderSize or HeaderID; that cross-check happens once, in DecodeRDH,
// against the full header.
func DecodeRdh0(buf []byte) (Rdh0, error) {
	if len(buf) < 8 {
		return Rdh0{}, fmt.Errorf("rdh0: %w", ErrShortBuffer)
	}
	return Rdh0{
		HeaderID:    buf[0],
		HeaderSize:  buf[1],
		FeeID:       FeeID(binary.LittleEndian.Uint16(buf[2:4])),
		PriorityBit: buf[4],
		SystemID:    buf[5],
		Reserved:    binary.LittleEndian.Uint16(buf[6:8]),
	}, nil
}

// Encode writes the wire representation of Rdh0 into buf[0:8].
func (r Rdh0) Encode(buf []byte) {
	buf[0] = r.HeaderID
	buf[1] = r.HeaderSize
	binary.LittleEndian.PutUint16(buf[2:4], uint16(r.FeeID))
	buf[4] = r.PriorityBit
	buf[5] = r.SystemID
	binary.LittleEndian.PutUint16(buf[6:8], r.Reserved)
}

// Rdh1 is the third 8 byte subword of an RDH (bc_reserved + orbit).
type Rdh1 struct {
	BCReserved uint32
	Orbit      uint32
}

// BC returns the 12 bit bunch-crossing counter packed into bits 0-11 of
// BCReserved.
func (r Rdh1) BC() uint16 {
	return uint16(r.BCReserved & 0x0FFF)
}

// Reserved returns the 20 reserved bits packed into bits 12-31 of
// BCReserved.
func (r Rdh1) Reserved() uint32 {
	return r.BCReserved >> 12
}

// DecodeRdh1 decodes an 8 byte Rdh1 subword.
func DecodeRdh1(buf []byte) (Rdh1, error) {
	if len(buf) < 8 {
		return Rdh1{}, fmt.Errorf("rdh1: %w", ErrShortBuffer)
	}
	return Rdh1{
		BCReserved: binary.LittleEndian.Uint32(buf[0:4]),
		Orbit:      binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

// Encode writes the wire representation of Rdh1 into buf[0:8].
func (r Rdh1) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], r.BCReserved)
	binary.LittleEndian.PutUint32(buf[4:8], r.Orbit)
}

// PhysicsTriggerBit is the bit of Rdh2.TriggerType that marks a physics
// (as opposed to purely internal/calibration) trigger.
const PhysicsTriggerBit = 0x10

// Rdh2 is the fifth 8 byte subword of an RDH.
type Rdh2 struct {
	TriggerType  uint32
	PagesCounter uint16
	StopBit      uint8
	Reserved     uint8
}

// IsPhysicsTrigger reports whether bit 4 of TriggerType is set. The
// Payload FSM's periodic-TDH check does not use this bit: it keys off
// the internal-trigger bit of the TDH word itself.
func (r Rdh2) IsPhysicsTrigger() bool {
	return r.TriggerType&PhysicsTriggerBit != 0
}

// DecodeRdh2 decodes an 8 byte Rdh2 subword.
func DecodeRdh2(buf []byte) (Rdh2, error) {
	if len(buf) < 8 {
		return Rdh2{}, fmt.Errorf("rdh2: %w", ErrShortBuffer)
	}
	return Rdh2{
		TriggerType:  binary.LittleEndian.Uint32(buf[0:4]),
		PagesCounter: binary.LittleEndian.Uint16(buf[4:6]),
		StopBit:      buf[6],
		Reserved:     buf[7],
	}, nil
}

// Encode writes the wire representation of Rdh2 into buf[0:8].
func (r Rdh2) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], r.TriggerType)
	binary.LittleEndian.PutUint16(buf[4:6], r.PagesCounter)
	buf[6] = r.StopBit
	buf[7] = r.Reserved
}

// Rdh3 is the seventh 8 byte subword of an RDH.
type Rdh3 struct {
	DetectorField uint32
	ParBit        uint16
	Reserved      uint16
}

// DecodeRdh3 decodes an 8 byte Rdh3 subword.
func DecodeRdh3(buf []byte) (Rdh3, error) {
	if len(buf) < 8 {
		return Rdh3{}, fmt.Errorf("rdh3: %w", ErrShortBuffer)
	}
	return Rdh3{
		DetectorField: binary.LittleEndian.Uint32(buf[0:4]),
		ParBit:        binary.LittleEndian.Uint16(buf[4:6]),
		Reserved:      binary.LittleEndian.Uint16(buf[6:8]),
	}, nil
}

// Encode writes the wire representation of Rdh3 into buf[0:8].
func (r Rdh3) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], r.DetectorField)
	binary.LittleEndian.PutUint16(buf[4:6], r.ParBit)
	binary.LittleEndian.PutUint16(buf[6:8], r.Reserved)
}

// Rdh is the fully decoded 64 byte Raw Data Header. Versions 6 and 7
// share this exact field layout in this protocol generation, so there is
// only one concrete representation; Version is a plain discriminant
// field rather than a tagged union member.
type Rdh struct {
	Rdh0

	OffsetToNext  uint16
	MemorySize    uint16
	LinkID        uint8
	PacketCounter uint8
	CruIDDw       uint16

	Rdh1

	DataFormat        uint8
	DataFormatReserved [7]byte

	Rdh2

	Reserved1 uint64

	Rdh3

	Reserved2 uint64
}

// CruID returns the 12 bit CRU identifier packed into CruIDDw.
func (r Rdh) CruID() uint16 {
	return r.CruIDDw & 0x0FFF
}

// DataWrapperID returns the 4 bit data-wrapper identifier packed into
// CruIDDw.
func (r Rdh) DataWrapperID() uint8 {
	return uint8(r.CruIDDw >> 12)
}

// PayloadSize returns the number of payload bytes following this header,
// i.e. OffsetToNext - Size.
func (r Rdh) PayloadSize() uint16 {
	return r.OffsetToNext - Size
}

// Version reports the RDH version, which is the HeaderID field under a
// clearer name for callers that only care about versioning.
func (r Rdh) Version() uint8 {
	return r.HeaderID
}

// DecodeRDH decodes a 64 byte buffer into an Rdh, validating HeaderSize
// and HeaderID against the closed set this tool supports.
func DecodeRDH(buf []byte) (Rdh, error) {
	if len(buf) < Size {
		return Rdh{}, fmt.Errorf("rdh: %w", ErrShortBuffer)
	}

	rdh0, err := DecodeRdh0(buf[0:8])
	if err != nil {
		return Rdh{}, err
	}
	if rdh0.HeaderSize != HeaderSize {
		return Rdh{}, fmt.Errorf("rdh: header_size %#02X: %w", rdh0.HeaderSize, ErrBadHeaderSize)
	}
	if rdh0.HeaderID != 6 && rdh0.HeaderID != 7 {
		return Rdh{}, fmt.Errorf("rdh: header_id %d: %w", rdh0.HeaderID, ErrBadHeaderID)
	}

	rdh1, err := DecodeRdh1(buf[16:24])
	if err != nil {
		return Rdh{}, err
	}

	rdh2, err := DecodeRdh2(buf[32:40])
	if err != nil {
		return Rdh{}, err
	}

	rdh3, err := DecodeRdh3(buf[48:56])
	if err != nil {
		return Rdh{}, err
	}

	r := Rdh{
		Rdh0:          rdh0,
		OffsetToNext:  binary.LittleEndian.Uint16(buf[8:10]),
		MemorySize:    binary.LittleEndian.Uint16(buf[10:12]),
		LinkID:        buf[12],
		PacketCounter: buf[13],
		CruIDDw:       binary.LittleEndian.Uint16(buf[14:16]),
		Rdh1:          rdh1,
		DataFormat:    buf[24],
		Rdh2:          rdh2,
		Reserved1:     binary.LittleEndian.Uint64(buf[40:48]),
		Rdh3:          rdh3,
		Reserved2:     binary.LittleEndian.Uint64(buf[56:64]),
	}
	copy(r.DataFormatReserved[:], buf[25:32])

	if r.OffsetToNext < Size {
		return Rdh{}, fmt.Errorf("rdh: offset_to_next %d < %d", r.OffsetToNext, Size)
	}

	return r, nil
}

// EncodeRDH serializes an Rdh back to its 64 byte wire form. Used only by
// the writer path; decoded Rdh values are otherwise kept in this clean
// in-memory form and never round-tripped through the wire layout.
func EncodeRDH(r Rdh) [Size]byte {
	var buf [Size]byte
	r.Rdh0.Encode(buf[0:8])
	binary.LittleEndian.PutUint16(buf[8:10], r.OffsetToNext)
	binary.LittleEndian.PutUint16(buf[10:12], r.MemorySize)
	buf[12] = r.LinkID
	buf[13] = r.PacketCounter
	binary.LittleEndian.PutUint16(buf[14:16], r.CruIDDw)
	r.Rdh1.Encode(buf[16:24])
	buf[24] = r.DataFormat
	copy(buf[25:32], r.DataFormatReserved[:])
	r.Rdh2.Encode(buf[32:40])
	binary.LittleEndian.PutUint64(buf[40:48], r.Reserved1)
	r.Rdh3.Encode(buf[48:56])
	binary.LittleEndian.PutUint64(buf[56:64], r.Reserved2)
	return buf
}

// vim: foldmethod=marker
