// Package bridge implements the framing spoken between the agent and a
// microcontroller that drives the strip on its behalf.
//
// Every frame is laid out as
//
//	[type u8][length u16][payload][crc32 u32]
//
// with little-endian integers and an IEEE CRC over type, length and payload.
package bridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

var (
	// Endianness of every integer on the wire.
	Endianness = binary.LittleEndian

	ErrChecksum = errors.New("frame checksum mismatch")
	ErrTooLarge = errors.New("frame payload too large")
)

// HostPacketType identifies packets sent to the microcontroller.
type HostPacketType uint8

const (
	TypeInitialize HostPacketType = iota
	TypeClear
	TypeSet
)

func (t HostPacketType) String() string {
	switch t {
	case TypeInitialize:
		return "initialize"
	case TypeClear:
		return "clear"
	case TypeSet:
		return "set"
	default:
		return fmt.Sprintf("HostPacketType(%d)", t)
	}
}

// HostPacket is a packet sent to the microcontroller.
type HostPacket interface {
	Type() HostPacketType
}

// Initialize tells the microcontroller the strip geometry.
type Initialize struct {
	NumLEDs       uint16
	BytesPerPixel uint8
}

// Clear turns every pixel off.
type Clear struct{}

// Set carries a frame of pixel bytes in wire order.
type Set struct {
	Pix []byte
}

func (Initialize) Type() HostPacketType { return TypeInitialize }
func (Clear) Type() HostPacketType      { return TypeClear }
func (Set) Type() HostPacketType        { return TypeSet }

// DevicePacketType identifies packets sent by the microcontroller.
type DevicePacketType uint8

const (
	TypeAck DevicePacketType = iota
	TypeError
	TypeLog
)

func (t DevicePacketType) String() string {
	switch t {
	case TypeAck:
		return "ack"
	case TypeError:
		return "error"
	case TypeLog:
		return "log"
	default:
		return fmt.Sprintf("DevicePacketType(%d)", t)
	}
}

// DevicePacket is a packet sent by the microcontroller.
type DevicePacket interface {
	Type() DevicePacketType
}

// Ack confirms a host packet has been applied. For Set this means the
// frame, including the latch period, has left the data line.
type Ack struct {
	For HostPacketType
}

// Error reports a recoverable failure on the microcontroller.
type Error struct {
	Message string
}

// Log carries a diagnostic line from the microcontroller.
type Log struct {
	Message string
}

func (Ack) Type() DevicePacketType   { return TypeAck }
func (Error) Type() DevicePacketType { return TypeError }
func (Log) Type() DevicePacketType   { return TypeLog }

// WriteHostPacket frames p onto w.
func WriteHostPacket(w io.Writer, p HostPacket) error {
	var payload []byte
	switch p := p.(type) {
	case Initialize:
		payload = Endianness.AppendUint16(nil, p.NumLEDs)
		payload = append(payload, p.BytesPerPixel)
	case Clear:
	case Set:
		payload = p.Pix
	default:
		return fmt.Errorf("unknown host packet: %T", p)
	}
	return writeFrame(w, uint8(p.Type()), payload)
}

// ReadHostPacket reads one framed host packet from r.
func ReadHostPacket(r io.Reader) (HostPacket, error) {
	typ, payload, err := readFrame(r)
	if err != nil {
		return nil, err
	}

	switch t := HostPacketType(typ); t {
	case TypeInitialize:
		if len(payload) != 3 {
			return nil, fmt.Errorf("initialize packet has %d payload bytes, want 3", len(payload))
		}
		return Initialize{NumLEDs: Endianness.Uint16(payload), BytesPerPixel: payload[2]}, nil
	case TypeClear:
		return Clear{}, nil
	case TypeSet:
		return Set{Pix: payload}, nil
	default:
		return nil, fmt.Errorf("unknown host packet type: %s", t)
	}
}

// WriteDevicePacket frames p onto w.
func WriteDevicePacket(w io.Writer, p DevicePacket) error {
	var payload []byte
	switch p := p.(type) {
	case Ack:
		payload = []byte{uint8(p.For)}
	case Error:
		payload = []byte(p.Message)
	case Log:
		payload = []byte(p.Message)
	default:
		return fmt.Errorf("unknown device packet: %T", p)
	}
	return writeFrame(w, uint8(p.Type()), payload)
}

// ReadDevicePacket reads one framed device packet from r.
func ReadDevicePacket(r io.Reader) (DevicePacket, error) {
	typ, payload, err := readFrame(r)
	if err != nil {
		return nil, err
	}

	switch t := DevicePacketType(typ); t {
	case TypeAck:
		if len(payload) != 1 {
			return nil, fmt.Errorf("ack packet has %d payload bytes, want 1", len(payload))
		}
		return Ack{For: HostPacketType(payload[0])}, nil
	case TypeError:
		return Error{Message: string(payload)}, nil
	case TypeLog:
		return Log{Message: string(payload)}, nil
	default:
		return nil, fmt.Errorf("unknown device packet type: %s", t)
	}
}

func writeFrame(w io.Writer, typ uint8, payload []byte) error {
	if len(payload) > math.MaxUint16 {
		return ErrTooLarge
	}

	frame := make([]byte, 0, 3+len(payload)+4)
	frame = append(frame, typ)
	frame = Endianness.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)
	frame = Endianness.AppendUint32(frame, crc32.ChecksumIEEE(frame))

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

func readFrame(r io.Reader) (uint8, []byte, error) {
	hash := crc32.NewIEEE()
	tr := io.TeeReader(r, hash)

	var header [3]byte
	if _, err := io.ReadFull(tr, header[:]); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	payload := make([]byte, Endianness.Uint16(header[1:]))
	if _, err := io.ReadFull(tr, payload); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame payload: %w", err)
	}

	var sum [4]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return 0, nil, fmt.Errorf("failed to read frame checksum: %w", err)
	}
	if Endianness.Uint32(sum[:]) != hash.Sum32() {
		return 0, nil, ErrChecksum
	}

	return header[0], payload, nil
}
