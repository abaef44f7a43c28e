package physmem

import (
	"encoding/binary"
)

const (
	// Magic identifies a RAM image file ("PTSM").
	Magic uint32 = 0x5054534d

	// Version of the image layout.
	Version uint32 = 1

	// HeaderSize is the number of bytes reserved ahead of the RAM contents.
	HeaderSize = 64
)

// ImageHeader is stored at the start of a RAM image file.
type ImageHeader struct {
	Magic      uint32
	Version    uint32
	FrameSize  uint32
	FrameCount uint32
}

// Serialize writes the header to buf, which must hold at least 16 bytes.
func (h *ImageHeader) Serialize(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.FrameSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.FrameCount)
}

// Deserialize reads the header from buf.
func (h *ImageHeader) Deserialize(buf []byte) {
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.FrameSize = binary.LittleEndian.Uint32(buf[8:12])
	h.FrameCount = binary.LittleEndian.Uint32(buf[12:16])
}
