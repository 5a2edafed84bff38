// Package muxer builds bit-correct Ogg/Opus container pages: CRC, segment
// lacing, page headers, ID/comment headers, and Opus TOC decoding.
package muxer

// crcTable is the Vorbis/Ogg CRC32 lookup table: polynomial 0x04c11db7, no
// reflection, initial value 0, no final XOR. Built once at package init.
var crcTable [256]uint32

func init() {
	const poly = uint32(0x04c11db7)
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for bit := 0; bit < 8; bit++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc = crc << 1
			}
		}
		crcTable[i] = crc
	}
}

// crcUpdate folds bytes into seed using the Vorbis CRC recurrence.
func crcUpdate(seed uint32, data []byte) uint32 {
	crc := seed
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[(b^byte(crc>>24))&0xff]
	}
	return crc
}

// ChecksumPage computes the Vorbis CRC32 over a full page buffer that
// already has its CRC field (bytes 22..26) zeroed.
func ChecksumPage(page []byte) uint32 {
	return crcUpdate(0, page)
}
