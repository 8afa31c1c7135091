// Package escpos emits the ESC/POS command subset used for order tickets
package escpos

import (
	"bytes"
)

// Control bytes
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// Opcode table. Every byte the ticket formatter sends to a printer, apart from
// text and the QR payload, comes from here.
const (
	CmdInitialize  = "\x1b\x40"
	CmdLineSpacing = "\x1b\x33\x18"

	CmdAlignLeft   = "\x1b\x61\x00"
	CmdAlignCenter = "\x1b\x61\x01"
	CmdAlignRight  = "\x1b\x61\x02"

	CmdDoubleSize = "\x1b\x21\x30"
	CmdBoldOn     = "\x1b\x21\x08"
	CmdStyleReset = "\x1b\x21\x00"

	CmdCutFull = "\x1d\x56\x00"
	CmdBuzzer  = "\x1b\x42\x05\x05" // count, duration

	CmdQRModel           = "\x1d\x28\x6b\x04\x00\x31\x41\x32\x00"
	CmdQRModuleSize      = "\x1d\x28\x6b\x03\x00\x31\x43\x08"
	CmdQRErrorCorrection = "\x1d\x28\x6b\x03\x00\x31\x45\x30"
	CmdQRStorePrefix     = "\x1d\x28\x6b" // followed by pL pH 31 50 30 payload
	CmdQRStoreFunction   = "\x31\x50\x30"
	CmdQRPrint           = "\x1d\x28\x6b\x03\x00\x31\x51\x30"
)

// Alignment is the parameter byte of ESC a
type Alignment byte

const (
	AlignLeft   Alignment = 0x00
	AlignCenter Alignment = 0x01
	AlignRight  Alignment = 0x02
)

// Initialize resets the printer
func Initialize() []byte { return []byte(CmdInitialize) }

// LineSpacing selects the fixed line spacing
func LineSpacing() []byte { return []byte(CmdLineSpacing) }

// Align sets the justification for following lines
func Align(a Alignment) []byte {
	switch a {
	case AlignCenter:
		return []byte(CmdAlignCenter)
	case AlignRight:
		return []byte(CmdAlignRight)
	default:
		return []byte(CmdAlignLeft)
	}
}

// DoubleSize turns on double height and width
func DoubleSize() []byte { return []byte(CmdDoubleSize) }

// BoldOn turns on emphasis
func BoldOn() []byte { return []byte(CmdBoldOn) }

// BoldOff clears emphasis
func BoldOff() []byte { return []byte(CmdStyleReset) }

// StyleReset clears double size and emphasis
func StyleReset() []byte { return []byte(CmdStyleReset) }

// Feed returns n line feeds
func Feed(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	return bytes.Repeat([]byte{LF}, n)
}

// Cut performs a full paper cut
func Cut() []byte { return []byte(CmdCutFull) }

// Buzzer pulses the buzzer
func Buzzer() []byte { return []byte(CmdBuzzer) }

// QRModel selects QR model 2
func QRModel() []byte { return []byte(CmdQRModel) }

// QRModuleSize sets the module size
func QRModuleSize() []byte { return []byte(CmdQRModuleSize) }

// QRErrorCorrection sets the error correction level
func QRErrorCorrection() []byte { return []byte(CmdQRErrorCorrection) }

// QRStore stores payload in the symbol storage area. The two length bytes
// are len(payload)+3, little-endian.
func QRStore(payload []byte) []byte {
	n := len(payload) + 3

	out := make([]byte, 0, len(CmdQRStorePrefix)+2+len(CmdQRStoreFunction)+len(payload))
	out = append(out, CmdQRStorePrefix...)
	out = append(out, byte(n%256), byte(n/256))
	out = append(out, CmdQRStoreFunction...)
	out = append(out, payload...)
	return out
}

// QRPrint prints the stored symbol
func QRPrint() []byte { return []byte(CmdQRPrint) }

// QR returns the full model, size, error correction, store and print sequence
func QR(payload []byte) []byte {
	return bytes.Join([][]byte{
		QRModel(),
		QRModuleSize(),
		QRErrorCorrection(),
		QRStore(payload),
		QRPrint(),
	}, nil)
}
