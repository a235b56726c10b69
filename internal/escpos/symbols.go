package escpos

// Symbology is the GS k barcode system (function B numbering).
type Symbology byte

const (
	UPCA    Symbology = 65
	UPCE    Symbology = 66
	EAN13   Symbology = 67
	EAN8    Symbology = 68
	CODE39  Symbology = 69
	ITF     Symbology = 70
	CODABAR Symbology = 71
	CODE93  Symbology = 72
	CODE128 Symbology = 73
)

// Barcode prints data as a one-dimensional barcode: GS k m n d1..dn.
// Data longer than 255 bytes is not representable and is emitted with a
// truncated length byte; validation is the caller's job.
func (e *Encoder) Barcode(data string, sym Symbology) *Encoder {
	if e.plain {
		return e.Line("[" + data + "]")
	}
	e.Raw(gs, 'k', byte(sym), byte(len(data)))
	return e.Raw([]byte(data)...)
}

// QRErrorCorrection is the GS ( k function 169 level.
type QRErrorCorrection byte

const (
	QRLevelL QRErrorCorrection = 0x30
	QRLevelM QRErrorCorrection = 0x31
	QRLevelQ QRErrorCorrection = 0x32
	QRLevelH QRErrorCorrection = 0x33
)

// DefaultQRModuleSize is the dot size of one QR module.
const DefaultQRModuleSize = 3

// QRCode stores and prints a QR code with model 2. The store block's
// length prefix is len(data) as low byte, high byte.
func (e *Encoder) QRCode(data string, ec QRErrorCorrection, moduleSize byte) *Encoder {
	if e.plain {
		return e.Line("[QR " + data + "]")
	}
	e.Raw(gs, '(', 'k', 0x04, 0x00, 0x31, 0x41, 0x32, 0x00) // model 2
	e.Raw(gs, '(', 'k', 0x03, 0x00, 0x31, 0x43, moduleSize)
	e.Raw(gs, '(', 'k', 0x03, 0x00, 0x31, 0x45, byte(ec))

	n := len(data)
	e.Raw(gs, '(', 'k', byte(n%256), byte(n/256), 0x31, 0x50, 0x30)
	e.Raw([]byte(data)...)

	return e.Raw(gs, '(', 'k', 0x03, 0x00, 0x31, 0x51, 0x30)
}
