// Package preview decodes ticket command streams and draws them as images
package preview

import (
	"fmt"

	"github.com/thereceipt/ticket-engine/internal/escpos"
)

// OpKind identifies a decoded operation
type OpKind int

const (
	OpText OpKind = iota
	OpInit
	OpLineSpacing
	OpAlign
	OpStyle
	OpFeed
	OpCut
	OpBuzzer
	OpQR
)

var opNames = map[OpKind]string{
	OpText:        "text",
	OpInit:        "init",
	OpLineSpacing: "line_spacing",
	OpAlign:       "align",
	OpStyle:       "style",
	OpFeed:        "feed",
	OpCut:         "cut",
	OpBuzzer:      "buzzer",
	OpQR:          "qr",
}

func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Op is one decoded operation. Only the fields of its kind are set.
type Op struct {
	Kind    OpKind
	Text    string           // OpText, without the line feed
	Newline bool             // OpText ended with a line feed
	Align   escpos.Alignment // OpAlign
	Style   byte             // OpStyle, the ESC ! mode byte
	Lines   int              // OpFeed, OpLineSpacing in dots
	Payload []byte           // OpQR
}

// Style bits of ESC !
const (
	StyleBold   byte = 0x08
	StyleDouble byte = 0x30
)

// Decode splits a command stream into operations. Consecutive bare line feeds
// become one OpFeed. QR setup commands are consumed and the stored payload is
// reported once the print command is seen.
func Decode(buf []byte) ([]Op, error) {
	var (
		ops     []Op
		text    []byte
		stored  []byte
		pending bool
	)

	flushText := func(newline bool) {
		if len(text) > 0 || newline {
			ops = append(ops, Op{Kind: OpText, Text: string(text), Newline: newline})
		}
		text = text[:0]
		pending = false
	}

	need := func(i, n int) error {
		if i+n > len(buf) {
			return fmt.Errorf("truncated command at offset %d", i)
		}
		return nil
	}

	for i := 0; i < len(buf); {
		b := buf[i]

		switch b {
		case escpos.LF:
			if pending {
				flushText(true)
			} else if n := len(ops); n > 0 && ops[n-1].Kind == OpFeed {
				ops[n-1].Lines++
			} else {
				ops = append(ops, Op{Kind: OpFeed, Lines: 1})
			}
			i++

		case escpos.ESC:
			if pending {
				flushText(false)
			}
			if err := need(i, 2); err != nil {
				return nil, err
			}
			switch buf[i+1] {
			case '@':
				ops = append(ops, Op{Kind: OpInit})
				i += 2
			case '3':
				if err := need(i, 3); err != nil {
					return nil, err
				}
				ops = append(ops, Op{Kind: OpLineSpacing, Lines: int(buf[i+2])})
				i += 3
			case 'a':
				if err := need(i, 3); err != nil {
					return nil, err
				}
				a := escpos.Alignment(buf[i+2])
				if a > escpos.AlignRight {
					return nil, fmt.Errorf("invalid alignment %d at offset %d", a, i)
				}
				ops = append(ops, Op{Kind: OpAlign, Align: a})
				i += 3
			case '!':
				if err := need(i, 3); err != nil {
					return nil, err
				}
				ops = append(ops, Op{Kind: OpStyle, Style: buf[i+2]})
				i += 3
			case 'B':
				if err := need(i, 4); err != nil {
					return nil, err
				}
				ops = append(ops, Op{Kind: OpBuzzer})
				i += 4
			default:
				return nil, fmt.Errorf("unknown opcode ESC 0x%02X at offset %d", buf[i+1], i)
			}

		case escpos.GS:
			if pending {
				flushText(false)
			}
			if err := need(i, 2); err != nil {
				return nil, err
			}
			switch buf[i+1] {
			case 'V':
				if err := need(i, 3); err != nil {
					return nil, err
				}
				ops = append(ops, Op{Kind: OpCut})
				i += 3
			case '(':
				if err := need(i, 7); err != nil {
					return nil, err
				}
				if buf[i+2] != 'k' {
					return nil, fmt.Errorf("unknown opcode GS ( 0x%02X at offset %d", buf[i+2], i)
				}
				size := int(buf[i+3]) | int(buf[i+4])<<8
				if err := need(i+5, size); err != nil {
					return nil, err
				}
				body := buf[i+5 : i+5+size]
				if size < 2 || body[0] != 0x31 {
					return nil, fmt.Errorf("unsupported 2D symbol at offset %d", i)
				}
				switch body[1] {
				case 0x41, 0x43, 0x45:
					// model, module size, error correction
				case 0x50:
					if size < 3 {
						return nil, fmt.Errorf("short QR store at offset %d", i)
					}
					stored = append([]byte(nil), body[3:]...)
				case 0x51:
					ops = append(ops, Op{Kind: OpQR, Payload: stored})
					stored = nil
				default:
					return nil, fmt.Errorf("unknown QR function 0x%02X at offset %d", body[1], i)
				}
				i += 5 + size
			default:
				return nil, fmt.Errorf("unknown opcode GS 0x%02X at offset %d", buf[i+1], i)
			}

		default:
			text = append(text, b)
			pending = true
			i++
		}
	}

	if pending {
		flushText(false)
	}

	return ops, nil
}

// Lines returns the text of every decoded text operation in order
func Lines(ops []Op) []string {
	var lines []string
	for _, op := range ops {
		if op.Kind == OpText {
			lines = append(lines, op.Text)
		}
	}
	return lines
}
