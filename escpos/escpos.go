package escpos

// Control code prefixes
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// CutMode is the m parameter of GS V
type CutMode byte

const (
	CutFull        CutMode = 0x00
	CutPartial     CutMode = 0x01
	CutFeedFull    CutMode = 0x41
	CutFeedPartial CutMode = 0x42
)

// Alignment is the n parameter of ESC a
type Alignment byte

const (
	AlignLeft   Alignment = 0x00
	AlignCenter Alignment = 0x01
	AlignRight  Alignment = 0x02
)

// DefaultText is the line printed by TestPage when no text is given
const DefaultText = "Hello Rongta!"

// Segment is a single run of raw bytes sent to the printer
type Segment []byte

// Initialize resets the printer to its power-on state (ESC @)
func Initialize() Segment {
	return Segment{ESC, '@'}
}

// Line returns text terminated by a line feed
func Line(text string) Segment {
	seg := make(Segment, 0, len(text)+1)
	seg = append(seg, text...)
	return append(seg, LF)
}

// Cut returns GS V m. Feed modes take the extra feed byte n, plain modes ignore it.
func Cut(mode CutMode, n byte) Segment {
	switch mode {
	case CutFeedFull, CutFeedPartial:
		return Segment{GS, 'V', byte(mode), n}
	default:
		return Segment{GS, 'V', byte(mode)}
	}
}

// Feed prints the buffer and feeds n lines (ESC d n)
func Feed(n byte) Segment {
	return Segment{ESC, 'd', n}
}

// Align sets justification (ESC a n)
func Align(a Alignment) Segment {
	return Segment{ESC, 'a', byte(a)}
}

// TestPage returns the initialize, text line, cut job.
func TestPage(text string) Buffer {
	if text == "" {
		text = DefaultText
	}
	return NewBuffer(
		Initialize(),
		Line(text),
		Cut(CutFeedFull, 0x03),
	)
}
