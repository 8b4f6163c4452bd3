package gps

const (
	// maxSentenceLen bounds the working buffer; longer unterminated lines are dropped.
	maxSentenceLen = 200
	// minSentenceLen is the shortest line that can hold a talker, type and checksum.
	minSentenceLen = 7
)

// Assembler frames a byte stream into newline-terminated candidate sentences.
//
// It is not safe for concurrent use; Engine serializes access.
type Assembler struct {
	buf []byte

	overflows uint64
	short     uint64
}

func NewAssembler() *Assembler {
	return &Assembler{buf: make([]byte, 0, maxSentenceLen)}
}

// Write consumes p one byte at a time and calls emit for every accepted sentence.
// Call boundaries need not align with sentence boundaries.
func (a *Assembler) Write(p []byte, emit func(string)) {
	for _, c := range p {
		a.WriteByte(c, emit)
	}
}

// WriteByte consumes a single byte.
func (a *Assembler) WriteByte(c byte, emit func(string)) {
	switch c {
	case '\r':
		return
	case '\n':
		line := a.buf
		a.buf = a.buf[:0]
		if len(line) < minSentenceLen {
			if len(line) > 0 {
				a.short++
			}
			return
		}
		if emit != nil {
			emit(string(line))
		}
		return
	}

	a.buf = append(a.buf, c)
	if len(a.buf) > maxSentenceLen {
		a.buf = a.buf[:0]
		a.overflows++
	}
}

// Pending reports how many bytes are buffered without a terminator.
func (a *Assembler) Pending() int { return len(a.buf) }

// Reset drops any partial sentence.
func (a *Assembler) Reset() { a.buf = a.buf[:0] }
