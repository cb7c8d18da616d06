package protocol

import (
	"errors"
	"io"
	"strconv"
)

const (
	// MaxTokenWidth bounds a numeric token: a sign plus the ten digits of a
	// 32-bit integer.
	MaxTokenWidth = 11
	// DefaultMaxTokens is the number of tokens a single line may carry.
	DefaultMaxTokens = 32
	// DefaultMaxRawLength is the largest payload a Length token may announce.
	DefaultMaxRawLength = 256
)

// Outcome is the result of offering bytes to a Parser.
type Outcome int

const (
	// NeedMore means the parser consumed everything it was given and is
	// waiting for further bytes. Its position is kept.
	NeedMore Outcome = iota
	// Complete means a command line was recognized; see Parser.Command.
	Complete
	// Failed means the current line was rejected with a Code. The parser
	// discards the rest of the line on its own.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NeedMore:
		return "need-more"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type state int

const (
	stateType     state = iota // expecting R/W or a stray terminator
	stateID                    // service id digits
	stateVariant               // variant digits after '.'
	stateIDSpaces              // blanks between the id and the first token
	stateNumber                // numeric token body
	stateGap                   // blanks between tokens
	stateRaw                   // raw payload announced by a Length token
	stateRawEnd                // terminator required after a raw payload
	stateDiscard               // dropping the rest of a rejected line
)

// ParserOption customizes a Parser.
type ParserOption func(*Parser)

// WithMaxTokens caps the number of tokens on one line.
func WithMaxTokens(n int) ParserOption {
	return func(p *Parser) { p.maxTokens = n }
}

// WithMaxRawLength caps the payload a Length token may announce.
func WithMaxRawLength(n int) ParserOption {
	return func(p *Parser) { p.maxRaw = n }
}

// Parser is an incremental command line parser. It consumes one byte at a
// time and never blocks: when it runs out of input it reports NeedMore and
// resumes exactly where it stopped on the next call. A Parser is owned by a
// single connection and is reused for every command on it.
type Parser struct {
	maxTokens int
	maxRaw    int

	state    state
	cmd      CommandLine
	finished bool

	// numeric token under construction
	kind    Kind
	num     [MaxTokenWidth]byte
	n       int
	digits  bool
	decimal bool

	// raw payload storage, never shared between parsers
	raw     []byte
	rawWant int
}

// NewParser returns a parser ready for the first command.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		maxTokens: DefaultMaxTokens,
		maxRaw:    DefaultMaxRawLength,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.raw = make([]byte, 0, p.maxRaw)
	p.cmd.Tokens = make([]Token, 0, 4)
	return p
}

// Command returns the line recognized by the last Complete outcome. It stays
// valid until the next byte is offered to the parser.
func (p *Parser) Command() *CommandLine {
	return &p.cmd
}

// Reset abandons any partially parsed line.
func (p *Parser) Reset() {
	p.state = stateType
	p.finished = false
	p.resetCommand()
}

func (p *Parser) resetCommand() {
	p.cmd.Reset()
	p.raw = p.raw[:0]
	p.rawWant = 0
	p.resetNumber(KindParam)
}

func (p *Parser) resetNumber(k Kind) {
	p.kind = k
	p.n = 0
	p.digits = false
	p.decimal = false
}

// Parse pulls bytes from src until a line completes or fails, or until src
// reports an error (typically because it is empty), which yields NeedMore.
func (p *Parser) Parse(src io.ByteReader) (Outcome, error) {
	for {
		c, err := src.ReadByte()
		if err != nil {
			return NeedMore, nil
		}
		if out, err := p.Step(c); out != NeedMore {
			return out, err
		}
	}
}

// Feed offers b to the parser and reports how many bytes were consumed. It
// stops right after the byte that completed or failed a line, so callers
// should feed the remainder again.
func (p *Parser) Feed(b []byte) (int, Outcome, error) {
	for i, c := range b {
		if out, err := p.Step(c); out != NeedMore {
			return i + 1, out, err
		}
	}
	return len(b), NeedMore, nil
}

// Step consumes a single byte.
func (p *Parser) Step(c byte) (Outcome, error) {
	if p.finished {
		p.finished = false
		p.resetCommand()
	}

	switch p.state {
	case stateType:
		switch c {
		case 'R', 'r':
			p.cmd.Direction = Read
		case 'W', 'w':
			p.cmd.Direction = Write
		case CR, LF:
			return NeedMore, nil
		default:
			return p.fail(CodeInvalidCommandType, c)
		}
		p.state = stateID

	case stateID:
		switch {
		case isDigit(c):
			id := uint32(p.cmd.ServiceID)*10 + uint32(c-'0')
			if id > 0xFFFF {
				return p.fail(CodeInvalidCommandID, c)
			}
			p.cmd.ServiceID = ServiceID(id)
		case c == '.' && p.cmd.ServiceID != 0:
			p.state = stateVariant
		case c == ' ' && p.cmd.ServiceID != 0:
			p.state = stateIDSpaces
		case isTerminator(c) && p.cmd.ServiceID != 0:
			return p.complete()
		default:
			return p.fail(CodeInvalidCommandID, c)
		}

	case stateVariant:
		switch {
		case isDigit(c):
			v := uint32(p.cmd.Variant)*10 + uint32(c-'0')
			if v > 0xFFFF {
				return p.fail(CodeInvalidCommandVariant, c)
			}
			p.cmd.Variant = uint16(v)
		case c == '.':
			return p.fail(CodeInvalidCommandVariant, c)
		case c == ' ':
			p.state = stateIDSpaces
		case isTerminator(c):
			return p.complete()
		default:
			return p.fail(CodeInvalidCommandID, c)
		}

	case stateIDSpaces:
		if c == ' ' {
			return NeedMore, nil
		}
		kind := KindParam
		if p.cmd.ServiceID.NeedsLength() {
			kind = KindLength
		}
		p.resetNumber(kind)
		p.state = stateNumber
		return p.number(c)

	case stateNumber:
		return p.number(c)

	case stateGap:
		switch {
		case c == ' ':
			return NeedMore, nil
		case isTerminator(c):
			return p.complete()
		}
		if len(p.cmd.Tokens) >= p.maxTokens {
			return p.fail(CodeTokenAllocation, c)
		}
		p.resetNumber(KindParam)
		p.state = stateNumber
		return p.number(c)

	case stateRaw:
		p.raw = append(p.raw, c)
		if len(p.raw) == p.rawWant {
			p.state = stateRawEnd
		}

	case stateRawEnd:
		if !isTerminator(c) {
			return p.fail(CodeInvalidCommandParameter, c)
		}
		p.cmd.Tokens = append(p.cmd.Tokens, Token{Kind: KindParam, Type: TypeRaw, Raw: p.raw})
		return p.complete()

	case stateDiscard:
		if isTerminator(c) {
			p.state = stateType
		}
	}
	return NeedMore, nil
}

func (p *Parser) number(c byte) (Outcome, error) {
	switch {
	case c == '-' && p.n == 0:
		p.num[p.n] = c
		p.n++
	case isDigit(c):
		if p.n >= MaxTokenWidth {
			return p.fail(CodeTooManyDigits, c)
		}
		p.num[p.n] = c
		p.n++
		p.digits = true
	case c == '.' && !p.decimal:
		if p.n >= MaxTokenWidth {
			return p.fail(CodeTooManyDigits, c)
		}
		p.num[p.n] = c
		p.n++
		p.decimal = true
	case c == ' ':
		if !p.digits {
			return p.fail(CodeInvalidCommandParameter, c)
		}
		tok, code := p.finishNumber()
		if code != 0 {
			return p.fail(code, c)
		}
		p.cmd.Tokens = append(p.cmd.Tokens, tok)
		if tok.Kind == KindLength {
			if len(p.cmd.Tokens) >= p.maxTokens {
				return p.fail(CodeTokenAllocation, c)
			}
			p.rawWant = int(tok.Int)
			p.raw = p.raw[:0]
			p.state = stateRaw
			return NeedMore, nil
		}
		p.state = stateGap
	case isTerminator(c):
		if !p.digits || p.kind == KindLength {
			return p.fail(CodeInvalidCommandParameter, c)
		}
		tok, code := p.finishNumber()
		if code != 0 {
			return p.fail(code, c)
		}
		p.cmd.Tokens = append(p.cmd.Tokens, tok)
		return p.complete()
	default:
		return p.fail(CodeInvalidCommandParameter, c)
	}
	return NeedMore, nil
}

// finishNumber converts the buffered token text. A zero Code means success.
func (p *Parser) finishNumber() (Token, Code) {
	s := string(p.num[:p.n])
	tok := Token{Kind: p.kind}
	if p.decimal {
		if p.kind == KindLength {
			return tok, CodeInvalidCommandParameter
		}
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return tok, CodeInvalidCommandParameter
		}
		tok.Type = TypeFloat
		tok.Float = float32(f)
		return tok, 0
	}

	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return tok, CodeTooManyDigits
		}
		return tok, CodeInvalidCommandParameter
	}
	tok.Type = TypeInt32
	tok.Int = int32(v)
	if p.kind == KindLength && (tok.Int < 1 || int(tok.Int) > p.maxRaw) {
		return tok, CodeInvalidCommandParameter
	}
	return tok, 0
}

func (p *Parser) complete() (Outcome, error) {
	p.state = stateType
	p.finished = true
	return Complete, nil
}

// fail rejects the current line. When the offending byte is itself a line
// terminator the line is already over; otherwise the remainder is discarded.
func (p *Parser) fail(code Code, c byte) (Outcome, error) {
	p.resetCommand()
	if isTerminator(c) {
		p.state = stateType
	} else {
		p.state = stateDiscard
	}
	return Failed, code
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isTerminator(c byte) bool { return c == CR || c == LF }
