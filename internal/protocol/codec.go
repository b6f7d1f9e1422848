package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyFrame       = errors.New("empty frame")
	ErrMissingName      = errors.New("missing command name")
	ErrMissingID        = errors.New("missing exchange id")
	ErrUnterminated     = errors.New("unterminated quote")
	ErrDanglingEscape   = errors.New("dangling escape")
	ErrEmptyStreamChunk = errors.New("stream chunk without body")
)

// Encode serializes c as a single line including the trailing newline.
func Encode(c Command) ([]byte, error) {
	var b strings.Builder
	switch c.Kind {
	case KindEvent:
		if c.Name == "" {
			return nil, ErrMissingName
		}
		b.WriteString(c.Name)
	case KindRequest:
		if c.Name == "" {
			return nil, ErrMissingName
		}
		if c.ID == "" {
			return nil, ErrMissingID
		}
		b.WriteString(c.Name)
		b.WriteByte('?')
		b.WriteString(c.ID)
	case KindReply, KindError, KindStream, KindStreamEnd:
		if c.ID == "" {
			return nil, ErrMissingID
		}
		b.WriteByte(marker(c.Kind))
		b.WriteString(c.ID)
	default:
		return nil, fmt.Errorf("unknown kind %d", c.Kind)
	}

	if c.Kind != KindStreamEnd {
		body := encodeBody(c)
		if body == "" && c.Kind == KindStream {
			return nil, ErrEmptyStreamChunk
		}
		if body != "" {
			b.WriteByte(' ')
			b.WriteString(body)
		}
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func marker(k Kind) byte {
	switch k {
	case KindReply:
		return '.'
	case KindError:
		return '!'
	default:
		return '*'
	}
}

func encodeBody(c Command) string {
	tokens := make([]string, 0, len(c.Params)+len(c.KV)+1)
	for _, p := range c.Params {
		tokens = append(tokens, quote(p))
	}
	for _, kv := range c.KV {
		tokens = append(tokens, quote(kv.Key)+"="+quote(kv.Value))
	}
	if len(tokens) == 0 && c.Text != "" {
		tokens = append(tokens, quote(c.Text))
	}
	return strings.Join(tokens, " ")
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \"=\\\n\r\t") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Decode parses one line, with or without its trailing newline.
func Decode(line []byte) (Command, error) {
	s := strings.TrimRight(string(line), "\r\n")
	if strings.TrimSpace(s) == "" {
		return Command{}, ErrEmptyFrame
	}

	header, body, hasBody := strings.Cut(s, " ")
	if header == "" {
		return Command{}, ErrMissingName
	}
	var c Command
	switch header[0] {
	case '.':
		c.Kind, c.ID = KindReply, header[1:]
	case '!':
		c.Kind, c.ID = KindError, header[1:]
	case '*':
		c.Kind, c.ID = KindStream, header[1:]
		if !hasBody {
			c.Kind = KindStreamEnd
		}
	default:
		if name, id, ok := strings.Cut(header, "?"); ok {
			c.Kind, c.Name, c.ID = KindRequest, name, id
		} else {
			c.Kind, c.Name = KindEvent, header
		}
		if c.Name == "" {
			return Command{}, ErrMissingName
		}
	}
	if c.Kind != KindEvent && c.ID == "" {
		return Command{}, ErrMissingID
	}

	if hasBody {
		if err := decodeBody(body, &c); err != nil {
			return Command{}, err
		}
	}
	if len(c.Params) == 1 && len(c.KV) == 0 {
		c.Text = c.Params[0]
	}
	return c, nil
}

func decodeBody(body string, c *Command) error {
	var (
		cur     strings.Builder
		key     string
		isKV    bool
		started bool
		inQuote bool
	)
	flush := func() {
		if !started {
			return
		}
		if isKV {
			c.KV = append(c.KV, Pair{Key: key, Value: cur.String()})
		} else {
			c.Params = append(c.Params, cur.String())
		}
		cur.Reset()
		key, isKV, started = "", false, false
	}

	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '\\':
			if i+1 >= len(body) {
				return ErrDanglingEscape
			}
			i++
			cur.WriteByte(unescape(body[i]))
			started = true
		case inQuote:
			if ch == '"' {
				inQuote = false
			} else {
				cur.WriteByte(ch)
			}
		case ch == ' ':
			flush()
		case ch == '"':
			inQuote, started = true, true
		case ch == '=' && !isKV:
			key, isKV, started = cur.String(), true, true
			cur.Reset()
		default:
			cur.WriteByte(ch)
			started = true
		}
	}
	if inQuote {
		return ErrUnterminated
	}
	flush()
	return nil
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	}
	return c
}
