package constraint

import (
	"fmt"
	"strings"

	"github.com/metaschema-go/metaschema/internal/metapath"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// Message is a finding message template. Text between braces is a Metapath
// expression replaced by the string value of its result.
type Message struct {
	text     string
	segments []segment
}

type segment struct {
	literal string
	expr    *metapath.Expression
}

// ParseMessage compiles the placeholders of a message template
func ParseMessage(text string, opts ...metapath.Option) (*Message, error) {
	msg := &Message{text: text}
	rest := text
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("message %q: unclosed '{'", text)
		}
		end += open

		if open > 0 {
			msg.segments = append(msg.segments, segment{literal: rest[:open]})
		}
		source := strings.TrimSpace(rest[open+1 : end])
		if source == "" {
			return nil, fmt.Errorf("message %q: empty placeholder", text)
		}
		expr, err := metapath.Compile(source, opts...)
		if err != nil {
			return nil, fmt.Errorf("message %q: %w", text, err)
		}
		msg.segments = append(msg.segments, segment{expr: expr})
		rest = rest[end+1:]
	}
	if rest != "" {
		msg.segments = append(msg.segments, segment{literal: rest})
	}
	return msg, nil
}

// MustMessage is like ParseMessage but panics on error
func MustMessage(text string) *Message {
	msg, err := ParseMessage(text)
	if err != nil {
		panic(err)
	}
	return msg
}

// String returns the template as declared
func (m *Message) String() string { return m.text }

// Render evaluates the placeholders against target
func (m *Message) Render(dyn *metapath.DynamicContext, target item.Item) (string, error) {
	var b strings.Builder
	for _, seg := range m.segments {
		if seg.expr == nil {
			b.WriteString(seg.literal)
			continue
		}
		value, err := seg.expr.EvaluateString(dyn, target)
		if err != nil {
			return "", err
		}
		b.WriteString(value)
	}
	return b.String(), nil
}
