// Package fix implements a minimal FIX 4.4 tag-value codec for the three
// message types the venue speaks: NewOrderSingle, ExecutionReport and
// OrderCancelRequest. Session-level concerns (logon, heartbeats, resend)
// are out of scope; the codec covers framing, checksums and field mapping.
package fix

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SOH is the FIX field delimiter.
const SOH = '\x01'

// BeginString identifies the protocol version in tag 8.
const BeginString = "FIX.4.4"

// Header, body and trailer tags used by the codec.
const (
	TagBeginString  = 8
	TagBodyLength   = 9
	TagCheckSum     = 10
	TagClOrdID      = 11
	TagCumQty       = 14
	TagExecID       = 17
	TagExecInst     = 18
	TagLastPx       = 31
	TagLastQty      = 32
	TagMsgSeqNum    = 34
	TagMsgType      = 35
	TagOrderID      = 37
	TagOrderQty     = 38
	TagOrdStatus    = 39
	TagOrdType      = 40
	TagOrigClOrdID  = 41
	TagPrice        = 44
	TagSenderCompID = 49
	TagSendingTime  = 52
	TagSide         = 54
	TagSymbol       = 55
	TagTargetCompID = 56
	TagTimeInForce  = 59
	TagLeavesQty    = 151
	TagExecType     = 150
)

// Message types carried in tag 35.
const (
	MsgTypeNewOrderSingle     = "D"
	MsgTypeExecutionReport    = "8"
	MsgTypeOrderCancelRequest = "F"
)

var (
	ErrMalformed    = errors.New("fix: malformed message")
	ErrBeginString  = errors.New("fix: unexpected BeginString")
	ErrBodyLength   = errors.New("fix: body length mismatch")
	ErrChecksum     = errors.New("fix: checksum mismatch")
	ErrMissingField = errors.New("fix: missing required field")
)

// Field is one tag=value pair.
type Field struct {
	Tag   int
	Value string
}

// Message is a decoded or to-be-encoded FIX message. Body fields keep
// their wire order; duplicate tags are preserved but Get returns the
// first.
type Message struct {
	Type   string
	fields []Field
}

// NewMessage creates an empty message of the given type.
func NewMessage(msgType string) *Message {
	return &Message{Type: msgType}
}

// Set appends a tag=value pair to the body.
func (m *Message) Set(tag int, value string) *Message {
	m.fields = append(m.fields, Field{Tag: tag, Value: value})
	return m
}

// SetInt appends an integer-valued field.
func (m *Message) SetInt(tag int, value int64) *Message {
	return m.Set(tag, strconv.FormatInt(value, 10))
}

// Get returns the first value for tag.
func (m *Message) Get(tag int) (string, bool) {
	for _, f := range m.fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

// GetInt returns the first value for tag parsed as a base-10 integer.
func (m *Message) GetInt(tag int) (int64, error) {
	v, ok := m.Get(tag)
	if !ok {
		return 0, fmt.Errorf("%w: tag %d", ErrMissingField, tag)
	}
	return strconv.ParseInt(v, 10, 64)
}

// Fields returns the body fields in wire order.
func (m *Message) Fields() []Field { return m.fields }

// Session carries the sender/target identity and the outbound sequence
// number used when encoding.
type Session struct {
	SenderCompID string
	TargetCompID string
	seq          uint64
}

// NewSession starts an outbound sequence at 1.
func NewSession(sender, target string) *Session {
	return &Session{SenderCompID: sender, TargetCompID: target}
}

// Encode frames the message: standard header, body fields in order, and a
// trailer whose checksum is the byte sum of everything before tag 10,
// modulo 256, rendered as three digits.
func (s *Session) Encode(m *Message, sendingTime time.Time) []byte {
	s.seq++

	var body bytes.Buffer
	writeField(&body, TagMsgType, m.Type)
	writeField(&body, TagSenderCompID, s.SenderCompID)
	writeField(&body, TagTargetCompID, s.TargetCompID)
	writeField(&body, TagMsgSeqNum, strconv.FormatUint(s.seq, 10))
	writeField(&body, TagSendingTime, sendingTime.UTC().Format("20060102-15:04:05.000"))
	for _, f := range m.fields {
		writeField(&body, f.Tag, f.Value)
	}

	var out bytes.Buffer
	writeField(&out, TagBeginString, BeginString)
	writeField(&out, TagBodyLength, strconv.Itoa(body.Len()))
	out.Write(body.Bytes())
	writeField(&out, TagCheckSum, fmt.Sprintf("%03d", checksum(out.Bytes())))
	return out.Bytes()
}

// Parse validates framing and checksum and returns the decoded message.
// Header fields other than 8/9/10 are kept in the body so callers can read
// sequence numbers and comp ids through Get.
func Parse(raw []byte) (*Message, error) {
	fields, err := splitFields(raw)
	if err != nil {
		return nil, err
	}
	if len(fields) < 4 {
		return nil, ErrMalformed
	}
	if fields[0].Tag != TagBeginString || fields[0].Value != BeginString {
		return nil, ErrBeginString
	}
	if fields[1].Tag != TagBodyLength {
		return nil, ErrMalformed
	}
	last := fields[len(fields)-1]
	if last.Tag != TagCheckSum {
		return nil, ErrMalformed
	}

	wantLen, err := strconv.Atoi(fields[1].Value)
	if err != nil {
		return nil, ErrMalformed
	}
	// Body spans from after the BodyLength field to before the CheckSum
	// field.
	headerLen := fieldWireLen(fields[0]) + fieldWireLen(fields[1])
	bodyLen := len(raw) - headerLen - fieldWireLen(last)
	if bodyLen != wantLen {
		return nil, ErrBodyLength
	}

	wantSum, err := strconv.Atoi(last.Value)
	if err != nil {
		return nil, ErrMalformed
	}
	if checksum(raw[:len(raw)-fieldWireLen(last)]) != wantSum {
		return nil, ErrChecksum
	}

	m := &Message{}
	for _, f := range fields[2 : len(fields)-1] {
		if f.Tag == TagMsgType {
			m.Type = f.Value
			continue
		}
		m.fields = append(m.fields, f)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("%w: tag %d", ErrMissingField, TagMsgType)
	}
	return m, nil
}

func writeField(b *bytes.Buffer, tag int, value string) {
	b.WriteString(strconv.Itoa(tag))
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte(SOH)
}

func fieldWireLen(f Field) int {
	return len(strconv.Itoa(f.Tag)) + 1 + len(f.Value) + 1
}

func splitFields(raw []byte) ([]Field, error) {
	if len(raw) == 0 || raw[len(raw)-1] != SOH {
		return nil, ErrMalformed
	}
	parts := bytes.Split(raw[:len(raw)-1], []byte{SOH})
	fields := make([]Field, 0, len(parts))
	for _, part := range parts {
		eq := bytes.IndexByte(part, '=')
		if eq <= 0 {
			return nil, ErrMalformed
		}
		tag, err := strconv.Atoi(string(part[:eq]))
		if err != nil {
			return nil, ErrMalformed
		}
		fields = append(fields, Field{Tag: tag, Value: string(part[eq+1:])})
	}
	return fields, nil
}

// checksum is the byte sum modulo 256.
func checksum(b []byte) int {
	var sum int
	for _, c := range b {
		sum += int(c)
	}
	return sum % 256
}
