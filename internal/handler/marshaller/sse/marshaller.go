package ssemarshaller

import (
	"bytes"
	"strconv"

	"github.com/webitel/event-fanout-service/internal/domain/model"
)

const DefaultEventName = "message"

// KeepAlive is an SSE comment line; clients ignore it.
var KeepAlive = []byte(": keepalive\n\n")

// MarshallEvent renders ev as one text/event-stream frame. The payload goes
// out raw, split on newlines into consecutive data lines.
func MarshallEvent(ev *model.Event) ([]byte, error) {
	return ev.Frame("sse", buildFrame)
}

func buildFrame(ev *model.Event) ([]byte, error) {
	var b bytes.Buffer
	b.Grow(len(ev.Payload) + 64)

	b.WriteString("id: ")
	b.WriteString(strconv.FormatUint(ev.Seq, 10))
	b.WriteByte('\n')

	name := ev.Topic
	if name == "" {
		name = DefaultEventName
	}
	b.WriteString("event: ")
	b.WriteString(sanitize(name))
	b.WriteByte('\n')

	payload := bytes.ReplaceAll(ev.Payload, []byte("\r\n"), []byte("\n"))
	for line := range bytes.SplitSeq(payload, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(bytes.TrimSuffix(line, []byte("\r")))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Control frames carry no id so they never move the client's Last-Event-ID.
func MarshallControl(event string, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString("event: ")
	b.WriteString(sanitize(event))
	b.WriteString("\ndata: ")
	b.Write(bytes.ReplaceAll(data, []byte("\n"), nil))
	b.WriteString("\n\n")
	return b.Bytes()
}

func sanitize(s string) string {
	return string(bytes.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, []byte(s)))
}
