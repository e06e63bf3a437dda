package http

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// LineSubscriber receives each line of a stream. Lines holding a JSON
// object or array arrive decoded.
type LineSubscriber func(line any, unsubscribe func())

// MessageSubscriber receives each message of a stream. output is nil when
// the protocol cannot carry answers back to the server.
type MessageSubscriber func(message any, unsubscribe func(), output func(answer string))

// Stream is a response body consumed incrementally.
type Stream struct {
	mu     sync.Mutex
	reader io.Reader
	sse    bool
	used   bool
}

// NewStream wraps r. With sse set, messages are framed as Server-Sent
// Events; otherwise every line is a message.
func NewStream(r io.Reader, sse bool) *Stream {
	return &Stream{reader: r, sse: sse}
}

// OnEachLine feeds every line to subscriber until the stream ends or the
// subscriber unsubscribes, then calls onFinish once.
func (s *Stream) OnEachLine(subscriber LineSubscriber, onFinish func()) error {
	return s.consume(func(emit func(string) bool) error {
		scanner := newScanner(s.reader)
		for scanner.Scan() {
			if !emit(scanner.Text()) {
				return nil
			}
		}
		return scanner.Err()
	}, func(text string, unsubscribe func()) {
		if subscriber != nil {
			subscriber(decodeLine(text), unsubscribe)
		}
	}, onFinish)
}

// OnEachMessage feeds every message to subscriber. For event streams a
// message is the data of one event; otherwise it is one non-empty line.
func (s *Stream) OnEachMessage(subscriber MessageSubscriber, onFinish func()) error {
	produce := func(emit func(string) bool) error {
		scanner := newScanner(s.reader)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !emit(line) {
				return nil
			}
		}
		return scanner.Err()
	}
	if s.sse {
		produce = func(emit func(string) bool) error {
			return parseEvents(s.reader, func(ev Event) bool {
				return emit(ev.Data)
			})
		}
	}

	return s.consume(produce, func(text string, unsubscribe func()) {
		if subscriber != nil {
			subscriber(decodeLine(text), unsubscribe, nil)
		}
	}, onFinish)
}

func (s *Stream) consume(produce func(emit func(string) bool) error, deliver func(string, func()), onFinish func()) error {
	s.mu.Lock()
	if s.used {
		s.mu.Unlock()
		if onFinish != nil {
			onFinish()
		}
		return nil
	}
	s.used = true
	s.mu.Unlock()

	stopped := false
	unsubscribe := func() { stopped = true }

	err := produce(func(text string) bool {
		deliver(text, unsubscribe)
		return !stopped
	})

	if onFinish != nil {
		onFinish()
	}
	return err
}

const maxLineSize = 1024 * 1024

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// decodeLine returns the decoded JSON value for object/array lines and the
// text itself for everything else.
func decodeLine(line string) any {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return line
	}
	if (trimmed[0] == '{' || trimmed[0] == '[') && gjson.Valid(trimmed) {
		return gjson.Parse(trimmed).Value()
	}
	return line
}

// Event is a single Server-Sent Event.
type Event struct {
	ID   string
	Type string
	Data string
}

// parseEvents reads SSE events from r and hands each to fn until fn
// returns false or the input ends.
func parseEvents(r io.Reader, fn func(Event) bool) error {
	scanner := newScanner(r)
	var current Event
	var dataLines []string

	flush := func() bool {
		if len(dataLines) == 0 {
			current = Event{}
			return true
		}
		current.Data = strings.Join(dataLines, "\n")
		cont := fn(current)
		current = Event{}
		dataLines = nil
		return cont
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line signals end of event
		if line == "" {
			if !flush() {
				return nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found && strings.HasPrefix(value, " ") {
			value = value[1:]
		}

		switch field {
		case "event":
			current.Type = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			current.ID = value
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	flush()
	return nil
}
