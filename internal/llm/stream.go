package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
)

// RawKind discriminates the shapes a provider transport can produce.
type RawKind int

const (
	// RawToken is already-extracted text.
	RawToken RawKind = iota
	// RawFrame is text carrying one or more "data: " frames, possibly concatenated.
	RawFrame
	// RawBytes is an undecoded network buffer in either of the shapes above.
	RawBytes
)

// RawEvent is one unit of a provider's streaming transport before normalization.
type RawEvent struct {
	Kind RawKind
	Text string
	Data []byte
}

// Token wraps plain token text.
func Token(s string) RawEvent { return RawEvent{Kind: RawToken, Text: s} }

// Frame wraps SSE frame text.
func Frame(s string) RawEvent { return RawEvent{Kind: RawFrame, Text: s} }

// Bytes wraps an undecoded buffer. The slice is retained.
func Bytes(b []byte) RawEvent { return RawEvent{Kind: RawBytes, Data: b} }

// text decodes the event, replacing invalid UTF-8 rather than failing.
func (e RawEvent) text() string {
	if e.Kind == RawBytes {
		return strings.ToValidUTF8(string(e.Data), "\uFFFD")
	}
	return e.Text
}

const (
	framePrefix  = "data: "
	doneSentinel = "[DONE]"
)

// Chunk is one element of a normalized stream. Err is nil for tokens; a chunk
// with a non-nil Err is terminal and its Text is the diagnostic marker.
type Chunk struct {
	Text string
	Err  error
}

// Failed reports whether the chunk is a terminal diagnostic.
func (c Chunk) Failed() bool { return c.Err != nil }

// StreamErrorMarker formats the inline diagnostic for a failed stream.
func StreamErrorMarker(err error) string {
	return fmt.Sprintf("[stream error: %s]", err)
}

type deltaFrame struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Normalize turns heterogeneous raw events into non-empty text tokens.
// Frame text and byte buffers are split on "data: " markers; tokens are
// passed through verbatim. A [DONE] frame ends the sequence, unparseable
// frames are skipped, and a source error becomes one final diagnostic chunk.
func Normalize(src iter.Seq2[RawEvent, error]) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for ev, err := range src {
			if err != nil {
				yield(Chunk{Text: StreamErrorMarker(err), Err: err})
				return
			}

			text := ev.text()
			if ev.Kind == RawToken || !strings.Contains(text, framePrefix) {
				if text != "" && !yield(Chunk{Text: text}) {
					return
				}
				continue
			}

			for _, part := range strings.Split(text, framePrefix) {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if part == doneSentinel {
					return
				}
				content := frameContent(part)
				if content == "" {
					continue
				}
				if !yield(Chunk{Text: content}) {
					return
				}
			}
		}
	}
}

func frameContent(payload string) string {
	var f deltaFrame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return ""
	}
	if len(f.Choices) == 0 || f.Choices[0].Delta.Content == nil {
		return ""
	}
	return *f.Choices[0].Delta.Content
}

// Stream composes a provider's raw stream with Normalize.
func Stream(ctx context.Context, p Provider, prompt string, opts Options) iter.Seq[Chunk] {
	return Normalize(p.RawStream(ctx, prompt, opts))
}

// Collect drains a normalized stream, returning the concatenated tokens and
// the terminal error, if any.
func Collect(chunks iter.Seq[Chunk]) (string, error) {
	var sb strings.Builder
	for c := range chunks {
		if c.Failed() {
			return sb.String(), c.Err
		}
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}
