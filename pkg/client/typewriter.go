package client

import (
	"context"
	"math/rand"
	"strings"
	"time"
	"unicode"
)

// Typewriter replays known text through onUpdate in randomly sized batches
// of word tokens with randomized delays, so cached results feel like live
// streams. Pacing only; the final call always carries the full text.
type Typewriter struct {
	MinBatch int
	MaxBatch int
	MinDelay time.Duration
	MaxDelay time.Duration

	rand  *rand.Rand
	sleep func(time.Duration)
}

// NewTypewriter creates a renderer with the default pacing: 1-5 tokens per
// batch, 10-40ms between batches.
func NewTypewriter() *Typewriter {
	return &Typewriter{
		MinBatch: 1,
		MaxBatch: 5,
		MinDelay: 10 * time.Millisecond,
		MaxDelay: 40 * time.Millisecond,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    time.Sleep,
	}
}

// splitTokens breaks text into alternating word and whitespace tokens so
// that rejoining all tokens reproduces the input exactly.
func splitTokens(text string) []string {
	var tokens []string
	var current strings.Builder
	var inSpace bool

	for i, r := range text {
		isSpace := unicode.IsSpace(r)
		if i > 0 && isSpace != inSpace {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		inSpace = isSpace
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func (t *Typewriter) intn(min, max int) int {
	if max <= min {
		return min
	}
	return min + t.rand.Intn(max-min+1)
}

// Render replays text through onUpdate, passing the accumulated text so far
// on each call. Returns early when ctx is cancelled.
func (t *Typewriter) Render(ctx context.Context, text string, onUpdate func(accumulated string)) error {
	if onUpdate != nil {
		onUpdate("")
	}

	tokens := splitTokens(text)
	var accumulated strings.Builder

	for i := 0; i < len(tokens); {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := t.intn(t.MinBatch, t.MaxBatch)
		end := i + batch
		if end > len(tokens) {
			end = len(tokens)
		}
		accumulated.WriteString(strings.Join(tokens[i:end], ""))
		i = end

		if onUpdate != nil {
			onUpdate(accumulated.String())
		}

		if i < len(tokens) {
			delay := time.Duration(t.intn(int(t.MinDelay/time.Millisecond), int(t.MaxDelay/time.Millisecond))) * time.Millisecond
			t.sleep(delay)
		}
	}
	return nil
}
