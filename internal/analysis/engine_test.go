package analysis

import (
	"context"
	"errors"
)

// fakeCaller is a scripted orchestrator surface that records invocations.
// calls counts both variants; structuredCalls only the structured one.
type fakeCaller struct {
	text            string
	err             error
	calls           int
	structuredCalls int
	lastPrompt      string
}

func (f *fakeCaller) Call(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeCaller) CallStructured(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.structuredCalls++
	return f.Call(ctx, prompt, maxTokens)
}

func answeringCaller(text string) *fakeCaller {
	return &fakeCaller{text: text}
}

func failingCaller() *fakeCaller {
	return &fakeCaller{err: errors.New("all providers unavailable (3 providers tried)")}
}

func newTestEngine(caller Caller) *Engine {
	return NewEngine(caller, nil)
}
