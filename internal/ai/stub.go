package ai

import "context"

// Dev-mode stand-ins used when no vendor credentials are configured. They
// keep the realtime voice loop usable on a laptop; the analysis path refuses
// to run against StubCompleter because it reports Configured() == false.

// StubTranscriber returns a canned transcript for any audio.
type StubTranscriber struct{}

func NewStubTranscriber() *StubTranscriber { return &StubTranscriber{} }

func (t *StubTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	return "模拟识别：今天天气真好啊！", nil
}

// StubCompleter returns a fixed in-persona reply and reports itself as
// unconfigured.
type StubCompleter struct{}

func NewStubCompleter() *StubCompleter { return &StubCompleter{} }

func (c *StubCompleter) Configured() bool { return false }

func (c *StubCompleter) Complete(_ context.Context, _ []Message, _ SamplingParams) (string, error) {
	return "是呀！您今天过得怎么样？", nil
}

// StubSynthesizer returns no audio; callers fall back to text display.
type StubSynthesizer struct{}

func NewStubSynthesizer() *StubSynthesizer { return &StubSynthesizer{} }

func (s *StubSynthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	return nil, nil
}
