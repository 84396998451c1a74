package model

// TestBlock is one test unit attributed to a (FunctionName, TestCategory) pair.
// Body lines carry their final indentation.
type TestBlock struct {
	Function    FunctionName
	Category    TestCategory
	Body        []string
	Synthesized bool // fallback block, not produced by the backend
}

// TestName returns the canonical test function identifier.
func (b TestBlock) TestName() string {
	return "test_" + string(b.Function) + "_" + string(b.Category)
}

// GeneratedArtifact is the raw backend output for one generation attempt.
type GeneratedArtifact string

// SynthesisResult is the assembled test module plus how it was obtained.
type SynthesisResult struct {
	Text        string
	Attempts    int
	Failures    []string // one entry per failed attempt
	Degraded    bool     // fallback stub returned after exhausting attempts
	Synthesized int      // fallback blocks inserted by the normalizer
}

// GenerationParams holds backend sampling parameters.
type GenerationParams struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
	Stream      bool
}

// GenerationRequest is a single request to a generative backend.
type GenerationRequest struct {
	System string
	Prompt string
	Params GenerationParams
}
