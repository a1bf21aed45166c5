package ir

// Token is one recognised instruction and the byte offset it was read from.
// Tokens are produced once by the tokenizer and never modified.
type Token struct {
	Pos    int    `json:"pos"`
	Symbol Symbol `json:"symbol"`
}

// Step is the observable record of one executed instruction.
//
// Index is the instruction index after the step, which is the jump target
// when a loop delimiter jumped. Pos and Symbol describe the token that was
// executed. Pointer and Cell describe the tape after the step.
type Step struct {
	Seq     int64  `json:"seq"`
	Index   int    `json:"index"`
	Pointer int    `json:"pointer"`
	Pos     int    `json:"pos"`
	Symbol  Symbol `json:"symbol"`
	Cell    byte   `json:"cell"`
}

// Object returns the step as a plain map for canonical serialization.
func (s Step) Object() map[string]any {
	return map[string]any{
		"seq":     s.Seq,
		"index":   s.Index,
		"pointer": s.Pointer,
		"pos":     s.Pos,
		"symbol":  s.Symbol.String(),
		"cell":    int(s.Cell),
	}
}
