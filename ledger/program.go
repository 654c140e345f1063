package ledger

// Program is on-ledger code invoked by instructions addressed to its ID.
type Program interface {
	// ProcessInstruction runs one instruction. Returning an error rolls back the whole transaction.
	ProcessInstruction(ctx *InvokeContext, accounts []AccountMeta, data []byte) error
}

// ProgramFunc adapts a function to the Program interface.
type ProgramFunc func(ctx *InvokeContext, accounts []AccountMeta, data []byte) error

// ProcessInstruction implements Program.
func (f ProgramFunc) ProcessInstruction(ctx *InvokeContext, accounts []AccountMeta, data []byte) error {
	return f(ctx, accounts, data)
}
